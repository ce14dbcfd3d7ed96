package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// criteriaSearchRow is one full-text search hit, ranked by Postgres's
// ts_rank against the GIN index pkg/database/migrations.go's
// CreateGINIndexes builds on criteria.text.
type criteriaSearchRow struct {
	CriterionID   string  `json:"criterion_id"`
	BatchID       string  `json:"batch_id"`
	CriterionType string  `json:"criterion_type"`
	ReviewStatus  *string `json:"review_status"`
	Text          string  `json:"text"`
	Rank          float64 `json:"rank"`
}

const criteriaSearchQuery = `
SELECT criterion_id, batch_id, criterion_type, review_status, text,
	ts_rank(to_tsvector('english', text), plainto_tsquery('english', $1)) AS rank
FROM criteria
WHERE to_tsvector('english', text) @@ plainto_tsquery('english', $1)
	AND ($2 = '' OR criterion_type = $2)
	AND ($3 = '' OR review_status = $3)
ORDER BY rank DESC
LIMIT 100
`

// criteriaSearchHandler runs a full-text search against criteria.text via
// Postgres's to_tsvector/plainto_tsquery, optionally narrowed by
// ?type=inclusion|exclusion and ?status=approved|rejected|modified. There
// is no LIKE fallback: pkg/database only ever connects to Postgres (the
// connection string and driver are hardcoded, not backend-selectable), so
// there is nothing to dispatch a fallback path on.
func (s *Server) criteriaSearchHandler(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	rows, err := s.db().QueryContext(c.Request.Context(), criteriaSearchQuery,
		q, c.Query("type"), c.Query("status"))
	if err != nil {
		writeServiceError(c, fmt.Errorf("search criteria: %w", err))
		return
	}
	defer rows.Close()

	results := []criteriaSearchRow{}
	for rows.Next() {
		var row criteriaSearchRow
		if err := rows.Scan(&row.CriterionID, &row.BatchID, &row.CriterionType, &row.ReviewStatus, &row.Text, &row.Rank); err != nil {
			writeServiceError(c, fmt.Errorf("scan criteria search row: %w", err))
			return
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		writeServiceError(c, fmt.Errorf("iterate criteria search rows: %w", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}
