package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// auditLogRow is one row of the audit trail, read directly off audit_logs
// rather than through ent since nothing here writes and the handler only
// ever needs a flat projection, not the full generated entity.
type auditLogRow struct {
	ID         string    `json:"id"`
	EventType  string    `json:"event_type"`
	ActorID    *string   `json:"actor_id"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	CreatedAt  time.Time `json:"created_at"`
}

const auditLogByBatchQuery = `
SELECT a.audit_log_id, a.event_type, a.actor_id, a.target_type, a.target_id, a.created_at
FROM audit_logs a
JOIN criteria c ON c.criterion_id = a.target_id AND a.target_type = 'criteria'
WHERE c.batch_id = $1
ORDER BY a.created_at DESC
LIMIT 200
`

const auditLogRecentQuery = `
SELECT audit_log_id, event_type, actor_id, target_type, target_id, created_at
FROM audit_logs
ORDER BY created_at DESC
LIMIT 200
`

// auditLogHandler lists recent audit log entries, scoped to one batch's
// criteria via ?batch_id= or, absent that, the 200 most recent system-wide.
func (s *Server) auditLogHandler(c *gin.Context) {
	ctx := c.Request.Context()

	query := auditLogRecentQuery
	args := []any{}
	if batchID := c.Query("batch_id"); batchID != "" {
		query = auditLogByBatchQuery
		args = append(args, batchID)
	}

	rows, err := s.db().QueryContext(ctx, query, args...)
	if err != nil {
		writeServiceError(c, fmt.Errorf("query audit log: %w", err))
		return
	}
	defer rows.Close()

	entries := []auditLogRow{}
	for rows.Next() {
		var row auditLogRow
		if err := rows.Scan(&row.ID, &row.EventType, &row.ActorID, &row.TargetType, &row.TargetID, &row.CreatedAt); err != nil {
			writeServiceError(c, fmt.Errorf("scan audit log row: %w", err))
			return
		}
		entries = append(entries, row)
	}
	if err := rows.Err(); err != nil {
		writeServiceError(c, fmt.Errorf("iterate audit log rows: %w", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// pendingBatchSummary is one active batch's unreviewed criteria count.
type pendingBatchSummary struct {
	BatchID    string `json:"batch_id"`
	ProtocolID string `json:"protocol_id"`
	Pending    int    `json:"pending"`
}

const pendingSummaryQuery = `
SELECT b.batch_id, b.protocol_id, count(*) AS pending
FROM criteria c
JOIN criteria_batches b ON b.batch_id = c.batch_id
WHERE c.review_status IS NULL AND b.is_archived = false
GROUP BY b.batch_id, b.protocol_id
ORDER BY pending DESC
`

// pendingSummaryHandler reports, per active batch, how many criteria
// still have no reviewer decision — the counts a review queue dashboard
// would poll to know where attention is needed.
func (s *Server) pendingSummaryHandler(c *gin.Context) {
	ctx := c.Request.Context()

	rows, err := s.db().QueryContext(ctx, pendingSummaryQuery)
	if err != nil {
		writeServiceError(c, fmt.Errorf("query pending summary: %w", err))
		return
	}
	defer rows.Close()

	summaries := []pendingBatchSummary{}
	total := 0
	for rows.Next() {
		var row pendingBatchSummary
		if err := rows.Scan(&row.BatchID, &row.ProtocolID, &row.Pending); err != nil {
			writeServiceError(c, fmt.Errorf("scan pending summary row: %w", err))
			return
		}
		total += row.Pending
		summaries = append(summaries, row)
	}
	if err := rows.Err(); err != nil {
		writeServiceError(c, fmt.Errorf("iterate pending summary rows: %w", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"batches": summaries, "total_pending": total})
}
