package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/ent/criteriabatch"
	"github.com/elixirtrials/elixirtrials/ent/criterion"
	"github.com/elixirtrials/elixirtrials/pkg/llmgateway"
	"github.com/elixirtrials/elixirtrials/pkg/review"
)

// listReviewBatchesHandler lists active (non-archived) batches, optionally
// scoped to one protocol via ?protocol_id=.
func (s *Server) listReviewBatchesHandler(c *gin.Context) {
	ctx := c.Request.Context()
	query := s.client.CriteriaBatch.Query().Where(criteriabatch.IsArchived(false))

	if protocolID := c.Query("protocol_id"); protocolID != "" {
		query = query.Where(criteriabatch.ProtocolID(protocolID))
	}

	rows, err := query.Order(ent.Desc(criteriabatch.FieldCreatedAt)).All(ctx)
	if err != nil {
		writeServiceError(c, fmt.Errorf("list review batches: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": rows})
}

// batchCriteriaHandler lists a batch's criteria together with each
// criterion's grounded entities, the shape the review queue renders one
// screen from.
func (s *Server) batchCriteriaHandler(c *gin.Context) {
	ctx := c.Request.Context()
	batchID := c.Param("id")

	criteria, err := s.client.Criterion.Query().
		Where(criterion.BatchID(batchID)).
		Order(ent.Asc(criterion.FieldPageNumber)).
		All(ctx)
	if err != nil {
		writeServiceError(c, fmt.Errorf("list criteria for batch %s: %w", batchID, err))
		return
	}

	type criterionWithEntities struct {
		*ent.Criterion
		Entities []*ent.Entity `json:"entities"`
	}

	out := make([]criterionWithEntities, 0, len(criteria))
	for _, crit := range criteria {
		entities, err := crit.QueryEntities().All(ctx)
		if err != nil {
			writeServiceError(c, fmt.Errorf("list entities for criterion %s: %w", crit.ID, err))
			return
		}
		out = append(out, criterionWithEntities{Criterion: crit, Entities: entities})
	}

	c.JSON(http.StatusOK, gin.H{"criteria": out})
}

// batchMetricsHandler reports a batch's approval/rejection/modification
// breakdown.
func (s *Server) batchMetricsHandler(c *gin.Context) {
	report, err := s.agreement.BatchAgreement(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, fmt.Errorf("compute batch agreement: %w", err))
		return
	}
	c.JSON(http.StatusOK, report)
}

// criterionActionHandler runs one reviewer action (approve/reject/modify)
// against a single Criterion row.
func (s *Server) criterionActionHandler(c *gin.Context) {
	var body reviewActionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action is required"})
		return
	}

	req := review.Request{
		TargetType:    review.TargetCriteria,
		TargetID:      c.Param("id"),
		ReviewerID:    extractAuthor(c),
		Action:        review.Action(body.Action),
		Comment:       body.Comment,
		TextEdit:      body.TextEdit,
		FieldMappings: body.FieldMappings,
	}

	result, err := s.reviewSvc.Act(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// criterionRerunLLMResult is the shape criterion_rerun.tmpl's structured
// output decodes into. criterionRerunHandler reads the criterion's current
// recorded state but never writes anything back — the response is a
// proposal for a reviewer to accept via the ordinary action endpoint.
type criterionRerunLLMResult struct {
	Assertion     string                   `json:"assertion"`
	Category      string                   `json:"category"`
	FieldMappings []map[string]interface{} `json:"field_mappings"`
	Confidence    float64                  `json:"confidence"`
	Reasoning     string                   `json:"reasoning"`
}

var criterionRerunSchema = &llmgateway.Schema{
	Type: "object",
	Properties: map[string]*llmgateway.Schema{
		"assertion":      {Type: "string", Enum: []string{"affirmed", "negated"}},
		"category":       {Type: "string"},
		"field_mappings": {Type: "array", Items: &llmgateway.Schema{Type: "object"}},
		"confidence":     {Type: "number"},
		"reasoning":      {Type: "string"},
	},
	Required: []string{"assertion", "confidence", "reasoning"},
}

func (s *Server) criterionRerunHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	crit, err := s.client.Criterion.Get(ctx, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	fieldMappingsJSON, err := json.Marshal(crit.Conditions["field_mappings"])
	if err != nil {
		writeServiceError(c, fmt.Errorf("marshal current field mappings: %w", err))
		return
	}

	var rerunResult criterionRerunLLMResult
	if err := s.gateway.CallStructured(ctx, llmgateway.CallRequest{
		TemplateName:   "criterion_rerun",
		Target:         llmgateway.TargetGemini,
		ResponseSchema: criterionRerunSchema,
		Variables: map[string]any{
			"criterion_text": crit.Text,
			"criterion_type": string(crit.CriterionType),
			"assertion":      string(crit.Assertion),
			"category":       crit.Category,
			"field_mappings": string(fieldMappingsJSON),
		},
	}, &rerunResult); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, criterionRerunResponse{
		CriterionID:   id,
		Assertion:     rerunResult.Assertion,
		Category:      rerunResult.Category,
		FieldMappings: rerunResult.FieldMappings,
		Confidence:    rerunResult.Confidence,
		Reasoning:     rerunResult.Reasoning,
	})
}

// batchCompareHandler diffs two batches of the same protocol, identified
// by ?old= and ?new= batch IDs.
func (s *Server) batchCompareHandler(c *gin.Context) {
	oldBatchID := c.Query("old")
	newBatchID := c.Query("new")
	if oldBatchID == "" || newBatchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old and new batch IDs are both required"})
		return
	}

	rows, err := s.reextractSvc.Compare(c.Request.Context(), oldBatchID, newBatchID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comparisons": rows})
}
