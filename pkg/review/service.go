// Package review implements the reviewer-facing action transaction: approve,
// reject, or modify a Criterion, Entity, or CriteriaBatch, with an immutable
// Review row and a matching AuditLog entry written in the same transaction,
// and the parent batch's review_status recomputed from its children.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/ent/criteriabatch"
	"github.com/elixirtrials/elixirtrials/ent/criterion"
	"github.com/elixirtrials/elixirtrials/ent/entity"
	entreview "github.com/elixirtrials/elixirtrials/ent/review"
	"github.com/elixirtrials/elixirtrials/pkg/apperrors"
	"github.com/elixirtrials/elixirtrials/pkg/events"
	"github.com/elixirtrials/elixirtrials/pkg/metrics"
)

// TargetType identifies what kind of row a review action mutates.
type TargetType string

const (
	TargetCriteria TargetType = "criteria"
	TargetEntity   TargetType = "entity"
	TargetBatch    TargetType = "batch"
)

// Action is one of the three reviewer decisions a Review row can record.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionModify  Action = "modify"
)

// Request describes one reviewer action against a single target row.
type Request struct {
	TargetType TargetType
	TargetID   string
	ReviewerID string
	Action     Action
	Comment    string

	// TextEdit carries a single structured field edit for action=modify
	// (e.g. {"text": "Age >= 18 years"} or {"preferred_term": "..."})."
	TextEdit map[string]interface{}

	// FieldMappings carries a v1.5 multi-mapping edit for action=modify.
	// When present it replaces criterion.conditions.field_mappings wholesale
	// and takes precedence over TextEdit for schema_version classification.
	FieldMappings []map[string]interface{}
}

// Result is what one review action produced, used both as the HTTP
// response body and to publish the review.action event after commit.
type Result struct {
	Review      *ent.Review
	ProtocolID  string
	BatchID     string
	NoOp        bool
	BatchStatus string
}

// Service runs the atomic review-action transaction: snapshot the target
// before, apply edits, snapshot it after, flip review_status, insert Review
// + AuditLog together, then recompute the parent batch's auto-transitioned
// status. Steps 5 and 6 (Review + AuditLog insert) commit together or both
// roll back since they share one transaction.
type Service struct {
	client    *ent.Client
	publisher *events.EventPublisher
	metrics   *metrics.Recorder
}

// NewService builds a Service over a shared ent client, event publisher, and
// metrics recorder. recorder may be nil in tests that don't care about
// counters.
func NewService(client *ent.Client, publisher *events.EventPublisher, recorder *metrics.Recorder) *Service {
	return &Service{client: client, publisher: publisher, metrics: recorder}
}

// Act validates and runs one review action end to end, including publishing
// the resulting review.action event once the transaction commits.
func (s *Service) Act(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin review transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := s.act(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review transaction: %w", err)
	}

	s.publish(ctx, req, result)
	return result, nil
}

func validate(req Request) error {
	if req.TargetID == "" {
		return apperrors.NewValidationError("target_id", "required")
	}
	if req.ReviewerID == "" {
		return apperrors.NewValidationError("reviewer_id", "required")
	}
	switch req.Action {
	case ActionApprove, ActionReject, ActionModify:
	default:
		return apperrors.NewValidationError("action", "must be one of approve, reject, modify")
	}
	switch req.TargetType {
	case TargetCriteria, TargetEntity, TargetBatch:
	default:
		return apperrors.NewValidationError("target_type", "must be one of criteria, entity, batch")
	}
	return nil
}

func (s *Service) act(ctx context.Context, tx *ent.Tx, req Request) (*Result, error) {
	switch req.TargetType {
	case TargetCriteria:
		return s.actOnCriterion(ctx, tx, req)
	case TargetEntity:
		return s.actOnEntity(ctx, tx, req)
	default:
		return s.actOnBatch(ctx, tx, req)
	}
}

// actOnCriterion runs the full 7-step transaction against a Criterion row.
func (s *Service) actOnCriterion(ctx context.Context, tx *ent.Tx, req Request) (*Result, error) {
	row, err := tx.Criterion.Get(ctx, req.TargetID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("criterion", req.TargetID)
		}
		return nil, fmt.Errorf("load criterion %s: %w", req.TargetID, err)
	}

	if noOp, existing := checkIdempotent(req, criterionReviewStatus(row)); noOp {
		return s.resultForExisting(ctx, tx, req, existing)
	}

	before := snapshot(row)

	update := tx.Criterion.UpdateOneID(req.TargetID)
	schemaVersion := "text_v1"
	if req.Action == ActionModify {
		schemaVersion = applyCriterionEdit(update, req)
	}
	update = update.SetReviewStatus(criterion.ReviewStatus(reviewStatusFor(req.Action)))

	updated, err := update.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply criterion review action: %w", err)
	}
	after := snapshot(updated)

	reviewRow, err := writeReviewAndAudit(ctx, tx, req, before, after, schemaVersion)
	if err != nil {
		return nil, err
	}

	batchStatus, err := recomputeBatchStatus(ctx, tx, updated.BatchID)
	if err != nil {
		return nil, err
	}

	batch, err := tx.CriteriaBatch.Get(ctx, updated.BatchID)
	if err != nil {
		return nil, fmt.Errorf("load batch %s: %w", updated.BatchID, err)
	}

	return &Result{Review: reviewRow, ProtocolID: batch.ProtocolID, BatchID: updated.BatchID, BatchStatus: batchStatus}, nil
}

// applyCriterionEdit applies a modify action's edits to the update builder
// and returns the audit schema_version the edit corresponds to.
func applyCriterionEdit(update *ent.CriterionUpdateOne, req Request) string {
	if len(req.FieldMappings) > 0 {
		update.SetConditions(map[string]interface{}{"field_mappings": req.FieldMappings})
		return "v1.5-multi"
	}
	if len(req.TextEdit) == 0 {
		return "text_v1"
	}
	for field, value := range req.TextEdit {
		switch field {
		case "text":
			if s, ok := value.(string); ok {
				update.SetText(s)
			}
		case "category":
			if s, ok := value.(string); ok {
				update.SetCategory(s)
			}
		case "temporal_constraint":
			if s, ok := value.(string); ok {
				update.SetTemporalConstraint(s)
			}
		case "numeric_thresholds":
			if m, ok := value.(map[string]interface{}); ok {
				update.SetNumericThresholds(m)
			}
		}
	}
	return "structured_v1"
}

func (s *Service) actOnEntity(ctx context.Context, tx *ent.Tx, req Request) (*Result, error) {
	row, err := tx.Entity.Get(ctx, req.TargetID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("entity", req.TargetID)
		}
		return nil, fmt.Errorf("load entity %s: %w", req.TargetID, err)
	}

	if noOp, existing := checkIdempotent(req, entityReviewStatus(row)); noOp {
		return s.resultForExisting(ctx, tx, req, existing)
	}

	before := snapshot(row)

	update := tx.Entity.UpdateOneID(req.TargetID)
	schemaVersion := "text_v1"
	if req.Action == ActionModify && len(req.TextEdit) > 0 {
		schemaVersion = applyEntityEdit(update, req.TextEdit)
	}
	update = update.SetReviewStatus(entity.ReviewStatus(reviewStatusFor(req.Action)))

	updated, err := update.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply entity review action: %w", err)
	}
	after := snapshot(updated)

	reviewRow, err := writeReviewAndAudit(ctx, tx, req, before, after, schemaVersion)
	if err != nil {
		return nil, err
	}

	criterionRow, err := tx.Criterion.Get(ctx, updated.CriterionID)
	if err != nil {
		return nil, fmt.Errorf("load criterion %s: %w", updated.CriterionID, err)
	}
	batch, err := tx.CriteriaBatch.Get(ctx, criterionRow.BatchID)
	if err != nil {
		return nil, fmt.Errorf("load batch %s: %w", criterionRow.BatchID, err)
	}

	return &Result{Review: reviewRow, ProtocolID: batch.ProtocolID, BatchID: batch.ID, BatchStatus: string(batch.ReviewStatus)}, nil
}

func applyEntityEdit(update *ent.EntityUpdateOne, edits map[string]interface{}) string {
	for field, value := range edits {
		s, ok := value.(string)
		if !ok {
			continue
		}
		switch field {
		case "preferred_term":
			update.SetPreferredTerm(s)
		case "umls_cui":
			update.SetUmlsCui(s)
		case "snomed_code":
			update.SetSnomedCode(s)
		case "icd10_code":
			update.SetIcd10Code(s)
		case "rxnorm_code":
			update.SetRxnormCode(s)
		case "loinc_code":
			update.SetLoincCode(s)
		case "hpo_code":
			update.SetHpoCode(s)
		}
	}
	return "structured_v1"
}

// actOnBatch records a reviewer sign-off comment against the batch without
// mutating CriteriaBatch.review_status directly: that field is invariant to
// always equal the function of its children (recomputeBatchStatus), so a
// batch-targeted review is a recorded decision/comment, not an override.
func (s *Service) actOnBatch(ctx context.Context, tx *ent.Tx, req Request) (*Result, error) {
	row, err := tx.CriteriaBatch.Get(ctx, req.TargetID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("batch", req.TargetID)
		}
		return nil, fmt.Errorf("load batch %s: %w", req.TargetID, err)
	}

	snap := snapshot(row)
	reviewRow, err := writeReviewAndAudit(ctx, tx, req, snap, snap, "text_v1")
	if err != nil {
		return nil, err
	}

	return &Result{Review: reviewRow, ProtocolID: row.ProtocolID, BatchID: row.ID, BatchStatus: string(row.ReviewStatus)}, nil
}

func reviewStatusFor(action Action) string {
	switch action {
	case ActionApprove:
		return "approved"
	case ActionReject:
		return "rejected"
	default:
		return "modified"
	}
}

// checkIdempotent reports whether an approve/reject action against a target
// already at that review_status should be treated as a no-op: applying
// approve twice produces exactly one Review row, with the second call
// returning the first's result rather than writing a duplicate.
func checkIdempotent(req Request, current *string) (bool, string) {
	if req.Action == ActionModify || current == nil {
		return false, ""
	}
	if *current == reviewStatusFor(req.Action) {
		return true, *current
	}
	return false, ""
}

func (s *Service) resultForExisting(ctx context.Context, tx *ent.Tx, req Request, _ string) (*Result, error) {
	existing, err := tx.Review.Query().
		Where(entreview.TargetTypeEQ(entreview.TargetType(req.TargetType)), entreview.TargetID(req.TargetID)).
		Order(ent.Desc(entreview.FieldCreatedAt)).
		First(ctx)
	if err != nil && !ent.IsNotFound(err) {
		return nil, fmt.Errorf("load existing review for no-op action: %w", err)
	}
	return &Result{Review: existing, NoOp: true}, nil
}

func writeReviewAndAudit(ctx context.Context, tx *ent.Tx, req Request, before, after map[string]interface{}, schemaVersion string) (*ent.Review, error) {
	reviewRow, err := tx.Review.Create().
		SetID(uuid.NewString()).
		SetTargetType(entreview.TargetType(req.TargetType)).
		SetTargetID(req.TargetID).
		SetReviewerID(req.ReviewerID).
		SetAction(entreview.Action(req.Action)).
		SetBeforeValue(before).
		SetAfterValue(after).
		SetNillableComment(nonEmptyPtr(req.Comment)).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	details := map[string]interface{}{
		"schema_version": schemaVersion,
		"review_id":      reviewRow.ID,
		"action":         string(req.Action),
	}
	if _, err := tx.AuditLog.Create().
		SetID(uuid.NewString()).
		SetEventType("review_action").
		SetNillableActorID(nonEmptyPtr(req.ReviewerID)).
		SetTargetType(string(req.TargetType)).
		SetTargetID(req.TargetID).
		SetDetails(details).
		Save(ctx); err != nil {
		return nil, fmt.Errorf("create audit log: %w", err)
	}

	return reviewRow, nil
}

// recomputeBatchStatus implements the batch auto-transition rules: the
// first child review moves a batch out of pending_review into in_progress;
// once every child has been reviewed, the outcome (all approved / any
// rejected / mixed) decides the terminal status.
func recomputeBatchStatus(ctx context.Context, tx *ent.Tx, batchID string) (string, error) {
	criteria, err := tx.Criterion.Query().Where(criterion.BatchID(batchID)).All(ctx)
	if err != nil {
		return "", fmt.Errorf("query batch criteria: %w", err)
	}

	total := len(criteria)
	reviewed, approved, rejected := 0, 0, 0
	for _, c := range criteria {
		if c.ReviewStatus == nil {
			continue
		}
		reviewed++
		switch *c.ReviewStatus {
		case criterion.ReviewStatusApproved:
			approved++
		case criterion.ReviewStatusRejected:
			rejected++
		}
	}

	batch, err := tx.CriteriaBatch.Get(ctx, batchID)
	if err != nil {
		return "", fmt.Errorf("load batch %s: %w", batchID, err)
	}

	next := string(batch.ReviewStatus)
	switch {
	case reviewed == 0:
		// stays at whatever it currently is (pending_review at rest)
	case reviewed < total:
		next = "in_progress"
	case rejected > 0:
		next = "rejected"
	case approved == total:
		next = "approved"
	default:
		next = "reviewed"
	}

	if next != string(batch.ReviewStatus) {
		if err := tx.CriteriaBatch.UpdateOneID(batchID).
			SetReviewStatus(criteriabatch.ReviewStatus(next)).
			Exec(ctx); err != nil {
			return "", fmt.Errorf("update batch review_status: %w", err)
		}
	}
	return next, nil
}

func criterionReviewStatus(row *ent.Criterion) *string {
	if row.ReviewStatus == nil {
		return nil
	}
	s := string(*row.ReviewStatus)
	return &s
}

func entityReviewStatus(row *ent.Entity) *string {
	if row.ReviewStatus == nil {
		return nil
	}
	s := string(*row.ReviewStatus)
	return &s
}

// snapshot turns any ent row into a plain JSON-able map for before_value /
// after_value, round-tripping through JSON rather than listing fields by
// hand so every generated struct field is captured consistently.
func snapshot(row interface{}) map[string]interface{} {
	buf, err := json.Marshal(row)
	if err != nil {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(buf, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

func (s *Service) publish(ctx context.Context, req Request, result *Result) {
	if result.NoOp {
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveReviewAction(string(req.TargetType), string(req.Action))
	}
	if s.publisher == nil {
		return
	}
	_ = s.publisher.PublishReviewAction(ctx, result.ProtocolID, events.ReviewActionPayload{
		Type:       events.EventTypeReviewAction,
		ProtocolID: result.ProtocolID,
		BatchID:    result.BatchID,
		TargetType: string(req.TargetType),
		TargetID:   req.TargetID,
		Action:     string(req.Action),
		ReviewerID: req.ReviewerID,
		Timestamp:  time.Now().Format(time.RFC3339Nano),
	})
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
