package reextract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/ent/criteriabatch"
	"github.com/elixirtrials/elixirtrials/ent/criterion"
	entreview "github.com/elixirtrials/elixirtrials/ent/review"
	"github.com/elixirtrials/elixirtrials/pkg/apperrors"
	"github.com/elixirtrials/elixirtrials/pkg/pipeline"
)

// Result is what Trigger returns once a re-extraction run and its
// inheritance pass both finish.
type Result struct {
	ProtocolID      string
	ArchivedBatchID string
	NewBatchID      string
	Inherited       int
	Fresh           int
}

// Service archives a protocol's active batch, re-runs the pipeline, and
// carries reviewer decisions over to the new batch's matching criteria.
type Service struct {
	client      *ent.Client
	runner      *pipeline.Runner
	checkpoints *pipeline.CheckpointStore
	logger      *slog.Logger
}

// NewService wires a reextract.Service against the same ent client and
// pipeline runner the rest of the application uses.
func NewService(client *ent.Client, runner *pipeline.Runner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:      client,
		runner:      runner,
		checkpoints: pipeline.NewCheckpointStore(client),
		logger:      logger,
	}
}

// Trigger archives protocolID's current active (non-archived) batch,
// clears its pipeline checkpoints so the next run executes every node
// fresh rather than resuming from the batch just archived, runs the
// pipeline again, then inherits review decisions onto the new batch from
// whichever archived criterion each new one best matches.
func (s *Service) Trigger(ctx context.Context, protocolID string) (*Result, error) {
	if protocolID == "" {
		return nil, apperrors.NewValidationError("protocol_id", "must not be empty")
	}

	oldBatch, err := s.activeBatch(ctx, protocolID)
	if err != nil {
		return nil, err
	}

	if oldBatch != nil {
		if err := s.client.CriteriaBatch.UpdateOneID(oldBatch.ID).
			SetIsArchived(true).
			Exec(ctx); err != nil {
			return nil, fmt.Errorf("archive batch %s: %w", oldBatch.ID, err)
		}
	}

	if err := s.checkpoints.ClearAll(ctx, protocolID); err != nil {
		return nil, err
	}

	if err := s.runner.Run(ctx, protocolID); err != nil {
		return nil, fmt.Errorf("re-run pipeline for protocol %s: %w", protocolID, err)
	}

	newBatch, err := s.activeBatch(ctx, protocolID)
	if err != nil {
		return nil, err
	}
	if newBatch == nil {
		return nil, fmt.Errorf("re-extraction for protocol %s produced no active batch", protocolID)
	}

	result := &Result{ProtocolID: protocolID, NewBatchID: newBatch.ID}
	if oldBatch == nil {
		return result, nil
	}
	result.ArchivedBatchID = oldBatch.ID

	inherited, fresh, err := s.inherit(ctx, oldBatch.ID, newBatch.ID)
	if err != nil {
		return nil, err
	}
	result.Inherited = inherited
	result.Fresh = fresh
	return result, nil
}

// Compare reports the batch-to-batch diff between any two batches of the
// same protocol — used by the review queue's timeline view independently
// of whether Trigger ran the comparison's "new" batch itself.
func (s *Service) Compare(ctx context.Context, oldBatchID, newBatchID string) ([]CompareRow, error) {
	oldCriteria, err := s.client.Criterion.Query().Where(criterion.BatchID(oldBatchID)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load old batch criteria: %w", err)
	}
	newCriteria, err := s.client.Criterion.Query().Where(criterion.BatchID(newBatchID)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load new batch criteria: %w", err)
	}

	return classifyCompare(toMatchables(oldCriteria), toMatchables(newCriteria)), nil
}

func (s *Service) activeBatch(ctx context.Context, protocolID string) (*ent.CriteriaBatch, error) {
	row, err := s.client.CriteriaBatch.Query().
		Where(criteriabatch.ProtocolID(protocolID), criteriabatch.IsArchived(false)).
		Order(ent.Desc(criteriabatch.FieldCreatedAt)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query active batch for protocol %s: %w", protocolID, err)
	}
	return row, nil
}

// inherit matches newBatchID's criteria against oldBatchID's by fuzzy text
// score and, for every pair scoring at or above the inheritance threshold
// whose archived criterion actually carries a review decision, copies that
// decision's review_status, field_mappings, and audit trail onto the new
// criterion. Everything else keeps the fresh review_status=null and
// field_mappings the new extraction run itself produced.
func (s *Service) inherit(ctx context.Context, oldBatchID, newBatchID string) (inherited, fresh int, err error) {
	oldCriteria, err := s.client.Criterion.Query().Where(criterion.BatchID(oldBatchID)).All(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load old batch criteria: %w", err)
	}
	newCriteria, err := s.client.Criterion.Query().Where(criterion.BatchID(newBatchID)).All(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load new batch criteria: %w", err)
	}

	oldByID := make(map[string]*ent.Criterion, len(oldCriteria))
	for _, c := range oldCriteria {
		oldByID[c.ID] = c
	}
	newByID := make(map[string]*ent.Criterion, len(newCriteria))
	for _, c := range newCriteria {
		newByID[c.ID] = c
	}

	matched, _, unmatchedNew := bestMatches(toMatchables(oldCriteria), toMatchables(newCriteria))
	fresh = len(unmatchedNew)

	tx, err := s.client.Tx(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin inheritance transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range matched {
		if m.Score < inheritanceThreshold {
			fresh++
			continue
		}
		oldRow := oldByID[m.OldID]
		newRow := newByID[m.NewID]
		if oldRow == nil || newRow == nil || oldRow.ReviewStatus == nil {
			fresh++
			continue
		}

		ok, err := s.inheritOne(ctx, tx, oldRow, newRow)
		if err != nil {
			return 0, 0, err
		}
		if ok {
			inherited++
		} else {
			fresh++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit inheritance transaction: %w", err)
	}
	return inherited, fresh, nil
}

// inheritOne copies oldRow's review status, field_mappings, and most
// recent review decision onto newRow. It is a no-op (returns false, nil)
// rather than an error when oldRow has no underlying Review row to copy —
// that should never happen given oldRow.ReviewStatus is non-nil, but a
// missing audit trail is a data problem to log and skip, not to fail the
// whole re-extraction over.
func (s *Service) inheritOne(ctx context.Context, tx *ent.Tx, oldRow, newRow *ent.Criterion) (bool, error) {
	sourceReview, err := tx.Review.Query().
		Where(entreview.TargetTypeEQ(entreview.TargetTypeCriteria), entreview.TargetID(oldRow.ID)).
		Order(ent.Desc(entreview.FieldCreatedAt)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			s.logger.Warn("criterion has review_status but no review row to inherit",
				"old_criterion_id", oldRow.ID, "new_criterion_id", newRow.ID)
			return false, nil
		}
		return false, fmt.Errorf("load source review for criterion %s: %w", oldRow.ID, err)
	}

	if _, err := tx.Criterion.UpdateOneID(newRow.ID).
		SetReviewStatus(*oldRow.ReviewStatus).
		SetConditions(oldRow.Conditions).
		Save(ctx); err != nil {
		return false, fmt.Errorf("inherit review status onto criterion %s: %w", newRow.ID, err)
	}

	comment := "inherited from re-extraction match"
	if _, err := tx.Review.Create().
		SetID(uuid.NewString()).
		SetTargetType(entreview.TargetTypeCriteria).
		SetTargetID(newRow.ID).
		SetReviewerID(sourceReview.ReviewerID).
		SetAction(sourceReview.Action).
		SetBeforeValue(sourceReview.BeforeValue).
		SetAfterValue(sourceReview.AfterValue).
		SetComment(comment).
		Save(ctx); err != nil {
		return false, fmt.Errorf("create inherited review for criterion %s: %w", newRow.ID, err)
	}

	if _, err := tx.AuditLog.Create().
		SetID(uuid.NewString()).
		SetEventType("review_inherited").
		SetTargetType(string(entreview.TargetTypeCriteria)).
		SetTargetID(newRow.ID).
		SetDetails(map[string]interface{}{
			"schema_version":      "text_v1",
			"source_criterion_id": oldRow.ID,
			"source_review_id":    sourceReview.ID,
		}).
		Save(ctx); err != nil {
		return false, fmt.Errorf("create inheritance audit log for criterion %s: %w", newRow.ID, err)
	}

	return true, nil
}

func toMatchables(rows []*ent.Criterion) []matchable {
	out := make([]matchable, 0, len(rows))
	for _, r := range rows {
		out = append(out, matchable{ID: r.ID, Text: r.Text, Type: string(r.CriterionType)})
	}
	return out
}
