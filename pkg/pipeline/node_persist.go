package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/ent/entity"
	"github.com/elixirtrials/elixirtrials/pkg/apperrors"
	"github.com/elixirtrials/elixirtrials/pkg/config"
)

// RunPersist writes every grounded entity ground produced as an Entity row.
// A batch where ground returned at least one non-consent entity but grounded
// none of them is treated as a fatal failure: partial grounding is expected
// and acceptable (those entities simply carry grounding_method expert_review
// for a reviewer to resolve), but zero-for-zero signals a systemic failure
// upstream (terminology/OMOP outage, bad entity extraction) worth surfacing
// as grounding_failed rather than silently producing an empty batch.
func RunPersist(ctx context.Context, deps *Deps, protocolID string, in State) (State, error) {
	entities, err := decodeStateValue[[]groundedEntity](in, "entities")
	if err != nil {
		return nil, fmt.Errorf("read grounded entities: %w", err)
	}
	batchID, err := decodeStateValue[string](in, "batch_id")
	if err != nil {
		return nil, fmt.Errorf("read batch id: %w", err)
	}
	criteria, err := decodeStateValue[[]criterionRef](in, "criteria")
	if err != nil {
		return nil, fmt.Errorf("read criteria refs: %w", err)
	}

	client := entClient(deps)
	tx, err := client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin persist transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	grounded := 0
	considered := 0
	entityIDs := make([]string, 0, len(entities))
	mappingsByCriterion := make(map[string][]fieldMapping)

	for _, ge := range entities {
		entityID := uuid.NewString()

		create := tx.Entity.Create().
			SetID(entityID).
			SetCriterionID(ge.CriterionID).
			SetEntityText(ge.EntityText).
			SetEntityType(entity.EntityType(ge.EntityType)).
			SetSpanStart(ge.SpanStart).
			SetSpanEnd(ge.SpanEnd).
			SetGroundingConfidence(ge.GroundingConfidence).
			SetGroundingMethod(entity.GroundingMethod(ge.GroundingMethod)).
			SetNillablePreferredTerm(nonEmptyPtr(ge.PreferredTerm))

		applyGroundedCode(create, ge)

		if ge.ConceptID != 0 {
			create = create.SetContextWindow(map[string]interface{}{"omop_concept_id": ge.ConceptID})
		}

		if _, err := create.Save(ctx); err != nil {
			return nil, fmt.Errorf("create entity: %w", err)
		}
		entityIDs = append(entityIDs, entityID)

		if ge.GroundingMethod != "skipped" {
			mappingsByCriterion[ge.CriterionID] = append(mappingsByCriterion[ge.CriterionID], fieldMapping{
				Entity:          ge.EntityText,
				EntityConceptID: ge.ConceptID,
			})
		}

		if ge.GroundingMethod == "skipped" {
			continue
		}
		considered++
		if ge.SelectedCode != "" || ge.ConceptID != 0 {
			grounded++
		}
	}

	if considered > 0 && grounded == 0 {
		return nil, apperrors.NewGroundingFailureError(batchID,
			fmt.Sprintf("all %d groundable entities in batch failed grounding", considered))
	}

	for criterionID, mappings := range mappingsByCriterion {
		if err := tx.Criterion.UpdateOneID(criterionID).
			SetConditions(map[string]interface{}{"field_mappings": mappings}).
			Exec(ctx); err != nil {
			return nil, fmt.Errorf("write field mappings for criterion %s: %w", criterionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit persist transaction: %w", err)
	}

	return State{
		"batch_id":   batchID,
		"entity_ids": entityIDs,
		"criteria":   criteria,
		"entities":   entities,
	}, nil
}

// applyGroundedCode sets the one Entity code column matching the entity's
// selected terminology system. An unrecognized or empty system leaves every
// code column nil, which is expected for agentic/expert_review entities
// that never resolved to a specific vocabulary.
func applyGroundedCode(create *ent.EntityCreate, ge groundedEntity) {
	if ge.SelectedCode == "" {
		return
	}
	switch config.VocabularySource(ge.SelectedSystem) {
	case config.VocabularySourceUMLS:
		create.SetUmlsCui(ge.SelectedCode)
	case config.VocabularySourceSNOMED:
		create.SetSnomedCode(ge.SelectedCode)
	case config.VocabularySourceICD10:
		create.SetIcd10Code(ge.SelectedCode)
	case config.VocabularySourceRxNorm:
		create.SetRxnormCode(ge.SelectedCode)
	case config.VocabularySourceLOINC:
		create.SetLoincCode(ge.SelectedCode)
	case config.VocabularySourceHPO:
		create.SetHpoCode(ge.SelectedCode)
	}
}
