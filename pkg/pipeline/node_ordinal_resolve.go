package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/ent/entity"
	"github.com/elixirtrials/elixirtrials/pkg/config"
	"github.com/elixirtrials/elixirtrials/pkg/llmgateway"
)

type ordinalIdentification struct {
	IsOrdinal bool   `json:"is_ordinal"`
	ScaleName string `json:"scale_name"`
	RawLevel  string `json:"raw_level"`
}

var ordinalIdentifySchema = &llmgateway.Schema{
	Type: "object",
	Properties: map[string]*llmgateway.Schema{
		"is_ordinal": {Type: "boolean"},
		"scale_name": {Type: "string"},
		"raw_level":  {Type: "string"},
	},
	Required: []string{"is_ordinal"},
}

type ordinalProposal struct {
	LevelValue  int    `json:"level_value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var ordinalProposeSchema = &llmgateway.Schema{
	Type: "object",
	Properties: map[string]*llmgateway.Schema{
		"level_value": {Type: "integer"},
		"label":       {Type: "string"},
		"description": {Type: "string"},
	},
	Required: []string{"level_value", "label"},
}

// RunOrdinalResolve looks for clinical ordinal-scale mentions (ECOG, NYHA,
// Karnofsky, ...) among the batch's entities and resolves each to a
// registered scale's numeric level. Known scales resolve by lookup alone;
// an unrecognized scale name falls back to an LLM proposal that is recorded
// for reviewer attention rather than written back as ground truth.
func RunOrdinalResolve(ctx context.Context, deps *Deps, protocolID string, in State) (State, error) {
	criteria, err := decodeStateValue[[]criterionRef](in, "criteria")
	if err != nil {
		return nil, fmt.Errorf("read criteria refs: %w", err)
	}
	batchID, err := decodeStateValue[string](in, "batch_id")
	if err != nil {
		return nil, fmt.Errorf("read batch id: %w", err)
	}

	if len(criteria) == 0 {
		return State{"batch_id": batchID, "criteria": criteria}, nil
	}

	criterionIDs := make([]string, 0, len(criteria))
	for _, c := range criteria {
		criterionIDs = append(criterionIDs, c.CriterionID)
	}

	client := entClient(deps)
	rows, err := client.Entity.Query().Where(entity.CriterionIDIn(criterionIDs...)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("query entities for ordinal resolution: %w", err)
	}

	tx, err := client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ordinal resolve transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, row := range rows {
		if row.EntityType != "measurement" {
			continue
		}
		if err := resolveOrdinalEntity(ctx, deps, tx, row); err != nil {
			deps.Logger.Warn("ordinal resolution failed for entity", "entity_id", row.ID, "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ordinal resolve transaction: %w", err)
	}

	return State{
		"batch_id": batchID,
		"criteria": criteria,
	}, nil
}

func resolveOrdinalEntity(ctx context.Context, deps *Deps, tx *ent.Tx, row *ent.Entity) error {
	ident, err := identifyOrdinal(ctx, deps, row.EntityText)
	if err != nil {
		return fmt.Errorf("identify ordinal mention: %w", err)
	}
	if !ident.IsOrdinal {
		return nil
	}

	scaleName := normalizeScaleName(ident.ScaleName)
	contextWindow := cloneContextWindow(row.ContextWindow)

	if scale, err := deps.OrdinalScales.Get(scaleName); err == nil {
		level, ok := matchLevel(scale, ident.RawLevel)
		if ok {
			contextWindow["ordinal_scale"] = scale.Name
			contextWindow["ordinal_level_value"] = level.Value
			contextWindow["ordinal_level_label"] = level.Label
			return tx.Entity.UpdateOneID(row.ID).SetContextWindow(contextWindow).Exec(ctx)
		}
	}

	proposal, err := proposeOrdinalLevel(ctx, deps, row.EntityText, scaleName, ident.RawLevel)
	if err != nil {
		return fmt.Errorf("propose ordinal level: %w", err)
	}

	contextWindow["proposed_ordinal_scale"] = scaleName
	contextWindow["proposed_ordinal_level_value"] = proposal.LevelValue
	contextWindow["proposed_ordinal_level_label"] = proposal.Label

	if err := tx.Entity.UpdateOneID(row.ID).SetContextWindow(contextWindow).Exec(ctx); err != nil {
		return err
	}

	_, err = tx.AuditLog.Create().
		SetID(uuid.NewString()).
		SetEventType("ordinal_scale_flagged_for_review").
		SetTargetType("entity").
		SetTargetID(row.ID).
		SetDetails(map[string]interface{}{
			"schema_version": "structured_v1",
			"scale_name":     scaleName,
			"raw_level":      ident.RawLevel,
			"proposal":       proposal,
		}).
		Save(ctx)
	return err
}

func identifyOrdinal(ctx context.Context, deps *Deps, entityText string) (ordinalIdentification, error) {
	result, err := deps.Gateway.Call(ctx, llmgateway.CallRequest{
		TemplateName:   "ordinal_identify",
		Target:         llmgateway.TargetGemini,
		ResponseSchema: ordinalIdentifySchema,
		Variables:      map[string]any{"entity_text": entityText},
	})
	if err != nil {
		return ordinalIdentification{}, err
	}

	var ident ordinalIdentification
	if err := json.Unmarshal(result.JSON, &ident); err != nil {
		return ordinalIdentification{}, fmt.Errorf("decode ordinal identification: %w", err)
	}
	return ident, nil
}

func proposeOrdinalLevel(ctx context.Context, deps *Deps, entityText, scaleName, rawLevel string) (ordinalProposal, error) {
	result, err := deps.Gateway.Call(ctx, llmgateway.CallRequest{
		TemplateName:   "ordinal_propose",
		Target:         llmgateway.TargetGemini,
		ResponseSchema: ordinalProposeSchema,
		Variables: map[string]any{
			"entity_text": entityText,
			"scale_name":  scaleName,
			"raw_level":   rawLevel,
		},
	})
	if err != nil {
		return ordinalProposal{}, err
	}

	var proposal ordinalProposal
	if err := json.Unmarshal(result.JSON, &proposal); err != nil {
		return ordinalProposal{}, fmt.Errorf("decode ordinal proposal: %w", err)
	}
	return proposal, nil
}

func normalizeScaleName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// matchLevel finds the scale level whose label contains rawLevel or whose
// numeric value matches a digit found in rawLevel.
func matchLevel(scale *config.OrdinalScaleConfig, rawLevel string) (config.OrdinalScaleLevel, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(rawLevel))
	for _, level := range scale.Levels {
		if trimmed != "" && strings.Contains(strings.ToLower(level.Label), trimmed) {
			return level, true
		}
	}
	for _, level := range scale.Levels {
		if strings.Contains(trimmed, fmt.Sprintf("%d", level.Value)) {
			return level, true
		}
	}
	return config.OrdinalScaleLevel{}, false
}

func cloneContextWindow(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in)+3)
	for k, v := range in {
		out[k] = v
	}
	return out
}
