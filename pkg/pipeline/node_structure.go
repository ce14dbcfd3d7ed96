package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/ent/criterionrelationship"
	"github.com/elixirtrials/elixirtrials/pkg/llmgateway"
)

// exprNode is one node of a criterion's decomposed AND/OR/NOT expression
// tree, as Gemini's structured structure call returns it. An empty Operator
// marks a leaf (atomic) condition; a non-empty one marks an interior
// composite node with Children.
type exprNode struct {
	Operator       string     `json:"operator"`
	Relation       string     `json:"relation"`
	ConceptID      int64      `json:"concept_id"`
	EntityText     string     `json:"entity_text"`
	Value          any        `json:"value"`
	ValueConceptID int64      `json:"value_concept_id"`
	UnitUCUM       string     `json:"unit_ucum"`
	Children       []exprNode `json:"children"`
}

// structureResult is the top-level decomposition response for one criterion.
type structureResult struct {
	Root exprNode `json:"root"`
}

// exprNodeSchema describes exprNode recursively. It is built in two steps
// because Go literals cannot self-reference: the "children" property is
// attached after the struct exists so it can point back to itself.
var exprNodeSchema = &llmgateway.Schema{
	Type: "object",
	Properties: map[string]*llmgateway.Schema{
		"operator":         {Type: "string", Enum: []string{"AND", "OR", "NOT", ""}},
		"relation":         {Type: "string"},
		"concept_id":       {Type: "integer"},
		"entity_text":      {Type: "string"},
		"value":            {Type: "object"},
		"value_concept_id": {Type: "integer"},
		"unit_ucum":        {Type: "string"},
	},
	Required: []string{"operator"},
}

func init() {
	exprNodeSchema.Properties["children"] = &llmgateway.Schema{
		Type:  "array",
		Items: exprNodeSchema,
	}
}

var structureSchema = &llmgateway.Schema{
	Type: "object",
	Properties: map[string]*llmgateway.Schema{
		"root": exprNodeSchema,
	},
	Required: []string{"root"},
}

// RunStructure decomposes every criterion's text into an AND/OR/NOT
// expression tree of atomic conditions, persisted as one root
// CompositeCriterion per criterion plus its nested CompositeCriterion /
// AtomicCriterion / CriterionRelationship rows.
func RunStructure(ctx context.Context, deps *Deps, protocolID string, in State) (State, error) {
	criteria, err := decodeStateValue[[]criterionRef](in, "criteria")
	if err != nil {
		return nil, fmt.Errorf("read criteria refs: %w", err)
	}
	entities, err := decodeStateValue[[]groundedEntity](in, "entities")
	if err != nil {
		return nil, fmt.Errorf("read grounded entities: %w", err)
	}
	batchID, err := decodeStateValue[string](in, "batch_id")
	if err != nil {
		return nil, fmt.Errorf("read batch id: %w", err)
	}

	entitiesByCriterion := make(map[string][]groundedEntity)
	for _, e := range entities {
		entitiesByCriterion[e.CriterionID] = append(entitiesByCriterion[e.CriterionID], e)
	}

	client := entClient(deps)
	tx, err := client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin structure transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range criteria {
		root, err := decomposeCriterion(ctx, deps, c)
		if err != nil {
			deps.Logger.Warn("structure decomposition failed for criterion", "criterion_id", c.CriterionID, "error", err)
			continue
		}

		grounded := groundedEntityLookup(entitiesByCriterion[c.CriterionID])
		if err := persistRoot(ctx, tx, deps, c.CriterionID, root, grounded); err != nil {
			return nil, fmt.Errorf("persist structure for criterion %s: %w", c.CriterionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit structure transaction: %w", err)
	}

	return State{
		"batch_id": batchID,
		"criteria": criteria,
	}, nil
}

func groundedEntityLookup(entities []groundedEntity) map[string]groundedEntity {
	byText := make(map[string]groundedEntity, len(entities))
	for _, e := range entities {
		byText[e.EntityText] = e
	}
	return byText
}

func decomposeCriterion(ctx context.Context, deps *Deps, c criterionRef) (exprNode, error) {
	result, err := deps.Gateway.Call(ctx, llmgateway.CallRequest{
		TemplateName:   "structure_decompose",
		Target:         llmgateway.TargetGemini,
		ResponseSchema: structureSchema,
		Variables: map[string]any{
			"criterion_id":   c.CriterionID,
			"criterion_text": c.Text,
		},
	})
	if err != nil {
		return exprNode{}, err
	}

	var parsed structureResult
	if err := json.Unmarshal(result.JSON, &parsed); err != nil {
		return exprNode{}, fmt.Errorf("decode structure decomposition: %w", err)
	}
	return parsed.Root, nil
}

// persistRoot always creates exactly one is_root=true CompositeCriterion for
// the criterion, per the invariant that every criterion has a single root
// composite even when its decomposition is a single atomic condition (in
// which case the root simply wraps that one condition with an implicit AND).
func persistRoot(ctx context.Context, tx *ent.Tx, deps *Deps, criterionID string, root exprNode, grounded map[string]groundedEntity) error {
	rootID := uuid.NewString()
	if _, err := tx.CompositeCriterion.Create().
		SetID(rootID).
		SetCriterionID(criterionID).
		SetIsRoot(true).
		Save(ctx); err != nil {
		return fmt.Errorf("create root composite: %w", err)
	}

	if root.Operator == "" {
		atomicID, err := persistAtomic(ctx, tx, deps, criterionID, root, grounded)
		if err != nil {
			return err
		}
		return createRelationship(ctx, tx, rootID, &atomicID, nil, "AND", 0)
	}

	for i, child := range root.Children {
		if err := persistChild(ctx, tx, deps, criterionID, rootID, root.Operator, i, child, grounded); err != nil {
			return err
		}
	}
	return nil
}

// persistChild persists one child of a composite node (atomic or nested
// composite) and links it back to its parent via CriterionRelationship.
func persistChild(ctx context.Context, tx *ent.Tx, deps *Deps, criterionID, parentCompositeID, operator string, order int, node exprNode, grounded map[string]groundedEntity) error {
	if node.Operator == "" {
		atomicID, err := persistAtomic(ctx, tx, deps, criterionID, node, grounded)
		if err != nil {
			return err
		}
		return createRelationship(ctx, tx, parentCompositeID, &atomicID, nil, operator, order)
	}

	compositeID := uuid.NewString()
	if _, err := tx.CompositeCriterion.Create().
		SetID(compositeID).
		SetCriterionID(criterionID).
		SetIsRoot(false).
		Save(ctx); err != nil {
		return fmt.Errorf("create nested composite: %w", err)
	}
	if err := createRelationship(ctx, tx, parentCompositeID, nil, &compositeID, operator, order); err != nil {
		return err
	}

	for i, grandchild := range node.Children {
		if err := persistChild(ctx, tx, deps, criterionID, compositeID, node.Operator, i, grandchild, grounded); err != nil {
			return err
		}
	}
	return nil
}

func persistAtomic(ctx context.Context, tx *ent.Tx, deps *Deps, criterionID string, node exprNode, grounded map[string]groundedEntity) (string, error) {
	atomicID := uuid.NewString()

	conceptID := node.ConceptID
	if conceptID == 0 {
		if ge, ok := grounded[node.EntityText]; ok {
			conceptID = ge.ConceptID
		}
	}

	create := tx.AtomicCriterion.Create().
		SetID(atomicID).
		SetCriterionID(criterionID).
		SetRelation(node.Relation)

	if conceptID != 0 {
		create = create.SetConceptID(conceptID)
	}
	if node.ValueConceptID != 0 {
		create = create.SetValueConceptID(node.ValueConceptID)
	}
	if unitConceptID, ok := resolveUnitConceptID(deps, node.UnitUCUM); ok {
		create = create.SetUnitConceptID(unitConceptID)
	}
	if node.Value != nil {
		if m, ok := node.Value.(map[string]interface{}); ok {
			create = create.SetValue(m)
		} else {
			create = create.SetValue(map[string]interface{}{"scalar": node.Value})
		}
	}

	if _, err := create.Save(ctx); err != nil {
		return "", fmt.Errorf("create atomic criterion: %w", err)
	}

	unitConceptID, _ := resolveUnitConceptID(deps, node.UnitUCUM)
	if err := updateFieldMappingRelationValue(ctx, tx, criterionID, node.EntityText,
		node.Relation, node.Value, node.UnitUCUM, unitConceptID, node.ValueConceptID); err != nil {
		deps.Logger.Warn("failed to update field mapping for atomic criterion",
			"criterion_id", criterionID, "entity_text", node.EntityText, "error", err)
	}

	return atomicID, nil
}

// updateFieldMappingRelationValue fills in the relation/value/unit fields of
// the field_mappings entry persist already created for this entity, once
// structure has decomposed the criterion far enough to know them. A
// criterion whose field_mappings don't yet contain this entity (e.g. the
// entity never grounded, so persist never created a placeholder for it) is
// left untouched rather than appending an orphan mapping.
func updateFieldMappingRelationValue(ctx context.Context, tx *ent.Tx, criterionID, entityText, relation string, value any, unitText string, unitConceptID, valueConceptID int64) error {
	if entityText == "" {
		return nil
	}

	row, err := tx.Criterion.Get(ctx, criterionID)
	if err != nil {
		return fmt.Errorf("load criterion for field mapping update: %w", err)
	}

	mappings := decodeFieldMappings(row.Conditions)
	updated := false
	for i := range mappings {
		if mappings[i].Entity == entityText {
			mappings[i].Relation = relation
			mappings[i].Value = value
			mappings[i].UnitText = unitText
			mappings[i].UnitConceptID = unitConceptID
			mappings[i].ValueConceptID = valueConceptID
			updated = true
			break
		}
	}
	if !updated {
		return nil
	}

	return tx.Criterion.UpdateOneID(criterionID).
		SetConditions(map[string]interface{}{"field_mappings": mappings}).
		Exec(ctx)
}

func decodeFieldMappings(conditions map[string]interface{}) []fieldMapping {
	raw, ok := conditions["field_mappings"]
	if !ok {
		return nil
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var mappings []fieldMapping
	if err := json.Unmarshal(buf, &mappings); err != nil {
		return nil
	}
	return mappings
}

// resolveUnitConceptID looks up a UCUM code in the unit mapping ledger. An
// empty code or an unmapped one leaves AtomicCriterion.unit_concept_id nil
// rather than guessing.
func resolveUnitConceptID(deps *Deps, ucumCode string) (int64, bool) {
	if ucumCode == "" || deps.UnitMappings == nil {
		return 0, false
	}
	entry, err := deps.UnitMappings.Get(ucumCode)
	if err != nil {
		return 0, false
	}
	return entry.OMOPConceptID, true
}

func createRelationship(ctx context.Context, tx *ent.Tx, parentCompositeID string, childAtomicID, childCompositeID *string, operator string, order int) error {
	create := tx.CriterionRelationship.Create().
		SetID(uuid.NewString()).
		SetParentCompositeID(parentCompositeID).
		SetOperator(criterionrelationship.Operator(operator)).
		SetChildOrder(order)

	if childAtomicID != nil {
		create = create.SetChildAtomicID(*childAtomicID)
	}
	if childCompositeID != nil {
		create = create.SetChildCompositeID(*childCompositeID)
	}

	if _, err := create.Save(ctx); err != nil {
		return fmt.Errorf("create criterion relationship: %w", err)
	}
	return nil
}
