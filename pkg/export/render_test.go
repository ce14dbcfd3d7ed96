package export

import (
	"strings"
	"testing"
)

func TestRenderCirce_SeparatesInclusionAndExclusion(t *testing.T) {
	trees := []criterionTree{
		{
			CriterionID: "c1",
			Type:        "inclusion",
			Root:        treeNode{Relation: "=", ConceptID: 4019131},
		},
		{
			CriterionID: "c2",
			Type:        "exclusion",
			Root:        treeNode{Relation: ">=", ConceptID: 201826, ValueConceptID: 9191},
		},
	}

	out := renderCirce(trees)

	if !strings.Contains(out, `"InclusionRules"`) || !strings.Contains(out, `"ExclusionRules"`) {
		t.Fatalf("expected both rule sections present, got %s", out)
	}
	if !strings.Contains(out, "4019131") {
		t.Fatalf("expected inclusion concept id in output, got %s", out)
	}
	if !strings.Contains(out, "201826") {
		t.Fatalf("expected exclusion concept id in output, got %s", out)
	}
}

func TestRenderCirceNode_WalksAndOrNot(t *testing.T) {
	tree := treeNode{
		Operator: "AND",
		Children: []treeNode{
			{Relation: "=", ConceptID: 1},
			{
				Operator: "NOT",
				Children: []treeNode{{Relation: "=", ConceptID: 2}},
			},
		},
	}

	got := renderCirceNode(tree, false)
	if !strings.Contains(got, `"Type": "AND"`) {
		t.Fatalf("expected top-level AND group, got %s", got)
	}
	if !strings.Contains(got, `"Not": true`) {
		t.Fatalf("expected nested NOT to render as a negated group, got %s", got)
	}
}

func TestRenderFHIR_TagsCriterionType(t *testing.T) {
	trees := []criterionTree{
		{
			CriterionID: "crit-1",
			Type:        "inclusion",
			Root:        treeNode{Relation: "=", ConceptID: 4019131},
		},
	}

	out := renderFHIR(trees)
	if !strings.Contains(out, "PlanDefinition") {
		t.Fatalf("expected a PlanDefinition resource, got %s", out)
	}
	if !strings.Contains(out, `"valueCode": "inclusion"`) {
		t.Fatalf("expected criterion type extension, got %s", out)
	}
}

func TestRenderFHIRNode_NegatesAtomicWhenAssertionIsNegated(t *testing.T) {
	leaf := treeNode{Relation: "=", ConceptID: 42}

	positive := renderFHIRNode(leaf, false)
	negative := renderFHIRNode(leaf, true)

	if strings.Contains(positive, "not (") {
		t.Fatalf("expected non-negated expression without a not-wrapper, got %s", positive)
	}
	if !strings.Contains(negative, "not (") {
		t.Fatalf("expected negated expression wrapped in not(...), got %s", negative)
	}
}

func TestRenderFHIRNode_OrJoinsWithOr(t *testing.T) {
	tree := treeNode{
		Operator: "OR",
		Children: []treeNode{
			{Relation: "=", ConceptID: 1},
			{Relation: "=", ConceptID: 2},
		},
	}

	got := renderFHIRNode(tree, false)
	if !strings.Contains(got, " or ") {
		t.Fatalf("expected OR children joined with 'or', got %s", got)
	}
}

func TestRenderSQL_InclusionIsAndedExclusionIsNotExists(t *testing.T) {
	trees := []criterionTree{
		{
			CriterionID: "c1",
			Type:        "inclusion",
			Root: treeNode{
				Operator: "AND",
				Children: []treeNode{
					{Relation: "=", ConceptID: 1, Value: map[string]interface{}{"scalar": true}},
					{Relation: ">=", ConceptID: 2, Value: map[string]interface{}{"scalar": 18}},
				},
			},
		},
		{
			CriterionID: "c2",
			Type:        "exclusion",
			Root:        treeNode{Relation: "=", ConceptID: 3, Value: map[string]interface{}{"scalar": true}},
		},
	}

	out := renderSQL(trees)

	if !strings.Contains(out, "NOT EXISTS") {
		t.Fatalf("expected exclusion criterion rendered as NOT EXISTS, got %s", out)
	}
	if strings.Count(out, "sf.concept_id = 1") != 1 || strings.Count(out, "sf.concept_id = 2") != 1 {
		t.Fatalf("expected both inclusion atomics flattened into the WHERE clause, got %s", out)
	}
}

func TestRenderSQL_FlattensNestedOrIntoAnd(t *testing.T) {
	trees := []criterionTree{
		{
			CriterionID: "c1",
			Type:        "inclusion",
			Root: treeNode{
				Operator: "OR",
				Children: []treeNode{
					{Relation: "=", ConceptID: 10, Value: map[string]interface{}{"scalar": true}},
					{Relation: "=", ConceptID: 20, Value: map[string]interface{}{"scalar": true}},
				},
			},
		},
	}

	out := renderSQL(trees)

	if !strings.Contains(out, "sf.concept_id = 10 AND") {
		t.Fatalf("expected OR children flattened to AND clauses (documented limitation), got %s", out)
	}
}

func TestRenderSQL_NoCriteriaProducesUnfilteredSelect(t *testing.T) {
	out := renderSQL(nil)
	if strings.Contains(out, "WHERE") {
		t.Fatalf("expected no WHERE clause for an empty criteria set, got %s", out)
	}
}

func TestCollectAtomics_FlattensNestedTree(t *testing.T) {
	tree := treeNode{
		Operator: "AND",
		Children: []treeNode{
			{Relation: "=", ConceptID: 1},
			{
				Operator: "OR",
				Children: []treeNode{
					{Relation: "=", ConceptID: 2},
					{Relation: "=", ConceptID: 3},
				},
			},
		},
	}

	atomics := collectAtomics(tree)
	if len(atomics) != 3 {
		t.Fatalf("expected 3 flattened atomics, got %d", len(atomics))
	}
}
