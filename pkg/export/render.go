package export

import (
	"fmt"
	"strings"
)

// renderCirce walks each criterion's tree into a Circe-style cohort
// definition: one inclusion rule group ANDing every inclusion criterion's
// root expression, one exclusion rule group ORing every exclusion
// criterion's root expression (cohort membership excludes a subject
// matching any one exclusion criterion).
func renderCirce(trees []criterionTree) string {
	var inclusion, exclusion []string
	for _, t := range trees {
		expr := renderCirceNode(t.Root, t.Negated)
		if t.Type == "exclusion" {
			exclusion = append(exclusion, expr)
		} else {
			inclusion = append(inclusion, expr)
		}
	}

	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString("  \"ConceptSets\": [],\n")
	b.WriteString("  \"PrimaryCriteria\": {},\n")
	b.WriteString("  \"InclusionRules\": [\n")
	writeCirceGroup(&b, "AND", inclusion)
	b.WriteString("  ],\n")
	b.WriteString("  \"ExclusionRules\": [\n")
	writeCirceGroup(&b, "OR", exclusion)
	b.WriteString("  ]\n")
	b.WriteString("}")
	return b.String()
}

func writeCirceGroup(b *strings.Builder, joiner string, exprs []string) {
	if len(exprs) == 0 {
		return
	}
	fmt.Fprintf(b, "    {\"Type\": %q, \"CriteriaList\": [%s]}\n", joiner, strings.Join(exprs, ", "))
}

func renderCirceNode(n treeNode, negated bool) string {
	if n.Operator == "" {
		return renderCirceAtomic(n, negated)
	}
	parts := make([]string, 0, len(n.Children))
	for _, child := range n.Children {
		parts = append(parts, renderCirceNode(child, false))
	}
	joined := strings.Join(parts, ", ")
	if n.Operator == "NOT" {
		return fmt.Sprintf("{\"Not\": true, \"Group\": {\"Type\": \"AND\", \"CriteriaList\": [%s]}}", joined)
	}
	return fmt.Sprintf("{\"Type\": %q, \"CriteriaList\": [%s]}", n.Operator, joined)
}

func renderCirceAtomic(n treeNode, negated bool) string {
	return fmt.Sprintf(
		"{\"ConceptId\": %d, \"Relation\": %q, \"Negated\": %t, \"UnitConceptId\": %d, \"ValueAsConceptId\": %d}",
		n.ConceptID, n.Relation, negated, n.UnitConceptID, n.ValueConceptID,
	)
}

// renderFHIR walks each criterion's tree into a FHIR PlanDefinition-style
// eligibility fragment: one applicability Expression per criterion, tagged
// inclusion/exclusion via extension, with nested AND/OR/NOT rendered as a
// parenthesized boolean expression over the leaf conditions' Expression
// strings (CQL-flavored, not a full CQL parser output).
func renderFHIR(trees []criterionTree) string {
	var actions []string
	for _, t := range trees {
		expr := renderFHIRNode(t.Root, t.Negated)
		actions = append(actions, fmt.Sprintf(
			"{\"id\": %q, \"extension\": [{\"url\": \"criterionType\", \"valueCode\": %q}], \"condition\": [{\"kind\": \"applicability\", \"expression\": {\"language\": \"text/cql\", \"expression\": %q}}]}",
			t.CriterionID, t.Type, expr,
		))
	}

	return fmt.Sprintf("{\"resourceType\": \"PlanDefinition\", \"action\": [%s]}", strings.Join(actions, ", "))
}

func renderFHIRNode(n treeNode, negated bool) string {
	if n.Operator == "" {
		expr := fmt.Sprintf("Concept[%d] %s %s", n.ConceptID, fhirRelationOp(n.Relation), fhirValueLiteral(n))
		if negated {
			return "not (" + expr + ")"
		}
		return expr
	}

	parts := make([]string, 0, len(n.Children))
	for _, child := range n.Children {
		parts = append(parts, renderFHIRNode(child, false))
	}

	switch n.Operator {
	case "NOT":
		return "not (" + strings.Join(parts, " and ") + ")"
	case "OR":
		return "(" + strings.Join(parts, " or ") + ")"
	default:
		return "(" + strings.Join(parts, " and ") + ")"
	}
}

func fhirRelationOp(relation string) string {
	switch relation {
	case "=":
		return "="
	case "!=":
		return "!="
	case ">", ">=", "<", "<=":
		return relation
	case "within":
		return "in"
	case "not_in_last":
		return "not in"
	case "contains":
		return "contains"
	case "not_contains":
		return "does not contain"
	default:
		return relation
	}
}

func fhirValueLiteral(n treeNode) string {
	if n.ValueConceptID != 0 {
		return fmt.Sprintf("Concept[%d]", n.ValueConceptID)
	}
	if v, ok := n.Value["scalar"]; ok {
		return fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("%v", n.Value)
}

// renderSQL flattens every criterion to a single WHERE clause rather than
// walking the AND/OR/NOT tree: all inclusion atomics are ANDed together,
// and every exclusion criterion becomes a NOT EXISTS over its atomics
// ANDed. This loses any OR/NOT structure inside a criterion's own
// decomposition — a known, deliberate limitation of the SQL target rather
// than a bug, since SQL cohort extraction at this site never needed
// anything beyond flat inclusion/exclusion lists.
func renderSQL(trees []criterionTree) string {
	var inclusionClauses []string
	var exclusionBlocks []string

	for _, t := range trees {
		atomics := collectAtomics(t.Root)
		if len(atomics) == 0 {
			continue
		}
		clauses := make([]string, 0, len(atomics))
		for _, a := range atomics {
			clauses = append(clauses, sqlAtomicClause(a))
		}
		joined := strings.Join(clauses, " AND ")

		if t.Type == "exclusion" {
			exclusionBlocks = append(exclusionBlocks, fmt.Sprintf(
				"NOT EXISTS (SELECT 1 FROM subject_facts sf WHERE sf.subject_id = subject.id AND %s)", joined,
			))
		} else {
			inclusionClauses = append(inclusionClauses, joined)
		}
	}

	var all []string
	all = append(all, inclusionClauses...)
	all = append(all, exclusionBlocks...)
	if len(all) == 0 {
		return "SELECT subject.id FROM subject"
	}
	return fmt.Sprintf("SELECT subject.id FROM subject WHERE %s", strings.Join(all, " AND "))
}

// collectAtomics flattens a tree to its leaf atomics in traversal order,
// discarding the AND/OR/NOT structure between them — the flattening the
// SQL target deliberately accepts.
func collectAtomics(n treeNode) []treeNode {
	if n.Operator == "" {
		return []treeNode{n}
	}
	var out []treeNode
	for _, child := range n.Children {
		out = append(out, collectAtomics(child)...)
	}
	return out
}

func sqlAtomicClause(a treeNode) string {
	op := a.Relation
	switch op {
	case "within":
		op = "="
	case "not_in_last":
		op = "!="
	case "contains", "not_contains":
		op = "="
	}
	if a.ValueConceptID != 0 {
		return fmt.Sprintf("sf.concept_id = %d AND sf.value_concept_id %s %d", a.ConceptID, op, a.ValueConceptID)
	}
	return fmt.Sprintf("sf.concept_id = %d AND sf.value %s %v", a.ConceptID, op, a.Value["scalar"])
}
