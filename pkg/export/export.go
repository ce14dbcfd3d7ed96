// Package export renders a protocol's active criteria batch as an
// inclusion/exclusion expression tree in one of three downstream formats:
// a Circe-style cohort definition, a FHIR PlanDefinition fragment, or a
// flattened SQL WHERE clause. All three read the same CompositeCriterion /
// AtomicCriterion / CriterionRelationship rows the structure node writes;
// nothing here mutates state.
package export

import (
	"context"
	"fmt"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/ent/compositecriterion"
	"github.com/elixirtrials/elixirtrials/ent/criteriabatch"
	"github.com/elixirtrials/elixirtrials/ent/criterion"
	"github.com/elixirtrials/elixirtrials/ent/criterionrelationship"
	"github.com/elixirtrials/elixirtrials/pkg/apperrors"
)

// Format selects the rendering an Exporter produces for one protocol.
type Format string

const (
	FormatCirce Format = "circe"
	FormatFHIR  Format = "fhir"
	FormatSQL   Format = "sql"
)

// Exporter reconstructs and renders criterion expression trees from the
// rows the structure node persisted.
type Exporter struct {
	client *ent.Client
}

// NewExporter builds an Exporter over a shared ent client.
func NewExporter(client *ent.Client) *Exporter {
	return &Exporter{client: client}
}

// treeNode is one reconstructed node of a criterion's expression tree —
// the in-memory mirror of exprNode, rebuilt from CompositeCriterion,
// AtomicCriterion, and CriterionRelationship rows rather than decoded from
// a structure call. An empty Operator marks a leaf (atomic) condition.
type treeNode struct {
	Operator       string
	Relation       string
	ConceptID      int64
	UnitConceptID  int64
	ValueConceptID int64
	Value          map[string]interface{}
	Children       []treeNode
}

// criterionTree is one criterion's reconstructed root node plus the
// metadata every renderer needs to place it (inclusion vs. exclusion,
// affirmed vs. negated).
type criterionTree struct {
	CriterionID string
	Type        string // "inclusion" or "exclusion"
	Negated     bool
	Root        treeNode
}

// Export loads the protocol's active (non-archived) batch, reconstructs
// every one of its criteria's expression trees, and renders them in
// format. A protocol with no active batch is a NotFound error. Criteria
// that have never been structured are skipped, so a batch with none
// structured renders an empty document rather than erroring.
func (e *Exporter) Export(ctx context.Context, protocolID string, format Format) (string, error) {
	batch, err := e.activeBatch(ctx, protocolID)
	if err != nil {
		return "", err
	}
	if batch == nil {
		return "", apperrors.NewNotFoundError("active criteria batch for protocol", protocolID)
	}

	criteria, err := e.client.Criterion.Query().
		Where(criterion.BatchID(batch.ID)).
		All(ctx)
	if err != nil {
		return "", fmt.Errorf("load criteria for export: %w", err)
	}

	trees := make([]criterionTree, 0, len(criteria))
	for _, c := range criteria {
		tree, err := e.loadTree(ctx, c)
		if err != nil {
			return "", fmt.Errorf("reconstruct tree for criterion %s: %w", c.ID, err)
		}
		if tree == nil {
			continue
		}
		trees = append(trees, *tree)
	}

	switch format {
	case FormatCirce:
		return renderCirce(trees), nil
	case FormatFHIR:
		return renderFHIR(trees), nil
	case FormatSQL:
		return renderSQL(trees), nil
	default:
		return "", apperrors.NewValidationError("format", fmt.Sprintf("unsupported export format %q", format))
	}
}

func (e *Exporter) activeBatch(ctx context.Context, protocolID string) (*ent.CriteriaBatch, error) {
	row, err := e.client.CriteriaBatch.Query().
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

// loadTree finds c's single is_root=true CompositeCriterion and recursively
// rebuilds its tree. A criterion that was never structured (structure
// decomposition failed and persistRoot never ran for it) has no root
// composite and is skipped rather than erroring the whole export.
func (e *Exporter) loadTree(ctx context.Context, c *ent.Criterion) (*criterionTree, error) {
	root, err := e.client.CompositeCriterion.Query().
		Where(compositecriterion.CriterionID(c.ID), compositecriterion.IsRoot(true)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load root composite: %w", err)
	}

	node, err := e.loadComposite(ctx, root.ID)
	if err != nil {
		return nil, err
	}

	return &criterionTree{
		CriterionID: c.ID,
		Type:        string(c.CriterionType),
		Negated:     c.Assertion == criterion.AssertionNegated,
		Root:        *node,
	}, nil
}

// loadComposite rebuilds one composite node from its CriterionRelationship
// children, ordered by child_order. All children of one composite share a
// single operator, since persistChild wrote the parent's operator onto
// every one of its child relationships rather than storing a per-child
// operator.
func (e *Exporter) loadComposite(ctx context.Context, compositeID string) (*treeNode, error) {
	rels, err := e.client.CriterionRelationship.Query().
		Where(criterionrelationship.ParentCompositeID(compositeID)).
		Order(ent.Asc(criterionrelationship.FieldChildOrder)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load child relationships: %w", err)
	}

	node := &treeNode{}
	if len(rels) > 0 {
		node.Operator = string(rels[0].Operator)
	}

	for _, rel := range rels {
		switch {
		case rel.ChildAtomicID != nil:
			atomic, err := e.client.AtomicCriterion.Get(ctx, *rel.ChildAtomicID)
			if err != nil {
				return nil, fmt.Errorf("load atomic child: %w", err)
			}
			node.Children = append(node.Children, atomicToTreeNode(atomic))
		case rel.ChildCompositeID != nil:
			child, err := e.loadComposite(ctx, *rel.ChildCompositeID)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, *child)
		default:
			return nil, fmt.Errorf("relationship %s has neither a child atomic nor a child composite", rel.ID)
		}
	}

	return node, nil
}

func atomicToTreeNode(a *ent.AtomicCriterion) treeNode {
	n := treeNode{Relation: a.Relation}
	if a.ConceptID != nil {
		n.ConceptID = *a.ConceptID
	}
	if a.UnitConceptID != nil {
		n.UnitConceptID = *a.UnitConceptID
	}
	if a.ValueConceptID != nil {
		n.ValueConceptID = *a.ValueConceptID
	}
	n.Value = a.Value
	return n
}
