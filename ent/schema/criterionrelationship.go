package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CriterionRelationship holds the schema definition linking a composite
// parent node to an atomic or composite child, with ordering and operator.
type CriterionRelationship struct {
	ent.Schema
}

// Fields of the CriterionRelationship.
func (CriterionRelationship) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("criterion_relationship_id").
			Unique().
			Immutable(),
		field.String("parent_composite_id").
			Immutable(),
		field.String("child_atomic_id").
			Optional().
			Nillable(),
		field.String("child_composite_id").
			Optional().
			Nillable(),
		field.Enum("operator").
			Values("AND", "OR", "NOT"),
		field.Int("child_order").
			Comment("Position of this child among its siblings, for stable tree reconstruction"),
	}
}

// Indexes of the CriterionRelationship.
func (CriterionRelationship) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("parent_composite_id", "child_order"),
	}
}
