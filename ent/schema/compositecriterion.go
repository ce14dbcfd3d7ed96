package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CompositeCriterion holds the schema definition for one interior AND/OR/NOT
// node of the criterion expression tree. Back-pointer to Criterion, same
// rationale as AtomicCriterion.
type CompositeCriterion struct {
	ent.Schema
}

// Fields of the CompositeCriterion.
func (CompositeCriterion) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("composite_criterion_id").
			Unique().
			Immutable(),
		field.String("criterion_id").
			Immutable(),
		field.Bool("is_root").
			Default(false).
			Comment("Exactly one composite per criterion has is_root=true"),
		field.String("parent_criterion_id").
			Optional().
			Nillable().
			Comment("Reserved for future manual-restructuring flows; never read by the automated pipeline (spec §9)"),
	}
}

// Indexes of the CompositeCriterion.
func (CompositeCriterion) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("criterion_id"),
		index.Fields("criterion_id", "is_root"),
	}
}
