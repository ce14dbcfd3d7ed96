package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AtomicCriterion holds the schema definition for one leaf of the
// criterion expression tree: (concept_id, relation, value, unit_concept_id).
//
// This references Criterion via a plain FK field, not an Ent edge, because
// it is a back-pointer rather than an ownership relationship (spec.md §3) —
// cascading delete is the caller's responsibility, performed in the same
// transaction that deletes a Criterion.
type AtomicCriterion struct {
	ent.Schema
}

// Fields of the AtomicCriterion.
func (AtomicCriterion) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("atomic_criterion_id").
			Unique().
			Immutable(),
		field.String("criterion_id").
			Immutable(),
		field.Int64("concept_id").
			Optional().
			Nillable(),
		field.String("relation").
			Comment("One of =, !=, >, >=, <, <=, within, not_in_last, contains, not_contains"),
		field.JSON("value", map[string]interface{}{}).
			Optional().
			Comment("Scalar, {min,max}, or {duration,unit}"),
		field.Int64("unit_concept_id").
			Optional().
			Nillable(),
		field.Int64("value_concept_id").
			Optional().
			Nillable().
			Comment("Populated for boolean/ordinal values mapped to a SNOMED concept"),
	}
}

// Indexes of the AtomicCriterion.
func (AtomicCriterion) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("criterion_id"),
	}
}
