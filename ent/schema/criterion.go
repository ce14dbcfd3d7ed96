package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Criterion holds the schema definition for one eligibility statement.
type Criterion struct {
	ent.Schema
}

// Fields of the Criterion.
func (Criterion) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("criterion_id").
			Unique().
			Immutable(),
		field.String("batch_id").
			Immutable(),
		field.Enum("criterion_type").
			Values("inclusion", "exclusion"),
		field.Text("text").
			Comment("Full-text searchable via a GIN index created in migrations"),
		field.Enum("assertion").
			Values("affirmed", "negated"),
		field.String("category").
			Optional().
			Comment("Free-form extraction tag, e.g. 'age', 'lab_value'"),
		field.Float("confidence").
			Comment("Extraction confidence in [0,1]"),
		field.Int("page_number").
			Comment("Source page within the parsed PDF"),
		field.Enum("review_status").
			Values("approved", "rejected", "modified").
			Optional().
			Nillable(),
		field.JSON("conditions", map[string]interface{}{}).
			Optional().
			Comment("Holds field_mappings post-v1.5; see FieldMapping in the domain model"),
		field.String("temporal_constraint").
			Optional().
			Nillable(),
		field.JSON("numeric_thresholds", map[string]interface{}{}).
			Optional(),
	}
}

// Edges of the Criterion.
func (Criterion) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("batch", CriteriaBatch.Type).
			Ref("criteria").
			Field("batch_id").
			Unique().
			Required().
			Immutable(),
		edge.To("entities", Entity.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Criterion.
// The uniqueness of (text, criterion_type) within a batch is enforced at the
// application layer in the parse node (case-insensitive, post-normalization)
// rather than as a DB-level unique index, because the comparison requires
// the same lowercasing/whitespace normalization parse performs before dedup.
func (Criterion) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("batch_id", "criterion_type"),
		index.Fields("review_status"),
	}
}

func (Criterion) Annotations() []schema.Annotation {
	return []schema.Annotation{}
}
