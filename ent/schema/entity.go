package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Entity holds the schema definition for one grounded medical concept inside a criterion.
type Entity struct {
	ent.Schema
}

// Fields of the Entity.
func (Entity) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("entity_id").
			Unique().
			Immutable(),
		field.String("criterion_id").
			Immutable(),
		field.String("entity_text").
			Comment("Original mention as it appears in the criterion text"),
		field.Enum("entity_type").
			Values("condition", "measurement", "drug", "procedure", "demographic", "consent", "other"),
		field.Int("span_start"),
		field.Int("span_end"),
		field.JSON("context_window", map[string]interface{}{}).
			Optional(),
		field.String("umls_cui").Optional().Nillable(),
		field.String("snomed_code").Optional().Nillable(),
		field.String("icd10_code").Optional().Nillable(),
		field.String("rxnorm_code").Optional().Nillable(),
		field.String("loinc_code").Optional().Nillable(),
		field.String("hpo_code").Optional().Nillable(),
		field.String("preferred_term").Optional().Nillable(),
		field.Float("grounding_confidence"),
		field.Enum("grounding_method").
			Values("exact", "search", "agentic", "expert_review", "skipped"),
		field.Enum("review_status").
			Values("approved", "rejected", "modified").
			Optional().
			Nillable(),
	}
}

// Edges of the Entity.
func (Entity) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("criterion", Criterion.Type).
			Ref("entities").
			Field("criterion_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Entity.
func (Entity) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("criterion_id", "span_start"),
		index.Fields("entity_type"),
		index.Fields("grounding_method"),
	}
}
