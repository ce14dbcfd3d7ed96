package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Protocol holds the schema definition for one uploaded clinical-trial PDF.
type Protocol struct {
	ent.Schema
}

// Fields of the Protocol.
func (Protocol) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("protocol_id").
			Unique().
			Immutable(),
		field.String("title").
			Comment("Display title, taken from upload request or parsed cover page"),
		field.String("file_uri").
			Comment("Opaque storage reference resolved by the storage adapter"),
		field.Enum("status").
			Values(
				"uploaded", "extracting", "grounding", "structuring", "pending_review",
				"reviewed", "approved", "rejected",
				"extraction_failed", "grounding_failed", "pipeline_failed", "dead_letter",
			).
			Default("uploaded"),
		field.String("error_reason").
			Optional().
			Nillable().
			Comment("Human-readable failure summary shown to the uploader"),
		field.JSON("metadata", map[string]interface{}{}).
			Optional().
			Comment("PDF quality score, page count, technical error detail"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
		field.Time("archived_at").
			Optional().
			Nillable().
			Comment("Set by lazy archival once a terminal status has aged out 7 days"),
	}
}

// Edges of the Protocol.
func (Protocol) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("batches", CriteriaBatch.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("checkpoints", PipelineCheckpoint.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Protocol.
func (Protocol) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("status", "created_at"),
		index.Fields("archived_at").
			Annotations(entsql.IndexWhere("archived_at IS NULL")),
	}
}

// Annotations: the GIN full-text index lives on Criterion.text, applied in
// a migration hook (see pkg/database) because Ent cannot express
// to_tsvector expression indexes natively.
func (Protocol) Annotations() []schema.Annotation {
	return []schema.Annotation{}
}
