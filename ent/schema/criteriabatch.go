package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CriteriaBatch holds the schema definition for one extraction run of a protocol.
type CriteriaBatch struct {
	ent.Schema
}

// Fields of the CriteriaBatch.
func (CriteriaBatch) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("batch_id").
			Unique().
			Immutable(),
		field.String("protocol_id").
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Bool("is_archived").
			Default(false).
			Comment("Set true when a re-extraction supersedes this batch"),
		field.Enum("review_status").
			Values("pending_review", "in_progress", "approved", "rejected", "reviewed").
			Default("pending_review").
			Comment("Auto-computed from child Criteria; see review batch auto-transition rules"),
		field.String("source_llm_name").
			Comment("e.g. 'gemini'"),
		field.String("source_llm_version").
			Comment("Model version string used for the extract node of this run"),
	}
}

// Edges of the CriteriaBatch.
func (CriteriaBatch) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("protocol", Protocol.Type).
			Ref("batches").
			Field("protocol_id").
			Unique().
			Required().
			Immutable(),
		edge.To("criteria", Criterion.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the CriteriaBatch.
func (CriteriaBatch) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("protocol_id", "is_archived"),
		index.Fields("review_status"),
	}
}
