package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PipelineCheckpoint holds the schema definition for serialized node state,
// keyed by (thread_id = protocol_id, node_name). Owned by PipelineRunner.
type PipelineCheckpoint struct {
	ent.Schema
}

// Fields of the PipelineCheckpoint.
func (PipelineCheckpoint) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("checkpoint_id").
			Unique().
			Immutable(),
		field.String("thread_id").
			Comment("Equal to protocol_id"),
		field.String("protocol_id").
			Immutable(),
		field.String("node_name").
			Comment("One of: ingest, extract, parse, ground, persist, structure, ordinal_resolve"),
		field.Enum("status").
			Values("pending", "completed", "failed").
			Default("pending"),
		field.JSON("state", map[string]interface{}{}).
			Optional().
			Comment("Node output serialized for the next node to resume from"),
		field.Time("completed_at").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the PipelineCheckpoint.
func (PipelineCheckpoint) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("protocol", Protocol.Type).
			Ref("checkpoints").
			Field("protocol_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the PipelineCheckpoint.
func (PipelineCheckpoint) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("thread_id", "node_name").
			Unique(),
	}
}
