package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// OutboxEvent holds the schema definition for one durable, at-least-once
// delivered event written transactionally alongside a business write.
type OutboxEvent struct {
	ent.Schema
}

// Fields of the OutboxEvent.
func (OutboxEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("outbox_event_id").
			Unique().
			Immutable(),
		field.String("event_type").
			Immutable(),
		field.JSON("payload", map[string]interface{}{}).
			Immutable(),
		field.Enum("status").
			Values("pending", "claimed", "delivered", "failed", "dead_letter").
			Default("pending"),
		field.Int("attempts").
			Default(0),
		field.String("last_error").
			Optional().
			Nillable(),
		field.Time("next_retry_at").
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

// Indexes of the OutboxEvent.
func (OutboxEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status", "next_retry_at"),
		index.Fields("status", "created_at"),
	}
}
