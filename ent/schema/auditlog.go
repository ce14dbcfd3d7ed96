package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AuditLog holds the schema definition for one append-only system or
// reviewer event.
type AuditLog struct {
	ent.Schema
}

// Fields of the AuditLog.
func (AuditLog) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("audit_log_id").
			Unique().
			Immutable(),
		field.String("event_type").
			Immutable(),
		field.String("actor_id").
			Optional().
			Nillable().
			Immutable().
			Comment("Nil for system events"),
		field.String("target_type").
			Immutable(),
		field.String("target_id").
			Immutable(),
		field.JSON("details", map[string]interface{}{}).
			Immutable().
			Comment("Includes schema_version: text_v1 | structured_v1 | v1.5-multi"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the AuditLog.
func (AuditLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("target_type", "target_id"),
		index.Fields("event_type"),
		index.Fields("created_at"),
	}
}
