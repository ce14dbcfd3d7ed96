package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Review holds the schema definition for one immutable reviewer action.
type Review struct {
	ent.Schema
}

// Fields of the Review.
func (Review) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("review_id").
			Unique().
			Immutable(),
		field.Enum("target_type").
			Values("criteria", "entity", "batch").
			Immutable(),
		field.String("target_id").
			Immutable(),
		field.String("reviewer_id").
			Immutable(),
		field.Enum("action").
			Values("approve", "reject", "modify").
			Immutable(),
		field.JSON("before_value", map[string]interface{}{}).
			Immutable(),
		field.JSON("after_value", map[string]interface{}{}).
			Immutable(),
		field.String("comment").
			Optional().
			Nillable().
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the Review.
func (Review) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("target_type", "target_id"),
		index.Fields("created_at"),
	}
}
