package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// EventStore queries the protocol_events table for the WebSocket catchup
// mechanism. It talks to *sql.DB directly rather than through ent, mirroring
// EventPublisher's own choice to write protocol_events via raw SQL — this
// table is pure event-log plumbing, not a domain entity with its own
// business rules, so it doesn't need a generated ent model.
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates an EventStore backed by db.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// GetCatchupEvents implements CatchupQuerier, returning events on channel
// with id > sinceID, oldest first, capped at limit rows.
func (s *EventStore) GetCatchupEvents(ctx context.Context, channel string, sinceID, limit int) ([]CatchupEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload FROM protocol_events WHERE channel = $1 AND id > $2 ORDER BY id ASC LIMIT $3`,
		channel, sinceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query catchup events: %w", err)
	}
	defer rows.Close()

	var events []CatchupEvent
	for rows.Next() {
		var id int
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan catchup event: %w", err)
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal catchup event payload: %w", err)
		}
		events = append(events, CatchupEvent{ID: id, Payload: payload})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catchup events: %w", err)
	}
	return events, nil
}
