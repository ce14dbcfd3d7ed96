package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/elixirtrials/elixirtrials/ent"
)

// Publish inserts a pending outbox row for eventType/payload using tx. The
// caller is responsible for committing tx alongside the business write it
// guards — publishing outside an active transaction defeats the exactly-
// once-enqueue guarantee the outbox exists to provide.
func Publish(ctx context.Context, tx *ent.Tx, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload for %s: %w", eventType, err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode outbox payload for %s: %w", eventType, err)
	}

	return tx.OutboxEvent.Create().
		SetID(uuid.New().String()).
		SetEventType(eventType).
		SetPayload(decoded).
		Exec(ctx)
}

// PublishProtocolUploaded publishes the event the confirm-upload endpoint
// emits once a protocol row is committed.
func PublishProtocolUploaded(ctx context.Context, tx *ent.Tx, protocolID, fileURI string) error {
	return Publish(ctx, tx, EventProtocolUploaded, map[string]string{
		"protocol_id": protocolID,
		"file_uri":    fileURI,
	})
}

// PublishReextractionRequested publishes the event the reextract endpoint
// emits to restart a protocol's pipeline from scratch.
func PublishReextractionRequested(ctx context.Context, tx *ent.Tx, protocolID, reason string) error {
	return Publish(ctx, tx, EventReextractionRequested, map[string]string{
		"protocol_id": protocolID,
		"reason":      reason,
	})
}
