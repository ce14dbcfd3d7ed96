// Package events provides real-time event delivery via WebSocket and
// PostgreSQL NOTIFY/LISTEN for cross-pod distribution.
//
// ════════════════════════════════════════════════════════════════
// Pipeline Progress Event Pattern
// ════════════════════════════════════════════════════════════════
//
// Every pipeline node transition publishes exactly one stage.status event,
// fire-and-forget:
//
//	protocol.status  {status: "grounding"}
//	stage.status     {node: "ground", status: "started"}
//	stage.status     {node: "ground", status: "completed"}
//	protocol.status  {status: "structuring"}
//
// There is no streaming/chunked variant here — unlike an LLM token stream,
// a pipeline node either hasn't started, is running, or has finished, so a
// single event per transition is sufficient for a review UI progress bar.
//
// review.action events are published whenever pkg/review commits a review
// transaction, so multiple reviewers looking at the same batch see each
// other's decisions land without polling.
// ════════════════════════════════════════════════════════════════
package events

// Persistent event types (stored in DB + NOTIFY).
const (
	// Protocol lifecycle — status transitions from the protocols table.
	EventTypeProtocolStatus = "protocol.status"

	// Pipeline stage lifecycle — single event type for all node transitions.
	EventTypeStageStatus = "stage.status"

	// Review action lifecycle — fired after a review transaction commits.
	EventTypeReviewAction = "review.action"
)

// Stage lifecycle status values (used in StageStatusPayload.Status).
const (
	StageStatusStarted   = "started"
	StageStatusCompleted = "completed"
	StageStatusFailed    = "failed"
	StageStatusSkipped   = "skipped"
)

// Transient event types (NOTIFY only, no DB persistence).
const (
	// Fine-grained per-entity grounding progress within the ground node —
	// high frequency, ephemeral, used to drive a live progress bar without
	// writing one row per entity to the events table.
	EventTypeGroundingProgress = "grounding.progress"
)

// GlobalProtocolsChannel is the channel for protocol-list-level status
// events. The protocol list page subscribes to this for real-time updates.
const GlobalProtocolsChannel = "protocols"

// ProtocolChannel returns the channel name for a specific protocol's events.
// Format: "protocol:{protocol_id}"
func ProtocolChannel(protocolID string) string {
	return "protocol:" + protocolID
}

// ClientMessage is the JSON structure for client → server WebSocket messages.
type ClientMessage struct {
	Action      string `json:"action"`                  // "subscribe", "unsubscribe", "catchup", "ping"
	Channel     string `json:"channel,omitempty"`       // Channel name (e.g., "protocol:abc-123")
	LastEventID *int   `json:"last_event_id,omitempty"` // For catchup
}
