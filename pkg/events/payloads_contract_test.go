package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProtocolChannelPayloads_ContainProtocolID is a contract test between
// the Go backend and any frontend WebSocket client.
//
// A frontend routes incoming WS events by inspecting `data.protocol_id` in
// the JSON payload. ANY payload broadcast on a protocol-specific channel
// (protocol:{id}) MUST include a non-empty `protocol_id` field — otherwise
// a client watching a specific protocol has no way to confirm the event
// belongs to it.
//
// If you add a new payload type that goes through ProtocolChannel, add it
// here — the test fails if protocol_id is missing from its JSON encoding.
func TestProtocolChannelPayloads_ContainProtocolID(t *testing.T) {
	const testProtocolID = "protocol-contract-test"

	tests := []struct {
		name    string
		payload any
	}{
		{
			name: "ProtocolStatusPayload",
			payload: ProtocolStatusPayload{
				Type:       EventTypeProtocolStatus,
				ProtocolID: testProtocolID,
				Status:     "grounding",
				Timestamp:  "2026-01-01T00:00:00Z",
			},
		},
		{
			name: "StageStatusPayload",
			payload: StageStatusPayload{
				Type:       EventTypeStageStatus,
				ProtocolID: testProtocolID,
				Node:       "ground",
				Status:     StageStatusStarted,
				Timestamp:  "2026-01-01T00:00:00Z",
			},
		},
		{
			name: "ReviewActionPayload",
			payload: ReviewActionPayload{
				Type:       EventTypeReviewAction,
				ProtocolID: testProtocolID,
				BatchID:    "batch-1",
				TargetType: "criteria",
				TargetID:   "criterion-1",
				Action:     "approve",
				ReviewerID: "reviewer-1",
				Timestamp:  "2026-01-01T00:00:00Z",
			},
		},
		{
			name: "GroundingProgressPayload",
			payload: GroundingProgressPayload{
				Type:          EventTypeGroundingProgress,
				ProtocolID:    testProtocolID,
				BatchID:       "batch-1",
				EntitiesDone:  1,
				EntitiesTotal: 5,
				Timestamp:     "2026-01-01T00:00:00Z",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.payload)
			require.NoError(t, err)

			var decoded map[string]any
			require.NoError(t, json.Unmarshal(raw, &decoded))

			protocolID, ok := decoded["protocol_id"]
			require.True(t, ok, "%s must serialize a protocol_id field", tt.name)
			assert.Equal(t, testProtocolID, protocolID)
		})
	}
}
