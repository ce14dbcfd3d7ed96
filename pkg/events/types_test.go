package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtocolChannel(t *testing.T) {
	tests := []struct {
		name       string
		protocolID string
		want       string
	}{
		{
			name:       "formats protocol channel correctly",
			protocolID: "abc-123",
			want:       "protocol:abc-123",
		},
		{
			name:       "handles UUID format",
			protocolID: "550e8400-e29b-41d4-a716-446655440000",
			want:       "protocol:550e8400-e29b-41d4-a716-446655440000",
		},
		{
			name:       "handles empty string",
			protocolID: "",
			want:       "protocol:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProtocolChannel(tt.protocolID)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventTypeConstants(t *testing.T) {
	types := []string{
		EventTypeProtocolStatus,
		EventTypeStageStatus,
		EventTypeReviewAction,
		EventTypeGroundingProgress,
	}

	seen := make(map[string]bool)
	for _, typ := range types {
		assert.NotEmpty(t, typ, "event type should not be empty")
		assert.False(t, seen[typ], "duplicate event type: %s", typ)
		seen[typ] = true
	}
}

func TestStageStatusConstants(t *testing.T) {
	statuses := []string{
		StageStatusStarted,
		StageStatusCompleted,
		StageStatusFailed,
		StageStatusSkipped,
	}

	seen := make(map[string]bool)
	for _, status := range statuses {
		assert.NotEmpty(t, status, "stage status should not be empty")
		assert.False(t, seen[status], "duplicate stage status: %s", status)
		seen[status] = true
	}
}

func TestGlobalProtocolsChannel(t *testing.T) {
	assert.Equal(t, "protocols", GlobalProtocolsChannel)
}
