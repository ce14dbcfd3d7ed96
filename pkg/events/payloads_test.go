package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProtocolStatusPayload_Fields(t *testing.T) {
	payload := ProtocolStatusPayload{
		Type:       EventTypeProtocolStatus,
		ProtocolID: "protocol-abc",
		Status:     "grounding",
		Timestamp:  time.Now().Format(time.RFC3339Nano),
	}

	assert.Equal(t, EventTypeProtocolStatus, payload.Type)
	assert.Equal(t, "protocol-abc", payload.ProtocolID)
	assert.Equal(t, "grounding", payload.Status)
	assert.NotEmpty(t, payload.Timestamp)
}

func TestStageStatusPayload_Fields(t *testing.T) {
	payload := StageStatusPayload{
		Type:       EventTypeStageStatus,
		ProtocolID: "protocol-abc",
		Node:       "ground",
		Status:     StageStatusCompleted,
		Timestamp:  time.Now().Format(time.RFC3339Nano),
	}

	assert.Equal(t, "ground", payload.Node)
	assert.Equal(t, StageStatusCompleted, payload.Status)
	assert.Empty(t, payload.Detail, "detail is optional and empty on a normal completion")
}

func TestStageStatusPayload_FailedCarriesDetail(t *testing.T) {
	payload := StageStatusPayload{
		Type:       EventTypeStageStatus,
		ProtocolID: "protocol-abc",
		Node:       "extract",
		Status:     StageStatusFailed,
		Detail:     "gemini call exceeded retry budget",
		Timestamp:  time.Now().Format(time.RFC3339Nano),
	}

	assert.Equal(t, StageStatusFailed, payload.Status)
	assert.NotEmpty(t, payload.Detail)
}

func TestReviewActionPayload_Fields(t *testing.T) {
	payload := ReviewActionPayload{
		Type:       EventTypeReviewAction,
		ProtocolID: "protocol-abc",
		BatchID:    "batch-1",
		TargetType: "criteria",
		TargetID:   "criterion-1",
		Action:     "approve",
		ReviewerID: "reviewer-1",
		Timestamp:  time.Now().Format(time.RFC3339Nano),
	}

	assert.Equal(t, "criteria", payload.TargetType)
	assert.Equal(t, "approve", payload.Action)
}

func TestGroundingProgressPayload_Fields(t *testing.T) {
	payload := GroundingProgressPayload{
		Type:          EventTypeGroundingProgress,
		ProtocolID:    "protocol-abc",
		BatchID:       "batch-1",
		EntitiesDone:  3,
		EntitiesTotal: 10,
		Timestamp:     time.Now().Format(time.RFC3339Nano),
	}

	assert.Less(t, payload.EntitiesDone, payload.EntitiesTotal)
}
