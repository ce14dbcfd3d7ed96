package apperrors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("text", "must not be empty")
	assert.Equal(t, "validation error on field 'text': must not be empty", err.Error())
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("protocol", "proto-123")
	assert.Equal(t, "protocol not found: proto-123", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestServiceUnavailableError(t *testing.T) {
	err := NewServiceUnavailableError("omop_vocab", "connection refused", 5*time.Second)
	assert.Contains(t, err.Error(), "retry after 5s")
	assert.True(t, errors.Is(err, ErrServiceUnavailable))
}

func TestTransientUpstreamError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransientUpstreamError("umls", 503, cause)
	assert.True(t, errors.Is(err, ErrTransientUpstream))
	assert.True(t, errors.Is(err, cause))
}

func TestGroundingFailureError(t *testing.T) {
	err := NewGroundingFailureError("entity-1", "no candidate above threshold")
	assert.True(t, errors.Is(err, ErrGrounding))
}

func TestNodeFailureError(t *testing.T) {
	cause := errors.New("checkpoint decode failed")
	err := NewNodeFailureError("extract", cause)
	assert.True(t, errors.Is(err, ErrNode))
	assert.True(t, errors.Is(err, cause))
}

func TestIntegrityViolationError(t *testing.T) {
	err := NewIntegrityViolationError("orphaned_entities", "entity e-1 has no owning criterion")
	assert.True(t, errors.Is(err, ErrIntegrity))
}
