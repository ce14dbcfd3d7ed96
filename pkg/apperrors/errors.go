// Package apperrors defines the typed error taxonomy shared across pipeline
// nodes, the review transaction, the integrity checker, and the HTTP API.
// Internal callers classify errors with errors.As/errors.Is; HTTP handlers
// map them to status codes at the boundary.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrValidation is returned when caller-supplied input fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrServiceUnavailable is returned when a dependency is temporarily down.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTransientUpstream is returned for retryable upstream failures
	// (HTTP 429/5xx, network timeouts) from terminology adapters or the LLM gateway.
	ErrTransientUpstream = errors.New("transient upstream error")

	// ErrGrounding is returned when a pipeline entity cannot be grounded to a
	// terminology code or an OMOP concept with acceptable confidence.
	ErrGrounding = errors.New("grounding failed")

	// ErrNode is returned when a pipeline node fails outside the retryable
	// upstream paths (e.g. malformed checkpoint state, unrecoverable parse error).
	ErrNode = errors.New("pipeline node failed")

	// ErrIntegrity is returned when the integrity checker finds a data
	// consistency violation (orphaned row, missing audit trail, ...).
	ErrIntegrity = errors.New("data integrity violation")
)

// ValidationError wraps field-specific validation errors.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a new field-scoped validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError wraps a lookup miss with the resource kind and identifier.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError creates a new not-found error for a resource/id pair.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ServiceUnavailableError signals a dependency is down and, when known, how
// long the caller should wait before retrying.
type ServiceUnavailableError struct {
	Service    string
	Reason     string
	RetryAfter time.Duration
}

func (e *ServiceUnavailableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s unavailable: %s (retry after %s)", e.Service, e.Reason, e.RetryAfter)
	}
	return fmt.Sprintf("%s unavailable: %s", e.Service, e.Reason)
}

func (e *ServiceUnavailableError) Unwrap() error { return ErrServiceUnavailable }

// NewServiceUnavailableError creates a new service-unavailable error.
func NewServiceUnavailableError(service, reason string, retryAfter time.Duration) error {
	return &ServiceUnavailableError{Service: service, Reason: reason, RetryAfter: retryAfter}
}

// TransientUpstreamError wraps a retryable failure from an external HTTP
// dependency (terminology adapter, LLM provider). StatusCode is 0 for
// network-level failures (timeout, connection refused).
type TransientUpstreamError struct {
	Upstream   string
	StatusCode int
	Err        error
}

func (e *TransientUpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transient error from %s (status %d): %v", e.Upstream, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient error from %s: %v", e.Upstream, e.Err)
}

func (e *TransientUpstreamError) Unwrap() error { return e.Err }

// Is reports true for ErrTransientUpstream so errors.Is(err, ErrTransientUpstream)
// works even though Unwrap returns the wrapped cause, not the sentinel.
func (e *TransientUpstreamError) Is(target error) bool {
	return target == ErrTransientUpstream
}

// NewTransientUpstreamError creates a new transient upstream error.
func NewTransientUpstreamError(upstream string, statusCode int, err error) error {
	return &TransientUpstreamError{Upstream: upstream, StatusCode: statusCode, Err: err}
}

// GroundingFailureError records why an entity could not be grounded.
type GroundingFailureError struct {
	EntityID string
	Reason   string
}

func (e *GroundingFailureError) Error() string {
	return fmt.Sprintf("grounding failed for entity %s: %s", e.EntityID, e.Reason)
}

func (e *GroundingFailureError) Unwrap() error { return ErrGrounding }

// NewGroundingFailureError creates a new grounding failure error.
func NewGroundingFailureError(entityID, reason string) error {
	return &GroundingFailureError{EntityID: entityID, Reason: reason}
}

// NodeFailureError records which pipeline node failed and why.
type NodeFailureError struct {
	Node string
	Err  error
}

func (e *NodeFailureError) Error() string {
	return fmt.Sprintf("pipeline node %q failed: %v", e.Node, e.Err)
}

func (e *NodeFailureError) Unwrap() error { return e.Err }

func (e *NodeFailureError) Is(target error) bool {
	return target == ErrNode
}

// NewNodeFailureError creates a new node failure error.
func NewNodeFailureError(node string, err error) error {
	return &NodeFailureError{Node: node, Err: err}
}

// IntegrityViolationError records one integrity-check finding.
type IntegrityViolationError struct {
	Category string
	Detail   string
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("integrity violation [%s]: %s", e.Category, e.Detail)
}

func (e *IntegrityViolationError) Unwrap() error { return ErrIntegrity }

// NewIntegrityViolationError creates a new integrity violation error.
func NewIntegrityViolationError(category, detail string) error {
	return &IntegrityViolationError{Category: category, Detail: detail}
}
