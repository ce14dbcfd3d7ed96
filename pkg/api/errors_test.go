package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elixirtrials/elixirtrials/pkg/apperrors"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestWriteServiceError_ValidationErrorIsBadRequest(t *testing.T) {
	c, rec := newTestContext()
	writeServiceError(c, apperrors.NewValidationError("title", "required"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWriteServiceError_NotFoundErrorIsNotFound(t *testing.T) {
	c, rec := newTestContext()
	writeServiceError(c, apperrors.NewNotFoundError("protocol", "abc"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestWriteServiceError_ServiceUnavailableSetsRetryAfterHeader(t *testing.T) {
	c, rec := newTestContext()
	writeServiceError(c, apperrors.NewServiceUnavailableError("llm-gateway", "circuit open", 30*time.Second))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header to be set")
	}
}

func TestWriteServiceError_TransientUpstreamIsBadGateway(t *testing.T) {
	c, rec := newTestContext()
	writeServiceError(c, apperrors.NewTransientUpstreamError("omop", 503, errors.New("boom")))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestWriteServiceError_NodeFailureIsUnprocessableEntity(t *testing.T) {
	c, rec := newTestContext()
	writeServiceError(c, apperrors.NewNodeFailureError("ground", errors.New("boom")))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestWriteServiceError_UnrecognizedErrorIsInternalServerError(t *testing.T) {
	c, rec := newTestContext()
	writeServiceError(c, errors.New("something unexpected"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
