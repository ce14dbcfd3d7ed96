package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/pkg/apperrors"
)

// writeServiceError maps a pkg/apperrors error to the matching HTTP
// status and writes it as the response. Unrecognized errors are logged
// and reported as a generic 500 rather than leaking internal detail.
func writeServiceError(c *gin.Context, err error) {
	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
		return
	}

	var notFoundErr *apperrors.NotFoundError
	if errors.As(err, &notFoundErr) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
		return
	}

	var unavailableErr *apperrors.ServiceUnavailableError
	if errors.As(err, &unavailableErr) {
		if unavailableErr.RetryAfter > 0 {
			c.Header("Retry-After", unavailableErr.RetryAfter.String())
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": unavailableErr.Error()})
		return
	}

	var transientErr *apperrors.TransientUpstreamError
	if errors.As(err, &transientErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": transientErr.Error()})
		return
	}

	var nodeErr *apperrors.NodeFailureError
	if errors.As(err, &nodeErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": nodeErr.Error()})
		return
	}

	if ent.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
		return
	}

	slog.Error("unexpected service error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
