package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// integrityCheckHandler runs the read-only consistency audit, scoped to
// ?protocol_id=. A missing protocol_id yields the checker's contractual
// empty report rather than a 400, since "no protocol named" is itself a
// valid (if useless) scope.
func (s *Server) integrityCheckHandler(c *gin.Context) {
	report, err := s.checker.Check(c.Request.Context(), c.Query("protocol_id"))
	if err != nil {
		writeServiceError(c, fmt.Errorf("run integrity check: %w", err))
		return
	}
	c.JSON(http.StatusOK, report)
}
