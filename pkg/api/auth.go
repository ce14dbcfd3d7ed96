package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// devSessionCookie names the cookie authDevLoginHandler issues and the
// other auth handlers read back. There is no real OAuth2/JWT flow here —
// auth is explicitly a thin stand-in, not a production session mechanism.
const devSessionCookie = "elixirtrials_dev_session"

// extractAuthor identifies the caller for Review.reviewer_id and
// AuditLog.actor_id. Priority: the dev-login cookie, then an
// X-Forwarded-User header (left in place for a future reverse-proxy auth
// setup), then a fixed fallback.
func extractAuthor(c *gin.Context) string {
	if cookie, err := c.Cookie(devSessionCookie); err == nil && cookie != "" {
		return cookie
	}
	if user := c.GetHeader("X-Forwarded-User"); user != "" {
		return user
	}
	return "api-client"
}

// authDevLoginHandler issues a dev-session cookie for reviewer_id, with no
// password or identity check. This exists so the review endpoints have a
// caller identity to record without standing up a real identity provider.
func (s *Server) authDevLoginHandler(c *gin.Context) {
	var req struct {
		ReviewerID string `json:"reviewer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reviewer_id is required"})
		return
	}

	c.SetCookie(devSessionCookie, req.ReviewerID, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"reviewer_id": req.ReviewerID})
}

// authLoginHandler is a placeholder for a real OAuth2 authorization-code
// redirect; it is not wired to any identity provider.
func (s *Server) authLoginHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": "OAuth2 login is not configured; use POST /auth/dev-login"})
}

// authCallbackHandler is a placeholder for a real OAuth2 callback exchange.
func (s *Server) authCallbackHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": "OAuth2 callback is not configured"})
}

// authMeHandler reports the caller identity extractAuthor would attribute
// review actions to on this request.
func (s *Server) authMeHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reviewer_id": extractAuthor(c)})
}
