package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractAuthor_PrefersDevSessionCookie(t *testing.T) {
	c, _ := newTestContext()
	c.Request.AddCookie(&http.Cookie{Name: devSessionCookie, Value: "reviewer-1"})
	c.Request.Header.Set("X-Forwarded-User", "proxy-user")

	if got := extractAuthor(c); got != "reviewer-1" {
		t.Fatalf("expected reviewer-1, got %q", got)
	}
}

func TestExtractAuthor_FallsBackToForwardedUserHeader(t *testing.T) {
	c, _ := newTestContext()
	c.Request.Header.Set("X-Forwarded-User", "proxy-user")

	if got := extractAuthor(c); got != "proxy-user" {
		t.Fatalf("expected proxy-user, got %q", got)
	}
}

func TestExtractAuthor_DefaultsToAPIClient(t *testing.T) {
	c, _ := newTestContext()

	if got := extractAuthor(c); got != "api-client" {
		t.Fatalf("expected api-client, got %q", got)
	}
}

func TestAuthDevLoginHandler_RejectsMissingBody(t *testing.T) {
	c, rec := newTestContext()
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/dev-login", nil)

	s := &Server{}
	s.authDevLoginHandler(c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing body, got %d", rec.Code)
	}
}
