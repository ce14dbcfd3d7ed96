package terminology

import (
	"net/http"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// bearerTokenTransport wraps an http.RoundTripper to add an Authorization
// header to every outgoing request.
type bearerTokenTransport struct {
	base  http.RoundTripper
	token string
}

func (t *bearerTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}

// newHTTPClient builds an http.Client with an optional bearer token and a
// request timeout. Passing an empty apiKey leaves requests unauthenticated,
// which several public vocabulary servers (RxNorm, HPO) accept.
func newHTTPClient(apiKey string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	client := &http.Client{Timeout: timeout}
	if apiKey != "" {
		client.Transport = &bearerTokenTransport{base: http.DefaultTransport, token: apiKey}
	}
	return client
}
