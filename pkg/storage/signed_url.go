package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SignedURLAdapter fetches PDF bytes from a signed HTTPS URL previously
// issued by the upload endpoint (object storage behind a presigned-URL
// flow). file_uri is the signed URL itself.
type SignedURLAdapter struct {
	client *http.Client
}

// NewSignedURLAdapter builds an adapter with a bounded-timeout HTTP client.
func NewSignedURLAdapter() *SignedURLAdapter {
	return &SignedURLAdapter{
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// FetchPDF issues a GET against the signed URL and reads the full body.
func (a *SignedURLAdapter) FetchPDF(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build signed URL request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch signed URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signed URL fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read signed URL response body: %w", err)
	}
	return data, nil
}
