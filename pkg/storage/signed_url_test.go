package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLAdapter_FetchPDF_ReadsSuccessfulResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("%PDF-1.4 remote"))
	}))
	defer srv.Close()

	adapter := NewSignedURLAdapter()
	data, err := adapter.FetchPDF(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 remote", string(data))
}

func TestSignedURLAdapter_FetchPDF_NonOKStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	adapter := NewSignedURLAdapter()
	_, err := adapter.FetchPDF(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestSignedURLAdapter_FetchPDF_InvalidURLErrors(t *testing.T) {
	adapter := NewSignedURLAdapter()
	_, err := adapter.FetchPDF(context.Background(), "://not-a-url")
	assert.Error(t, err)
}

func TestSignedURLAdapter_FetchPDF_RespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapter := NewSignedURLAdapter()
	_, err := adapter.FetchPDF(ctx, srv.URL)
	assert.Error(t, err)
}
