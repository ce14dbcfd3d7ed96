// Package storage resolves an opaque protocol file_uri to PDF bytes. The
// pipeline's ingest node depends only on the Adapter interface; which
// concrete adapter backs it is an operator choice.
package storage

import "context"

// Adapter fetches the raw bytes a Protocol's file_uri refers to.
type Adapter interface {
	FetchPDF(ctx context.Context, uri string) ([]byte, error)
}

// New selects an Adapter from environment-style configuration, mirroring
// the USE_LOCAL_STORAGE/LOCAL_UPLOAD_DIR split: local disk for on-prem and
// development deployments, signed HTTPS URLs for anything backed by
// object storage (S3, GCS) behind a presigned-URL upload flow.
func New(useLocalStorage bool, localUploadDir string) Adapter {
	if useLocalStorage {
		return NewLocalAdapter(localUploadDir)
	}
	return NewSignedURLAdapter()
}
