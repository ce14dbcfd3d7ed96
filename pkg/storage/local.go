package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalAdapter resolves a file_uri of the form "local://<relative-path>"
// against a base directory on disk.
type LocalAdapter struct {
	baseDir string
}

// NewLocalAdapter builds an adapter rooted at baseDir.
func NewLocalAdapter(baseDir string) *LocalAdapter {
	return &LocalAdapter{baseDir: baseDir}
}

// FetchPDF reads the file at uri relative to the adapter's base directory.
// Paths are cleaned and rejected if they would escape baseDir.
func (a *LocalAdapter) FetchPDF(ctx context.Context, uri string) ([]byte, error) {
	rel := strings.TrimPrefix(uri, "local://")
	cleaned := filepath.Clean(filepath.Join(a.baseDir, rel))

	if !strings.HasPrefix(cleaned, filepath.Clean(a.baseDir)+string(filepath.Separator)) && cleaned != filepath.Clean(a.baseDir) {
		return nil, fmt.Errorf("file_uri %q resolves outside the upload directory", uri)
	}

	data, err := os.ReadFile(cleaned)
	if err != nil {
		return nil, fmt.Errorf("read local file %q: %w", cleaned, err)
	}
	return data, nil
}
