package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalAdapter_FetchPDF_ReadsFileUnderBaseDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "protocol-1.pdf"), []byte("%PDF-1.4 fake"), 0o644))

	adapter := NewLocalAdapter(dir)
	data, err := adapter.FetchPDF(context.Background(), "local://protocol-1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestLocalAdapter_FetchPDF_RejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	adapter := NewLocalAdapter(dir)

	_, err := adapter.FetchPDF(context.Background(), "local://../../etc/passwd")
	assert.Error(t, err)
}

func TestLocalAdapter_FetchPDF_MissingFileErrors(t *testing.T) {
	adapter := NewLocalAdapter(t.TempDir())
	_, err := adapter.FetchPDF(context.Background(), "local://does-not-exist.pdf")
	assert.Error(t, err)
}

func TestNew_SelectsAdapterByFlag(t *testing.T) {
	local := New(true, t.TempDir())
	_, ok := local.(*LocalAdapter)
	assert.True(t, ok)

	signed := New(false, "")
	_, ok = signed.(*SignedURLAdapter)
	assert.True(t, ok)
}
