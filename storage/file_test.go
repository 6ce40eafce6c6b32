package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liwenju0/deepenc/interfaces"
)

func TestFileBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	data := []byte("encrypted module body")
	require.NoError(t, b.Store(ctx, "pkg/mod.py.encrypted", data))

	assert.True(t, b.Exists(ctx, "pkg/mod.py.encrypted"))

	got, err := b.Fetch(ctx, "pkg/mod.py.encrypted")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFileBackend_NotFound(t *testing.T) {
	ctx := context.Background()
	b, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	_, err = b.Fetch(ctx, "absent")
	assert.ErrorIs(t, err, interfaces.ErrArtifactNotFound)
	assert.False(t, b.Exists(ctx, "absent"))
}

func TestFileBackend_AbsolutePath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	abs := filepath.Join(dir, "model.onnx.encrypt")
	require.NoError(t, os.WriteFile(abs, []byte("blob"), 0644))

	b, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	got, err := b.Fetch(ctx, abs)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), got)
}

func TestFileBackend_Available(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)
	assert.True(t, b.Available(ctx))

	require.NoError(t, os.RemoveAll(dir))
	assert.False(t, b.Available(ctx))
}
