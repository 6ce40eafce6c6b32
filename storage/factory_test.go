package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liwenju0/deepenc/interfaces"
)

func TestFactory_FileBackend(t *testing.T) {
	f := NewFactory(testLogger())
	dir := t.TempDir()

	backend, err := f.BackendFor(interfaces.ArtifactLocation("file://" + dir))
	require.NoError(t, err)

	_, ok := backend.(*FileBackend)
	assert.True(t, ok)
	assert.True(t, backend.Available(context.Background()))
}

func TestFactory_S3Backend(t *testing.T) {
	f := NewFactory(testLogger())

	backend, err := f.BackendFor("s3://my-bucket/artifacts?region=eu-west-1&endpoint=minio.local:9000")
	require.NoError(t, err)

	s3b, ok := backend.(*S3Backend)
	require.True(t, ok)
	assert.Equal(t, "s3-my-bucket", s3b.Name())
	assert.Contains(t, s3b.LocationURI(), "region=eu-west-1")
}

func TestFactory_IPFSBackend(t *testing.T) {
	f := NewFactory(testLogger())

	backend, err := f.BackendFor("ipfs://127.0.0.1:5001/QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG")
	require.NoError(t, err)
	assert.Equal(t, "ipfs-127.0.0.1-5001", backend.Name())

	// A root CID is mandatory.
	_, err = f.BackendFor("ipfs://127.0.0.1:5001")
	assert.Error(t, err)
}

func TestFactory_UnsupportedScheme(t *testing.T) {
	f := NewFactory(testLogger())

	_, err := f.BackendFor("gopher://old.net/artifacts")
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestFactory_MultiBackend(t *testing.T) {
	f := NewFactory(testLogger())

	backend, err := f.MultiBackendFor([]interfaces.ArtifactLocation{
		interfaces.ArtifactLocation("file://" + t.TempDir()),
		"gopher://ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "multi-storage", backend.Name())

	_, err = f.MultiBackendFor([]interfaces.ArtifactLocation{"gopher://only-bad"})
	assert.Error(t, err)
}
