package loader

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liwenju0/deepenc/cryptoutils"
	"github.com/liwenju0/deepenc/interfaces"
	"github.com/liwenju0/deepenc/storage"
)

func TestMetrics_CountsDecryptsAndCacheTraffic(t *testing.T) {
	dir := t.TempDir()
	writeEncrypted(t, filepath.Join(dir, "mod.encrypted"), "x = 1")

	m := NewMetrics()
	backend, err := storage.NewFileBackend("", testLogger())
	require.NoError(t, err)

	r, err := NewEncryptedUnitResolver(ResolverConfig{
		Keys:     &staticKeys{key: testKey},
		Backend:  backend,
		Cipher:   cryptoutils.NewCipher(0),
		Executor: &recordingExecutor{},
		Metrics:  m,
		Log:      testLogger(),
	})
	require.NoError(t, err)

	desc, err := r.Locate("mod", []string{dir})
	require.NoError(t, err)
	require.NoError(t, r.Materialize(desc, interfaces.NewNamespace()))
	require.NoError(t, r.Materialize(desc, interfaces.NewNamespace()))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.decrypts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.observeUnitDecrypt(0)
	m.unitCacheHit()
	m.unitCacheMiss()
}
