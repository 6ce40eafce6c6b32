package modelloader

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liwenju0/deepenc/cryptoutils"
	"github.com/liwenju0/deepenc/storage"
)

func TestMetrics_CountsDecryptsAndSessionCache(t *testing.T) {
	encPath := filepath.Join(t.TempDir(), "model.onnx.encrypt")
	writeEncryptedModel(t, encPath, []byte("weights"))

	m := NewMetrics()
	factory := &fakeFactory{}
	backend, err := storage.NewFileBackend("", testLogger())
	require.NoError(t, err)

	l, err := NewModelLoader(Config{
		Keys:    &staticKeys{key: testKey},
		Backend: backend,
		Cipher:  cryptoutils.NewCipher(0),
		Factory: factory.New,
		TempDir: t.TempDir(),
		Metrics: m,
		Log:     testLogger(),
	})
	require.NoError(t, err)

	_, err = l.Load(context.Background(), encPath, nil)
	require.NoError(t, err)
	_, err = l.Load(context.Background(), encPath, nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.decrypts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionHits))
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.observeModelDecrypt(0)
	m.sessionCacheHit()
	m.sessionCacheMiss()
}
