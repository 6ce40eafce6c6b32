package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liwenju0/deepenc/interfaces"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubStrategy struct {
	name   string
	source interfaces.KeySource
	key    interfaces.Key
	err    error
	calls  int
}

func (s *stubStrategy) Name() string                  { return s.name }
func (s *stubStrategy) Source() interfaces.KeySource  { return s.source }
func (s *stubStrategy) TryResolve(ctx context.Context) (interfaces.Key, error) {
	s.calls++
	return s.key, s.err
}

func TestResolver_FirstSuccessWins(t *testing.T) {
	hardware := &stubStrategy{
		name:   "hardware-device",
		source: interfaces.KeySourceHardware,
		key:    interfaces.Key("hardware-key-16b"),
	}
	env := &stubStrategy{
		name:   "environment",
		source: interfaces.KeySourceEnvironment,
		key:    interfaces.Key("env-key-16-bytes"),
	}

	// Hardware and environment both hold valid keys; priority order decides.
	r := NewResolver([]interfaces.KeyStrategy{hardware, env}, discardLogger())

	key, err := r.Key()
	require.NoError(t, err)
	assert.Equal(t, interfaces.Key("hardware-key-16b"), key)
	assert.Equal(t, interfaces.KeySourceHardware, r.Source())
	assert.Equal(t, 0, env.calls, "lower-priority source must not be consulted")
}

func TestResolver_FallsThroughFailures(t *testing.T) {
	failing := &stubStrategy{
		name:   "hardware-device",
		source: interfaces.KeySourceHardware,
		err:    errors.New("device gone"),
	}
	badLength := &stubStrategy{
		name:   "license-file",
		source: interfaces.KeySourceGenericLicense,
		key:    interfaces.Key("short"),
	}
	env := &stubStrategy{
		name:   "environment",
		source: interfaces.KeySourceEnvironment,
		key:    interfaces.Key("env-key-16-bytes"),
	}

	r := NewResolver([]interfaces.KeyStrategy{failing, badLength, env}, discardLogger())

	key, err := r.Key()
	require.NoError(t, err)
	assert.Equal(t, interfaces.Key("env-key-16-bytes"), key)
	assert.Equal(t, interfaces.KeySourceEnvironment, r.Source())
}

func TestResolver_AllSourcesExhausted(t *testing.T) {
	r := NewResolver([]interfaces.KeyStrategy{
		&stubStrategy{name: "a", err: errors.New("nope")},
		&stubStrategy{name: "b", err: errors.New("nope")},
	}, discardLogger())

	_, err := r.Key()
	assert.ErrorIs(t, err, interfaces.ErrAuthentication)
	assert.False(t, r.VerifyAuthorization())
	assert.Equal(t, interfaces.KeySourceNone, r.Source())
}

func TestResolver_OneShot(t *testing.T) {
	s := &stubStrategy{
		name:   "environment",
		source: interfaces.KeySourceEnvironment,
		key:    interfaces.Key("env-key-16-bytes"),
	}
	r := NewResolver([]interfaces.KeyStrategy{s}, discardLogger())

	require.NoError(t, r.Resolve(context.Background()))
	for i := 0; i < 5; i++ {
		_, err := r.Key()
		require.NoError(t, err)
	}
	assert.Equal(t, 1, s.calls, "resolution must happen exactly once per process")
}

func TestResolver_Info(t *testing.T) {
	r := NewResolver([]interfaces.KeyStrategy{
		&stubStrategy{name: "hardware-device", err: errors.New("absent")},
		&stubStrategy{
			name:   "environment",
			source: interfaces.KeySourceEnvironment,
			key:    interfaces.Key("env-key-16-bytes"),
		},
	}, discardLogger())

	info := r.Info()
	assert.Equal(t, "environment", info.Source)
	assert.Equal(t, 16, info.KeyLength)
	assert.True(t, info.Authorized)
	assert.Equal(t, []string{"hardware-device", "environment"}, info.Strategies)
}
