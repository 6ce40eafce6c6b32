package cryptoutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liwenju0/deepenc/interfaces"
)

func TestDeriveKey(t *testing.T) {
	secret := []byte("short license material")
	context := []byte("device-1234")

	key := DeriveKey(secret, context)
	assert.True(t, key.Valid())
	assert.Len(t, []byte(key), 32)

	// Deterministic for the same inputs.
	assert.Equal(t, key, DeriveKey(secret, context))

	// Different context yields a different key.
	assert.NotEqual(t, key, DeriveKey(secret, []byte("device-5678")))
}

func TestSealOpenLicense(t *testing.T) {
	key := DeriveKey([]byte("secret"), []byte("dev"))
	license := []byte("0123456789abcdef")

	sealed, err := SealLicense(key, license)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), string(license))

	opened, err := OpenLicense(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, license, opened)
}

func TestOpenLicense_WrongKey(t *testing.T) {
	key := DeriveKey([]byte("secret"), []byte("dev"))
	sealed, err := SealLicense(key, []byte("0123456789abcdef"))
	require.NoError(t, err)

	other := DeriveKey([]byte("other"), []byte("dev"))
	_, err = OpenLicense(other, sealed)
	assert.Error(t, err)
}

func TestOpenLicense_TruncatedBlob(t *testing.T) {
	key := DeriveKey([]byte("secret"), []byte("dev"))
	_, err := OpenLicense(key, []byte{1, 2, 3})
	assert.Error(t, err)
}

func TestSealLicense_InvalidKey(t *testing.T) {
	_, err := SealLicense(interfaces.Key("short"), []byte("data"))
	assert.ErrorIs(t, err, interfaces.ErrInvalidKey)
}
