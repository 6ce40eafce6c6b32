package auth

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liwenju0/deepenc/interfaces"
)

// fakeBinding simulates a hardware key device. DecryptLicense strips the
// "sealed:" prefix, standing in for the device's decryption capability.
type fakeBinding struct {
	id         string
	license    []byte
	readErr    error
	decryptErr error
}

func (f *fakeBinding) DeviceID() (string, error) {
	if f.id == "" {
		return "", errors.New("no device")
	}
	return f.id, nil
}

func (f *fakeBinding) ReadLicense() ([]byte, error) {
	return f.license, f.readErr
}

func (f *fakeBinding) DecryptLicense(blob []byte) ([]byte, error) {
	if f.decryptErr != nil {
		return nil, f.decryptErr
	}
	return bytes.TrimPrefix(blob, []byte("sealed:")), nil
}

func TestEnvStrategy(t *testing.T) {
	s := &EnvStrategy{Variable: "DEEPENC_TEST_KEY"}

	_, err := s.TryResolve(context.Background())
	assert.Error(t, err, "unset variable is unavailable")

	t.Setenv("DEEPENC_TEST_KEY", "0123456789abcdef")
	key, err := s.TryResolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, interfaces.Key("0123456789abcdef"), key)

	t.Setenv("DEEPENC_TEST_KEY", "too-short")
	_, err = s.TryResolve(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrInvalidKey)
}

func TestLicenseFileStrategy_Development(t *testing.T) {
	dir := t.TempDir()
	// Trailing newline must be tolerated.
	require.NoError(t, os.WriteFile(filepath.Join(dir, GenericLicenseFile), []byte("0123456789abcdef\n"), 0600))

	s := &LicenseFileStrategy{Dir: dir, Mode: interfaces.ModeDevelopment}
	key, err := s.TryResolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, interfaces.Key("0123456789abcdef"), key)
}

func TestLicenseFileStrategy_DeviceScoped(t *testing.T) {
	dir := t.TempDir()
	binding := &fakeBinding{id: "dev42"}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dev42.license"), []byte("device-scoped-16"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, GenericLicenseFile), []byte("generic-key-16bb"), 0600))

	scoped := &LicenseFileStrategy{Dir: dir, DeviceScoped: true, Binding: binding, Mode: interfaces.ModeDevelopment}
	key, err := scoped.TryResolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, interfaces.Key("device-scoped-16"), key)
}

func TestLicenseFileStrategy_Production(t *testing.T) {
	dir := t.TempDir()
	binding := &fakeBinding{id: "dev42"}
	require.NoError(t, os.WriteFile(filepath.Join(dir, GenericLicenseFile), []byte("sealed:prod-key-16-byte!"), 0600))

	s := &LicenseFileStrategy{Dir: dir, Binding: binding, Mode: interfaces.ModeProduction}
	key, err := s.TryResolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, interfaces.Key("prod-key-16-byte"), key)
}

func TestLicenseFileStrategy_ProductionWithoutBinding(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, GenericLicenseFile), []byte("sealed:whatever"), 0600))

	s := &LicenseFileStrategy{Dir: dir, Mode: interfaces.ModeProduction}
	_, err := s.TryResolve(context.Background())
	assert.Error(t, err)
}

func TestLicenseFileStrategy_MissingFile(t *testing.T) {
	s := &LicenseFileStrategy{Dir: t.TempDir(), Mode: interfaces.ModeDevelopment}
	_, err := s.TryResolve(context.Background())
	assert.Error(t, err)
}

func TestHardwareStrategy(t *testing.T) {
	binding := &fakeBinding{id: "dev42", license: []byte("sealed:hw-key-16-bytes!")}

	s := &HardwareStrategy{Binding: binding, Mode: interfaces.ModeProduction}
	key, err := s.TryResolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, interfaces.Key("hw-key-16-bytes!"), key)

	// A malformed device response is "source unavailable", not fatal.
	broken := &HardwareStrategy{
		Binding: &fakeBinding{readErr: errors.New("io error")},
		Mode:    interfaces.ModeProduction,
	}
	_, err = broken.TryResolve(context.Background())
	assert.Error(t, err)
}

func TestMaterialToKey_Derivation(t *testing.T) {
	// Non-AES-length material is rejected unless derivation is enabled.
	_, err := materialToKey([]byte("a passphrase"), interfaces.ModeDevelopment, nil, false)
	assert.ErrorIs(t, err, interfaces.ErrInvalidKey)

	key, err := materialToKey([]byte("a passphrase"), interfaces.ModeDevelopment, nil, true)
	require.NoError(t, err)
	assert.Len(t, []byte(key), 32)
}

func TestShamirStrategy_RoundTrip(t *testing.T) {
	original := interfaces.Key("0123456789abcdef0123456789abcdef")
	shares, err := SplitKey(original, 5, 3)
	require.NoError(t, err)
	require.Len(t, shares, 5)

	dir := t.TempDir()
	var paths []string
	// Only 3 of 5 shares available, including a missing file in the list.
	for i, share := range shares[:3] {
		p := filepath.Join(dir, "share-"+string(rune('a'+i)))
		require.NoError(t, os.WriteFile(p, []byte(share+"\n"), 0600))
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(dir, "missing-share"))

	s := &ShamirStrategy{SharePaths: paths}
	key, err := s.TryResolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, original, key)
}

func TestShamirStrategy_TooFewShares(t *testing.T) {
	shares, err := SplitKey(interfaces.Key("0123456789abcdef"), 3, 2)
	require.NoError(t, err)

	dir := t.TempDir()
	p := filepath.Join(dir, "only-share")
	require.NoError(t, os.WriteFile(p, []byte(shares[0]), 0600))

	s := &ShamirStrategy{SharePaths: []string{p}}
	_, err = s.TryResolve(context.Background())
	assert.Error(t, err)
}

func TestDefaultChain_Order(t *testing.T) {
	binding := &fakeBinding{id: "dev42"}
	chain := DefaultChain(Config{
		Binding:      binding,
		Vault:        &VaultConfig{MountPath: "secret", SecretPath: "deepenc/license"},
		ShamirShares: []string{"/nonexistent/share"},
		Log:          discardLogger(),
	})

	var names []string
	for _, s := range chain {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"hardware-device",
		"device-license-file",
		"license-file",
		"vault",
		"shamir-shares",
		"environment",
	}, names)
}

func TestDefaultChain_NoBinding(t *testing.T) {
	chain := DefaultChain(Config{Log: discardLogger()})

	var names []string
	for _, s := range chain {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"license-file", "environment"}, names)
}
