package builders

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liwenju0/deepenc/cryptoutils"
	"github.com/liwenju0/deepenc/interfaces"
)

var testKey = interfaces.Key("0123456789abcdef")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticKeys struct {
	key interfaces.Key
	err error
}

func (s *staticKeys) Key() (interfaces.Key, error) { return s.key, s.err }
func (s *staticKeys) VerifyAuthorization() bool    { return s.err == nil }
func (s *staticKeys) Source() interfaces.KeySource { return interfaces.KeySourceEnvironment }

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func newBuildConfig(t *testing.T) *BuildConfig {
	t.Helper()
	cfg := &BuildConfig{
		ProjectRoot: t.TempDir(),
		OutputDir:   t.TempDir(),
	}
	cfg.applyDefaults()
	return cfg
}

func TestBuild_EncryptsAndWritesManifest(t *testing.T) {
	cfg := newBuildConfig(t)
	writeTree(t, cfg.ProjectRoot, map[string]string{
		"pkg/__init__.py": "",
		"pkg/mod.py":      "def f(): return 'ok'",
		"models/net.onnx": "weights",
		"README.md":       "plain",
	})

	b := NewProjectBuilder(cfg, &staticKeys{key: testKey}, testLogger())
	manifest, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"pkg.mod": "pkg/mod.py.encrypted"}, manifest.ModuleMapping)
	assert.Equal(t, []string{"models/net.onnx.encrypt"}, manifest.Models)
	assert.Equal(t, cryptoutils.DefaultEncLen, manifest.EncLen)

	// The encrypted artifact round-trips with the build key.
	cipher := cryptoutils.NewCipher(cfg.EncLen)
	plaintext, err := cipher.DecryptFile(filepath.Join(cfg.OutputDir, "pkg", "mod.py.encrypted"), testKey)
	require.NoError(t, err)
	assert.Equal(t, "def f(): return 'ok'", string(plaintext))

	// Plain files are mirrored verbatim, including package init files.
	readme, err := os.ReadFile(filepath.Join(cfg.OutputDir, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "plain", string(readme))
	_, err = os.Stat(filepath.Join(cfg.OutputDir, "pkg", "__init__.py"))
	assert.NoError(t, err)

	// Source plaintext must not appear in the output tree.
	_, err = os.Stat(filepath.Join(cfg.OutputDir, "pkg", "mod.py"))
	assert.True(t, os.IsNotExist(err))

	// The manifest is loadable from its conventional location.
	loaded, err := interfaces.LoadManifest(filepath.Join(cfg.OutputDir, filepath.FromSlash(interfaces.ManifestRelPath)))
	require.NoError(t, err)
	assert.Equal(t, manifest.ModuleMapping, loaded.ModuleMapping)
}

func TestBuild_RequiresKey(t *testing.T) {
	cfg := newBuildConfig(t)
	b := NewProjectBuilder(cfg, &staticKeys{err: interfaces.ErrAuthentication}, testLogger())

	_, err := b.Build(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrAuthentication)
}

func TestPackage(t *testing.T) {
	buildDir := t.TempDir()
	writeTree(t, buildDir, map[string]string{
		"pkg/mod.py.encrypted":           "ciphertext",
		"config/encryption_config.json": "{}",
	})

	archive := filepath.Join(t.TempDir(), "build.zip")
	require.NoError(t, Package(buildDir, archive, testLogger()))

	zr, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"pkg/mod.py.encrypted", "config/encryption_config.json"}, names)
}

func TestLoadBuildConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(`
project_root: /src/app
output_dir: /out
enc_len: 1024
filters:
  exclude_dirs: [legacy]
`), 0644))

	cfg, err := LoadBuildConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/src/app", cfg.ProjectRoot)
	assert.Equal(t, "/out", cfg.OutputDir)
	assert.Equal(t, 1024, cfg.EncLen)
	assert.Equal(t, []string{"legacy"}, cfg.Filters.ExcludeDirs)

	// Missing file falls back to defaults.
	cfg, err = LoadBuildConfig(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.ProjectRoot)
	assert.Equal(t, "build", cfg.OutputDir)
	assert.Equal(t, cryptoutils.DefaultEncLen, cfg.EncLen)
}
