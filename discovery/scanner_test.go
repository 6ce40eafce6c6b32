package discovery

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestScan_SelectsSourcesAndModels(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/__init__.py":       "",
		"pkg/mod.py":            "def f(): return 'ok'",
		"pkg/sub/util.py":       "x = 1",
		"models/net.onnx":       "weights",
		"README.md":             "readme",
		"setup.py":              "setup",
		"config.yaml":           "a: 1",
		"tests/test_mod.py":     "test",
		"__pycache__/mod.pyc":   "cache",
		".git/objects/ab":       "git",
		"venv/lib/site.py":      "venv",
		"encrypted/old.py":      "stale",
	})

	s := NewScanner(root, DefaultRules(), testLogger())
	results, err := s.Scan()
	require.NoError(t, err)

	byRel := map[string]FileInfo{}
	for _, fi := range results {
		byRel[filepath.ToSlash(fi.RelPath)] = fi
	}

	assert.Len(t, results, 3)
	assert.Contains(t, byRel, "pkg/mod.py")
	assert.Contains(t, byRel, "pkg/sub/util.py")
	assert.Contains(t, byRel, "models/net.onnx")

	assert.Equal(t, "pkg.mod", byRel["pkg/mod.py"].UnitName)
	assert.Equal(t, "pkg.sub.util", byRel["pkg/sub/util.py"].UnitName)
	assert.Equal(t, KindSource, byRel["pkg/mod.py"].Kind)

	model := byRel["models/net.onnx"]
	assert.Equal(t, KindModel, model.Kind)
	assert.Empty(t, model.UnitName)
	assert.Equal(t, int64(len("weights")), model.Size)
}

func TestScan_UserRulesMergeWithDefaults(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/mod.py":        "x = 1",
		"pkg/secretless.py": "x = 2",
		"legacy/old.py":     "x = 3",
		"tests/t.py":        "t",
	})

	rules := DefaultRules().Merge(Rules{
		ExcludeDirs:  []string{"legacy"},
		ExcludeFiles: []string{"secretless*"},
	})

	results, err := NewScanner(root, rules, testLogger()).Scan()
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "pkg.mod", results[0].UnitName)
}

func TestScan_ExcludePathGlobs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/mod.py":          "x = 1",
		"pkg/internal/gen.py": "x = 2",
	})

	rules := DefaultRules().Merge(Rules{
		ExcludePaths: []string{"pkg/internal/*"},
	})

	results, err := NewScanner(root, rules, testLogger()).Scan()
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "pkg.mod", results[0].UnitName)
}

func TestRules_Classify(t *testing.T) {
	r := DefaultRules()
	assert.Equal(t, KindSource, r.Classify("a/b.py"))
	assert.Equal(t, KindModel, r.Classify("a/b.onnx"))
	assert.Equal(t, KindOther, r.Classify("a/b.so"))
}
