package discovery

import (
	"path/filepath"
	"strings"
)

// Rules decides which files a scan selects for protection.
type Rules struct {
	// ExcludeDirs are directory base names pruned from the walk entirely.
	ExcludeDirs []string

	// ExcludeFiles are glob patterns matched against file base names.
	ExcludeFiles []string

	// ExcludePaths are glob patterns matched against root-relative paths.
	ExcludePaths []string

	// SourceExtensions mark source units. Defaults to .py.
	SourceExtensions []string

	// ModelExtensions mark model artifacts. Defaults to .onnx.
	ModelExtensions []string
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		ExcludeDirs: []string{
			".git", ".svn", ".hg",
			"__pycache__", ".pytest_cache", ".mypy_cache", ".tox",
			"venv", ".venv", "env", "virtualenv",
			"node_modules", "build", "dist", ".eggs",
			"tests", "test", "docs", "examples",
			"encrypted",
		},
		ExcludeFiles: []string{
			"__init__.py",
			"setup.py",
			"conftest.py",
			".*",
			"*.md", "*.txt", "*.rst",
			"*.yaml", "*.yml", "*.json", "*.toml",
			"*.cfg", "*.ini",
			"*.encrypted", "*.encrypt", "*.enc",
		},
		SourceExtensions: []string{".py"},
		ModelExtensions:  []string{".onnx"},
	}
}

// Merge returns a rule set combining the defaults with extra user rules.
func (r Rules) Merge(extra Rules) Rules {
	merged := r
	merged.ExcludeDirs = append(append([]string{}, r.ExcludeDirs...), extra.ExcludeDirs...)
	merged.ExcludeFiles = append(append([]string{}, r.ExcludeFiles...), extra.ExcludeFiles...)
	merged.ExcludePaths = append(append([]string{}, r.ExcludePaths...), extra.ExcludePaths...)
	if len(extra.SourceExtensions) > 0 {
		merged.SourceExtensions = extra.SourceExtensions
	}
	if len(extra.ModelExtensions) > 0 {
		merged.ModelExtensions = extra.ModelExtensions
	}
	return merged
}

// ExcludesDir reports whether a directory base name is pruned.
func (r Rules) ExcludesDir(name string) bool {
	for _, d := range r.ExcludeDirs {
		if name == d {
			return true
		}
		if ok, _ := filepath.Match(d, name); ok {
			return true
		}
	}
	return false
}

// ExcludesFile reports whether a file is excluded by base-name or
// relative-path pattern.
func (r Rules) ExcludesFile(relPath string) bool {
	base := filepath.Base(relPath)
	for _, pattern := range r.ExcludeFiles {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	for _, pattern := range r.ExcludePaths {
		if ok, _ := filepath.Match(pattern, filepath.ToSlash(relPath)); ok {
			return true
		}
	}
	return false
}

// Classify returns the kind of a file by its extension.
func (r Rules) Classify(path string) Kind {
	for _, ext := range r.SourceExtensions {
		if strings.HasSuffix(path, ext) {
			return KindSource
		}
	}
	for _, ext := range r.ModelExtensions {
		if strings.HasSuffix(path, ext) {
			return KindModel
		}
	}
	return KindOther
}
