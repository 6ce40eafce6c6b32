package discovery

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

// Kind classifies a discovered file.
type Kind int

const (
	// KindOther is a file that is neither source nor model; copied verbatim
	// by the build.
	KindOther Kind = iota
	// KindSource is an interpreted source unit.
	KindSource
	// KindModel is a model artifact.
	KindModel
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindModel:
		return "model"
	default:
		return "other"
	}
}

// FileInfo describes one file selected by a scan.
type FileInfo struct {
	// Path is the absolute file path.
	Path string
	// RelPath is the path relative to the scan root.
	RelPath string
	// UnitName is the dotted logical name derived from RelPath; set for
	// source units only.
	UnitName string
	// Kind classifies the file.
	Kind Kind
	// Size is the file size in bytes.
	Size int64
}

// Scanner walks a project root and collects protection candidates.
type Scanner struct {
	root  string
	rules Rules
	log   *slog.Logger
}

// NewScanner creates a scanner over root with the given rules.
func NewScanner(root string, rules Rules, log *slog.Logger) *Scanner {
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{root: root, rules: rules, log: log}
}

// Scan walks the tree and returns the source units and model artifacts that
// pass the filter rules, in walk order.
func (s *Scanner) Scan() ([]FileInfo, error) {
	var results []FileInfo

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != s.root && s.rules.ExcludesDir(d.Name()) {
				s.log.Debug("Pruned directory", slog.String("dir", path))
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}

		kind := s.rules.Classify(path)
		if kind == KindOther || s.rules.ExcludesFile(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		fi := FileInfo{
			Path:    path,
			RelPath: relPath,
			Kind:    kind,
			Size:    info.Size(),
		}
		if kind == KindSource {
			fi.UnitName = unitNameFor(relPath, s.rules.SourceExtensions)
		}
		results = append(results, fi)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", s.root, err)
	}

	s.log.Info("Scan complete",
		slog.String("root", s.root),
		slog.Int("candidates", len(results)))

	return results, nil
}

// unitNameFor derives the dotted logical unit name from a root-relative
// source path: "pkg/sub/mod.py" becomes "pkg.sub.mod".
func unitNameFor(relPath string, sourceExtensions []string) string {
	name := filepath.ToSlash(relPath)
	for _, ext := range sourceExtensions {
		if strings.HasSuffix(name, ext) {
			name = strings.TrimSuffix(name, ext)
			break
		}
	}
	return strings.ReplaceAll(name, "/", ".")
}
