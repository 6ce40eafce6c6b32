package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/liwenju0/deepenc/interfaces"
)

// FileBackend implements an artifact backend on the local filesystem.
// Artifact paths are resolved relative to a base directory; absolute paths
// inside the base are also accepted.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file backend rooted at baseDir, creating the
// directory if needed. An empty baseDir roots the backend at the filesystem
// root, making artifact paths absolute.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if baseDir != "" {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch reads an artifact's bytes. Returns ErrArtifactNotFound if the file
// does not exist.
func (b *FileBackend) Fetch(ctx context.Context, path string) ([]byte, error) {
	filePath := b.resolve(path)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, interfaces.ErrArtifactNotFound
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched artifact from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store writes artifact bytes under the given path, creating parent
// directories as needed.
func (b *FileBackend) Store(ctx context.Context, path string, data []byte) error {
	filePath := b.resolve(path)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	b.log.Debug("Stored artifact in file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return nil
}

// Exists reports whether the path is present.
func (b *FileBackend) Exists(ctx context.Context, path string) bool {
	info, err := os.Stat(b.resolve(path))
	return err == nil && !info.IsDir()
}

// Available checks that the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	if b.baseDir == "" {
		return true
	}
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) resolve(path string) string {
	if b.baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(b.baseDir, path)
}
