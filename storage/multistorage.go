package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/liwenju0/deepenc/interfaces"
)

// MultiBackend implements interfaces.ArtifactBackend over multiple backends
// with fallback. Fetches are served by the first available backend that has
// the artifact; stores go to every available backend.
type MultiBackend struct {
	backends []interfaces.ArtifactBackend
	log      *slog.Logger
}

// NewMultiBackend creates a new multi-backend with fallback.
func NewMultiBackend(backends []interfaces.ArtifactBackend, logger *slog.Logger) *MultiBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch returns the artifact from the first backend that has it.
// Returns ErrArtifactNotFound when every backend misses.
func (m *MultiBackend) Fetch(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	var errs []error
	notFound := true

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("path", path))
			continue
		}

		data, err := backend.Fetch(ctx, path)
		if err == nil {
			m.log.Debug("Successfully fetched artifact",
				slog.String("backend_name", backend.Name()),
				slog.String("path", path),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		if !errors.Is(err, interfaces.ErrArtifactNotFound) {
			notFound = false
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("path", path),
			"err", err)
	}

	m.log.Error("All backends failed to fetch artifact",
		slog.String("path", path),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no backend reachable for %s", interfaces.ErrBackendUnavailable, path)
	}
	if notFound {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrArtifactNotFound, path)
	}
	return nil, fmt.Errorf("all backends failed to fetch %s: %v", path, errs)
}

// Store saves the artifact to all available backends.
func (m *MultiBackend) Store(ctx context.Context, path string, data []byte) error {
	start := time.Now()
	var success bool
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if err := backend.Store(ctx, path, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Debug("Failed to store to backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}

		if !success {
			success = true
			m.log.Info("Successfully stored artifact",
				slog.String("backend_name", backend.Name()),
				slog.String("path", path),
				slog.Duration("duration", time.Since(start)))
		}
	}

	if !success {
		m.log.Error("All backends failed to store artifact",
			slog.String("path", path),
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("all backends failed to store %s: %v", path, errs)
	}

	return nil
}

// Exists reports whether any backend has the artifact.
func (m *MultiBackend) Exists(ctx context.Context, path string) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) && backend.Exists(ctx, path) {
			return true
		}
	}
	return false
}

// Available checks if any backend is available.
func (m *MultiBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend.
func (m *MultiBackend) Name() string {
	return "multi-storage"
}

// LocationURI returns a combined location URI built from all backends.
func (m *MultiBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
