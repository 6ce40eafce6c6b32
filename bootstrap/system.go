// Package bootstrap wires the key resolver, the code-unit resolver and the
// model loader into one installable protection system.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/liwenju0/deepenc/auth"
	"github.com/liwenju0/deepenc/cryptoutils"
	"github.com/liwenju0/deepenc/interfaces"
	"github.com/liwenju0/deepenc/loader"
	"github.com/liwenju0/deepenc/modelloader"
	"github.com/liwenju0/deepenc/storage"
)

// Config configures the protection system.
type Config struct {
	// BuildRoot is the protected tree. The manifest is read from
	// BuildRoot/config/encryption_config.json when present.
	BuildRoot string

	// SearchPaths are extra directories probed during unit discovery.
	// BuildRoot is always included.
	SearchPaths []string

	// Strategies is the key resolution chain. Required.
	Strategies []interfaces.KeyStrategy

	// Executor runs decrypted unit source. Required.
	Executor interfaces.UnitExecutor

	// SessionFactory is the process-wide session factory slot the model
	// loader swaps. Optional; without it model protection is skipped.
	SessionFactory *interfaces.SessionFactory

	// Backend reads encrypted artifacts. Optional; defaults to direct
	// filesystem access.
	Backend interfaces.ArtifactBackend

	// EncLen overrides the cipher prefix length. The manifest value wins
	// when a manifest is present.
	EncLen int

	// ModelTempDir is where decrypted models are materialized.
	ModelTempDir string

	Log *slog.Logger
}

// Status is a diagnostics snapshot of the running system.
type Status struct {
	Installed     bool             `json:"installed"`
	Auth          auth.Info        `json:"auth"`
	Units         loader.CacheInfo `json:"units"`
	ModelSessions int              `json:"model_sessions"`
	TempFiles     []string         `json:"temp_files"`
}

// System owns the installed protection components and their lifecycle.
type System struct {
	cfg Config
	log *slog.Logger

	keys         *auth.Resolver
	chain        *loader.Chain
	unitResolver *loader.EncryptedUnitResolver
	modelAdapter *modelloader.FactoryAdapter
	modelLoader  *modelloader.ModelLoader

	unitMetrics  *loader.Metrics
	modelMetrics *modelloader.Metrics

	installed atomic.Bool
}

// NewSystem creates an uninitialized system around the given resolver chain.
// The chain's existing resolvers stay in place as fallbacks.
func NewSystem(cfg Config, chain *loader.Chain) *System {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &System{
		cfg:          cfg,
		log:          log,
		chain:        chain,
		keys:         auth.NewResolver(cfg.Strategies, log),
		unitMetrics:  loader.NewMetrics(),
		modelMetrics: modelloader.NewMetrics(),
	}
}

// Keys exposes the key resolver for diagnostics and the build CLI.
func (s *System) Keys() *auth.Resolver { return s.keys }

// Chain exposes the resolver chain.
func (s *System) Chain() *loader.Chain { return s.chain }

// Initialize resolves the key, pre-seeds the registry from the manifest and
// installs both resolvers. A key resolution failure is fatal; a model loader
// failure degrades to code-unit protection only, with a warning.
func (s *System) Initialize(ctx context.Context) error {
	if s.installed.Load() {
		return nil
	}

	if err := s.keys.Resolve(ctx); err != nil {
		return fmt.Errorf("protection system refused to install: %w", err)
	}
	s.log.Info("Key resolved", slog.String("source", s.keys.Source().String()))

	manifest := s.loadManifest()
	encLen := s.cfg.EncLen
	if manifest != nil && manifest.EncLen > 0 {
		encLen = manifest.EncLen
	}
	cipher := cryptoutils.NewCipher(encLen)

	backend := s.cfg.Backend
	if backend == nil {
		fb, err := storage.NewFileBackend("", s.log)
		if err != nil {
			return err
		}
		backend = fb
	}

	unitResolver, err := loader.NewEncryptedUnitResolver(loader.ResolverConfig{
		Keys:     s.keys,
		Backend:  backend,
		Cipher:   cipher,
		Executor: s.cfg.Executor,
		Metrics:  s.unitMetrics,
		Log:      s.log,
	})
	if err != nil {
		return fmt.Errorf("creating unit resolver: %w", err)
	}

	if manifest != nil {
		for name, rel := range manifest.ModuleMapping {
			unitResolver.Register(interfaces.UnitName(name), filepath.Join(s.cfg.BuildRoot, filepath.FromSlash(rel)))
		}
		s.log.Info("Registry pre-seeded", slog.Int("modules", len(manifest.ModuleMapping)))
	}

	s.chain.Install(unitResolver)
	s.unitResolver = unitResolver

	if s.cfg.SessionFactory != nil {
		adapter := modelloader.NewFactoryAdapter(s.cfg.SessionFactory, s.log)
		modelLoader, err := adapter.Install(modelloader.Config{
			Keys:    s.keys,
			Backend: backend,
			Cipher:  cipher,
			TempDir: s.cfg.ModelTempDir,
			Metrics: s.modelMetrics,
			Log:     s.log,
		})
		if err != nil {
			// Code-unit protection still works without it.
			s.log.Warn("Model protection unavailable", "err", err)
		} else {
			s.modelAdapter = adapter
			s.modelLoader = modelLoader
		}
	}

	s.installed.Store(true)
	s.log.Info("Protection system installed")
	return nil
}

// Shutdown uninstalls both resolvers, restores the prior chain and session
// factory, and removes transient model files. Safe to call repeatedly.
func (s *System) Shutdown() {
	if !s.installed.Swap(false) {
		return
	}

	s.chain.Uninstall()
	if s.modelAdapter != nil {
		s.modelAdapter.Uninstall()
	}
	s.log.Info("Protection system uninstalled")
}

// ClearCaches drops decrypted unit sources. Registered names stay.
func (s *System) ClearCaches() {
	if s.unitResolver != nil {
		s.unitResolver.ClearCache()
	}
}

// Status reports the current system state.
func (s *System) Status() Status {
	st := Status{
		Installed: s.installed.Load(),
		Auth:      s.keys.Info(),
	}
	if s.unitResolver != nil {
		st.Units = s.unitResolver.CacheInfo()
	}
	if s.modelLoader != nil {
		st.ModelSessions = s.modelLoader.SessionCount()
		st.TempFiles = s.modelLoader.TempFiles()
	}
	return st
}

// Collectors returns the resolver instrumentation for registration on a
// Prometheus registry.
func (s *System) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.unitMetrics, s.modelMetrics}
}

// SearchPaths returns the unit discovery directories for this system.
func (s *System) SearchPaths() []string {
	paths := []string{s.cfg.BuildRoot}
	return append(paths, s.cfg.SearchPaths...)
}

func (s *System) loadManifest() *interfaces.Manifest {
	if s.cfg.BuildRoot == "" {
		return nil
	}

	path := filepath.Join(s.cfg.BuildRoot, filepath.FromSlash(interfaces.ManifestRelPath))
	manifest, err := interfaces.LoadManifest(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Warn("No manifest found, relying on filesystem discovery",
				slog.String("path", path))
		} else {
			s.log.Warn("Manifest unreadable, relying on filesystem discovery",
				slog.String("path", path), "err", err)
		}
		return nil
	}
	return manifest
}
