package builders

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/liwenju0/deepenc/cryptoutils"
	"github.com/liwenju0/deepenc/discovery"
	"github.com/liwenju0/deepenc/interfaces"
)

// SourceSuffix is appended to encrypted source unit files.
const SourceSuffix = ".encrypted"

// ModelSuffix is appended to encrypted model artifacts.
const ModelSuffix = ".encrypt"

// buildVersion identifies the manifest format.
const buildVersion = "1.0"

// ProjectBuilder turns a project tree into a protected build: candidates are
// encrypted, everything else is copied verbatim, and a manifest records the
// unit-name to artifact mapping.
type ProjectBuilder struct {
	cfg    *BuildConfig
	rules  discovery.Rules
	cipher *cryptoutils.Cipher
	keys   interfaces.KeyResolver
	log    *slog.Logger

	// Upload receives every encrypted artifact by build-relative path when
	// the config names a storage URI. Optional.
	Upload interfaces.ArtifactBackend
}

// NewProjectBuilder creates a builder for the given config.
func NewProjectBuilder(cfg *BuildConfig, keys interfaces.KeyResolver, log *slog.Logger) *ProjectBuilder {
	if log == nil {
		log = slog.Default()
	}

	rules := discovery.DefaultRules().Merge(discovery.Rules{
		ExcludeDirs:  cfg.Filters.ExcludeDirs,
		ExcludeFiles: cfg.Filters.ExcludeFiles,
		ExcludePaths: cfg.Filters.ExcludePaths,
	})

	return &ProjectBuilder{
		cfg:    cfg,
		rules:  rules,
		cipher: cryptoutils.NewCipher(cfg.EncLen),
		keys:   keys,
		log:    log,
	}
}

// Build runs scan, encrypt, copy and manifest emission, returning the
// manifest it wrote.
func (b *ProjectBuilder) Build(ctx context.Context) (*interfaces.Manifest, error) {
	key, err := b.keys.Key()
	if err != nil {
		return nil, fmt.Errorf("build requires a resolved key: %w", err)
	}

	start := time.Now()
	candidates, err := discovery.NewScanner(b.cfg.ProjectRoot, b.rules, b.log).Scan()
	if err != nil {
		return nil, err
	}

	manifest := &interfaces.Manifest{
		Version:       buildVersion,
		CreatedAt:     time.Now().UTC(),
		EncLen:        b.cfg.EncLen,
		ModuleMapping: make(map[string]string),
	}

	encrypted := make(map[string]struct{}, len(candidates))
	for _, fi := range candidates {
		outRel := encryptedName(fi)
		outPath := filepath.Join(b.cfg.OutputDir, outRel)

		if err := b.cipher.EncryptFile(fi.Path, outPath, key); err != nil {
			return nil, fmt.Errorf("encrypting %s: %w", fi.RelPath, err)
		}
		encrypted[fi.RelPath] = struct{}{}

		switch fi.Kind {
		case discovery.KindSource:
			manifest.ModuleMapping[fi.UnitName] = filepath.ToSlash(outRel)
		case discovery.KindModel:
			manifest.Models = append(manifest.Models, filepath.ToSlash(outRel))
		}

		if b.Upload != nil {
			data, err := os.ReadFile(outPath)
			if err != nil {
				return nil, fmt.Errorf("reading encrypted artifact: %w", err)
			}
			if err := b.Upload.Store(ctx, filepath.ToSlash(outRel), data); err != nil {
				return nil, fmt.Errorf("uploading %s: %w", outRel, err)
			}
		}
	}

	if err := b.copyPlain(encrypted); err != nil {
		return nil, err
	}

	manifestPath := filepath.Join(b.cfg.OutputDir, filepath.FromSlash(interfaces.ManifestRelPath))
	if err := manifest.Write(manifestPath); err != nil {
		return nil, err
	}

	b.log.Info("Build complete",
		slog.String("output", b.cfg.OutputDir),
		slog.Int("modules", len(manifest.ModuleMapping)),
		slog.Int("models", len(manifest.Models)),
		slog.Duration("duration", time.Since(start)))

	return manifest, nil
}

// copyPlain mirrors every non-candidate file into the output tree so the
// protected build is runnable in place.
func (b *ProjectBuilder) copyPlain(encrypted map[string]struct{}) error {
	outAbs, err := filepath.Abs(b.cfg.OutputDir)
	if err != nil {
		return err
	}

	return filepath.WalkDir(b.cfg.ProjectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			abs, _ := filepath.Abs(path)
			// Never recurse into our own output.
			if abs == outAbs {
				return filepath.SkipDir
			}
			if path != b.cfg.ProjectRoot && b.rules.ExcludesDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(b.cfg.ProjectRoot, path)
		if err != nil {
			return err
		}
		if _, ok := encrypted[relPath]; ok {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("copying %s: %w", relPath, err)
		}

		dst := filepath.Join(b.cfg.OutputDir, relPath)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		return os.WriteFile(dst, data, 0644)
	})
}

// encryptedName maps a candidate to its output path: source files get the
// .encrypted suffix, models get .encrypt.
func encryptedName(fi discovery.FileInfo) string {
	if fi.Kind == discovery.KindModel {
		return fi.RelPath + ModelSuffix
	}
	return fi.RelPath + SourceSuffix
}
