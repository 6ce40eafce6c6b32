package modelloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liwenju0/deepenc/cryptoutils"
	"github.com/liwenju0/deepenc/interfaces"
)

// DefaultModelExtensions are the encrypted model artifact suffixes, in
// priority order.
var DefaultModelExtensions = []string{".encrypt", ".onnx.encrypt", ".enc"}

// Config configures a ModelLoader.
type Config struct {
	// Keys supplies the process key. Required.
	Keys interfaces.KeyResolver

	// Backend reads encrypted model bytes. Required.
	Backend interfaces.ArtifactBackend

	// Cipher decrypts artifacts. Required.
	Cipher *cryptoutils.Cipher

	// Factory constructs sessions from plain model files. Required.
	Factory interfaces.SessionFactory

	// TempDir is where decrypted models are materialized. Defaults to the
	// system temp directory.
	TempDir string

	// Extensions overrides DefaultModelExtensions.
	Extensions []string

	// Metrics instruments decrypts and session cache traffic. Optional.
	Metrics *Metrics

	Log *slog.Logger
}

type sessionKey struct {
	path        string
	fingerprint string
}

// sessionEntry is a load-once cache slot. The entry is published in the map
// before construction starts; concurrent loaders for the same key block on
// the Once instead of constructing twice.
type sessionEntry struct {
	once   sync.Once
	handle interfaces.SessionHandle
	err    error
}

// ModelLoader decrypts model artifacts into transient files and constructs
// sessions through the original factory, caching the result per artifact and
// option set.
type ModelLoader struct {
	keys       interfaces.KeyResolver
	backend    interfaces.ArtifactBackend
	cipher     *cryptoutils.Cipher
	factory    interfaces.SessionFactory
	tempDir    string
	extensions []string
	metrics    *Metrics
	log        *slog.Logger

	mu        sync.Mutex
	sessions  map[sessionKey]*sessionEntry
	tempFiles map[string]struct{}
}

// NewModelLoader creates a model loader.
func NewModelLoader(cfg Config) (*ModelLoader, error) {
	if cfg.Keys == nil {
		return nil, fmt.Errorf("key resolver is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("artifact backend is required")
	}
	if cfg.Cipher == nil {
		return nil, fmt.Errorf("cipher is required")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("session factory is required")
	}

	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	extensions := cfg.Extensions
	if len(extensions) == 0 {
		extensions = DefaultModelExtensions
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &ModelLoader{
		keys:       cfg.Keys,
		backend:    cfg.Backend,
		cipher:     cfg.Cipher,
		factory:    cfg.Factory,
		tempDir:    tempDir,
		extensions: extensions,
		metrics:    cfg.Metrics,
		log:        log,
		sessions:   make(map[sessionKey]*sessionEntry),
		tempFiles:  make(map[string]struct{}),
	}, nil
}

// Load returns an inference session for the model at path. Encrypted
// artifacts are decrypted to a transient file first; plain paths are handed
// to the original factory untouched. Decryption and session construction run
// outside the loader lock: the factory may take seconds per model and may
// itself load further models through this loader.
func (l *ModelLoader) Load(ctx context.Context, path string, opts interfaces.SessionOptions) (interfaces.SessionHandle, error) {
	encPath, encrypted := l.resolveEncrypted(ctx, path)
	if !encrypted {
		l.log.Debug("Model not protected, delegating", slog.String("path", path))
		return l.factory(ctx, path, opts)
	}

	key := sessionKey{path: encPath, fingerprint: fingerprintOptions(opts)}

	l.mu.Lock()
	entry, found := l.sessions[key]
	if !found {
		entry = &sessionEntry{}
		l.sessions[key] = entry
	}
	l.mu.Unlock()

	if found {
		l.metrics.sessionCacheHit()
		l.log.Debug("Session cache hit", slog.String("path", encPath))
	} else {
		l.metrics.sessionCacheMiss()
	}

	entry.once.Do(func() {
		start := time.Now()
		entry.handle, entry.err = l.construct(ctx, encPath, opts)
		if entry.err == nil {
			l.log.Info("Loaded protected model",
				slog.String("path", encPath),
				slog.Duration("duration", time.Since(start)))
		}
	})

	if entry.err != nil {
		// A failed construction is not cached; the next load retries.
		l.mu.Lock()
		if l.sessions[key] == entry {
			delete(l.sessions, key)
		}
		l.mu.Unlock()
		return nil, entry.err
	}
	return entry.handle, nil
}

// construct materializes the artifact and builds the session. Runs without
// the loader lock held.
func (l *ModelLoader) construct(ctx context.Context, encPath string, opts interfaces.SessionOptions) (interfaces.SessionHandle, error) {
	tempPath, err := l.materialize(ctx, encPath)
	if err != nil {
		return nil, err
	}

	handle, err := l.factory(ctx, tempPath, opts)
	if err != nil {
		l.removeTemp(tempPath)
		return nil, fmt.Errorf("%w: constructing session for %s: %v", interfaces.ErrLoader, encPath, err)
	}
	return handle, nil
}

// resolveEncrypted maps a requested model path to its encrypted artifact.
// A path already carrying an encrypted suffix is used as-is; otherwise
// sibling naming conventions and the encrypted/ subdirectory are probed.
func (l *ModelLoader) resolveEncrypted(ctx context.Context, path string) (string, bool) {
	for _, ext := range l.extensions {
		if strings.HasSuffix(path, ext) {
			return path, true
		}
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	for _, ext := range l.extensions {
		candidates := []string{
			path + ext,
			filepath.Join(dir, "encrypted", base+ext),
		}
		for _, candidate := range candidates {
			if l.backend.Exists(ctx, candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// materialize decrypts the artifact and writes the plaintext to a uniquely
// named transient file. The file is written under a scratch name and renamed
// into place so a crash never leaves a partial plaintext under the final
// name.
func (l *ModelLoader) materialize(ctx context.Context, encPath string) (string, error) {
	start := time.Now()
	ciphertext, err := l.backend.Fetch(ctx, encPath)
	if err != nil {
		return "", fmt.Errorf("%w: fetching %s: %v", interfaces.ErrLoader, encPath, err)
	}

	key, err := l.keys.Key()
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrLoader, err)
	}

	plaintext, err := l.cipher.Decrypt(ciphertext, key)
	if err != nil {
		return "", fmt.Errorf("%w: decrypting %s: %v", interfaces.ErrLoader, encPath, err)
	}
	l.metrics.observeModelDecrypt(time.Since(start))

	tempPath := filepath.Join(l.tempDir, fmt.Sprintf("deepenc-%s%s", uuid.NewString(), plainExtension(encPath, l.extensions)))
	scratch := tempPath + ".partial"

	if err := os.WriteFile(scratch, plaintext, 0600); err != nil {
		return "", fmt.Errorf("%w: writing temp model: %v", interfaces.ErrLoader, err)
	}
	if err := os.Rename(scratch, tempPath); err != nil {
		os.Remove(scratch)
		return "", fmt.Errorf("%w: finalizing temp model: %v", interfaces.ErrLoader, err)
	}

	l.mu.Lock()
	l.tempFiles[tempPath] = struct{}{}
	l.mu.Unlock()

	l.log.Debug("Materialized model",
		slog.String("artifact", encPath),
		slog.String("temp", tempPath),
		slog.Int("size", len(plaintext)))

	return tempPath, nil
}

// TempFiles returns the transient files currently tracked.
func (l *ModelLoader) TempFiles() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	files := make([]string, 0, len(l.tempFiles))
	for f := range l.tempFiles {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// SessionCount returns the number of cached sessions.
func (l *ModelLoader) SessionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// CleanupAll closes every cached session and removes every tracked temp
// file. Already-removed files are tolerated; calling it repeatedly is safe.
func (l *ModelLoader) CleanupAll() {
	l.mu.Lock()
	sessions := l.sessions
	tempFiles := l.tempFiles
	l.sessions = make(map[sessionKey]*sessionEntry)
	l.tempFiles = make(map[string]struct{})
	l.mu.Unlock()

	for key, entry := range sessions {
		if entry.handle == nil {
			continue
		}
		if err := entry.handle.Close(); err != nil {
			l.log.Warn("Failed to close session",
				slog.String("path", key.path),
				"err", err)
		}
	}

	for path := range tempFiles {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			l.log.Warn("Failed to remove temp model", slog.String("path", path), "err", err)
		}
	}
}

func (l *ModelLoader) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		l.log.Warn("Failed to remove temp model", slog.String("path", path), "err", err)
		return
	}
	l.mu.Lock()
	delete(l.tempFiles, path)
	l.mu.Unlock()
}

// fingerprintOptions produces a stable digest of the session options so that
// equal option sets share a cached session.
func fingerprintOptions(opts interfaces.SessionOptions) string {
	if len(opts) == 0 {
		return "default"
	}

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\n", k, opts[k])
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// plainExtension recovers the plain model suffix hidden by the encrypted
// extension, so the temp file keeps a recognizable name for the engine.
func plainExtension(encPath string, extensions []string) string {
	for _, ext := range extensions {
		if strings.HasSuffix(encPath, ext) {
			return filepath.Ext(strings.TrimSuffix(encPath, ext))
		}
	}
	return ""
}
