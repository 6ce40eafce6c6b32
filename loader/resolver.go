package loader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/liwenju0/deepenc/cryptoutils"
	"github.com/liwenju0/deepenc/interfaces"
)

// DefaultExtensions are the encrypted artifact suffixes probed during
// discovery, in priority order.
var DefaultExtensions = []string{".encrypted", ".py.encrypted", ".enc"}

// ResolverConfig configures an EncryptedUnitResolver.
type ResolverConfig struct {
	// Keys supplies the process key. Required.
	Keys interfaces.KeyResolver

	// Backend reads encrypted artifact bytes. Required; the default wiring
	// is a file backend rooted at the filesystem.
	Backend interfaces.ArtifactBackend

	// Cipher decrypts artifacts. Required; its EncLen must match the value
	// the build used.
	Cipher *cryptoutils.Cipher

	// Executor runs decrypted source in a namespace. Required.
	Executor interfaces.UnitExecutor

	// Extensions overrides DefaultExtensions.
	Extensions []string

	// Metrics instruments decrypts and cache traffic. Optional.
	Metrics *Metrics

	Log *slog.Logger
}

// EncryptedUnitResolver serves logical unit names from encrypted artifacts.
// The registry maps names to artifact paths and is pre-seeded from the build
// manifest; names found by filesystem probing are memoized into it. The
// plaintext cache guarantees each artifact is decrypted at most once per
// process unless the cache is cleared explicitly.
type EncryptedUnitResolver struct {
	keys       interfaces.KeyResolver
	backend    interfaces.ArtifactBackend
	cipher     *cryptoutils.Cipher
	executor   interfaces.UnitExecutor
	extensions []string
	metrics    *Metrics
	log        *slog.Logger

	mu       sync.Mutex
	registry map[interfaces.UnitName]registryEntry
	cache    map[interfaces.UnitName]string
}

type registryEntry struct {
	origin    string
	isPackage bool
}

// NewEncryptedUnitResolver creates a resolver with an empty registry.
func NewEncryptedUnitResolver(cfg ResolverConfig) (*EncryptedUnitResolver, error) {
	if cfg.Keys == nil {
		return nil, fmt.Errorf("key resolver is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("artifact backend is required")
	}
	if cfg.Cipher == nil {
		return nil, fmt.Errorf("cipher is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("unit executor is required")
	}

	extensions := cfg.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &EncryptedUnitResolver{
		keys:       cfg.Keys,
		backend:    cfg.Backend,
		cipher:     cfg.Cipher,
		executor:   cfg.Executor,
		extensions: extensions,
		metrics:    cfg.Metrics,
		log:        log,
		registry:   make(map[interfaces.UnitName]registryEntry),
		cache:      make(map[interfaces.UnitName]string),
	}, nil
}

// Register binds a logical unit name to an encrypted artifact path. Used to
// pre-seed the registry from the build manifest.
func (r *EncryptedUnitResolver) Register(name interfaces.UnitName, origin string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.registry[name] = registryEntry{
		origin:    origin,
		isPackage: isInitOrigin(origin),
	}
}

// Unregister removes a name from the registry and drops its cached source.
func (r *EncryptedUnitResolver) Unregister(name interfaces.UnitName) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.registry, name)
	delete(r.cache, name)
}

// Locate claims the name if it is registered or an encrypted artifact for it
// exists under the search paths. Returns (nil, nil) to defer the name to the
// next resolver in the chain. A name discovered by probing is memoized, so a
// second Locate returns the same descriptor without touching the filesystem.
func (r *EncryptedUnitResolver) Locate(name interfaces.UnitName, searchPaths []string) (*interfaces.UnitDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.registry[name]; ok {
		return r.descriptor(name, entry), nil
	}

	entry, ok := r.probe(name, searchPaths)
	if !ok {
		return nil, nil
	}

	r.registry[name] = entry
	r.log.Debug("Discovered encrypted unit",
		slog.String("name", name.String()),
		slog.String("origin", entry.origin),
		slog.Bool("is_package", entry.isPackage))

	return r.descriptor(name, entry), nil
}

// Materialize decrypts the unit's artifact (or reuses the cached plaintext),
// fills in the namespace identity metadata and executes the source through
// the injected executor. Execution runs without the resolver lock held:
// protected source routinely loads further protected units through this
// same resolver.
func (r *EncryptedUnitResolver) Materialize(desc *interfaces.UnitDescriptor, ns *interfaces.Namespace) error {
	source, err := r.sourceFor(desc)
	if err != nil {
		return err
	}

	ns.Name = desc.Name
	ns.File = desc.Origin
	ns.Package = desc.Name.Parent()
	ns.IsPackage = desc.IsPackage
	ns.Loader = r
	if desc.IsPackage {
		ns.Path = filepath.Dir(desc.Origin)
		// A package is its own parent for attribute resolution.
		ns.Package = desc.Name.String()
	}

	if err := r.executor.Execute(source, ns); err != nil {
		return fmt.Errorf("%w: executing %s: %v", interfaces.ErrLoader, desc.Name, err)
	}
	return nil
}

// sourceFor returns the unit's plaintext source, decrypting at most once per
// name. The lock covers the cache check and the decrypt together so
// concurrent first loads of the same name never decrypt twice.
func (r *EncryptedUnitResolver) sourceFor(desc *interfaces.UnitDescriptor) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if source, ok := r.cache[desc.Name]; ok {
		r.metrics.unitCacheHit()
		return source, nil
	}
	r.metrics.unitCacheMiss()

	start := time.Now()
	source, err := r.decrypt(desc)
	if err != nil {
		return "", err
	}
	r.cache[desc.Name] = source
	r.metrics.observeUnitDecrypt(time.Since(start))

	r.log.Debug("Decrypted unit",
		slog.String("name", desc.Name.String()),
		slog.Int("size", len(source)),
		slog.Duration("duration", time.Since(start)))
	return source, nil
}

// CacheInfo is a diagnostics snapshot of the resolver state.
type CacheInfo struct {
	Registered      int      `json:"registered"`
	Cached          int      `json:"cached"`
	RegisteredNames []string `json:"registered_names"`
	CachedNames     []string `json:"cached_names"`
}

// CacheInfo reports registry and cache contents.
func (r *EncryptedUnitResolver) CacheInfo() CacheInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := CacheInfo{
		Registered: len(r.registry),
		Cached:     len(r.cache),
	}
	for name := range r.registry {
		info.RegisteredNames = append(info.RegisteredNames, name.String())
	}
	for name := range r.cache {
		info.CachedNames = append(info.CachedNames, name.String())
	}
	sort.Strings(info.RegisteredNames)
	sort.Strings(info.CachedNames)
	return info
}

// ClearCache drops all cached plaintext. The registry is untouched, so
// cleared units decrypt again on next use.
func (r *EncryptedUnitResolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.cache)
	r.cache = make(map[interfaces.UnitName]string)
	r.log.Debug("Cleared unit cache", slog.Int("dropped", n))
}

func (r *EncryptedUnitResolver) descriptor(name interfaces.UnitName, entry registryEntry) *interfaces.UnitDescriptor {
	return &interfaces.UnitDescriptor{
		Name:      name,
		Origin:    entry.origin,
		IsPackage: entry.isPackage,
		Resolver:  r,
	}
}

// probe searches each directory for an artifact matching the unqualified
// tail of the name. Extensions are tried in priority order; within one
// extension a package-style init file inside a same-named directory wins
// over a flat file, but a flat file with an earlier extension beats an init
// file with a later one.
func (r *EncryptedUnitResolver) probe(name interfaces.UnitName, searchPaths []string) (registryEntry, bool) {
	ctx := context.Background()
	tail := name.Tail()

	for _, dir := range searchPaths {
		for _, ext := range r.extensions {
			candidate := filepath.Join(dir, tail, "__init__"+ext)
			if r.backend.Exists(ctx, candidate) {
				return registryEntry{origin: candidate, isPackage: true}, true
			}
			candidate = filepath.Join(dir, tail+ext)
			if r.backend.Exists(ctx, candidate) {
				return registryEntry{origin: candidate}, true
			}
		}
	}
	return registryEntry{}, false
}

// decrypt fetches the artifact and recovers its plaintext source.
func (r *EncryptedUnitResolver) decrypt(desc *interfaces.UnitDescriptor) (string, error) {
	data, err := r.backend.Fetch(context.Background(), desc.Origin)
	if err != nil {
		return "", fmt.Errorf("%w: fetching %s: %v", interfaces.ErrLoader, desc.Origin, err)
	}

	key, err := r.keys.Key()
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrLoader, err)
	}

	plaintext, err := r.cipher.Decrypt(data, key)
	if err != nil {
		return "", fmt.Errorf("%w: decrypting %s: %v", interfaces.ErrLoader, desc.Name, err)
	}

	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: %s: decrypted source is not valid UTF-8 (wrong key?)", interfaces.ErrLoader, desc.Name)
	}
	return string(plaintext), nil
}

func isInitOrigin(origin string) bool {
	base := filepath.Base(origin)
	for i := 0; i < len(base); i++ {
		if base[i] == '.' {
			base = base[:i]
			break
		}
	}
	return base == "__init__"
}
