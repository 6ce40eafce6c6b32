package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/liwenju0/deepenc/interfaces"
)

// Resolver produces a single symmetric key for the process lifetime by
// trying its strategies in order. The first strategy that yields a valid
// key wins; later strategies are never consulted.
type Resolver struct {
	strategies []interfaces.KeyStrategy
	log        *slog.Logger

	once   sync.Once
	key    interfaces.Key
	source interfaces.KeySource
	err    error
}

// NewResolver creates a resolver over the given strategy chain. Resolution
// does not happen until Resolve or Key is called.
func NewResolver(strategies []interfaces.KeyStrategy, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		strategies: strategies,
		log:        log,
		source:     interfaces.KeySourceNone,
	}
}

// Resolve walks the strategy chain once. Subsequent calls return the
// outcome of the first resolution; the key is never re-resolved during the
// run.
func (r *Resolver) Resolve(ctx context.Context) error {
	r.once.Do(func() { r.resolve(ctx) })
	return r.err
}

func (r *Resolver) resolve(ctx context.Context) {
	for _, strategy := range r.strategies {
		key, err := strategy.TryResolve(ctx)
		if err != nil {
			// Individual source failures are "try next", never fatal.
			r.log.Debug("Key source unavailable",
				slog.String("strategy", strategy.Name()),
				"err", err)
			continue
		}
		if !key.Valid() {
			r.log.Warn("Key source produced key of invalid length",
				slog.String("strategy", strategy.Name()),
				slog.Int("length", len(key)))
			continue
		}

		r.key = key
		r.source = strategy.Source()
		r.log.Info("Encryption key resolved",
			slog.String("source", r.source.String()),
			slog.Int("key_length", len(key)))
		return
	}

	r.err = fmt.Errorf("%w: tried %d sources", interfaces.ErrAuthentication, len(r.strategies))
	r.log.Error("Key resolution failed, all sources exhausted",
		slog.Int("sources", len(r.strategies)))
}

// Key returns the resolved key, resolving on first use. It returns an error
// wrapping interfaces.ErrAuthentication if resolution never succeeded.
func (r *Resolver) Key() (interfaces.Key, error) {
	if err := r.Resolve(context.Background()); err != nil {
		return nil, err
	}
	return r.key, nil
}

// VerifyAuthorization reports whether a key was resolved and its length is
// valid.
func (r *Resolver) VerifyAuthorization() bool {
	key, err := r.Key()
	return err == nil && key.Valid()
}

// Source reports which key source satisfied resolution, for observability.
func (r *Resolver) Source() interfaces.KeySource {
	r.once.Do(func() { r.resolve(context.Background()) })
	return r.source
}

// Info is a diagnostics snapshot of the resolver state.
type Info struct {
	Source     string   `json:"key_source"`
	KeyLength  int      `json:"key_length"`
	Authorized bool     `json:"authorization_valid"`
	Strategies []string `json:"strategies"`
}

// Info returns the resolver diagnostics. Calling it triggers resolution if
// it has not happened yet.
func (r *Resolver) Info() Info {
	key, err := r.Key()

	names := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		names = append(names, s.Name())
	}

	return Info{
		Source:     r.source.String(),
		KeyLength:  len(key),
		Authorized: err == nil && key.Valid(),
		Strategies: names,
	}
}
