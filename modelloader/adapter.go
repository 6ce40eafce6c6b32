package modelloader

import (
	"log/slog"
	"sync"

	"github.com/liwenju0/deepenc/interfaces"
)

// FactoryAdapter swaps a process-wide session factory slot for the model
// loader's decrypting Load. The embedding runtime constructs every session
// through one entry point; the adapter is the only place aware of the swap,
// and Uninstall restores the exact factory that was there before.
type FactoryAdapter struct {
	slot *interfaces.SessionFactory
	log  *slog.Logger

	mu        sync.Mutex
	original  interfaces.SessionFactory
	loader    *ModelLoader
	installed bool
}

// NewFactoryAdapter creates an adapter around the given factory slot.
func NewFactoryAdapter(slot *interfaces.SessionFactory, log *slog.Logger) *FactoryAdapter {
	if log == nil {
		log = slog.Default()
	}
	return &FactoryAdapter{slot: slot, log: log}
}

// Install replaces the slot with a decrypting factory backed by a new
// ModelLoader. The previous factory becomes the loader's delegate for plain
// paths and for actual session construction. Installing twice is a no-op.
func (a *FactoryAdapter) Install(cfg Config) (*ModelLoader, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.installed {
		return a.loader, nil
	}

	a.original = *a.slot
	cfg.Factory = a.original

	loader, err := NewModelLoader(cfg)
	if err != nil {
		return nil, err
	}

	*a.slot = loader.Load
	a.loader = loader
	a.installed = true
	a.log.Debug("Installed decrypting session factory")

	return loader, nil
}

// Uninstall restores the original factory and cleans up sessions and temp
// files. Safe to call without a prior Install.
func (a *FactoryAdapter) Uninstall() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.installed {
		return
	}

	*a.slot = a.original
	a.loader.CleanupAll()
	a.loader = nil
	a.installed = false
	a.log.Debug("Restored original session factory")
}

// Installed reports whether the adapter currently owns the slot.
func (a *FactoryAdapter) Installed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.installed
}
