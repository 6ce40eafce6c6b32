package loader

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/liwenju0/deepenc/interfaces"
)

// Chain is an ordered list of unit resolvers consulted front to back. The
// first resolver to claim a name serves it; resolvers that defer pass the
// name along. The tail of the chain is typically the host runtime's own
// resolution, supplied by the embedder as a fallback resolver.
type Chain struct {
	mu        sync.Mutex
	resolvers []interfaces.UnitResolver
	snapshots [][]interfaces.UnitResolver
	log       *slog.Logger
}

// NewChain creates a resolver chain with the given base resolvers.
func NewChain(log *slog.Logger, base ...interfaces.UnitResolver) *Chain {
	if log == nil {
		log = slog.Default()
	}
	return &Chain{
		resolvers: append([]interfaces.UnitResolver{}, base...),
		log:       log,
	}
}

// Install pushes a resolver to the front of the chain so it is consulted
// before every existing resolver. The prior chain is snapshotted for
// Uninstall.
func (c *Chain) Install(r interfaces.UnitResolver) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prior := append([]interfaces.UnitResolver{}, c.resolvers...)
	c.snapshots = append(c.snapshots, prior)
	c.resolvers = append([]interfaces.UnitResolver{r}, c.resolvers...)

	c.log.Debug("Installed unit resolver", slog.Int("chain_length", len(c.resolvers)))
}

// Uninstall restores the chain that existed before the most recent Install.
// Calling it without a matching Install is a no-op.
func (c *Chain) Uninstall() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.snapshots) == 0 {
		return
	}

	c.resolvers = c.snapshots[len(c.snapshots)-1]
	c.snapshots = c.snapshots[:len(c.snapshots)-1]

	c.log.Debug("Uninstalled unit resolver", slog.Int("chain_length", len(c.resolvers)))
}

// Locate walks the chain until a resolver claims the name. Returns
// (nil, nil) when every resolver defers, leaving the name to the host
// runtime.
func (c *Chain) Locate(name interfaces.UnitName, searchPaths []string) (*interfaces.UnitDescriptor, error) {
	c.mu.Lock()
	resolvers := c.resolvers
	c.mu.Unlock()

	for _, r := range resolvers {
		desc, err := r.Locate(name, searchPaths)
		if err != nil {
			return nil, err
		}
		if desc != nil {
			return desc, nil
		}
	}
	return nil, nil
}

// Load resolves and materializes a unit in one step. Returns (nil, nil)
// when no resolver in the chain claims the name.
func (c *Chain) Load(name interfaces.UnitName, searchPaths []string) (*interfaces.Namespace, error) {
	desc, err := c.Locate(name, searchPaths)
	if err != nil {
		return nil, err
	}
	if desc == nil {
		return nil, nil
	}

	ns := interfaces.NewNamespace()
	if err := desc.Resolver.Materialize(desc, ns); err != nil {
		return nil, fmt.Errorf("materializing %s: %w", name, err)
	}
	return ns, nil
}

// Len returns the number of resolvers currently in the chain.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.resolvers)
}
