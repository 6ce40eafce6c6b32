package interfaces

import "context"

// UnitDescriptor identifies how and from where a requested code unit should
// be materialized. It is produced by the Locate phase and consumed by
// Materialize.
type UnitDescriptor struct {
	// Name is the fully-qualified logical unit name.
	Name UnitName

	// Origin is the absolute path of the encrypted artifact backing the unit.
	Origin string

	// IsPackage reports whether the origin is a package-style init file
	// inside a same-named directory.
	IsPackage bool

	// Resolver is the resolver that claimed the name and will materialize it.
	Resolver UnitResolver
}

// Namespace is the target of code-unit execution. Vars holds the bindings
// the executed source produces; the remaining fields are identity metadata
// populated by the resolver so that introspection on a decrypted unit is
// indistinguishable from a normally loaded one.
type Namespace struct {
	Vars map[string]any

	// Name is the fully-qualified unit name.
	Name UnitName
	// File is the originating artifact path.
	File string
	// Package is the parent package name, "" for top-level units.
	Package string
	// IsPackage marks init-style units.
	IsPackage bool
	// Path is the package directory for init-style units, "" otherwise.
	Path string
	// Loader is an ownership back-reference to the resolver that
	// materialized the unit.
	Loader UnitResolver
}

// NewNamespace returns an empty namespace ready for execution.
func NewNamespace() *Namespace {
	return &Namespace{Vars: make(map[string]any)}
}

// UnitResolver resolves logical code-unit names in two phases, mirroring the
// "locate, then materialize" pattern of dynamic loaders.
type UnitResolver interface {
	// Locate either claims the name by returning a descriptor, or defers by
	// returning (nil, nil) so the next resolver in the chain is consulted.
	// A resolver must never claim a name it cannot actually serve.
	Locate(name UnitName, searchPaths []string) (*UnitDescriptor, error)

	// Materialize turns a descriptor into an executed unit in the target
	// namespace. Failures wrap ErrLoader and are not retried.
	Materialize(desc *UnitDescriptor, ns *Namespace) error
}

// UnitExecutor executes decrypted source text against a target namespace.
// It is supplied by the embedding host runtime; the resolver only decides
// what to execute, never how.
type UnitExecutor interface {
	Execute(source string, ns *Namespace) error
}

// SessionOptions are the construction options passed to an inference session
// factory. The model loader fingerprints them for session caching.
type SessionOptions map[string]string

// SessionHandle is a live inference session constructed by a SessionFactory.
type SessionHandle interface {
	// Close releases the session and any resources attached to it.
	Close() error
}

// SessionFactory constructs an inference session from a model file on disk.
// The consuming engine accepts only filesystem paths, which is why protected
// models are materialized to transient files before construction.
type SessionFactory func(ctx context.Context, modelPath string, opts SessionOptions) (SessionHandle, error)
