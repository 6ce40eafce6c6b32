// Package interfaces defines core interfaces and types for the deepenc
// runtime protection engine, separating interface definitions from
// implementations.
//
// The package provides the contracts between the key components of the
// system:
//
// # Key Resolution Interfaces
//
// KeyStrategy: A single source of the process-wide encryption key. Strategies
// are evaluated in priority order; each either yields a key or reports that
// its source is unavailable so resolution continues with the next one.
//
// HardwareBinding: Optional capability interface for a hardware key device
// (device identity, license retrieval, license decryption). Absence of the
// binding is a normal branch, not an error.
//
// # Loading Interfaces
//
// UnitResolver: Two-phase "locate, then materialize" resolution of logical
// code-unit names. Locate either claims a name by returning a descriptor or
// defers to the next resolver in the chain.
//
// UnitExecutor: Executes decrypted source text against a target namespace.
// Supplied by the embedding host runtime.
//
// SessionFactory: Constructs inference sessions from model files on disk.
// The model loader wraps the engine's own factory with one that decrypts
// protected artifacts first.
//
// # Storage Interfaces
//
// ArtifactBackend: Path-addressed storage for encrypted artifacts across
// multiple backend types (file, S3, IPFS).
//
// ArtifactBackendFactory: Creates artifact backends from URI strings and
// manages multi-backend configurations with fallback.
//
// # Core Types
//
//   - Key: symmetric encryption key, 16/24/32 bytes
//   - KeySource: which source of the resolution chain produced the key
//   - UnitName: hierarchical dot-separated logical code-unit name
//   - UnitDescriptor: output of the Locate phase, input to Materialize
//   - Namespace: target of code-unit execution with identity metadata
package interfaces
