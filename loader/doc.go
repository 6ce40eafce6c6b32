// Package loader resolves logical code-unit names to encrypted artifacts and
// materializes them into executable namespaces.
//
// Resolution runs in two phases. Locate maps a dot-separated unit name to a
// descriptor, either from the pre-seeded registry or by probing the search
// paths for encrypted files; a resolver that cannot serve a name defers to
// the next one in the chain. Materialize fetches the artifact bytes, decrypts
// them with the process key, caches the plaintext source and executes it
// against the target namespace through the host-supplied executor.
//
// Chain owns the resolver ordering. Installing the protection system pushes
// the encrypted resolver to the front of the chain; uninstalling restores
// the exact chain that existed before, so repeated install/uninstall cycles
// are safe.
package loader
