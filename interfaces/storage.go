package interfaces

import "context"

// ArtifactBackend provides path-addressed storage for encrypted artifacts.
// Paths are interpreted relative to the backend's root (a directory, bucket
// prefix or IPFS namespace).
type ArtifactBackend interface {
	// Fetch retrieves an artifact's bytes by path. Returns
	// ErrArtifactNotFound if the path does not exist.
	Fetch(ctx context.Context, path string) ([]byte, error)

	// Store saves artifact bytes under the given path.
	Store(ctx context.Context, path string, data []byte) error

	// Exists reports whether the path is present in the backend.
	Exists(ctx context.Context, path string) bool

	// Available checks if the backend is accessible.
	Available(ctx context.Context) bool

	// Name returns an identifier for logging.
	Name() string

	// LocationURI returns the URI identifying this backend.
	LocationURI() string
}

// ArtifactBackendFactory creates artifact backends from location URIs.
type ArtifactBackendFactory interface {
	// BackendFor creates a backend from a URI. Supports file://, s3://
	// and ipfs://.
	BackendFor(loc ArtifactLocation) (ArtifactBackend, error)

	// MultiBackendFor creates an aggregated backend that fetches from the
	// first location that has the content.
	MultiBackendFor(locs []ArtifactLocation) (ArtifactBackend, error)
}
