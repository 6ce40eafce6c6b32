package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrEncryption is returned when the cipher engine fails to encrypt or
	// decrypt data.
	ErrEncryption = errors.New("encryption error")

	// ErrDecryption refines ErrEncryption for decryption failures:
	// errors.Is(err, ErrEncryption) also holds for decryption errors.
	ErrDecryption = fmt.Errorf("decryption error: %w", ErrEncryption)

	// ErrInvalidKey is returned for keys whose length is not 16, 24 or 32 bytes.
	ErrInvalidKey = errors.New("invalid key: length must be 16, 24 or 32 bytes")

	// ErrAuthentication is returned when every configured key source has been
	// exhausted without producing a key. The protection system refuses to
	// install in that case.
	ErrAuthentication = errors.New("authentication failed: no key source available")

	// ErrLoader is returned when a specific code unit or model artifact could
	// not be resolved, decrypted or executed. It is surfaced to the caller
	// that requested the unit and never retried.
	ErrLoader = errors.New("loader failed")

	// ErrArtifactNotFound is returned when a requested artifact cannot be
	// found in the storage backend.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrBackendUnavailable is returned when a storage backend is not
	// accessible, due to network issues, authentication failures or outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is
	// malformed or uses an unsupported scheme.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)
