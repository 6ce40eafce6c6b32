package interfaces

import (
	"fmt"
	"net/url"
	"strings"
)

// Key is the process-wide symmetric encryption key. Valid keys are exactly
// 16, 24 or 32 bytes long (AES-128/192/256). A Key is resolved once per
// process and is immutable afterwards.
type Key []byte

// Valid reports whether the key has an acceptable AES key length.
func (k Key) Valid() bool {
	switch len(k) {
	case 16, 24, 32:
		return true
	default:
		return false
	}
}

// String masks the key material; only the length is ever printed.
func (k Key) String() string {
	return fmt.Sprintf("key(%d bytes)", len(k))
}

// KeySource identifies which source of the resolution chain produced the key.
// Attached to the resolved key for diagnostics.
type KeySource int

const (
	// KeySourceNone means no key has been resolved.
	KeySourceNone KeySource = iota
	// KeySourceHardware means the key came from a hardware device license.
	KeySourceHardware
	// KeySourceDeviceLicense means a license file scoped to the hardware
	// device identifier.
	KeySourceDeviceLicense
	// KeySourceGenericLicense means the generic license file.
	KeySourceGenericLicense
	// KeySourceVault means a HashiCorp Vault KV secret.
	KeySourceVault
	// KeySourceShamir means reconstruction from Shamir share files.
	KeySourceShamir
	// KeySourceEnvironment means the AUTH_CODE environment variable.
	KeySourceEnvironment
)

// String returns the source name used in logs and diagnostics.
func (s KeySource) String() string {
	switch s {
	case KeySourceHardware:
		return "hardware"
	case KeySourceDeviceLicense:
		return "device-license-file"
	case KeySourceGenericLicense:
		return "license-file"
	case KeySourceVault:
		return "vault"
	case KeySourceShamir:
		return "shamir"
	case KeySourceEnvironment:
		return "environment"
	default:
		return "none"
	}
}

// OperatingMode selects how license material is interpreted. In development
// mode the license blob is the key itself; in production mode it is
// ciphertext that must be decrypted through the hardware binding.
type OperatingMode int

const (
	// ModeDevelopment treats license material as the plaintext key.
	ModeDevelopment OperatingMode = iota
	// ModeProduction treats license material as hardware-encrypted ciphertext.
	ModeProduction
)

// OperatingModeFromEnv maps the AUTH_MODE environment value to a mode.
// "DEV" (and empty) select development mode, anything else production.
func OperatingModeFromEnv(value string) OperatingMode {
	if value == "" || value == "DEV" {
		return ModeDevelopment
	}
	return ModeProduction
}

// String returns the mode name.
func (m OperatingMode) String() string {
	if m == ModeProduction {
		return "production"
	}
	return "development"
}

// UnitName is a hierarchical, dot-separated logical code-unit name, such as
// "pkg.sub.mod".
type UnitName string

// Tail returns the unqualified last segment of the name. Filesystem probing
// during discovery uses only the tail, matching how dynamic loaders resolve
// a name against each directory of the search context.
func (n UnitName) Tail() string {
	name := string(n)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Parent returns the parent package name, or "" for a top-level unit.
func (n UnitName) Parent() string {
	name := string(n)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}

// String returns the dotted name.
func (n UnitName) String() string { return string(n) }

// ArtifactLocation represents a URI identifying a storage backend.
type ArtifactLocation string

// Parse validates the location and returns its URL form. Supported schemes
// are file, s3 and ipfs.
func (loc ArtifactLocation) Parse() (*url.URL, error) {
	u, err := url.Parse(string(loc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "file", "s3", "ipfs":
		return u, nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, u.Scheme)
	}
}

// String returns the original URI string.
func (loc ArtifactLocation) String() string { return string(loc) }
