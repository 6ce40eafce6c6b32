package interfaces

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestRelPath is where the build pipeline places the manifest inside a
// protected tree, relative to the build root.
const ManifestRelPath = "config/encryption_config.json"

// Manifest describes a protected build: which logical unit names map to
// which encrypted artifacts, which model files were encrypted, and the
// cipher parameters the build used. It is produced by the project builder
// and consumed at install time to pre-seed the resolver registry.
type Manifest struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`

	// EncLen is the partial-encryption prefix length the build used, in
	// bytes. Resolvers must decrypt with the same value.
	EncLen int `json:"enc_len"`

	// ModuleMapping maps logical dot-separated unit names to encrypted
	// artifact paths relative to the build root.
	ModuleMapping map[string]string `json:"module_mapping"`

	// Models lists encrypted model artifact paths relative to the build root.
	Models []string `json:"models,omitempty"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// Write serializes the manifest to the given path, creating parent
// directories as needed.
func (m *Manifest) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
