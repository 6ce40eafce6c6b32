package builders

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/liwenju0/deepenc/cryptoutils"
)

// DefaultConfigFile is the build config filename looked up in the project
// root.
const DefaultConfigFile = "deepenc.yaml"

// FilterConfig carries user filter rules from the build config file.
type FilterConfig struct {
	ExcludeDirs  []string `yaml:"exclude_dirs"`
	ExcludeFiles []string `yaml:"exclude_files"`
	ExcludePaths []string `yaml:"exclude_paths"`
}

// BuildConfig is the deepenc.yaml build configuration.
type BuildConfig struct {
	// ProjectRoot is the tree to protect. Defaults to the current directory.
	ProjectRoot string `yaml:"project_root"`

	// OutputDir receives the protected build. Defaults to "build".
	OutputDir string `yaml:"output_dir"`

	// EncLen is the partial-encryption prefix length in bytes. Zero selects
	// the cipher default.
	EncLen int `yaml:"enc_len"`

	// Storage is an optional artifact store URI the build is uploaded to
	// (file://, s3:// or ipfs://).
	Storage string `yaml:"storage"`

	// Filters merge with the default exclusion rules.
	Filters FilterConfig `yaml:"filters"`
}

// LoadBuildConfig reads a YAML build config, applying defaults for missing
// fields. A missing file yields the pure default config.
func LoadBuildConfig(path string) (*BuildConfig, error) {
	cfg := &BuildConfig{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing build config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading build config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *BuildConfig) applyDefaults() {
	if c.ProjectRoot == "" {
		c.ProjectRoot = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = "build"
	}
	if c.EncLen <= 0 {
		c.EncLen = cryptoutils.DefaultEncLen
	}
}
