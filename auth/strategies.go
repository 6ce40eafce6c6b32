package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/liwenju0/deepenc/cryptoutils"
	"github.com/liwenju0/deepenc/interfaces"
)

const (
	// DefaultLicenseDir is the well-known location of license files.
	DefaultLicenseDir = "/data/appdatas/inference"

	// GenericLicenseFile is the fallback license filename when no
	// device-scoped license exists.
	GenericLicenseFile = "license.dat"

	// EnvAuthMode selects the operating mode.
	EnvAuthMode = "AUTH_MODE"

	// EnvAuthCode is the direct key override for local development.
	EnvAuthCode = "AUTH_CODE"
)

// Config assembles the default strategy chain.
type Config struct {
	// Mode controls license material interpretation. Defaults to the
	// AUTH_MODE environment variable.
	Mode interfaces.OperatingMode

	// LicenseDir overrides DefaultLicenseDir.
	LicenseDir string

	// Binding is the discovered hardware capability, nil when absent.
	Binding interfaces.HardwareBinding

	// Vault enables the Vault key source when non-nil.
	Vault *VaultConfig

	// ShamirShares enables Shamir reconstruction from the given share files
	// when non-empty.
	ShamirShares []string

	// DeriveKeys turns license material of non-AES length into a 32-byte
	// key via Argon2id instead of rejecting it.
	DeriveKeys bool

	Log *slog.Logger
}

// DefaultChain builds the resolution order: hardware device, device-scoped
// license file, generic license file, Vault, Shamir shares, environment.
// Optional sources are skipped when not configured.
func DefaultChain(cfg Config) []interfaces.KeyStrategy {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	licenseDir := cfg.LicenseDir
	if licenseDir == "" {
		licenseDir = DefaultLicenseDir
	}

	var chain []interfaces.KeyStrategy

	if cfg.Binding != nil {
		chain = append(chain, &HardwareStrategy{
			Binding:    cfg.Binding,
			Mode:       cfg.Mode,
			DeriveKeys: cfg.DeriveKeys,
		})
		chain = append(chain, &LicenseFileStrategy{
			Dir:          licenseDir,
			DeviceScoped: true,
			Binding:      cfg.Binding,
			Mode:         cfg.Mode,
			DeriveKeys:   cfg.DeriveKeys,
			Log:          log,
		})
	}

	chain = append(chain, &LicenseFileStrategy{
		Dir:        licenseDir,
		Binding:    cfg.Binding,
		Mode:       cfg.Mode,
		DeriveKeys: cfg.DeriveKeys,
		Log:        log,
	})

	if cfg.Vault != nil {
		chain = append(chain, NewVaultStrategy(*cfg.Vault, log))
	}

	if len(cfg.ShamirShares) > 0 {
		chain = append(chain, &ShamirStrategy{SharePaths: cfg.ShamirShares, DeriveKeys: cfg.DeriveKeys})
	}

	chain = append(chain, &EnvStrategy{Variable: EnvAuthCode})

	return chain
}

// materialToKey turns raw license material into a key. In production mode
// the material is first decrypted through the hardware binding. Material of
// non-AES length is either derived into a 32-byte key or rejected.
func materialToKey(material []byte, mode interfaces.OperatingMode, binding interfaces.HardwareBinding, derive bool) (interfaces.Key, error) {
	material = bytes.TrimSpace(material)
	if len(material) == 0 {
		return nil, errors.New("empty license material")
	}

	if mode == interfaces.ModeProduction {
		if binding == nil {
			return nil, errors.New("production mode requires a hardware binding to decrypt license material")
		}
		decrypted, err := binding.DecryptLicense(material)
		if err != nil {
			return nil, fmt.Errorf("hardware license decryption failed: %w", err)
		}
		material = bytes.TrimSpace(decrypted)
		if len(material) == 0 {
			return nil, errors.New("hardware decryption produced empty license")
		}
	}

	key := interfaces.Key(material)
	if key.Valid() {
		return key, nil
	}
	if derive {
		return cryptoutils.DeriveKey(material, nil), nil
	}
	return nil, fmt.Errorf("%w: got %d bytes", interfaces.ErrInvalidKey, len(material))
}

// HardwareStrategy reads the license blob directly from the hardware device.
type HardwareStrategy struct {
	Binding    interfaces.HardwareBinding
	Mode       interfaces.OperatingMode
	DeriveKeys bool
}

func (s *HardwareStrategy) Name() string { return "hardware-device" }

func (s *HardwareStrategy) Source() interfaces.KeySource { return interfaces.KeySourceHardware }

func (s *HardwareStrategy) TryResolve(ctx context.Context) (interfaces.Key, error) {
	blob, err := s.Binding.ReadLicense()
	if err != nil {
		return nil, fmt.Errorf("reading device license: %w", err)
	}
	return materialToKey(blob, s.Mode, s.Binding, s.DeriveKeys)
}

// LicenseFileStrategy reads a license file, either scoped to the hardware
// device identifier or the generic fallback at the same location.
type LicenseFileStrategy struct {
	Dir          string
	DeviceScoped bool
	Binding      interfaces.HardwareBinding
	Mode         interfaces.OperatingMode
	DeriveKeys   bool
	Log          *slog.Logger
}

func (s *LicenseFileStrategy) Name() string {
	if s.DeviceScoped {
		return "device-license-file"
	}
	return "license-file"
}

func (s *LicenseFileStrategy) Source() interfaces.KeySource {
	if s.DeviceScoped {
		return interfaces.KeySourceDeviceLicense
	}
	return interfaces.KeySourceGenericLicense
}

func (s *LicenseFileStrategy) TryResolve(ctx context.Context) (interfaces.Key, error) {
	path, err := s.licensePath()
	if err != nil {
		return nil, err
	}

	material, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading license file: %w", err)
	}
	if s.Log != nil {
		s.Log.Debug("Read license file", slog.String("path", path))
	}

	return materialToKey(material, s.Mode, s.Binding, s.DeriveKeys)
}

func (s *LicenseFileStrategy) licensePath() (string, error) {
	if !s.DeviceScoped {
		return filepath.Join(s.Dir, GenericLicenseFile), nil
	}

	if s.Binding == nil {
		return "", errors.New("no hardware binding to report a device identifier")
	}
	deviceID, err := s.Binding.DeviceID()
	if err != nil || deviceID == "" {
		return "", fmt.Errorf("no device identifier available: %w", err)
	}
	return filepath.Join(s.Dir, deviceID+".license"), nil
}

// EnvStrategy reads the key directly from an environment variable. This
// path exists for local development and always treats the value as the
// plaintext key, bypassing hardware and file handling entirely.
type EnvStrategy struct {
	Variable string
}

func (s *EnvStrategy) Name() string { return "environment" }

func (s *EnvStrategy) Source() interfaces.KeySource { return interfaces.KeySourceEnvironment }

func (s *EnvStrategy) TryResolve(ctx context.Context) (interfaces.Key, error) {
	value := os.Getenv(s.Variable)
	if value == "" {
		return nil, fmt.Errorf("%s not set", s.Variable)
	}

	key := interfaces.Key(bytes.TrimSpace([]byte(value)))
	if !key.Valid() {
		return nil, fmt.Errorf("%w: %s has %d bytes", interfaces.ErrInvalidKey, s.Variable, len(key))
	}
	return key, nil
}
