package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/liwenju0/deepenc/interfaces"
)

// VaultConfig configures the Vault key source. Address and authentication
// fall back to the standard Vault environment (VAULT_ADDR, VAULT_TOKEN).
type VaultConfig struct {
	// Address of the Vault server, e.g. https://vault.example.com:8200.
	// Empty uses the environment default.
	Address string

	// MountPath of the KV v2 engine, e.g. "secret".
	MountPath string

	// SecretPath within the mount, e.g. "deepenc/license".
	SecretPath string

	// Field holding the key material inside the secret. Defaults to "key".
	Field string
}

// VaultStrategy reads the encryption key from a HashiCorp Vault KV v2
// secret. Like every other source it is best-effort: a sealed, unreachable
// or misconfigured Vault degrades resolution to the next strategy.
type VaultStrategy struct {
	cfg VaultConfig
	log *slog.Logger
}

// NewVaultStrategy creates the strategy; the client is constructed lazily on
// first resolution so that an unreachable Vault costs nothing at startup.
func NewVaultStrategy(cfg VaultConfig, log *slog.Logger) *VaultStrategy {
	if cfg.Field == "" {
		cfg.Field = "key"
	}
	return &VaultStrategy{cfg: cfg, log: log}
}

func (s *VaultStrategy) Name() string { return "vault" }

func (s *VaultStrategy) Source() interfaces.KeySource { return interfaces.KeySourceVault }

func (s *VaultStrategy) TryResolve(ctx context.Context) (interfaces.Key, error) {
	config := vaultapi.DefaultConfig()
	if s.cfg.Address != "" {
		config.Address = s.cfg.Address
	}
	config.Timeout = 10 * time.Second

	client, err := vaultapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("creating Vault client: %w", err)
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	health, err := client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		return nil, fmt.Errorf("vault health check failed: %w", err)
	}
	if !health.Initialized || health.Sealed {
		return nil, fmt.Errorf("vault not available (initialized=%v sealed=%v)", health.Initialized, health.Sealed)
	}

	// KV v2 path structure.
	path := fmt.Sprintf("%s/data/%s", s.cfg.MountPath, s.cfg.SecretPath)
	secret, err := client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading Vault secret: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no secret at %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}
	material, ok := data[s.cfg.Field].(string)
	if !ok || material == "" {
		return nil, fmt.Errorf("field %q not found in Vault secret", s.cfg.Field)
	}

	if s.log != nil {
		s.log.Debug("Read key material from Vault", slog.String("path", path))
	}

	key := interfaces.Key(material)
	if !key.Valid() {
		return nil, fmt.Errorf("%w: Vault secret has %d bytes", interfaces.ErrInvalidKey, len(key))
	}
	return key, nil
}
