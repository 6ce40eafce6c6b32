package auth

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/vault/shamir"

	"github.com/liwenju0/deepenc/cryptoutils"
	"github.com/liwenju0/deepenc/interfaces"
)

// ShamirStrategy reconstructs the encryption key from a threshold of share
// files. Shares are hex-encoded, one per file, produced by SplitKey during
// provisioning. The key material itself never sits in a single file on
// disk.
type ShamirStrategy struct {
	// SharePaths are the share files to combine. At least the threshold
	// used at split time must be present and readable.
	SharePaths []string

	// DeriveKeys turns reconstructed material of non-AES length into a
	// 32-byte key via Argon2id.
	DeriveKeys bool
}

func (s *ShamirStrategy) Name() string { return "shamir-shares" }

func (s *ShamirStrategy) Source() interfaces.KeySource { return interfaces.KeySourceShamir }

func (s *ShamirStrategy) TryResolve(ctx context.Context) (interfaces.Key, error) {
	var shares [][]byte
	for _, path := range s.SharePaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			// A missing share is tolerable as long as enough remain.
			continue
		}
		share, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("malformed share file %s: %w", path, err)
		}
		shares = append(shares, share)
	}

	if len(shares) < 2 {
		return nil, fmt.Errorf("need at least 2 readable shares, got %d", len(shares))
	}

	material, err := shamir.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("combining shares: %w", err)
	}

	key := interfaces.Key(material)
	if key.Valid() {
		return key, nil
	}
	if s.DeriveKeys {
		return cryptoutils.DeriveKey(material, nil), nil
	}
	return nil, fmt.Errorf("%w: reconstructed %d bytes", interfaces.ErrInvalidKey, len(material))
}

// SplitKey splits a key into n hex-encoded shares with the given threshold.
// Used by provisioning tooling; the inverse of ShamirStrategy.
func SplitKey(key interfaces.Key, n, threshold int) ([]string, error) {
	if !key.Valid() {
		return nil, interfaces.ErrInvalidKey
	}

	shares, err := shamir.Split(key, n, threshold)
	if err != nil {
		return nil, fmt.Errorf("splitting key: %w", err)
	}

	encoded := make([]string, len(shares))
	for i, share := range shares {
		encoded[i] = hex.EncodeToString(share)
	}
	return encoded, nil
}
