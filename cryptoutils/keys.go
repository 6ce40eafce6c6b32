package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/liwenju0/deepenc/interfaces"
)

// DeriveKey creates a deterministic 32-byte AES key from secret material of
// arbitrary length using Argon2id. The context bytes scope the derivation
// (for example a hardware device identifier), ensuring the same key can be
// regenerated given the same inputs.
//
// Parameters: time=1, memory=64 MiB, threads=4, keyLen=32.
func DeriveKey(secret []byte, context []byte) interfaces.Key {
	salt := append([]byte("DEEPENC-LICENSE-"), context...)
	return interfaces.Key(argon2.IDKey(secret, salt, 1, 64*1024, 4, 32))
}

// SealLicense encrypts license material with AES-GCM under the given key.
// Output layout: nonce (12 bytes) || ciphertext. Used by license tooling to
// produce hardware-bound license files for production mode.
func SealLicense(key interfaces.Key, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return append(nonce, aead.Seal(nil, nonce, plaintext, nil)...), nil
}

// OpenLicense decrypts license material produced by SealLicense.
func OpenLicense(key interfaces.Key, blob []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(blob) < aead.NonceSize() {
		return nil, errors.New("license blob too short")
	}

	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt license: %w", err)
	}
	return plaintext, nil
}

func newGCM(key interfaces.Key) (cipher.AEAD, error) {
	if !key.Valid() {
		return nil, interfaces.ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return cipher.NewGCM(block)
}
