package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"os"
	"path/filepath"

	"github.com/liwenju0/deepenc/interfaces"
)

// DefaultEncLen is the default encrypted prefix length: 10 MiB.
const DefaultEncLen = 10 * 1024 * 1024

// fixedSalt is the build-time IV shared between encryptor and resolvers.
// Changing it breaks every previously encrypted artifact.
var fixedSalt = []byte("SlTKeYOpHygTYkP3")

// Cipher is the stateless partial-payload encrypt/decrypt primitive. The
// zero value is not usable; construct with NewCipher.
type Cipher struct {
	encLen int
}

// NewCipher returns a cipher engine encrypting the first encLen bytes of
// each payload. encLen <= 0 selects DefaultEncLen.
func NewCipher(encLen int) *Cipher {
	if encLen <= 0 {
		encLen = DefaultEncLen
	}
	return &Cipher{encLen: encLen}
}

// EncLen returns the configured encrypted prefix length.
func (c *Cipher) EncLen() int { return c.encLen }

// Encrypt encrypts min(len(plaintext), EncLen) bytes of plaintext with
// AES-CFB and concatenates the untouched remainder. The key must be 16, 24
// or 32 bytes long.
func (c *Cipher) Encrypt(plaintext []byte, key interfaces.Key) ([]byte, error) {
	stream, err := c.cfbStream(key, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrEncryption, err)
	}

	n := c.encLen
	if len(plaintext) < n {
		n = len(plaintext)
	}

	out := make([]byte, len(plaintext))
	stream.XORKeyStream(out[:n], plaintext[:n])
	copy(out[n:], plaintext[n:])
	return out, nil
}

// Decrypt is symmetric to Encrypt: the first min(len, EncLen) bytes are
// CFB-decrypted, the remainder passes through unchanged. For any payload
// length Decrypt(Encrypt(p, k), k) == p.
func (c *Cipher) Decrypt(ciphertext []byte, key interfaces.Key) ([]byte, error) {
	stream, err := c.cfbStream(key, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrDecryption, err)
	}

	n := c.encLen
	if len(ciphertext) < n {
		n = len(ciphertext)
	}

	out := make([]byte, len(ciphertext))
	stream.XORKeyStream(out[:n], ciphertext[:n])
	copy(out[n:], ciphertext[n:])
	return out, nil
}

// EncryptFile reads input, encrypts it and writes the result to output,
// creating parent directories as needed.
func (c *Cipher) EncryptFile(inputPath, outputPath string, key interfaces.Key) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", interfaces.ErrEncryption, inputPath, err)
	}

	encrypted, err := c.Encrypt(data, key)
	if err != nil {
		return fmt.Errorf("encrypting %s: %w", inputPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("%w: creating output directory: %v", interfaces.ErrEncryption, err)
	}

	if err := os.WriteFile(outputPath, encrypted, 0644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", interfaces.ErrEncryption, outputPath, err)
	}
	return nil
}

// DecryptFile reads an encrypted artifact and returns its plaintext in
// memory. Artifacts are expected to fit in memory; this is a design
// constraint of the engine, not a streaming decryptor.
func (c *Cipher) DecryptFile(encryptedPath string, key interfaces.Key) ([]byte, error) {
	data, err := os.ReadFile(encryptedPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", interfaces.ErrDecryption, encryptedPath, err)
	}

	plaintext, err := c.Decrypt(data, key)
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", encryptedPath, err)
	}
	return plaintext, nil
}

// VerifyKey is a length-only syntactic check; it does not attempt a trial
// decryption.
func (c *Cipher) VerifyKey(key interfaces.Key) bool {
	return key.Valid()
}

// cfbStream validates the key and builds the CFB stream over the fixed IV.
func (c *Cipher) cfbStream(key interfaces.Key, encrypt bool) (cipher.Stream, error) {
	if !key.Valid() {
		return nil, interfaces.ErrInvalidKey
	}
	if len(fixedSalt) != aes.BlockSize {
		return nil, fmt.Errorf("IV must be %d bytes long, got %d", aes.BlockSize, len(fixedSalt))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	if encrypt {
		return cipher.NewCFBEncrypter(block, fixedSalt), nil
	}
	return cipher.NewCFBDecrypter(block, fixedSalt), nil
}
