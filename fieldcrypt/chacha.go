package fieldcrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrNoCipher is returned when an encrypted field is revealed
	// without a cipher configured.
	ErrNoCipher = errors.New("fieldcrypt: encrypted field but no cipher configured")

	// ErrCiphertext is returned for malformed or tampered ciphertext.
	ErrCiphertext = errors.New("fieldcrypt: invalid ciphertext")
)

// AEADCipher implements Cipher with ChaCha20-Poly1305. Ciphertext is
// base64(nonce || sealed) so it round-trips through JSON documents.
type AEADCipher struct {
	aead cipher.AEAD
}

// NewChaCha20Poly1305 builds a cipher from a 32-byte key.
func NewChaCha20Poly1305(key []byte) (*AEADCipher, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("fieldcrypt: %w", err)
	}
	return &AEADCipher{aead: aead}, nil
}

// KeyFromBase64 decodes a standard-base64 key, typically loaded from
// configuration.
func KeyFromBase64(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("fieldcrypt: decode key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("fieldcrypt: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return key, nil
}

func (c *AEADCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("fieldcrypt: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AEADCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrCiphertext
	}
	plaintext, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	return string(plaintext), nil
}
