package settings

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	common "github.com/example/phone-mailer/internal/adapters/common"
)

// ErrCiphertext is returned when a stored secret cannot be opened.
var ErrCiphertext = errors.New("settings: invalid ciphertext")

// Cipher seals and opens secret settings with XChaCha20-Poly1305. Stored
// values are base64(nonce || ciphertext). A Cipher built without a key
// passes values through unchanged.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a 256-bit key from secret. An empty secret yields a
// passthrough cipher.
func NewCipher(secret string) (*Cipher, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &Cipher{}, nil
	}
	key := sha256.Sum256([]byte(secret))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("settings: init cipher: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Passthrough reports whether the cipher has no key.
func (c *Cipher) Passthrough() bool {
	return c == nil || c.aead == nil
}

// Encrypt seals plaintext for storage.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if c.Passthrough() {
		return plaintext, nil
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("settings: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if c.Passthrough() {
		return ciphertext, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return "", common.WrapConfig(fmt.Errorf("%w: %v", ErrCiphertext, err))
	}
	if len(data) < c.aead.NonceSize() {
		return "", common.WrapConfig(fmt.Errorf("%w: too short", ErrCiphertext))
	}
	nonce, sealed := data[:c.aead.NonceSize()], data[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", common.WrapConfig(fmt.Errorf("%w: %v", ErrCiphertext, err))
	}
	return string(plain), nil
}

type passthrough struct{}

func (passthrough) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }
