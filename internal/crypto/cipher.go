package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	xchacha "golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length in bytes of a field-encryption key.
const KeySize = xchacha.KeySize

// tokenPrefix versions the ciphertext token format so a key-id scheme can be
// introduced later without re-encrypting stored data.
const tokenPrefix = "v1:"

// FieldCipher encrypts individual secret fields with a single process-wide
// key. Tokens are "v1:" + base64url(nonce || ciphertext).
type FieldCipher struct {
	aead cipher.AEAD
}

func NewFieldCipher(key []byte) (*FieldCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: key must be %d bytes, got %d", KeySize, len(key))
	}
	aead, err := xchacha.NewX(key)
	if err != nil {
		return nil, err
	}
	return &FieldCipher{aead: aead}, nil
}

// GenerateKey returns a fresh random field-encryption key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// LoadKey decodes a base64 key from configuration, or generates a fresh one
// when encoded is empty. The generated flag lets callers warn that ciphertexts
// will be stranded on restart.
func LoadKey(encoded string) (key []byte, generated bool, err error) {
	if strings.TrimSpace(encoded) == "" {
		key, err = GenerateKey()
		return key, true, err
	}
	key, err = base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, false, fmt.Errorf("crypto: decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, false, fmt.Errorf("crypto: key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, false, nil
}

// Encrypt seals a plaintext field into a ciphertext token. Empty input passes
// through unchanged.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, xchacha.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+c.aead.Overhead())
	out = append(out, nonce...)
	out = c.aead.Seal(out[:len(nonce)], nonce, []byte(plaintext), nil)
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Decrypt opens a ciphertext token produced by Encrypt. A token that is
// malformed or sealed under a different key is returned unchanged: the stored
// value is the fallback, never an error. Empty input passes through.
func (c *FieldCipher) Decrypt(token string) string {
	if token == "" {
		return ""
	}
	raw, ok := c.open(token)
	if !ok {
		return token
	}
	return raw
}

func (c *FieldCipher) open(token string) (string, bool) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return "", false
	}
	data, err := base64.RawURLEncoding.DecodeString(token[len(tokenPrefix):])
	if err != nil || len(data) < xchacha.NonceSizeX {
		return "", false
	}
	nonce := data[:xchacha.NonceSizeX]
	ct := data[xchacha.NonceSizeX:]
	pt, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", false
	}
	return string(pt), true
}
