// Package security provides secret redaction for logs and audit trails,
// the audit logger, URL filtering for network tools, request validation,
// per-owner rate limiting and the keyring that unseals agent credentials.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

// SealedPrefix marks a credential value sealed with a Keyring.
const SealedPrefix = "enc:"

const (
	keySize   = 32
	nonceSize = 24
)

// Keyring errors.
var (
	ErrInvalidKey    = errors.New("keyring key must be 32 bytes")
	ErrNoKeyring     = errors.New("sealed credential but no keyring configured")
	ErrDecryptFailed = errors.New("credential decryption failed")
)

// Keyring seals and opens credentials with NaCl secretbox.
type Keyring struct {
	key [keySize]byte
}

// NewKeyring creates a keyring from a raw 32-byte key.
func NewKeyring(key []byte) (*Keyring, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKey, len(key))
	}
	k := &Keyring{}
	copy(k.key[:], key)
	return k, nil
}

// ParseKeyring decodes a key given as 64 hex characters or standard base64.
func ParseKeyring(encoded string) (*Keyring, error) {
	encoded = strings.TrimSpace(encoded)
	if len(encoded) == 2*keySize {
		if raw, err := hex.DecodeString(encoded); err == nil {
			return NewKeyring(raw)
		}
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: not hex or base64", ErrInvalidKey)
	}
	return NewKeyring(raw)
}

// GenerateKey returns a fresh random key, base64 encoded.
func GenerateKey() (string, error) {
	var key [keySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key[:]), nil
}

// IsSealed reports whether value carries SealedPrefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}

// Seal encrypts plaintext and returns "enc:" followed by base64(nonce || box).
func (k *Keyring) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("keyring: nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &k.key)
	return SealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

// Open returns the plaintext of a sealed value. Values without the prefix
// are returned unchanged. A nil Keyring can only open unsealed values.
func (k *Keyring) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if k == nil {
		return "", ErrNoKeyring
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryptFailed, err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptFailed)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &k.key)
	if !ok {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}
