package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for DeriveKey. Changing these invalidates every
// previously derived key, so they are fixed.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// GenerateKey generates a new random KeySize-byte encryption key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// KeyFromBase64 decodes a base64-encoded encryption key.
func KeyFromBase64(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// KeyToBase64 encodes an encryption key to base64 for storage in
// deployment configuration.
func KeyToBase64(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DeriveKey derives a KeySize-byte key from a deployment passphrase and a
// stable salt using Argon2id. Intended for installations that configure a
// passphrase instead of a raw key; the salt must be at least 8 bytes and
// must not change between runs.
func DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("passphrase must not be empty")
	}
	if len(salt) < 8 {
		return nil, fmt.Errorf("salt must be at least 8 bytes, got %d", len(salt))
	}
	return argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, KeySize), nil
}
