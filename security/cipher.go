package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

const (
	// KeySize is the required encryption key length in bytes (AES-256).
	KeySize = 32

	// ivSize is the GCM nonce length in bytes.
	ivSize = 12

	// tagSize is the GCM authentication tag length in bytes.
	tagSize = 16
)

// DecryptionError indicates that stored ciphertext could not be decrypted:
// the authentication tag did not verify, the input was malformed, or the
// key does not match. Callers must treat the affected credential as absent
// rather than trusting any partial output.
type DecryptionError struct {
	// Reason describes what failed, safe for logging.
	Reason string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *DecryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decryption failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decryption failed: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// EncryptedToken is the persisted shape of one encrypted secret: the
// ciphertext, the per-encryption initialization vector, and the GCM
// authentication tag, kept as separate fields so storage backends can
// persist them as distinct columns. Plaintext never appears at rest.
type EncryptedToken struct {
	Ciphertext []byte `json:"ciphertext"`
	IV         []byte `json:"iv"`
	AuthTag    []byte `json:"auth_tag"`
}

// Clone returns a deep copy of the encrypted token.
func (t *EncryptedToken) Clone() *EncryptedToken {
	if t == nil {
		return nil
	}
	c := &EncryptedToken{
		Ciphertext: make([]byte, len(t.Ciphertext)),
		IV:         make([]byte, len(t.IV)),
		AuthTag:    make([]byte, len(t.AuthTag)),
	}
	copy(c.Ciphertext, t.Ciphertext)
	copy(c.IV, t.IV)
	copy(c.AuthTag, t.AuthTag)
	return c
}

// Cipher encrypts and decrypts credential material with AES-256-GCM.
// The key is process-wide deployment configuration; it is never derived
// from user input. Cipher is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a cipher from a raw key.
// The key must be exactly KeySize bytes.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be exactly %d bytes for AES-256, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt encrypts plaintext with a fresh random IV.
// Two calls with the same plaintext produce different triples.
func (c *Cipher) Encrypt(plaintext string) (*EncryptedToken, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	// Seal appends the authentication tag to the ciphertext; split it off
	// so the triple keeps the tag as its own field.
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	split := len(sealed) - tagSize

	out := &EncryptedToken{
		Ciphertext: sealed[:split:split],
		IV:         iv,
		AuthTag:    sealed[split:],
	}
	return out, nil
}

// Decrypt recovers the plaintext from an encrypted triple. It returns a
// *DecryptionError if the input is malformed or the authentication tag
// does not verify; corrupted plaintext is never returned.
func (c *Cipher) Decrypt(token *EncryptedToken) (string, error) {
	if token == nil {
		return "", &DecryptionError{Reason: "nil token"}
	}
	if len(token.IV) != ivSize {
		return "", &DecryptionError{Reason: fmt.Sprintf("iv must be %d bytes, got %d", ivSize, len(token.IV))}
	}
	if len(token.AuthTag) != tagSize {
		return "", &DecryptionError{Reason: fmt.Sprintf("auth tag must be %d bytes, got %d", tagSize, len(token.AuthTag))}
	}

	sealed := make([]byte, 0, len(token.Ciphertext)+len(token.AuthTag))
	sealed = append(sealed, token.Ciphertext...)
	sealed = append(sealed, token.AuthTag...)

	plaintext, err := c.aead.Open(nil, token.IV, sealed, nil)
	if err != nil {
		return "", &DecryptionError{Reason: "authentication failed", Err: err}
	}

	return string(plaintext), nil
}
