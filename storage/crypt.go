package storage

import (
	"fmt"

	"github.com/catalyst-dev/vcs-auth/security"
)

// Shared encrypt/decrypt helpers used by every storage backend so the
// at-rest rules live in one place: both token fields are sealed
// independently, each with its own IV and tag, even when they arrived in
// the same OAuth response.

// EncryptCredential converts a plaintext credential into its at-rest
// form. The input is not modified.
func EncryptCredential(cipher *security.Cipher, cred *Credential) (*EncryptedCredential, error) {
	if cipher == nil {
		return nil, fmt.Errorf("cipher is required")
	}
	if cred == nil {
		return nil, fmt.Errorf("credential is required")
	}

	access, err := cipher.Encrypt(cred.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	refresh, err := cipher.Encrypt(cred.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	return &EncryptedCredential{
		ID:           cred.ID,
		UserID:       cred.UserID,
		ProviderID:   cred.ProviderID,
		ResourceID:   cred.ResourceID,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    cred.TokenType,
		Scope:        cred.Scope,
		ExpiresAt:    cred.ExpiresAt,
		CreatedAt:    cred.CreatedAt,
		UpdatedAt:    cred.UpdatedAt,
	}, nil
}

// DecryptCredential converts an at-rest credential back into plaintext
// form. Any failure on either half returns a *security.DecryptionError;
// callers must then treat the credential as absent rather than use a
// partially decrypted record.
func DecryptCredential(cipher *security.Cipher, enc *EncryptedCredential) (*Credential, error) {
	if cipher == nil {
		return nil, fmt.Errorf("cipher is required")
	}
	if enc == nil {
		return nil, fmt.Errorf("encrypted credential is required")
	}

	access, err := cipher.Decrypt(enc.AccessToken)
	if err != nil {
		return nil, err
	}

	refresh, err := cipher.Decrypt(enc.RefreshToken)
	if err != nil {
		return nil, err
	}

	return &Credential{
		ID:           enc.ID,
		UserID:       enc.UserID,
		ProviderID:   enc.ProviderID,
		ResourceID:   enc.ResourceID,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    enc.TokenType,
		Scope:        enc.Scope,
		ExpiresAt:    enc.ExpiresAt,
		CreatedAt:    enc.CreatedAt,
		UpdatedAt:    enc.UpdatedAt,
	}, nil
}
