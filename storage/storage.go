package storage

import (
	"context"
	"errors"
	"time"

	"github.com/catalyst-dev/vcs-auth/security"
)

// Sentinel errors returned by credential stores.
var (
	// ErrCredentialNotFound is returned when no credential exists for a
	// (userID, providerID) pair. Stores also return it when a stored row
	// fails to decrypt: a credential that cannot be fully recovered is
	// treated as entirely absent.
	ErrCredentialNotFound = errors.New("credential not found")
)

// Credential is the decrypted, in-memory form of one provider connection.
// Exactly one exists per (UserID, ProviderID). The token fields hold
// plaintext and must never be persisted as-is; stores encrypt them on
// write and decrypt on read.
type Credential struct {
	// ID is the storage-assigned row identifier.
	ID string

	// UserID identifies the owning application user. Opaque to this
	// library.
	UserID string

	// ProviderID names the adapter this credential belongs to, for
	// example "github".
	ProviderID string

	// ResourceID is optional provider-scoped context such as a GitHub
	// App installation id. Opaque to this library and preserved across
	// refreshes.
	ResourceID string

	// AccessToken is the bearer token presented to the provider API.
	AccessToken string

	// RefreshToken renews the access token when it expires. May be
	// empty for providers that do not issue one.
	RefreshToken string

	// TokenType is the token scheme, normally "bearer".
	TokenType string

	// Scope is the space-delimited granted scope string, informational.
	Scope string

	// ExpiresAt is the instant after which the access token must be
	// refreshed before use. A zero value means already expired.
	ExpiresAt time.Time

	// CreatedAt is set when the credential row is first stored.
	CreatedAt time.Time

	// UpdatedAt is bumped by the store on every write.
	UpdatedAt time.Time
}

// Clone returns a deep copy of the credential.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Expired reports whether the access token must not be used at the given
// instant. A zero ExpiresAt counts as expired: an unparseable or missing
// expiry must never pass a token through as valid.
func (c *Credential) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(c.ExpiresAt)
}

// ExpiresWithin reports whether the access token is expired or will
// expire within margin of the given instant. The lifecycle manager
// refreshes inside this window so callers never hold a token that dies
// mid-request.
func (c *Credential) ExpiresWithin(now time.Time, margin time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return true
	}
	return !now.Add(margin).Before(c.ExpiresAt)
}

// EncryptedCredential is the at-rest form of a credential: both token
// fields replaced by independent {ciphertext, iv, auth tag} triples.
// Storage backends persist exactly this shape.
type EncryptedCredential struct {
	ID           string
	UserID       string
	ProviderID   string
	ResourceID   string
	AccessToken  *security.EncryptedToken
	RefreshToken *security.EncryptedToken
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CredentialStore is the persistence contract for provider credentials.
// Implementations encrypt token material before it reaches the backing
// medium and decrypt it on the way out.
//
// Write semantics shared by every implementation:
//   - Put upserts by (UserID, ProviderID); a second write for the same
//     pair replaces the row, never duplicates it.
//   - Put preserves the stored ResourceID when the incoming credential
//     leaves it empty. Refresh responses do not echo the original
//     installation id, and it must not be erased.
//   - Put preserves CreatedAt on updates and bumps UpdatedAt on every
//     write.
//   - Get returns ErrCredentialNotFound for absent rows and for rows
//     whose ciphertext fails to decrypt (fail closed, logged by the
//     implementation).
//   - Delete is idempotent: deleting an absent row is not an error.
type CredentialStore interface {
	// Get loads and decrypts the credential for a (userID, providerID)
	// pair.
	Get(ctx context.Context, userID, providerID string) (*Credential, error)

	// Put encrypts and upserts a credential.
	Put(ctx context.Context, cred *Credential) error

	// Delete removes the credential for a (userID, providerID) pair.
	Delete(ctx context.Context, userID, providerID string) error

	// ListByUser returns every decryptable credential owned by a user,
	// ordered by provider id. Rows that fail to decrypt are skipped.
	ListByUser(ctx context.Context, userID string) ([]*Credential, error)
}
