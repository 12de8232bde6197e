package vcsauth

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the registry and lifecycle manager.
var (
	// ErrNotConnected indicates no credential is stored for the
	// (user, provider) pair. Capability calls fail with this before any
	// network I/O happens.
	ErrNotConnected = errors.New("provider not connected")

	// ErrReconnectRequired indicates the stored credential can no longer be
	// used or refreshed and the user must go through authorization again.
	// Errors returned by ScopedClient capability calls wrap this sentinel
	// whenever re-authorization is the remedy.
	ErrReconnectRequired = errors.New("provider reconnect required")

	// ErrNoRefreshToken indicates a credential is expiring but carries no
	// refresh token, so it cannot be renewed without re-authorization.
	ErrNoRefreshToken = errors.New("credential has no refresh token")

	// ErrAlreadyInitialized is returned by Initialize when the process-wide
	// registry has already been configured. Re-initialization could silently
	// swap credential backends mid-process, so it fails fast instead.
	ErrAlreadyInitialized = errors.New("registry already initialized")

	// ErrNotInitialized is returned by Default and GetScoped before
	// Initialize has been called.
	ErrNotInitialized = errors.New("registry not initialized")

	// ErrUnknownProvider indicates a provider id that was not registered.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrConnectRateLimited is returned by Connect when a user has started
	// too many authorization flows in a short window.
	ErrConnectRateLimited = errors.New("too many connect attempts")
)

// NetworkError represents a transport-level failure talking to a provider:
// connection refused, DNS failure, TLS handshake failure, or a timed-out
// request. It is never retried internally; callers may retry with backoff.
type NetworkError struct {
	// Op is the token operation that failed ("exchange", "refresh", "revoke").
	Op string

	// Err is the underlying transport error.
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s token request failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Temporary reports that the failure may succeed on retry.
func (e *NetworkError) Temporary() bool {
	return true
}

// TransferError represents a non-2xx token endpoint response that carried no
// usable error body, such as a rate-limit rejection or a gateway failure.
type TransferError struct {
	// Op is the token operation that failed ("exchange", "refresh", "revoke").
	Op string

	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Status is the HTTP status text (e.g. "Too Many Requests").
	Status string
}

// Error implements the error interface.
func (e *TransferError) Error() string {
	return fmt.Sprintf("Failed to %s token: %s", e.Op, e.Status)
}

// Temporary reports that the failure may succeed on retry.
func (e *TransferError) Temporary() bool {
	return true
}

// GrantError represents the provider's own error channel in a token endpoint
// response body (e.g. "invalid_grant", "bad_refresh_token"). This is the
// dominant failure once a refresh token has been revoked or has expired, and
// it maps to "re-authorization required", never to a transient retry.
type GrantError struct {
	// Provider is the provider display name (e.g. "GitHub").
	Provider string

	// Op is the token operation that failed ("exchange", "refresh").
	Op string

	// Code is the machine-readable error code from the response body.
	Code string

	// Description is the human-readable description, when the provider
	// sent one.
	Description string
}

// Error implements the error interface.
func (e *GrantError) Error() string {
	desc := e.Description
	if desc == "" {
		desc = e.Code
	}
	return fmt.Sprintf("%s %s error: %s", e.Provider, e.Op, desc)
}

// Temporary reports that retrying cannot succeed: the grant itself was
// rejected and only re-authorization produces a usable credential.
func (e *GrantError) Temporary() bool {
	return false
}

// AuthExpiredError indicates a provider API call was rejected because the
// access token is expired or revoked. Callers use it to distinguish
// "reconnect needed" from a generic API failure.
type AuthExpiredError struct {
	// Provider is the provider display name (e.g. "GitHub").
	Provider string

	// StatusCode is the HTTP status code of the rejection (401, or 403 for
	// revoked-token shapes).
	StatusCode int
}

// Error implements the error interface.
func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("%s credential expired or revoked (status %d)", e.Provider, e.StatusCode)
}
