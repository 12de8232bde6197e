package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Audit event types.
const (
	EventProviderConnected    = "provider_connected"
	EventProviderDisconnected = "provider_disconnected"
	EventTokenRefreshed       = "token_refreshed"
	EventRefreshFailed        = "refresh_failed"
	EventDecryptFailure       = "decrypt_failure"
	EventConnectRateLimited   = "connect_rate_limited"
)

// Auditor logs credential lifecycle events with PII protection. User ids
// are hashed before logging so audit trails can be correlated without
// exposing account identifiers.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new credential auditor.
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// Event represents a credential audit event.
type Event struct {
	Type      string
	UserID    string
	Provider  string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs an audit event with hashed PII. Decrypt failures are
// raised to Error level because they indicate ciphertext corruption or
// an encryption key mismatch.
func (a *Auditor) LogEvent(event Event) {
	if a == nil || !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	logFn := a.logger.Info
	if event.Type == EventDecryptFailure {
		logFn = a.logger.Error
	}

	logFn("credential_audit",
		"event_type", event.Type,
		"user_id_hash", hashForLogging(event.UserID),
		"provider", event.Provider,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogProviderConnected logs a successful authorization-code exchange.
func (a *Auditor) LogProviderConnected(userID, provider, scope string) {
	a.LogEvent(Event{
		Type:     EventProviderConnected,
		UserID:   userID,
		Provider: provider,
		Details: map[string]any{
			"scope": scope,
		},
	})
}

// LogProviderDisconnected logs a user-initiated disconnect.
func (a *Auditor) LogProviderDisconnected(userID, provider string) {
	a.LogEvent(Event{
		Type:     EventProviderDisconnected,
		UserID:   userID,
		Provider: provider,
	})
}

// LogTokenRefreshed logs a successful refresh.
func (a *Auditor) LogTokenRefreshed(userID, provider string, rotated bool) {
	a.LogEvent(Event{
		Type:     EventTokenRefreshed,
		UserID:   userID,
		Provider: provider,
		Details: map[string]any{
			"rotated": rotated,
		},
	})
}

// LogRefreshFailed logs a failed refresh with the failure class so grant
// rejections can be told apart from transport noise.
func (a *Auditor) LogRefreshFailed(userID, provider, reason string) {
	a.LogEvent(Event{
		Type:     EventRefreshFailed,
		UserID:   userID,
		Provider: provider,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogDecryptFailure logs a failed decrypt of a stored credential.
func (a *Auditor) LogDecryptFailure(userID, provider, detail string) {
	a.LogEvent(Event{
		Type:     EventDecryptFailure,
		UserID:   userID,
		Provider: provider,
		Details: map[string]any{
			"detail": detail,
		},
	})
}

// LogConnectRateLimited logs a connect attempt rejected by the per-user
// rate limiter.
func (a *Auditor) LogConnectRateLimited(userID, provider string) {
	a.LogEvent(Event{
		Type:     EventConnectRateLimited,
		UserID:   userID,
		Provider: provider,
	})
}

// hashForLogging creates a SHA256 hash of sensitive data for logging
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
