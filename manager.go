package vcsauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/catalyst-dev/vcs-auth/instrumentation"
	"github.com/catalyst-dev/vcs-auth/providers"
	"github.com/catalyst-dev/vcs-auth/security"
	"github.com/catalyst-dev/vcs-auth/storage"
)

// refreshKeySeparator joins user and provider ids into singleflight keys.
// The unit separator cannot appear in either id, so "alice"+"github" can
// never collide with another pair.
const refreshKeySeparator = "\x1f"

// CredentialStatus summarizes a stored credential for display.
type CredentialStatus string

const (
	// StatusNoCredential means the user never connected the provider.
	StatusNoCredential CredentialStatus = "no_credential"

	// StatusValid means the access token is usable beyond the refresh
	// margin.
	StatusValid CredentialStatus = "valid"

	// StatusExpiring means the access token is inside the refresh margin
	// and will be renewed on next use, or is still briefly usable.
	StatusExpiring CredentialStatus = "expiring"

	// StatusInvalid means the access token is expired and cannot be
	// renewed; the user must reconnect.
	StatusInvalid CredentialStatus = "invalid"
)

// Manager drives the credential lifecycle: load from the store, refresh
// ahead of expiry, persist the rotated pair. Concurrent refreshes for the
// same (user, provider) pair are coalesced into one provider call.
type Manager struct {
	store   storage.CredentialStore
	resolve func(providerID string) (providers.Provider, error)
	margin  time.Duration
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	tracer  trace.Tracer
	auditor *security.Auditor
	now     func() time.Time

	group singleflight.Group
}

// managerConfig wires a Manager. The registry is the only production
// caller; tests construct it directly for clock and dependency injection.
type managerConfig struct {
	store   storage.CredentialStore
	resolve func(providerID string) (providers.Provider, error)
	margin  time.Duration
	logger  *slog.Logger
	inst    *instrumentation.Instrumentation
	auditor *security.Auditor
	now     func() time.Time
}

func newManager(cfg managerConfig) *Manager {
	m := &Manager{
		store:   cfg.store,
		resolve: cfg.resolve,
		margin:  cfg.margin,
		logger:  cfg.logger,
		auditor: cfg.auditor,
		now:     cfg.now,
	}
	if m.margin == 0 {
		m.margin = DefaultRefreshMargin
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if cfg.inst != nil {
		m.metrics = cfg.inst.Metrics()
		m.tracer = cfg.inst.Tracer("lifecycle")
	}
	return m
}

// GetValidCredential returns a credential whose access token is usable now.
// A credential inside the refresh margin is refreshed and persisted before
// it is returned. No provider call is made when the user never connected:
// that fails immediately with ErrNotConnected.
func (m *Manager) GetValidCredential(ctx context.Context, userID, providerID string) (*storage.Credential, error) {
	if userID == "" || providerID == "" {
		return nil, fmt.Errorf("user id and provider id are required")
	}

	var span trace.Span
	if m.tracer != nil {
		ctx, span = m.tracer.Start(ctx, "vcsauth.credential.get_valid")
		defer span.End()
		instrumentation.AddCredentialAttributes(span, userID, providerID)
	}

	cred, err := m.store.Get(ctx, userID, providerID)
	if err != nil {
		if errors.Is(err, storage.ErrCredentialNotFound) {
			instrumentation.SetSpanError(span, "not connected")
			return nil, ErrNotConnected
		}
		instrumentation.RecordError(span, err)
		return nil, fmt.Errorf("loading credential: %w", err)
	}

	now := m.now()
	if !cred.ExpiresWithin(now, m.margin) {
		instrumentation.SetSpanSuccess(span)
		return cred, nil
	}

	if cred.RefreshToken == "" {
		// Nothing to renew with. Inside the margin the token still works
		// until its hard expiry, so hand it out; past that the user must
		// reconnect.
		if !cred.Expired(now) {
			instrumentation.SetSpanSuccess(span)
			return cred, nil
		}
		instrumentation.SetSpanError(span, "no refresh token")
		return nil, ErrNoRefreshToken
	}

	refreshed, err := m.refreshCred(ctx, userID, providerID, cred, false)
	if err != nil {
		instrumentation.RecordError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return refreshed, nil
}

// ForceRefresh refreshes a credential regardless of its recorded expiry.
// Used after a provider rejected the access token as expired or revoked
// even though the stored expiry looked fine.
func (m *Manager) ForceRefresh(ctx context.Context, userID, providerID string) (*storage.Credential, error) {
	if userID == "" || providerID == "" {
		return nil, fmt.Errorf("user id and provider id are required")
	}

	cred, err := m.store.Get(ctx, userID, providerID)
	if err != nil {
		if errors.Is(err, storage.ErrCredentialNotFound) {
			return nil, ErrNotConnected
		}
		return nil, fmt.Errorf("loading credential: %w", err)
	}
	return m.refreshCred(ctx, userID, providerID, cred, true)
}

// refreshCred coalesces refreshes per (user, provider) key. singleflight
// clears the slot once the underlying call finishes, whatever the outcome,
// so a failed refresh never wedges the key.
func (m *Manager) refreshCred(ctx context.Context, userID, providerID string, stale *storage.Credential, force bool) (*storage.Credential, error) {
	key := userID + refreshKeySeparator + providerID
	v, err, shared := m.group.Do(key, func() (interface{}, error) {
		return m.doRefresh(ctx, userID, providerID, stale, force)
	})
	if shared && m.metrics != nil {
		m.metrics.RecordRefreshCoalesced(ctx, providerID)
	}
	if err != nil {
		return nil, err
	}
	return v.(*storage.Credential).Clone(), nil
}

// doRefresh runs inside the singleflight slot.
func (m *Manager) doRefresh(ctx context.Context, userID, providerID string, stale *storage.Credential, force bool) (*storage.Credential, error) {
	var span trace.Span
	if m.tracer != nil {
		ctx, span = m.tracer.Start(ctx, "vcsauth.credential.refresh")
		defer span.End()
		instrumentation.AddCredentialAttributes(span, userID, providerID)
	}

	// Double-check the store: another process, or an earlier flight on
	// this key, may already have rotated the credential since the caller
	// read it.
	if fresh, err := m.store.Get(ctx, userID, providerID); err == nil {
		now := m.now()
		if force {
			if fresh.AccessToken != stale.AccessToken && !fresh.Expired(now) {
				instrumentation.SetSpanSuccess(span)
				return fresh, nil
			}
		} else if !fresh.ExpiresWithin(now, m.margin) {
			instrumentation.SetSpanSuccess(span)
			return fresh, nil
		}
		// Refresh from the newest stored state so a rotated refresh
		// token is never replayed.
		stale = fresh
	}

	if stale.RefreshToken == "" {
		instrumentation.SetSpanError(span, "no refresh token")
		return nil, ErrNoRefreshToken
	}

	provider, err := m.resolve(providerID)
	if err != nil {
		instrumentation.RecordError(span, err)
		return nil, err
	}

	start := time.Now()
	token, err := provider.RefreshToken(ctx, stale.RefreshToken)
	durationMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		m.logger.Error("Failed to refresh token",
			"user_id", userID,
			"provider", providerID,
			"error", err)
		if m.metrics != nil {
			m.metrics.RecordTokenRefresh(ctx, providerID, "error", false, durationMs)
		}
		if m.auditor != nil {
			m.auditor.LogRefreshFailed(userID, providerID, refreshFailureReason(err))
		}
		instrumentation.RecordError(span, err)
		// The stale record stays in place: a grant rejection must leave
		// evidence for the reconnect flow, and a transient failure must
		// leave the refresh token for the next attempt.
		return nil, err
	}

	updated := stale.Clone()
	updated.AccessToken = token.AccessToken
	rotated := token.RefreshToken != "" && token.RefreshToken != stale.RefreshToken
	if token.RefreshToken != "" {
		updated.RefreshToken = token.RefreshToken
	}
	if token.TokenType != "" {
		updated.TokenType = token.TokenType
	}
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		updated.Scope = scope
	}
	updated.ExpiresAt = token.Expiry
	updated.UpdatedAt = m.now()

	if err := m.store.Put(ctx, updated); err != nil {
		m.logger.Error("Failed to persist refreshed credential",
			"user_id", userID,
			"provider", providerID,
			"error", err)
		if m.metrics != nil {
			m.metrics.RecordTokenRefresh(ctx, providerID, "error", rotated, durationMs)
		}
		instrumentation.RecordError(span, err)
		return nil, fmt.Errorf("persisting refreshed credential: %w", err)
	}

	m.logger.Debug("Refreshed credential",
		"user_id", userID,
		"provider", providerID,
		"rotated", rotated)
	if m.metrics != nil {
		m.metrics.RecordTokenRefresh(ctx, providerID, "success", rotated, durationMs)
	}
	if m.auditor != nil {
		m.auditor.LogTokenRefreshed(userID, providerID, rotated)
	}
	instrumentation.SetSpanSuccess(span)
	return updated, nil
}

// Status derives the display status of a user's credential for one
// provider. It never makes a provider call.
func (m *Manager) Status(ctx context.Context, userID, providerID string) (CredentialStatus, error) {
	cred, err := m.store.Get(ctx, userID, providerID)
	if err != nil {
		if errors.Is(err, storage.ErrCredentialNotFound) {
			return StatusNoCredential, nil
		}
		return "", fmt.Errorf("loading credential: %w", err)
	}
	return m.statusOf(cred), nil
}

func (m *Manager) statusOf(cred *storage.Credential) CredentialStatus {
	now := m.now()
	switch {
	case !cred.ExpiresWithin(now, m.margin):
		return StatusValid
	case cred.RefreshToken != "":
		return StatusExpiring
	case !cred.Expired(now):
		return StatusExpiring
	default:
		return StatusInvalid
	}
}

// refreshFailureReason maps a refresh error onto the audit log vocabulary.
func refreshFailureReason(err error) string {
	var grantErr *GrantError
	var transferErr *TransferError
	var netErr *NetworkError
	switch {
	case errors.As(err, &grantErr):
		return "grant_rejected"
	case errors.As(err, &transferErr):
		return "transfer_failed"
	case errors.As(err, &netErr):
		return "network_error"
	default:
		return "unknown"
	}
}
