package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys
//
// SECURITY WARNING: Never put actual sensitive values (access tokens, refresh
// tokens, client secrets, ciphertext) in traces or metrics. Only record
// metadata such as token types, expiry times, providers, and outcomes. Traces
// are persisted for extended periods and replicated across monitoring
// infrastructure, so a leaked credential in a span is a leaked credential.
const (
	// Credential lifecycle attributes - SAFE to use for metadata only
	AttrUserID           = "vcsauth.user_id"            // User identifier (non-secret)
	AttrProviderID       = "vcsauth.provider_id"        // Provider identifier (github, gitlab, mock)
	AttrScope            = "vcsauth.scope"              // Granted scopes
	AttrTokenType        = "vcsauth.token_type"         //nolint:gosec // Token type (Bearer, etc.) - NOT the actual token
	AttrExpiresIn        = "vcsauth.expires_in"         // Token expiry duration in seconds
	AttrRefreshRotated   = "vcsauth.refresh.rotated"    //nolint:gosec // Whether the refresh token was rotated (boolean)
	AttrRefreshCoalesced = "vcsauth.refresh.coalesced"  // Whether the caller joined an in-flight refresh (boolean)
	AttrCredentialState  = "vcsauth.credential.state"   // Lifecycle state (valid, expiring, refreshing, invalid)
	AttrError            = "vcsauth.error"              // Error code
	AttrErrorDescription = "vcsauth.error_description"  // Error description

	// RESERVED - DO NOT USE: reserved for potential future metadata use only.
	// NEVER set these attributes to actual credential values. Use boolean
	// flags like "token_present" or "refresh_present" instead.
	AttrAccessToken  = "vcsauth.access_token"  //nolint:gosec // RESERVED
	AttrRefreshToken = "vcsauth.refresh_token" //nolint:gosec // RESERVED

	// Storage attributes
	AttrStorageOperation = "storage.operation"
	AttrStorageResult    = "storage.result"
	AttrStorageType      = "storage.type"
	AttrStorageKey       = "storage.key"

	// Provider attributes
	AttrProviderName      = "provider.name"
	AttrProviderOperation = "provider.operation"
	AttrProviderStatus    = "provider.status"
	AttrProviderErrorType = "provider.error_type"

	// Security attributes
	AttrRateLimiterType     = "security.rate_limiter.type"
	AttrAuditEventType      = "security.audit.event_type"
	AttrEncryptionOperation = "security.encryption.operation"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddCredentialAttributes adds common credential lifecycle attributes to a span (nil-safe)
func AddCredentialAttributes(span trace.Span, userID, providerID string) {
	if userID != "" {
		SetSpanAttributes(span, attribute.String(AttrUserID, userID))
	}
	if providerID != "" {
		SetSpanAttributes(span, attribute.String(AttrProviderID, providerID))
	}
}

// AddStorageAttributes adds storage operation attributes to a span (nil-safe)
func AddStorageAttributes(span trace.Span, operation, storageType string) {
	SetSpanAttributes(span,
		attribute.String(AttrStorageOperation, operation),
		attribute.String(AttrStorageType, storageType),
	)
}

// AddProviderAttributes adds provider attributes to a span (nil-safe)
func AddProviderAttributes(span trace.Span, providerName, operation string) {
	SetSpanAttributes(span,
		attribute.String(AttrProviderName, providerName),
		attribute.String(AttrProviderOperation, operation),
	)
}
