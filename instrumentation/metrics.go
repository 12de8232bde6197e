package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments for the library
type Metrics struct {
	// Token Lifecycle Metrics
	CodeExchanged        metric.Int64Counter
	TokenRefreshed       metric.Int64Counter
	TokenRevoked         metric.Int64Counter
	RefreshCoalesced     metric.Int64Counter
	TokenRequestDuration metric.Float64Histogram

	// Storage Metrics
	StorageOperationTotal    metric.Int64Counter
	StorageOperationDuration metric.Float64Histogram
	StoredCredentials        metric.Int64ObservableGauge

	// Provider Metrics
	ProviderAPICallsTotal metric.Int64Counter
	ProviderAPIDuration   metric.Float64Histogram
	ProviderAPIErrors     metric.Int64Counter

	// Security Metrics
	DecryptFailures           metric.Int64Counter
	ConnectRateLimited        metric.Int64Counter
	AuditEventsTotal          metric.Int64Counter
	EncryptionOperationsTotal metric.Int64Counter
	EncryptionDuration        metric.Float64Histogram
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}

	lifecycleMeter := inst.Meter("lifecycle")
	storageMeter := inst.Meter("storage")
	providerMeter := inst.Meter("provider")
	securityMeter := inst.Meter("security")

	// Token Lifecycle Metrics
	var err error
	m.CodeExchanged, err = lifecycleMeter.Int64Counter(
		"vcsauth.code.exchanged",
		metric.WithDescription("Number of authorization codes exchanged for tokens"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create code.exchanged counter: %w", err)
	}

	m.TokenRefreshed, err = lifecycleMeter.Int64Counter(
		"vcsauth.token.refreshed",
		metric.WithDescription("Number of token refresh attempts"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.refreshed counter: %w", err)
	}

	m.TokenRevoked, err = lifecycleMeter.Int64Counter(
		"vcsauth.token.revoked",
		metric.WithDescription("Number of tokens revoked"),
		metric.WithUnit("{revocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.revoked counter: %w", err)
	}

	m.RefreshCoalesced, err = lifecycleMeter.Int64Counter(
		"vcsauth.refresh.coalesced",
		metric.WithDescription("Number of refresh callers coalesced onto an in-flight refresh"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh.coalesced counter: %w", err)
	}

	m.TokenRequestDuration, err = lifecycleMeter.Float64Histogram(
		"vcsauth.token.request.duration",
		metric.WithDescription("Token endpoint request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.request.duration histogram: %w", err)
	}

	// Storage Metrics
	m.StorageOperationTotal, err = storageMeter.Int64Counter(
		"storage.operation.total",
		metric.WithDescription("Total number of storage operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operation.total counter: %w", err)
	}

	m.StorageOperationDuration, err = storageMeter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operation.duration histogram: %w", err)
	}

	m.StoredCredentials, err = storageMeter.Int64ObservableGauge(
		"storage.credentials.count",
		metric.WithDescription("Number of credentials currently stored"),
		metric.WithUnit("{credential}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.credentials.count gauge: %w", err)
	}

	// Provider Metrics
	m.ProviderAPICallsTotal, err = providerMeter.Int64Counter(
		"provider.api.calls.total",
		metric.WithDescription("Total number of provider API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.calls.total counter: %w", err)
	}

	m.ProviderAPIDuration, err = providerMeter.Float64Histogram(
		"provider.api.duration",
		metric.WithDescription("Provider API call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.duration histogram: %w", err)
	}

	m.ProviderAPIErrors, err = providerMeter.Int64Counter(
		"provider.api.errors.total",
		metric.WithDescription("Total number of provider API errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.errors.total counter: %w", err)
	}

	// Security Metrics
	m.DecryptFailures, err = securityMeter.Int64Counter(
		"vcsauth.decrypt.failures",
		metric.WithDescription("Number of stored credentials that failed authenticated decryption"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decrypt.failures counter: %w", err)
	}

	m.ConnectRateLimited, err = securityMeter.Int64Counter(
		"vcsauth.connect.rate_limited",
		metric.WithDescription("Number of connect attempts rejected by the rate limiter"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connect.rate_limited counter: %w", err)
	}

	m.AuditEventsTotal, err = securityMeter.Int64Counter(
		"vcsauth.audit.events.total",
		metric.WithDescription("Total number of audit events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit.events.total counter: %w", err)
	}

	m.EncryptionOperationsTotal, err = securityMeter.Int64Counter(
		"vcsauth.encryption.operations.total",
		metric.WithDescription("Total number of encryption/decryption operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption.operations.total counter: %w", err)
	}

	m.EncryptionDuration, err = securityMeter.Float64Histogram(
		"vcsauth.encryption.duration",
		metric.WithDescription("Encryption/decryption operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption.duration histogram: %w", err)
	}

	return m, nil
}

// Helper methods for common metric recording patterns

// RecordCodeExchange records an authorization code exchange
func (m *Metrics) RecordCodeExchange(ctx context.Context, provider, result string, durationMs float64) {
	m.CodeExchanged.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("result", result),
	))
	m.TokenRequestDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", "exchange_code"),
	))
}

// RecordTokenRefresh records a refresh token grant attempt
func (m *Metrics) RecordTokenRefresh(ctx context.Context, provider, result string, rotated bool, durationMs float64) {
	m.TokenRefreshed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("result", result),
		attribute.Bool("rotated", rotated),
	))
	m.TokenRequestDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", "refresh_token"),
	))
}

// RecordTokenRevocation records a token revocation
func (m *Metrics) RecordTokenRevocation(ctx context.Context, provider string) {
	m.TokenRevoked.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordRefreshCoalesced records a caller that attached to an in-flight refresh
// instead of issuing its own
func (m *Metrics) RecordRefreshCoalesced(ctx context.Context, provider string) {
	m.RefreshCoalesced.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(ctx context.Context, operation, result string, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("result", result),
	}

	m.StorageOperationTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.StorageOperationDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordProviderAPICall records a provider API call
func (m *Metrics) RecordProviderAPICall(ctx context.Context, provider, operation string, statusCode int, durationMs float64, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.Int("status", statusCode),
	}

	m.ProviderAPICallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.ProviderAPIDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	))

	if err != nil {
		errorType := "unknown"
		if statusCode >= 400 && statusCode < 500 {
			errorType = "client_error"
		} else if statusCode >= 500 {
			errorType = "server_error"
		}

		m.ProviderAPIErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("operation", operation),
			attribute.String("error_type", errorType),
		))
	}
}

// RecordDecryptFailure records a stored credential that failed decryption
func (m *Metrics) RecordDecryptFailure(ctx context.Context, provider string) {
	m.DecryptFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordConnectRateLimited records a connect attempt rejected by the rate limiter
func (m *Metrics) RecordConnectRateLimited(ctx context.Context) {
	m.ConnectRateLimited.Add(ctx, 1)
}

// RecordAuditEvent records an audit event
func (m *Metrics) RecordAuditEvent(ctx context.Context, eventType string) {
	m.AuditEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// RecordEncryptionOperation records an encryption/decryption operation
func (m *Metrics) RecordEncryptionOperation(ctx context.Context, operation string, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
	}

	m.EncryptionOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.EncryptionDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
