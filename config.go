package vcsauth

import (
	"log/slog"
	"time"

	"github.com/catalyst-dev/vcs-auth/instrumentation"
	"github.com/catalyst-dev/vcs-auth/providers"
	"github.com/catalyst-dev/vcs-auth/security"
	"github.com/catalyst-dev/vcs-auth/storage"
)

// Configuration defaults applied by Initialize.
const (
	// DefaultRefreshMargin is how long before expiry a credential is
	// refreshed when no margin is configured.
	DefaultRefreshMargin = 5 * time.Minute

	// DefaultConnectRateLimit is the sustained connect attempts allowed
	// per user per minute when no limit is configured.
	DefaultConnectRateLimit = 5

	// DefaultConnectBurst is the connect attempt burst allowed per user
	// when no burst is configured.
	DefaultConnectBurst = 5
)

// Config holds the registry configuration.
type Config struct {
	// Providers lists the enabled provider adapters in display order
	// (required). The first entry is the default provider unless
	// DefaultProvider is set.
	Providers []providers.Provider

	// DefaultProvider names the provider used when a call does not name
	// one. Must match the Name() of a configured provider.
	DefaultProvider string

	// Store persists credentials (required).
	Store storage.CredentialStore

	// Logger for structured logging (optional, uses slog.Default if not
	// provided).
	Logger *slog.Logger

	// Instrumentation enables OpenTelemetry metrics and tracing (optional).
	Instrumentation *instrumentation.Instrumentation

	// Auditor records security-relevant lifecycle events (optional).
	Auditor *security.Auditor

	// RefreshMargin is how long before expiry a credential is refreshed.
	// Default: DefaultRefreshMargin.
	RefreshMargin time.Duration

	// ConnectRateLimit is the sustained connect attempts allowed per user
	// per minute. Zero applies DefaultConnectRateLimit; a negative value
	// disables connect rate limiting.
	ConnectRateLimit int

	// ConnectBurst is the connect attempt burst allowed per user.
	// Default: DefaultConnectBurst.
	ConnectBurst int

	// UseMockProvider routes every call to the provider registered under
	// the name "mock", whatever provider id the caller asks for. Lets demo
	// deployments run the full dashboard without provider credentials or
	// network access. A provider named "mock" must be in Providers.
	UseMockProvider bool
}

// applyDefaults fills zero-valued optional fields in place.
func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.RefreshMargin == 0 {
		c.RefreshMargin = DefaultRefreshMargin
	}
	if c.ConnectRateLimit == 0 {
		c.ConnectRateLimit = DefaultConnectRateLimit
	}
	if c.ConnectBurst == 0 {
		c.ConnectBurst = DefaultConnectBurst
	}
}
