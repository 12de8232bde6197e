package vcsauth

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/catalyst-dev/vcs-auth/instrumentation"
	"github.com/catalyst-dev/vcs-auth/providers"
	"github.com/catalyst-dev/vcs-auth/security"
	"github.com/catalyst-dev/vcs-auth/storage"
)

// mockProviderName is the registered name the UseMockProvider switch
// routes every call to.
const mockProviderName = "mock"

// Registry owns the configured providers, credential store and lifecycle
// manager for one process. Initialize installs the process-wide instance;
// tests build their own with newRegistry.
type Registry struct {
	providerOrder  []string
	providerByName map[string]providers.Provider
	defaultName    string
	useMock        bool

	store   storage.CredentialStore
	manager *Manager
	limiter *security.ConnectLimiter
	auditor *security.Auditor
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

var (
	registryMu      sync.Mutex
	defaultRegistry *Registry
)

// Initialize configures the process-wide registry. It can succeed once: a
// second call returns ErrAlreadyInitialized, because re-initialization
// could silently swap credential backends under live callers.
func Initialize(cfg Config) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if defaultRegistry != nil {
		return ErrAlreadyInitialized
	}
	r, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	defaultRegistry = r
	return nil
}

// Default returns the registry installed by Initialize.
func Default() (*Registry, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if defaultRegistry == nil {
		return nil, ErrNotInitialized
	}
	return defaultRegistry, nil
}

// GetScoped returns a client bound to one application user, using the
// registry installed by Initialize.
func GetScoped(userID string) (*ScopedClient, error) {
	r, err := Default()
	if err != nil {
		return nil, err
	}
	return r.GetScoped(userID)
}

// newRegistry builds a registry from cfg.
func newRegistry(cfg Config) (*Registry, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	cfg.applyDefaults()

	r := &Registry{
		providerByName: make(map[string]providers.Provider, len(cfg.Providers)),
		useMock:        cfg.UseMockProvider,
		store:          cfg.Store,
		auditor:        cfg.Auditor,
		logger:         cfg.Logger,
	}
	for _, p := range cfg.Providers {
		name := p.Name()
		if name == "" {
			return nil, fmt.Errorf("provider with empty name")
		}
		if _, exists := r.providerByName[name]; exists {
			return nil, fmt.Errorf("duplicate provider %q", name)
		}
		r.providerByName[name] = p
		r.providerOrder = append(r.providerOrder, name)
	}

	r.defaultName = cfg.DefaultProvider
	if r.defaultName == "" {
		r.defaultName = r.providerOrder[0]
	}
	if _, ok := r.providerByName[r.defaultName]; !ok {
		return nil, fmt.Errorf("default provider %q is not configured", r.defaultName)
	}
	if r.useMock {
		if _, ok := r.providerByName[mockProviderName]; !ok {
			return nil, fmt.Errorf("UseMockProvider requires a provider named %q", mockProviderName)
		}
	}

	if cfg.Instrumentation != nil {
		r.metrics = cfg.Instrumentation.Metrics()
	}
	if cfg.ConnectRateLimit > 0 {
		r.limiter = security.NewConnectLimiter(cfg.ConnectRateLimit, cfg.ConnectBurst, cfg.Logger)
	}

	r.manager = newManager(managerConfig{
		store:   cfg.Store,
		resolve: r.resolveProvider,
		margin:  cfg.RefreshMargin,
		logger:  cfg.Logger,
		inst:    cfg.Instrumentation,
		auditor: cfg.Auditor,
		now:     time.Now,
	})
	return r, nil
}

// resolveProvider maps a requested provider id to an adapter, applying the
// default-provider fallback and the mock routing switch.
func (r *Registry) resolveProvider(providerID string) (providers.Provider, error) {
	if r.useMock {
		return r.providerByName[mockProviderName], nil
	}
	if providerID == "" {
		providerID = r.defaultName
	}
	p, ok := r.providerByName[providerID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", providerID, ErrUnknownProvider)
	}
	return p, nil
}

// GetScoped returns a client bound to one application user.
func (r *Registry) GetScoped(userID string) (*ScopedClient, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return &ScopedClient{registry: r, userID: userID}, nil
}

// Manager exposes the lifecycle manager for callers that need raw
// credentials, such as background jobs acting on a user's behalf.
func (r *Registry) Manager() *Manager {
	return r.manager
}

// Providers returns the configured adapters in display order.
func (r *Registry) Providers() []providers.Provider {
	out := make([]providers.Provider, 0, len(r.providerOrder))
	for _, name := range r.providerOrder {
		out = append(out, r.providerByName[name])
	}
	return out
}

// Close stops background housekeeping. The connect limiter janitor is the
// only goroutine the library runs.
func (r *Registry) Close() {
	if r.limiter != nil {
		r.limiter.Stop()
	}
}
