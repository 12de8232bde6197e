package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"github.com/catalyst-dev/vcs-auth/internal/util"
	"github.com/catalyst-dev/vcs-auth/providers"
)

// Compile-time check that Provider implements the providers.Provider interface.
var _ providers.Provider = (*Provider)(nil)

const (
	providerName        = "github"
	providerDisplayName = "GitHub"
)

// defaultAPIBaseURL is the GitHub REST v3 endpoint. GitHub Enterprise Server
// deployments override it via Config.BaseURL.
const defaultAPIBaseURL = "https://api.github.com"

// defaultTokenExpiryWindow is the assumed validity of access tokens whose
// token response carries no absolute expiry. GitHub user-to-server tokens
// are valid for eight hours.
const defaultTokenExpiryWindow = 8 * time.Hour

// acceptHeader is sent on every REST call.
const acceptHeader = "application/vnd.github.v3+json"

// Provider implements the providers.Provider interface for GitHub.
type Provider struct {
	*oauth2.Config
	httpClient     *http.Client
	requestTimeout time.Duration
	apiBaseURL     string
	expiryWindow   time.Duration
}

// Config holds GitHub provider configuration.
type Config struct {
	// ClientID is the OAuth App or GitHub App client ID.
	ClientID string

	// ClientSecret is the OAuth App or GitHub App client secret.
	ClientSecret string

	// RedirectURL is the OAuth callback URL registered with the app.
	RedirectURL string

	// Scopes are optional custom scopes (defaults to ["repo", "read:user"]).
	Scopes []string

	// BaseURL overrides the REST API base URL, for GitHub Enterprise Server
	// or tests (default: https://api.github.com).
	BaseURL string

	// AuthURL overrides the OAuth authorization endpoint.
	AuthURL string

	// TokenURL overrides the OAuth token endpoint.
	TokenURL string

	// TokenExpiryWindow is the assumed validity of tokens whose response
	// carries no absolute expiry (default: 8h).
	TokenExpiryWindow time.Duration

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	// RequestTimeout bounds each capability call when the caller's context
	// has no deadline (default: 30s).
	RequestTimeout time.Duration
}

// NewProvider creates a new GitHub provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}

	// Default scopes if none provided
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"repo", "read:user"}
	}

	// Deep copy scopes to prevent external modification
	scopesCopy := make([]string, len(scopes))
	copy(scopesCopy, scopes)
	scopes = scopesCopy

	endpoint := oauthgithub.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: requestTimeout,
		}
	}

	apiBaseURL := util.NormalizeURL(cfg.BaseURL)
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}

	expiryWindow := cfg.TokenExpiryWindow
	if expiryWindow == 0 {
		expiryWindow = defaultTokenExpiryWindow
	}

	return &Provider{
		Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
		apiBaseURL:     apiBaseURL,
		expiryWindow:   expiryWindow,
	}, nil
}

// Name returns the stable provider id.
func (p *Provider) Name() string {
	return providerName
}

// DisplayName returns the human-readable provider name.
func (p *Provider) DisplayName() string {
	return providerDisplayName
}

// AuthorizationURL generates the GitHub authorization URL carrying the
// caller's state value.
func (p *Provider) AuthorizationURL(state string) string {
	return p.AuthCodeURL(state)
}

// ensureContextTimeout ensures the context has a deadline, adding one if
// needed. The returned cancel function must be deferred by the caller. For
// capabilities that make several requests (pagination, SHA resolution) the
// deadline covers the whole capability call.
func (p *Provider) ensureContextTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.requestTimeout)
}
