package github

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	vcsauth "github.com/catalyst-dev/vcs-auth"
	"github.com/catalyst-dev/vcs-auth/internal/util"
)

// App JWT claim bounds. GitHub caps the expiry at ten minutes from issue;
// the issued-at is backdated to absorb clock skew between us and GitHub.
const (
	appJWTValidity = 9 * time.Minute
	appJWTBackdate = 60 * time.Second
)

// AppAuth mints GitHub App credentials: short-lived RS256 JWTs identifying
// the app itself, and installation access tokens scoped to one
// installation. A stored credential's ResourceID carries the installation
// id these tokens are minted for.
type AppAuth struct {
	appID          string
	key            *rsa.PrivateKey
	apiBaseURL     string
	httpClient     *http.Client
	requestTimeout time.Duration
	now            func() time.Time
}

// AppConfig holds GitHub App configuration.
type AppConfig struct {
	// AppID is the numeric GitHub App id, as issued on app creation.
	AppID string

	// PrivateKey is the PEM-encoded RSA private key generated for the app.
	PrivateKey []byte

	// BaseURL overrides the REST API base URL (default: https://api.github.com).
	BaseURL string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	// RequestTimeout bounds installation token requests when the caller's
	// context has no deadline (default: 30s).
	RequestTimeout time.Duration
}

// NewAppAuth creates an AppAuth from app credentials.
func NewAppAuth(cfg *AppConfig) (*AppAuth, error) {
	if cfg.AppID == "" {
		return nil, fmt.Errorf("app ID is required")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("private key is required")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
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

	return &AppAuth{
		appID:          cfg.AppID,
		key:            key,
		apiBaseURL:     apiBaseURL,
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
		now:            time.Now,
	}, nil
}

// AppJWT mints the app-identity JWT GitHub expects on App management
// endpoints: RS256-signed, issued by the app id.
func (a *AppAuth) AppJWT() (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Issuer:    a.appID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-appJWTBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTValidity)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign app JWT: %w", err)
	}
	return signed, nil
}

// InstallationToken mints an installation access token for one
// installation. The result expires after about an hour; callers treat it
// like any other short-lived access token.
func (a *AppAuth) InstallationToken(ctx context.Context, installationID string) (*oauth2.Token, error) {
	if installationID == "" {
		return nil, fmt.Errorf("installation ID is required")
	}

	appJWT, err := a.AppJWT()
	if err != nil {
		return nil, err
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.requestTimeout)
		defer cancel()
	}

	u := fmt.Sprintf("%s/app/installations/%s/access_tokens", a.apiBaseURL, url.PathEscape(installationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", acceptHeader)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &vcsauth.NetworkError{Op: "issue installation", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return nil, &vcsauth.TransferError{
			Op:         "issue installation",
			StatusCode: resp.StatusCode,
			Status:     statusText(resp.StatusCode),
		}
	}

	var body struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode installation token response: %w", err)
	}
	if body.Token == "" {
		return nil, fmt.Errorf("installation token response missing token")
	}

	return &oauth2.Token{
		AccessToken: body.Token,
		TokenType:   "token",
		Expiry:      body.ExpiresAt,
	}, nil
}
