package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	vcsauth "github.com/catalyst-dev/vcs-auth"
)

// maxTokenBodySize bounds how much of a token endpoint response is read.
const maxTokenBodySize = 1 << 20

// tokenResponse is the GitHub token endpoint response body. GitHub reports
// grant failures through the error/error_description pair, frequently with
// a 200 status, so the success and error channels share one shape.
type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	RefreshToken          string `json:"refresh_token"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	Scope                 string `json:"scope"`
	Error                 string `json:"error"`
	ErrorDescription      string `json:"error_description"`
	ErrorURI              string `json:"error_uri"`
}

// ExchangeCode exchanges an authorization code for tokens. The returned
// token carries the granted scope under Extra("scope").
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	form := url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}
	if p.RedirectURL != "" {
		form.Set("redirect_uri", p.RedirectURL)
	}
	return p.requestToken(ctx, "exchange", form)
}

// RefreshToken exchanges a refresh token for a new token pair. GitHub
// rotates refresh tokens: the response carries a replacement that
// invalidates the one just used.
func (p *Provider) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return p.requestToken(ctx, "refresh", form)
}

// requestToken performs one POST to the token endpoint and classifies the
// response:
//   - transport failure: *vcsauth.NetworkError, never retried here;
//   - body with an error field (any status): *vcsauth.GrantError;
//   - non-2xx without a usable body: *vcsauth.TransferError.
func (p *Provider) requestToken(ctx context.Context, op string, form url.Values) (*oauth2.Token, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	form.Set("client_id", p.ClientID)
	form.Set("client_secret", p.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &vcsauth.NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBodySize))
	if err != nil {
		return nil, &vcsauth.NetworkError{Op: op, Err: err}
	}

	// Best-effort parse; classification below handles unusable bodies.
	var tr tokenResponse
	_ = json.Unmarshal(body, &tr)

	if tr.Error != "" {
		return nil, &vcsauth.GrantError{
			Provider:    providerDisplayName,
			Op:          op,
			Code:        tr.Error,
			Description: tr.ErrorDescription,
		}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &vcsauth.TransferError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     statusText(resp.StatusCode),
		}
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%s token response missing access_token", op)
	}

	return p.buildToken(&tr), nil
}

// buildToken converts a token endpoint response into an oauth2.Token,
// computing a local expiry from the configured validity window when the
// response carries no expires_in.
func (p *Provider) buildToken(tr *tokenResponse) *oauth2.Token {
	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}

	token := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tokenType,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else {
		token.Expiry = time.Now().Add(p.expiryWindow)
	}

	return token.WithExtra(map[string]interface{}{
		"scope": tr.Scope,
	})
}

// RevokeToken revokes an OAuth access token. GitHub exposes revocation
// under the application endpoints, authenticated with the client
// credentials rather than the token itself. An already-invalid token (404)
// is not an error, so disconnects stay idempotent.
func (p *Provider) RevokeToken(ctx context.Context, accessToken string) error {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"access_token": accessToken})
	if err != nil {
		return fmt.Errorf("failed to encode revoke request: %w", err)
	}

	u := fmt.Sprintf("%s/applications/%s/token", p.apiBaseURL, url.PathEscape(p.ClientID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.SetBasicAuth(p.ClientID, p.ClientSecret)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &vcsauth.NetworkError{Op: "revoke", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return &vcsauth.TransferError{
			Op:         "revoke",
			StatusCode: resp.StatusCode,
			Status:     statusText(resp.StatusCode),
		}
	}
}

// statusText returns the standard status text, falling back to the numeric
// code for non-standard statuses.
func statusText(statusCode int) string {
	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return strconv.Itoa(statusCode)
}
