package providers

import (
	"context"

	"golang.org/x/oauth2"
)

// Provider is the capability interface implemented by each version control
// provider adapter. All blocking methods take a context and respect its
// deadline; adapters add a bounded timeout when the caller did not set one.
//
// Capability calls that fail because the access token is expired or revoked
// return an error that unwraps to *vcsauth.AuthExpiredError, so callers can
// prompt for reconnection instead of reporting a generic failure.
type Provider interface {
	// Name returns the stable provider id (e.g. "github"). It is the key
	// credentials are stored under and must never change for a deployment.
	Name() string

	// DisplayName returns the human-readable provider name (e.g. "GitHub").
	DisplayName() string

	// AuthorizationURL generates the URL to redirect a user to for
	// authorization. The state value is round-tripped through the provider
	// for CSRF protection; the caller is responsible for generating and
	// verifying it.
	AuthorizationURL(state string) string

	// ExchangeCode exchanges an authorization code for tokens.
	// The returned token carries the granted scope under Extra("scope").
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// RefreshToken exchanges a refresh token for a new token pair. Providers
	// that rotate refresh tokens return the replacement in the result.
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	// RevokeToken revokes an access token at the provider. Revocation is
	// best-effort: an already-invalid token is not an error.
	RevokeToken(ctx context.Context, accessToken string) error

	// ListRepositories lists repositories the token's user has access to.
	ListRepositories(ctx context.Context, token string, opts ListRepositoriesOptions) ([]Repository, error)

	// ListPullRequests lists pull requests for one repository.
	ListPullRequests(ctx context.Context, token, owner, repo string, opts ListOptions) ([]PullRequest, error)

	// ListIssues lists issues for one repository. Entries that are pull
	// requests in the provider's data model are excluded.
	ListIssues(ctx context.Context, token, owner, repo string, opts ListOptions) ([]Issue, error)

	// CreateBranch creates a branch pointing at the head of fromBranch.
	// An empty fromBranch means the repository's default branch.
	CreateBranch(ctx context.Context, token, owner, repo, branch, fromBranch string) (*Branch, error)

	// CreatePullRequest opens a pull request and returns at least its
	// number and HTML URL.
	CreatePullRequest(ctx context.Context, token, owner, repo string, req CreatePullRequestRequest) (*PullRequest, error)

	// CreateIssue opens an issue and returns at least its number and
	// HTML URL.
	CreateIssue(ctx context.Context, token, owner, repo string, req CreateIssueRequest) (*Issue, error)

	// UpdateFile creates or updates one file on a branch in a single
	// commit. When the file already exists, the adapter resolves its
	// current blob SHA first so the write applies cleanly.
	UpdateFile(ctx context.Context, token, owner, repo string, req UpdateFileRequest) (*FileUpdate, error)

	// CheckConnection verifies the token against the provider. It never
	// returns an error for an auth failure; it reports Connected: false
	// with a reason instead. Errors are reserved for transport failures
	// and unexpected responses.
	CheckConnection(ctx context.Context, token string) (*ConnectionStatus, error)
}
