package vcsauth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/catalyst-dev/vcs-auth/internal/util"
	"github.com/catalyst-dev/vcs-auth/providers"
	"github.com/catalyst-dev/vcs-auth/storage"
)

// codeLogLength bounds how much of an authorization code reaches debug
// logs.
const codeLogLength = 8

// fanOutConcurrency bounds parallel per-repository listing calls.
const fanOutConcurrency = 5

// ScopedClient is the capability surface bound to one application user.
// Every call loads a valid credential for that user, refreshing it first
// when needed, and dispatches to the provider adapter. The caller never
// sees a token.
type ScopedClient struct {
	registry *Registry
	userID   string
}

// UserID returns the user this client acts for.
func (c *ScopedClient) UserID() string {
	return c.userID
}

// reconnectRequired reports whether err means the stored credential cannot
// be used or renewed without the user authorizing again.
func reconnectRequired(err error) bool {
	var grantErr *GrantError
	var authErr *AuthExpiredError
	return errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrNoRefreshToken) ||
		errors.As(err, &grantErr) ||
		errors.As(err, &authErr)
}

// wrapReconnect folds reconnect-class failures into the one sentinel the
// dashboard routes on. Other errors pass through untouched.
func wrapReconnect(providerID string, err error) error {
	if !reconnectRequired(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", providerID, ErrReconnectRequired, err)
}

// withProvider loads a valid access token for the user, runs fn with it,
// and retries exactly once with a forced refresh when the provider rejects
// the token as expired. fn may run twice and must be safe to re-run.
func (c *ScopedClient) withProvider(ctx context.Context, providerID string, fn func(p providers.Provider, token string) error) error {
	provider, err := c.registry.resolveProvider(providerID)
	if err != nil {
		return err
	}
	name := provider.Name()

	cred, err := c.registry.manager.GetValidCredential(ctx, c.userID, name)
	if err != nil {
		return wrapReconnect(name, err)
	}

	err = fn(provider, cred.AccessToken)
	if err == nil {
		return nil
	}
	var authErr *AuthExpiredError
	if !errors.As(err, &authErr) {
		return err
	}

	// The provider rejected a token our expiry bookkeeping considered
	// valid: revoked out-of-band, or rotated by another process after we
	// read it. Force one refresh and retry once.
	c.registry.logger.Debug("Access token rejected, forcing refresh",
		"user_id", c.userID,
		"provider", name,
		"status_code", authErr.StatusCode)
	cred, err = c.registry.manager.ForceRefresh(ctx, c.userID, name)
	if err != nil {
		return wrapReconnect(name, err)
	}

	err = fn(provider, cred.AccessToken)
	if err == nil {
		return nil
	}
	if errors.As(err, &authErr) {
		return wrapReconnect(name, err)
	}
	return err
}

// AuthorizationURL returns the provider's authorization page URL carrying
// the given state. The dashboard redirects the user there to start a
// connect flow.
func (c *ScopedClient) AuthorizationURL(providerID, state string) (string, error) {
	provider, err := c.registry.resolveProvider(providerID)
	if err != nil {
		return "", err
	}
	return provider.AuthorizationURL(state), nil
}

// Connect exchanges an authorization code and stores the resulting
// credential for this user. resourceID carries optional provider-scoped
// context captured during callback handling, such as a GitHub App
// installation id; pass "" when there is none. The stored credential is
// returned without token material ever reaching logs.
func (c *ScopedClient) Connect(ctx context.Context, providerID, code, resourceID string) (*storage.Credential, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is required")
	}
	provider, err := c.registry.resolveProvider(providerID)
	if err != nil {
		return nil, err
	}
	name := provider.Name()

	if c.registry.limiter != nil && !c.registry.limiter.Allow(c.userID) {
		if c.registry.metrics != nil {
			c.registry.metrics.RecordConnectRateLimited(ctx)
		}
		if c.registry.auditor != nil {
			c.registry.auditor.LogConnectRateLimited(c.userID, name)
		}
		return nil, ErrConnectRateLimited
	}

	c.registry.logger.Debug("Exchanging authorization code",
		"user_id", c.userID,
		"provider", name,
		"code_prefix", util.SafeTruncate(code, codeLogLength))

	start := time.Now()
	token, err := provider.ExchangeCode(ctx, code)
	durationMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		c.registry.logger.Error("Failed to exchange authorization code",
			"user_id", c.userID,
			"provider", name,
			"error", err)
		if c.registry.metrics != nil {
			c.registry.metrics.RecordCodeExchange(ctx, name, "error", durationMs)
		}
		return nil, err
	}
	if c.registry.metrics != nil {
		c.registry.metrics.RecordCodeExchange(ctx, name, "success", durationMs)
	}

	scope, _ := token.Extra("scope").(string)
	cred := &storage.Credential{
		UserID:       c.userID,
		ProviderID:   name,
		ResourceID:   resourceID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Scope:        scope,
		ExpiresAt:    token.Expiry,
	}
	if err := c.registry.store.Put(ctx, cred); err != nil {
		return nil, fmt.Errorf("storing credential: %w", err)
	}

	if c.registry.auditor != nil {
		c.registry.auditor.LogProviderConnected(c.userID, name, scope)
	}
	c.registry.logger.Info("Provider connected",
		"user_id", c.userID,
		"provider", name)

	return c.registry.store.Get(ctx, c.userID, name)
}

// Disconnect revokes the stored token at the provider when it can and
// deletes the credential. Revocation is best effort: local cleanup happens
// even when the provider call fails. Disconnecting a provider that was
// never connected is not an error.
func (c *ScopedClient) Disconnect(ctx context.Context, providerID string) error {
	provider, err := c.registry.resolveProvider(providerID)
	if err != nil {
		return err
	}
	name := provider.Name()

	cred, err := c.registry.store.Get(ctx, c.userID, name)
	switch {
	case errors.Is(err, storage.ErrCredentialNotFound):
		// Nothing stored; the delete below keeps the call idempotent.
	case err != nil:
		return fmt.Errorf("loading credential: %w", err)
	default:
		if err := provider.RevokeToken(ctx, cred.AccessToken); err != nil {
			c.registry.logger.Warn("Failed to revoke token at provider",
				"user_id", c.userID,
				"provider", name,
				"error", err)
		} else if c.registry.metrics != nil {
			c.registry.metrics.RecordTokenRevocation(ctx, name)
		}
	}

	if err := c.registry.store.Delete(ctx, c.userID, name); err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	if c.registry.auditor != nil {
		c.registry.auditor.LogProviderDisconnected(c.userID, name)
	}
	c.registry.logger.Info("Provider disconnected",
		"user_id", c.userID,
		"provider", name)
	return nil
}

// ConnectionStatus asks the provider whether the stored credential still
// works. A missing or dead credential is reported in the status, not as an
// error; only transport-level failures error out.
func (c *ScopedClient) ConnectionStatus(ctx context.Context, providerID string) (*providers.ConnectionStatus, error) {
	provider, err := c.registry.resolveProvider(providerID)
	if err != nil {
		return nil, err
	}
	name := provider.Name()

	cred, err := c.registry.manager.GetValidCredential(ctx, c.userID, name)
	if err != nil {
		if reconnectRequired(err) {
			return &providers.ConnectionStatus{Connected: false, Reason: err.Error()}, nil
		}
		return nil, err
	}

	status, err := provider.CheckConnection(ctx, cred.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("checking connection: %w", err)
	}
	return status, nil
}

// Status derives the stored credential's display status without any
// provider call.
func (c *ScopedClient) Status(ctx context.Context, providerID string) (CredentialStatus, error) {
	provider, err := c.registry.resolveProvider(providerID)
	if err != nil {
		return "", err
	}
	return c.registry.manager.Status(ctx, c.userID, provider.Name())
}

// ConnectionSummary describes one stored connection for display. It never
// carries token material.
type ConnectionSummary struct {
	ProviderID string           `json:"providerId"`
	ResourceID string           `json:"resourceId,omitempty"`
	Scope      string           `json:"scope,omitempty"`
	Status     CredentialStatus `json:"status"`
	ExpiresAt  time.Time        `json:"expiresAt"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// Connections lists the user's stored connections across all providers,
// ordered by provider id.
func (c *ScopedClient) Connections(ctx context.Context) ([]ConnectionSummary, error) {
	creds, err := c.registry.store.ListByUser(ctx, c.userID)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	summaries := make([]ConnectionSummary, 0, len(creds))
	for _, cred := range creds {
		summaries = append(summaries, ConnectionSummary{
			ProviderID: cred.ProviderID,
			ResourceID: cred.ResourceID,
			Scope:      cred.Scope,
			Status:     c.registry.manager.statusOf(cred),
			ExpiresAt:  cred.ExpiresAt,
			CreatedAt:  cred.CreatedAt,
			UpdatedAt:  cred.UpdatedAt,
		})
	}
	return summaries, nil
}

// ListRepositories lists repositories the user can reach.
func (c *ScopedClient) ListRepositories(ctx context.Context, providerID string, opts providers.ListRepositoriesOptions) ([]providers.Repository, error) {
	var repos []providers.Repository
	err := c.withProvider(ctx, providerID, func(p providers.Provider, token string) error {
		var err error
		repos, err = p.ListRepositories(ctx, token, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return repos, nil
}

// ListPullRequests lists pull requests in one repository.
func (c *ScopedClient) ListPullRequests(ctx context.Context, providerID, owner, repo string, opts providers.ListOptions) ([]providers.PullRequest, error) {
	var pulls []providers.PullRequest
	err := c.withProvider(ctx, providerID, func(p providers.Provider, token string) error {
		var err error
		pulls, err = p.ListPullRequests(ctx, token, owner, repo, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pulls, nil
}

// ListIssues lists issues in one repository.
func (c *ScopedClient) ListIssues(ctx context.Context, providerID, owner, repo string, opts providers.ListOptions) ([]providers.Issue, error) {
	var issues []providers.Issue
	err := c.withProvider(ctx, providerID, func(p providers.Provider, token string) error {
		var err error
		issues, err = p.ListIssues(ctx, token, owner, repo, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// CreateBranch creates a branch from fromBranch, or from the repository's
// default branch when fromBranch is empty.
func (c *ScopedClient) CreateBranch(ctx context.Context, providerID, owner, repo, branch, fromBranch string) (*providers.Branch, error) {
	var created *providers.Branch
	err := c.withProvider(ctx, providerID, func(p providers.Provider, token string) error {
		var err error
		created, err = p.CreateBranch(ctx, token, owner, repo, branch, fromBranch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreatePullRequest opens a pull request.
func (c *ScopedClient) CreatePullRequest(ctx context.Context, providerID, owner, repo string, req providers.CreatePullRequestRequest) (*providers.PullRequest, error) {
	var pr *providers.PullRequest
	err := c.withProvider(ctx, providerID, func(p providers.Provider, token string) error {
		var err error
		pr, err = p.CreatePullRequest(ctx, token, owner, repo, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pr, nil
}

// CreateIssue opens an issue.
func (c *ScopedClient) CreateIssue(ctx context.Context, providerID, owner, repo string, req providers.CreateIssueRequest) (*providers.Issue, error) {
	var issue *providers.Issue
	err := c.withProvider(ctx, providerID, func(p providers.Provider, token string) error {
		var err error
		issue, err = p.CreateIssue(ctx, token, owner, repo, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// UpdateFile creates or updates a file on a branch.
func (c *ScopedClient) UpdateFile(ctx context.Context, providerID, owner, repo string, req providers.UpdateFileRequest) (*providers.FileUpdate, error) {
	var update *providers.FileUpdate
	err := c.withProvider(ctx, providerID, func(p providers.Provider, token string) error {
		var err error
		update, err = p.UpdateFile(ctx, token, owner, repo, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return update, nil
}

// RepoError records one repository's failure during a cross-repository
// fan-out.
type RepoError struct {
	Repo string
	Err  error
}

func (e *RepoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Repo, e.Err)
}

func (e *RepoError) Unwrap() error {
	return e.Err
}

// PullRequestsAcrossRepos lists pull requests across every repository the
// user can reach, fanning out with bounded concurrency. One repository
// failing does not abort the rest: the returned slice holds everything
// that listed cleanly, ordered by repository and number, and the error
// joins one RepoError per failed repository (nil when all succeeded).
func (c *ScopedClient) PullRequestsAcrossRepos(ctx context.Context, providerID string, opts providers.ListOptions) ([]providers.PullRequest, error) {
	var all []providers.PullRequest
	var repoErrs []error

	err := c.withProvider(ctx, providerID, func(p providers.Provider, token string) error {
		repos, err := p.ListRepositories(ctx, token, providers.ListRepositoriesOptions{})
		if err != nil {
			return err
		}

		// A forced-refresh retry reruns this whole closure; start clean.
		all = all[:0]
		repoErrs = repoErrs[:0]

		var mu sync.Mutex
		var g errgroup.Group
		g.SetLimit(fanOutConcurrency)
		for _, repo := range repos {
			repo := repo
			g.Go(func() error {
				pulls, err := p.ListPullRequests(ctx, token, repo.Owner, repo.Name, opts)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					repoErrs = append(repoErrs, &RepoError{Repo: repo.FullName, Err: err})
					return nil
				}
				all = append(all, pulls...)
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Repository != all[j].Repository {
			return all[i].Repository < all[j].Repository
		}
		return all[i].Number < all[j].Number
	})
	return all, errors.Join(repoErrs...)
}
