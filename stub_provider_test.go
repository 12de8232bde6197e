package vcsauth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/catalyst-dev/vcs-auth/providers"
)

const (
	testUserID     = "user-1"
	testProviderID = "github"
)

// stubProvider is a configurable provider adapter for lifecycle tests.
// Unset Func fields fall back to benign defaults; call counters are safe
// for concurrent use.
type stubProvider struct {
	name string

	mu    sync.Mutex
	calls map[string]int

	AuthorizationURLFunc  func(state string) string
	ExchangeCodeFunc      func(ctx context.Context, code string) (*oauth2.Token, error)
	RefreshTokenFunc      func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	RevokeTokenFunc       func(ctx context.Context, accessToken string) error
	ListRepositoriesFunc  func(ctx context.Context, token string, opts providers.ListRepositoriesOptions) ([]providers.Repository, error)
	ListPullRequestsFunc  func(ctx context.Context, token, owner, repo string, opts providers.ListOptions) ([]providers.PullRequest, error)
	ListIssuesFunc        func(ctx context.Context, token, owner, repo string, opts providers.ListOptions) ([]providers.Issue, error)
	CreateBranchFunc      func(ctx context.Context, token, owner, repo, branch, fromBranch string) (*providers.Branch, error)
	CreatePullRequestFunc func(ctx context.Context, token, owner, repo string, req providers.CreatePullRequestRequest) (*providers.PullRequest, error)
	CreateIssueFunc       func(ctx context.Context, token, owner, repo string, req providers.CreateIssueRequest) (*providers.Issue, error)
	UpdateFileFunc        func(ctx context.Context, token, owner, repo string, req providers.UpdateFileRequest) (*providers.FileUpdate, error)
	CheckConnectionFunc   func(ctx context.Context, token string) (*providers.ConnectionStatus, error)
}

var _ providers.Provider = (*stubProvider)(nil)

func newStubProvider(name string) *stubProvider {
	return &stubProvider{name: name, calls: make(map[string]int)}
}

func (s *stubProvider) bump(method string) {
	s.mu.Lock()
	s.calls[method]++
	s.mu.Unlock()
}

func (s *stubProvider) callCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *stubProvider) Name() string {
	return s.name
}

func (s *stubProvider) DisplayName() string {
	return "Stub"
}

func (s *stubProvider) AuthorizationURL(state string) string {
	s.bump("AuthorizationURL")
	if s.AuthorizationURLFunc != nil {
		return s.AuthorizationURLFunc(state)
	}
	return "https://stub.example.com/authorize?state=" + state
}

func (s *stubProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	s.bump("ExchangeCode")
	if s.ExchangeCodeFunc != nil {
		return s.ExchangeCodeFunc(ctx, code)
	}
	token := &oauth2.Token{
		AccessToken:  "exchanged-access",
		TokenType:    "bearer",
		RefreshToken: "exchanged-refresh",
		Expiry:       time.Now().Add(8 * time.Hour),
	}
	return token.WithExtra(map[string]interface{}{"scope": "repo read:user"}), nil
}

func (s *stubProvider) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	s.bump("RefreshToken")
	if s.RefreshTokenFunc != nil {
		return s.RefreshTokenFunc(ctx, refreshToken)
	}
	return &oauth2.Token{
		AccessToken:  "refreshed-access",
		TokenType:    "bearer",
		RefreshToken: "refreshed-refresh",
		Expiry:       time.Now().Add(8 * time.Hour),
	}, nil
}

func (s *stubProvider) RevokeToken(ctx context.Context, accessToken string) error {
	s.bump("RevokeToken")
	if s.RevokeTokenFunc != nil {
		return s.RevokeTokenFunc(ctx, accessToken)
	}
	return nil
}

func (s *stubProvider) ListRepositories(ctx context.Context, token string, opts providers.ListRepositoriesOptions) ([]providers.Repository, error) {
	s.bump("ListRepositories")
	if s.ListRepositoriesFunc != nil {
		return s.ListRepositoriesFunc(ctx, token, opts)
	}
	return nil, nil
}

func (s *stubProvider) ListPullRequests(ctx context.Context, token, owner, repo string, opts providers.ListOptions) ([]providers.PullRequest, error) {
	s.bump("ListPullRequests")
	if s.ListPullRequestsFunc != nil {
		return s.ListPullRequestsFunc(ctx, token, owner, repo, opts)
	}
	return nil, nil
}

func (s *stubProvider) ListIssues(ctx context.Context, token, owner, repo string, opts providers.ListOptions) ([]providers.Issue, error) {
	s.bump("ListIssues")
	if s.ListIssuesFunc != nil {
		return s.ListIssuesFunc(ctx, token, owner, repo, opts)
	}
	return nil, nil
}

func (s *stubProvider) CreateBranch(ctx context.Context, token, owner, repo, branch, fromBranch string) (*providers.Branch, error) {
	s.bump("CreateBranch")
	if s.CreateBranchFunc != nil {
		return s.CreateBranchFunc(ctx, token, owner, repo, branch, fromBranch)
	}
	return &providers.Branch{Name: branch}, nil
}

func (s *stubProvider) CreatePullRequest(ctx context.Context, token, owner, repo string, req providers.CreatePullRequestRequest) (*providers.PullRequest, error) {
	s.bump("CreatePullRequest")
	if s.CreatePullRequestFunc != nil {
		return s.CreatePullRequestFunc(ctx, token, owner, repo, req)
	}
	return &providers.PullRequest{Number: 1, Title: req.Title}, nil
}

func (s *stubProvider) CreateIssue(ctx context.Context, token, owner, repo string, req providers.CreateIssueRequest) (*providers.Issue, error) {
	s.bump("CreateIssue")
	if s.CreateIssueFunc != nil {
		return s.CreateIssueFunc(ctx, token, owner, repo, req)
	}
	return &providers.Issue{Number: 1, Title: req.Title}, nil
}

func (s *stubProvider) UpdateFile(ctx context.Context, token, owner, repo string, req providers.UpdateFileRequest) (*providers.FileUpdate, error) {
	s.bump("UpdateFile")
	if s.UpdateFileFunc != nil {
		return s.UpdateFileFunc(ctx, token, owner, repo, req)
	}
	return &providers.FileUpdate{Path: req.Path, Branch: req.Branch}, nil
}

func (s *stubProvider) CheckConnection(ctx context.Context, token string) (*providers.ConnectionStatus, error) {
	s.bump("CheckConnection")
	if s.CheckConnectionFunc != nil {
		return s.CheckConnectionFunc(ctx, token)
	}
	return &providers.ConnectionStatus{Connected: true, Login: "stub-user"}, nil
}

// testResolver resolves exactly one provider by name.
func testResolver(p providers.Provider) func(string) (providers.Provider, error) {
	return func(providerID string) (providers.Provider, error) {
		if providerID == p.Name() {
			return p, nil
		}
		return nil, fmt.Errorf("%q: %w", providerID, ErrUnknownProvider)
	}
}
