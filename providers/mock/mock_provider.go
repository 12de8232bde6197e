// Package mock provides a Provider implementation backed by fixed in-memory
// data, so the whole application can run with zero network access in tests
// and local development.
package mock

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/catalyst-dev/vcs-auth/providers"
)

// Compile-time check that Provider implements the providers.Provider interface.
var _ providers.Provider = (*Provider)(nil)

const (
	providerName        = "mock"
	providerDisplayName = "Mock"
)

// tokenValidity mirrors the eight hour window of real user-to-server tokens
// so lifecycle behavior is exercised realistically.
const tokenValidity = 8 * time.Hour

// Provider implements providers.Provider over fixed in-memory data. Create
// and update calls mutate that data, so a created pull request shows up in
// the next listing. Issued tokens rotate on every exchange and refresh.
// All methods are safe for concurrent use and perform no network I/O.
type Provider struct {
	mu           sync.Mutex
	repos        []providers.Repository
	pulls        map[string][]providers.PullRequest
	issues       map[string][]providers.Issue
	branches     map[string][]providers.Branch
	files        map[string][]byte
	nextNumber   map[string]int
	tokenSerial  int
	commitSerial int
	connected    bool
	login        string
	calls        map[string]int
}

// NewProvider creates a mock provider seeded with two repositories, an open
// pull request and an open issue.
func NewProvider() *Provider {
	p := &Provider{
		pulls:      make(map[string][]providers.PullRequest),
		issues:     make(map[string][]providers.Issue),
		branches:   make(map[string][]providers.Branch),
		files:      make(map[string][]byte),
		nextNumber: make(map[string]int),
		calls:      make(map[string]int),
		connected:  true,
		login:      "mock-user",
	}
	p.seed()
	return p
}

func (p *Provider) seed() {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	p.repos = []providers.Repository{
		{
			ID:            1,
			Name:          "hello-world",
			FullName:      "mock-user/hello-world",
			Owner:         "mock-user",
			Private:       false,
			DefaultBranch: "main",
			Description:   "Fixture repository",
			HTMLURL:       "https://mock.example.com/mock-user/hello-world",
		},
		{
			ID:            2,
			Name:          "dash-widgets",
			FullName:      "mock-user/dash-widgets",
			Owner:         "mock-user",
			Private:       true,
			DefaultBranch: "main",
			HTMLURL:       "https://mock.example.com/mock-user/dash-widgets",
		},
	}

	p.branches["mock-user/hello-world"] = []providers.Branch{
		{Name: "main", SHA: p.nextCommitSHA()},
		{Name: "develop", SHA: p.nextCommitSHA()},
	}
	p.branches["mock-user/dash-widgets"] = []providers.Branch{
		{Name: "main", SHA: p.nextCommitSHA()},
	}

	p.pulls["mock-user/hello-world"] = []providers.PullRequest{
		{
			Number:     1,
			Title:      "Add welcome banner",
			State:      providers.StateOpen,
			Author:     "mock-user",
			HeadRef:    "develop",
			BaseRef:    "main",
			HTMLURL:    "https://mock.example.com/mock-user/hello-world/pull/1",
			CreatedAt:  now,
			UpdatedAt:  now,
			Repository: "mock-user/hello-world",
		},
	}
	p.issues["mock-user/hello-world"] = []providers.Issue{
		{
			Number:    2,
			Title:     "Banner overlaps menu",
			State:     providers.StateOpen,
			Author:    "mock-user",
			Labels:    []string{"bug"},
			HTMLURL:   "https://mock.example.com/mock-user/hello-world/issues/2",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	// Pull requests and issues share one number space per repository.
	p.nextNumber["mock-user/hello-world"] = 3
	p.nextNumber["mock-user/dash-widgets"] = 1
}

// nextCommitSHA mints a deterministic 40-hex-digit fake commit id.
// Callers must hold p.mu (or be inside construction).
func (p *Provider) nextCommitSHA() string {
	p.commitSerial++
	return fmt.Sprintf("%040x", p.commitSerial)
}

func (p *Provider) bump(method string) {
	p.calls[method]++
}

// Calls returns how many times a method was invoked.
func (p *Provider) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

// ResetCalls clears all call counters.
func (p *Provider) ResetCalls() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = make(map[string]int)
}

// SetConnected flips what CheckConnection reports, simulating out-of-band
// revocation.
func (p *Provider) SetConnected(connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = connected
}

// FileContent returns the stored content of a file written via UpdateFile.
func (p *Provider) FileContent(owner, repo, branch, path string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	content, ok := p.files[fileKey(owner, repo, branch, path)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), content...), true
}

func repoKey(owner, repo string) string {
	return owner + "/" + repo
}

func fileKey(owner, repo, branch, path string) string {
	return owner + "/" + repo + "#" + branch + "#" + path
}

// findRepo returns the seeded repository or an error. Callers hold p.mu.
func (p *Provider) findRepo(owner, repo string) (*providers.Repository, error) {
	key := repoKey(owner, repo)
	for i := range p.repos {
		if p.repos[i].FullName == key {
			return &p.repos[i], nil
		}
	}
	return nil, fmt.Errorf("mock: repository %s not found", key)
}

func matchState(state, want string) bool {
	return want == providers.StateAll || state == want
}

// Name returns the stable provider id.
func (p *Provider) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bump("Name")
	return providerName
}

// DisplayName returns the human-readable provider name.
func (p *Provider) DisplayName() string {
	return providerDisplayName
}

// AuthorizationURL returns a stable fake authorization URL carrying the
// state value.
func (p *Provider) AuthorizationURL(state string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bump("AuthorizationURL")
	return "https://mock.example.com/oauth/authorize?state=" + url.QueryEscape(state)
}

// ExchangeCode issues a fresh token pair for any non-empty code.
func (p *Provider) ExchangeCode(_ context.Context, code string) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bump("ExchangeCode")

	if code == "" {
		return nil, fmt.Errorf("mock: authorization code is required")
	}
	p.connected = true
	return p.issueToken(), nil
}

// RefreshToken rotates the token pair for any non-empty refresh token.
func (p *Provider) RefreshToken(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bump("RefreshToken")

	if refreshToken == "" {
		return nil, fmt.Errorf("mock: refresh token is required")
	}
	return p.issueToken(), nil
}

// issueToken mints the next token pair. Callers hold p.mu.
func (p *Provider) issueToken() *oauth2.Token {
	p.tokenSerial++
	token := &oauth2.Token{
		AccessToken:  fmt.Sprintf("mock-access-%d", p.tokenSerial),
		TokenType:    "bearer",
		RefreshToken: fmt.Sprintf("mock-refresh-%d", p.tokenSerial),
		Expiry:       time.Now().Add(tokenValidity),
	}
	return token.WithExtra(map[string]interface{}{
		"scope": "repo read:user",
	})
}

// RevokeToken marks the connection revoked; CheckConnection reports it.
func (p *Provider) RevokeToken(_ context.Context, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bump("RevokeToken")
	p.connected = false
	return nil
}

// ListRepositories returns the seeded repositories.
func (p *Provider) ListRepositories(_ context.Context, _ string, _ providers.ListRepositoriesOptions) ([]providers.Repository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bump("ListRepositories")

	repos := make([]providers.Repository, len(p.repos))
	copy(repos, p.repos)
	return repos, nil
}

// ListPullRequests returns pull requests matching the state filter.
func (p *Provider) ListPullRequests(_ context.Context, _ string, owner, repo string, opts providers.ListOptions) ([]providers.PullRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bump("ListPullRequests")

	if _, err := p.findRepo(owner, repo); err != nil {
		return nil, err
	}
	opts = providers.NormalizeListOptions(opts)

	var pulls []providers.PullRequest
	for _, pr := range p.pulls[repoKey(owner, repo)] {
		if matchState(pr.State, opts.State) {
			pulls = append(pulls, pr)
		}
	}
	return pulls, nil
}

// ListIssues returns issues matching the state filter.
func (p *Provider) ListIssues(_ context.Context, _ string, owner, repo string, opts providers.ListOptions) ([]providers.Issue, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bump("ListIssues")

	if _, err := p.findRepo(owner, repo); err != nil {
		return nil, err
	}
	opts = providers.NormalizeListOptions(opts)

	var issues []providers.Issue
	for _, issue := range p.issues[repoKey(owner, repo)] {
		if matchState(issue.State, opts.State) {
			issue.Labels = append([]string(nil), issue.Labels...)
			issues = append(issues, issue)
		}
	}
	return issues, nil
}

// CreateBranch creates a branch from the head of fromBranch. An empty
// fromBranch means the repository's default branch.
func (p *Provider) CreateBranch(_ context.Context, _ string, owner, repo, branch, fromBranch string) (*providers.Branch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bump("CreateBranch")

	if branch == "" {
		return nil, fmt.Errorf("mock: branch name is required")
	}
	repoInfo, err := p.findRepo(owner, repo)
	if err != nil {
		return nil, err
	}
	if fromBranch == "" {
		fromBranch = repoInfo.DefaultBranch
	}

	key := repoKey(owner, repo)
	var source *providers.Branch
	for i := range p.branches[key] {
		b := &p.branches[key][i]
		if b.Name == branch {
			return nil, fmt.Errorf("mock: branch %s already exists", branch)
		}
		if b.Name == fromBranch {
			source = b
		}
	}
	if source == nil {
		return nil, fmt.Errorf("mock: branch %s not found", fromBranch)
	}

	created := providers.Branch{Name: branch, SHA: source.SHA}
	p.branches[key] = append(p.branches[key], created)
	return &created, nil
}

// CreatePullRequest opens a pull request and makes it visible to later
// listings.
func (p *Provider) CreatePullRequest(_ context.Context, _ string, owner, repo string, req providers.CreatePullRequestRequest) (*providers.PullRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bump("CreatePullRequest")

	if req.Title == "" || req.Head == "" || req.Base == "" {
		return nil, fmt.Errorf("mock: title, head and base are required")
	}
	if _, err := p.findRepo(owner, repo); err != nil {
		return nil, err
	}

	key := repoKey(owner, repo)
	number := p.takeNumber(key)
	now := time.Now().UTC()
	pr := providers.PullRequest{
		Number:     number,
		Title:      req.Title,
		State:      providers.StateOpen,
		Body:       req.Body,
		Author:     p.login,
		HeadRef:    req.Head,
		BaseRef:    req.Base,
		Draft:      req.Draft,
		HTMLURL:    fmt.Sprintf("https://mock.example.com/%s/pull/%d", key, number),
		CreatedAt:  now,
		UpdatedAt:  now,
		Repository: key,
	}
	p.pulls[key] = append(p.pulls[key], pr)
	return &pr, nil
}

// CreateIssue opens an issue and makes it visible to later listings.
func (p *Provider) CreateIssue(_ context.Context, _ string, owner, repo string, req providers.CreateIssueRequest) (*providers.Issue, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bump("CreateIssue")

	if req.Title == "" {
		return nil, fmt.Errorf("mock: title is required")
	}
	if _, err := p.findRepo(owner, repo); err != nil {
		return nil, err
	}

	key := repoKey(owner, repo)
	number := p.takeNumber(key)
	now := time.Now().UTC()
	issue := providers.Issue{
		Number:    number,
		Title:     req.Title,
		State:     providers.StateOpen,
		Body:      req.Body,
		Author:    p.login,
		Labels:    append([]string(nil), req.Labels...),
		HTMLURL:   fmt.Sprintf("https://mock.example.com/%s/issues/%d", key, number),
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.issues[key] = append(p.issues[key], issue)

	result := issue
	result.Labels = append([]string(nil), issue.Labels...)
	return &result, nil
}

// takeNumber hands out the next number in the repository's shared pull
// request and issue number space. Callers hold p.mu.
func (p *Provider) takeNumber(key string) int {
	number := p.nextNumber[key]
	if number == 0 {
		number = 1
	}
	p.nextNumber[key] = number + 1
	return number
}

// UpdateFile stores the file content and mints a fake commit.
func (p *Provider) UpdateFile(_ context.Context, _ string, owner, repo string, req providers.UpdateFileRequest) (*providers.FileUpdate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bump("UpdateFile")

	if req.Path == "" || req.Branch == "" || req.Message == "" {
		return nil, fmt.Errorf("mock: path, branch and message are required")
	}
	if _, err := p.findRepo(owner, repo); err != nil {
		return nil, err
	}

	p.files[fileKey(owner, repo, req.Branch, req.Path)] = append([]byte(nil), req.Content...)
	sha := p.nextCommitSHA()
	return &providers.FileUpdate{
		Path:      req.Path,
		Branch:    req.Branch,
		CommitSHA: sha,
		HTMLURL:   fmt.Sprintf("https://mock.example.com/%s/commit/%s", repoKey(owner, repo), sha),
	}, nil
}

// CheckConnection reports the simulated connection state. It never returns
// an error for auth failure.
func (p *Provider) CheckConnection(_ context.Context, _ string) (*providers.ConnectionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bump("CheckConnection")

	if !p.connected {
		return &providers.ConnectionStatus{Connected: false, Reason: "credential revoked"}, nil
	}
	return &providers.ConnectionStatus{Connected: true, Login: p.login}, nil
}
