package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	vcsauth "github.com/catalyst-dev/vcs-auth"
	"github.com/catalyst-dev/vcs-auth/providers"
)

// maxAPIErrorBodySize bounds how much of an error response body is read.
const maxAPIErrorBodySize = 64 << 10

// APIError is a GitHub API failure that is neither a transport failure nor
// an auth rejection.
type APIError struct {
	// Method and Path identify the failed request.
	Method string
	Path   string

	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Message is GitHub's error message, when the body carried one.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("github: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github: %s %s returned %d", e.Method, e.Path, e.StatusCode)
}

// ghRepository is the wire shape of a repository.
type ghRepository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	Description   string `json:"description"`
	HTMLURL       string `json:"html_url"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (r *ghRepository) toRepository() providers.Repository {
	return providers.Repository{
		ID:            r.ID,
		Name:          r.Name,
		FullName:      r.FullName,
		Owner:         r.Owner.Login,
		Private:       r.Private,
		DefaultBranch: r.DefaultBranch,
		Description:   r.Description,
		HTMLURL:       r.HTMLURL,
	}
}

// ghPullRequest is the wire shape of a pull request.
type ghPullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	Body    string `json:"body"`
	Draft   bool   `json:"draft"`
	HTMLURL string `json:"html_url"`
	User    struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		Ref string `json:"ref"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (pr *ghPullRequest) toPullRequest(repository string) providers.PullRequest {
	return providers.PullRequest{
		Number:     pr.Number,
		Title:      pr.Title,
		State:      pr.State,
		Body:       pr.Body,
		Author:     pr.User.Login,
		HeadRef:    pr.Head.Ref,
		BaseRef:    pr.Base.Ref,
		Draft:      pr.Draft,
		HTMLURL:    pr.HTMLURL,
		CreatedAt:  pr.CreatedAt,
		UpdatedAt:  pr.UpdatedAt,
		Repository: repository,
	}
}

// ghIssue is the wire shape of an issue. The PullRequest field is set when
// the entry is actually a pull request; GitHub's issues listing includes
// both.
type ghIssue struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	User    struct {
		Login string `json:"login"`
	} `json:"user"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	PullRequest *struct{} `json:"pull_request"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (i *ghIssue) toIssue() providers.Issue {
	var labels []string
	for _, l := range i.Labels {
		labels = append(labels, l.Name)
	}
	return providers.Issue{
		Number:    i.Number,
		Title:     i.Title,
		State:     i.State,
		Body:      i.Body,
		Author:    i.User.Login,
		Labels:    labels,
		HTMLURL:   i.HTMLURL,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

// ghRef is the wire shape of a git reference.
type ghRef struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

// newAPIRequest builds a REST request with auth and accept headers set.
// A non-nil body is JSON-encoded.
func (p *Provider) newAPIRequest(ctx context.Context, token, method, urlStr string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", acceptHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doJSON performs req and decodes a 2xx response into out when out is
// non-nil. Auth rejections map to *vcsauth.AuthExpiredError; other non-2xx
// responses map to *APIError. The response body is always consumed here;
// the returned response is only good for its headers (pagination links).
func (p *Provider) doJSON(req *http.Request, out interface{}) (*http.Response, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, fmt.Errorf("failed to decode response: %w", err)
			}
		} else {
			_, _ = io.Copy(io.Discard, resp.Body)
		}
		return resp, nil
	}

	message := parseErrorMessage(resp.Body)
	if authExpired(resp.StatusCode, message) {
		return nil, &vcsauth.AuthExpiredError{
			Provider:   providerDisplayName,
			StatusCode: resp.StatusCode,
		}
	}
	return nil, &APIError{
		Method:     req.Method,
		Path:       req.URL.Path,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// getJSON is the GET convenience over newAPIRequest and doJSON.
func (p *Provider) getJSON(ctx context.Context, token, urlStr string, out interface{}) (*http.Response, error) {
	req, err := p.newAPIRequest(ctx, token, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	return p.doJSON(req, out)
}

// sendJSON is the write convenience over newAPIRequest and doJSON.
func (p *Provider) sendJSON(ctx context.Context, token, method, urlStr string, body, out interface{}) error {
	req, err := p.newAPIRequest(ctx, token, method, urlStr, body)
	if err != nil {
		return err
	}
	_, err = p.doJSON(req, out)
	return err
}

// parseErrorMessage extracts GitHub's message field from an error body.
func parseErrorMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(r, maxAPIErrorBodySize)).Decode(&body)
	return body.Message
}

// authExpired reports whether a rejection means the credential itself is
// dead. 401 always does. GitHub uses 403 for several unrelated conditions
// (rate limits, SSO enforcement), so 403 counts only when the body says the
// token was revoked.
func authExpired(statusCode int, message string) bool {
	switch statusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return strings.Contains(strings.ToLower(message), "revoked")
	default:
		return false
	}
}

// linkNextRE matches the rel="next" entry of a Link header.
var linkNextRE = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// nextPageURL extracts the rel="next" target from a Link header. It returns
// an empty string on the last page.
func nextPageURL(linkHeader string) string {
	m := linkNextRE.FindStringSubmatch(linkHeader)
	if m == nil {
		return ""
	}
	return m[1]
}

// escapePath escapes each segment of a repository-relative path, keeping
// the separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// ListRepositories lists repositories the token's user has access to,
// following pagination links up to the configured page bound.
func (p *Provider) ListRepositories(ctx context.Context, token string, opts providers.ListRepositoriesOptions) ([]providers.Repository, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()
	opts = providers.NormalizeRepositoryOptions(opts)

	q := url.Values{}
	q.Set("per_page", strconv.Itoa(opts.PerPage))
	if opts.Affiliation != "" {
		q.Set("affiliation", opts.Affiliation)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}

	var repos []providers.Repository
	u := fmt.Sprintf("%s/user/repos?%s", p.apiBaseURL, q.Encode())
	for page := 0; u != "" && page < opts.MaxPages; page++ {
		var pageRepos []ghRepository
		resp, err := p.getJSON(ctx, token, u, &pageRepos)
		if err != nil {
			return nil, fmt.Errorf("listing repositories: %w", err)
		}
		for i := range pageRepos {
			repos = append(repos, pageRepos[i].toRepository())
		}
		u = nextPageURL(resp.Header.Get("Link"))
	}
	return repos, nil
}

// ListPullRequests lists pull requests for one repository.
func (p *Provider) ListPullRequests(ctx context.Context, token, owner, repo string, opts providers.ListOptions) ([]providers.PullRequest, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()
	opts = providers.NormalizeListOptions(opts)

	q := url.Values{}
	q.Set("state", opts.State)
	q.Set("per_page", strconv.Itoa(opts.PerPage))

	repository := owner + "/" + repo
	var pulls []providers.PullRequest
	u := fmt.Sprintf("%s/repos/%s/%s/pulls?%s", p.apiBaseURL, url.PathEscape(owner), url.PathEscape(repo), q.Encode())
	for page := 0; u != "" && page < opts.MaxPages; page++ {
		var pagePulls []ghPullRequest
		resp, err := p.getJSON(ctx, token, u, &pagePulls)
		if err != nil {
			return nil, fmt.Errorf("listing pull requests for %s: %w", repository, err)
		}
		for i := range pagePulls {
			pulls = append(pulls, pagePulls[i].toPullRequest(repository))
		}
		u = nextPageURL(resp.Header.Get("Link"))
	}
	return pulls, nil
}

// ListIssues lists issues for one repository. GitHub's issues listing
// includes pull requests; those entries are dropped.
func (p *Provider) ListIssues(ctx context.Context, token, owner, repo string, opts providers.ListOptions) ([]providers.Issue, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()
	opts = providers.NormalizeListOptions(opts)

	q := url.Values{}
	q.Set("state", opts.State)
	q.Set("per_page", strconv.Itoa(opts.PerPage))

	var issues []providers.Issue
	u := fmt.Sprintf("%s/repos/%s/%s/issues?%s", p.apiBaseURL, url.PathEscape(owner), url.PathEscape(repo), q.Encode())
	for page := 0; u != "" && page < opts.MaxPages; page++ {
		var pageIssues []ghIssue
		resp, err := p.getJSON(ctx, token, u, &pageIssues)
		if err != nil {
			return nil, fmt.Errorf("listing issues for %s/%s: %w", owner, repo, err)
		}
		for i := range pageIssues {
			if pageIssues[i].PullRequest != nil {
				continue
			}
			issues = append(issues, pageIssues[i].toIssue())
		}
		u = nextPageURL(resp.Header.Get("Link"))
	}
	return issues, nil
}

// CreateBranch creates a branch pointing at the head of fromBranch. An
// empty fromBranch means the repository's default branch, resolved with an
// extra lookup.
func (p *Provider) CreateBranch(ctx context.Context, token, owner, repo, branch, fromBranch string) (*providers.Branch, error) {
	if branch == "" {
		return nil, fmt.Errorf("branch name is required")
	}

	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	if fromBranch == "" {
		var repoInfo ghRepository
		u := fmt.Sprintf("%s/repos/%s/%s", p.apiBaseURL, url.PathEscape(owner), url.PathEscape(repo))
		if _, err := p.getJSON(ctx, token, u, &repoInfo); err != nil {
			return nil, fmt.Errorf("resolving default branch for %s/%s: %w", owner, repo, err)
		}
		fromBranch = repoInfo.DefaultBranch
	}

	var head ghRef
	u := fmt.Sprintf("%s/repos/%s/%s/git/ref/%s", p.apiBaseURL, url.PathEscape(owner), url.PathEscape(repo), escapePath("heads/"+fromBranch))
	if _, err := p.getJSON(ctx, token, u, &head); err != nil {
		return nil, fmt.Errorf("resolving head of %s: %w", fromBranch, err)
	}

	payload := map[string]string{
		"ref": "refs/heads/" + branch,
		"sha": head.Object.SHA,
	}
	var created ghRef
	u = fmt.Sprintf("%s/repos/%s/%s/git/refs", p.apiBaseURL, url.PathEscape(owner), url.PathEscape(repo))
	if err := p.sendJSON(ctx, token, http.MethodPost, u, payload, &created); err != nil {
		return nil, fmt.Errorf("creating branch %s: %w", branch, err)
	}

	return &providers.Branch{Name: branch, SHA: created.Object.SHA}, nil
}

// CreatePullRequest opens a pull request.
func (p *Provider) CreatePullRequest(ctx context.Context, token, owner, repo string, req providers.CreatePullRequestRequest) (*providers.PullRequest, error) {
	if req.Title == "" || req.Head == "" || req.Base == "" {
		return nil, fmt.Errorf("title, head and base are required")
	}

	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	payload := map[string]interface{}{
		"title": req.Title,
		"head":  req.Head,
		"base":  req.Base,
	}
	if req.Body != "" {
		payload["body"] = req.Body
	}
	if req.Draft {
		payload["draft"] = true
	}

	var pr ghPullRequest
	u := fmt.Sprintf("%s/repos/%s/%s/pulls", p.apiBaseURL, url.PathEscape(owner), url.PathEscape(repo))
	if err := p.sendJSON(ctx, token, http.MethodPost, u, payload, &pr); err != nil {
		return nil, fmt.Errorf("creating pull request: %w", err)
	}

	result := pr.toPullRequest(owner + "/" + repo)
	return &result, nil
}

// CreateIssue opens an issue.
func (p *Provider) CreateIssue(ctx context.Context, token, owner, repo string, req providers.CreateIssueRequest) (*providers.Issue, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}

	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	payload := map[string]interface{}{
		"title": req.Title,
	}
	if req.Body != "" {
		payload["body"] = req.Body
	}
	if len(req.Labels) > 0 {
		payload["labels"] = req.Labels
	}
	if len(req.Assignees) > 0 {
		payload["assignees"] = req.Assignees
	}

	var issue ghIssue
	u := fmt.Sprintf("%s/repos/%s/%s/issues", p.apiBaseURL, url.PathEscape(owner), url.PathEscape(repo))
	if err := p.sendJSON(ctx, token, http.MethodPost, u, payload, &issue); err != nil {
		return nil, fmt.Errorf("creating issue: %w", err)
	}

	result := issue.toIssue()
	return &result, nil
}

// UpdateFile creates or updates one file on a branch in a single commit.
// The current blob SHA is resolved first; a missing file means create.
func (p *Provider) UpdateFile(ctx context.Context, token, owner, repo string, req providers.UpdateFileRequest) (*providers.FileUpdate, error) {
	if req.Path == "" || req.Branch == "" || req.Message == "" {
		return nil, fmt.Errorf("path, branch and message are required")
	}

	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	contentsURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s", p.apiBaseURL, url.PathEscape(owner), url.PathEscape(repo), escapePath(req.Path))

	var existing struct {
		SHA string `json:"sha"`
	}
	if _, err := p.getJSON(ctx, token, contentsURL+"?ref="+url.QueryEscape(req.Branch), &existing); err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			return nil, fmt.Errorf("resolving existing file %s: %w", req.Path, err)
		}
	}

	payload := map[string]interface{}{
		"message": req.Message,
		"content": base64.StdEncoding.EncodeToString(req.Content),
		"branch":  req.Branch,
	}
	if existing.SHA != "" {
		payload["sha"] = existing.SHA
	}

	var result struct {
		Commit struct {
			SHA     string `json:"sha"`
			HTMLURL string `json:"html_url"`
		} `json:"commit"`
	}
	if err := p.sendJSON(ctx, token, http.MethodPut, contentsURL, payload, &result); err != nil {
		return nil, fmt.Errorf("updating file %s: %w", req.Path, err)
	}

	return &providers.FileUpdate{
		Path:      req.Path,
		Branch:    req.Branch,
		CommitSHA: result.Commit.SHA,
		HTMLURL:   result.Commit.HTMLURL,
	}, nil
}

// CheckConnection verifies the token against the user endpoint. Auth
// failures are reported in the status, never as an error.
func (p *Provider) CheckConnection(ctx context.Context, token string) (*providers.ConnectionStatus, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	var user struct {
		Login string `json:"login"`
	}
	_, err := p.getJSON(ctx, token, p.apiBaseURL+"/user", &user)
	if err == nil {
		return &providers.ConnectionStatus{Connected: true, Login: user.Login}, nil
	}

	var authErr *vcsauth.AuthExpiredError
	if errors.As(err, &authErr) {
		return &providers.ConnectionStatus{Connected: false, Reason: authErr.Error()}, nil
	}
	return nil, fmt.Errorf("checking connection: %w", err)
}
