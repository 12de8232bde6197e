package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	vcsauth "github.com/catalyst-dev/vcs-auth"
	"github.com/catalyst-dev/vcs-auth/providers"
)

// checkAPIHeaders verifies the auth and accept headers on an API request.
func checkAPIHeaders(t *testing.T, r *http.Request) {
	t.Helper()
	if got := r.Header.Get("Authorization"); got != "Bearer "+testAccessToken {
		t.Errorf("Authorization = %q, want bearer token", got)
	}
	if got := r.Header.Get("Accept"); got != acceptHeader {
		t.Errorf("Accept = %q, want %q", got, acceptHeader)
	}
}

func TestListRepositoriesPaginates(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkAPIHeaders(t, r)
		if r.URL.Path != "/user/repos" {
			t.Errorf("path = %q, want /user/repos", r.URL.Path)
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			_ = json.NewEncoder(w).Encode([]map[string]interface{}{
				{
					"id":        3,
					"name":      "dash-widgets",
					"full_name": "octocat/dash-widgets",
					"private":   true,
					"owner":     map[string]string{"login": "octocat"},
				},
			})
			return
		}

		w.Header().Set("Link", fmt.Sprintf(`<%s/user/repos?page=2&per_page=30>; rel="next"`, server.URL))
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"id":             1,
				"name":           "hello-world",
				"full_name":      "octocat/hello-world",
				"private":        false,
				"default_branch": "main",
				"description":    "My first repository",
				"html_url":       "https://github.com/octocat/hello-world",
				"owner":          map[string]string{"login": "octocat"},
			},
			{
				"id":        2,
				"name":      "spoon-knife",
				"full_name": "octocat/spoon-knife",
				"owner":     map[string]string{"login": "octocat"},
			},
		})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	repos, err := provider.ListRepositories(context.Background(), testAccessToken, providers.ListRepositoriesOptions{})
	if err != nil {
		t.Fatalf("ListRepositories() error = %v", err)
	}

	if len(repos) != 3 {
		t.Fatalf("ListRepositories() returned %d repos, want 3 across two pages", len(repos))
	}

	first := repos[0]
	if first.ID != 1 || first.Name != "hello-world" || first.FullName != "octocat/hello-world" {
		t.Errorf("repo[0] = %+v, want hello-world fields", first)
	}
	if first.Owner != "octocat" {
		t.Errorf("repo[0].Owner = %q, want octocat", first.Owner)
	}
	if first.DefaultBranch != "main" {
		t.Errorf("repo[0].DefaultBranch = %q, want main", first.DefaultBranch)
	}
	if !repos[2].Private {
		t.Error("repo[2].Private = false, want true")
	}
}

func TestListRepositoriesMaxPages(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always advertise a next page; MaxPages must stop the walk.
		w.Header().Set("Link", fmt.Sprintf(`<%s/user/repos?page=9>; rel="next"`, server.URL))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 1, "name": "hello-world", "full_name": "octocat/hello-world", "owner": map[string]string{"login": "octocat"}},
		})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	repos, err := provider.ListRepositories(context.Background(), testAccessToken, providers.ListRepositoriesOptions{MaxPages: 2})
	if err != nil {
		t.Fatalf("ListRepositories() error = %v", err)
	}
	if len(repos) != 2 {
		t.Errorf("ListRepositories() returned %d repos, want 2 with MaxPages: 2", len(repos))
	}
}

func TestListRepositoriesAuthExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Bad credentials"})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	_, err := provider.ListRepositories(context.Background(), "ghu_revoked", providers.ListRepositoriesOptions{})
	var authErr *vcsauth.AuthExpiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("ListRepositories() error = %T (%v), want *vcsauth.AuthExpiredError", err, err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", authErr.StatusCode)
	}
}

func TestListRepositoriesForbiddenRevoked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "This authorization has been revoked."})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	_, err := provider.ListRepositories(context.Background(), "ghu_revoked", providers.ListRepositoriesOptions{})
	var authErr *vcsauth.AuthExpiredError
	if !errors.As(err, &authErr) {
		t.Fatalf("ListRepositories() error = %T, want *vcsauth.AuthExpiredError for revoked 403", err)
	}
}

func TestListRepositoriesOtherForbidden(t *testing.T) {
	// Rate limit 403s are not auth failures and must stay generic.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "API rate limit exceeded"})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	_, err := provider.ListRepositories(context.Background(), testAccessToken, providers.ListRepositoriesOptions{})
	if err == nil {
		t.Fatal("ListRepositories() error = nil, want APIError")
	}
	var authErr *vcsauth.AuthExpiredError
	if errors.As(err, &authErr) {
		t.Error("rate limit 403 should not map to AuthExpiredError")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ListRepositories() error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || !strings.Contains(apiErr.Message, "rate limit") {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestListPullRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkAPIHeaders(t, r)
		if r.URL.Path != "/repos/octocat/hello-world/pulls" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("state"); got != "closed" {
			t.Errorf("state = %q, want closed", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "30" {
			t.Errorf("per_page = %q, want 30", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"number":     42,
				"title":      "Add pagination",
				"state":      "closed",
				"html_url":   "https://github.com/octocat/hello-world/pull/42",
				"user":       map[string]string{"login": "hubot"},
				"head":       map[string]string{"ref": "feature/pagination"},
				"base":       map[string]string{"ref": "main"},
				"created_at": "2026-08-01T10:00:00Z",
				"updated_at": "2026-08-02T11:30:00Z",
			},
		})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	pulls, err := provider.ListPullRequests(context.Background(), testAccessToken, "octocat", "hello-world", providers.ListOptions{State: providers.StateClosed})
	if err != nil {
		t.Fatalf("ListPullRequests() error = %v", err)
	}
	if len(pulls) != 1 {
		t.Fatalf("ListPullRequests() returned %d, want 1", len(pulls))
	}

	pr := pulls[0]
	if pr.Number != 42 || pr.Title != "Add pagination" || pr.Author != "hubot" {
		t.Errorf("pull request = %+v", pr)
	}
	if pr.HeadRef != "feature/pagination" || pr.BaseRef != "main" {
		t.Errorf("refs = (%q, %q)", pr.HeadRef, pr.BaseRef)
	}
	if pr.Repository != "octocat/hello-world" {
		t.Errorf("Repository = %q, want octocat/hello-world", pr.Repository)
	}
}

func TestListIssuesFiltersPullRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"number":   7,
				"title":    "Widget layout breaks on mobile",
				"state":    "open",
				"html_url": "https://github.com/octocat/hello-world/issues/7",
				"user":     map[string]string{"login": "octocat"},
				"labels":   []map[string]string{{"name": "bug"}, {"name": "ui"}},
			},
			{
				// Pull requests show up in the issues listing and must be
				// dropped.
				"number":       8,
				"title":        "Fix widget layout",
				"state":        "open",
				"user":         map[string]string{"login": "hubot"},
				"pull_request": map[string]string{},
			},
		})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	issues, err := provider.ListIssues(context.Background(), testAccessToken, "octocat", "hello-world", providers.ListOptions{})
	if err != nil {
		t.Fatalf("ListIssues() error = %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("ListIssues() returned %d, want 1 after dropping pull requests", len(issues))
	}

	issue := issues[0]
	if issue.Number != 7 || issue.Author != "octocat" {
		t.Errorf("issue = %+v", issue)
	}
	if len(issue.Labels) != 2 || issue.Labels[0] != "bug" {
		t.Errorf("Labels = %v, want [bug ui]", issue.Labels)
	}
}

func TestCreateBranchResolvesDefaultBranch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkAPIHeaders(t, r)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/repos/octocat/hello-world":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"default_branch": "main"})
		case r.Method == http.MethodGet && r.URL.Path == "/repos/octocat/hello-world/git/ref/heads/main":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"ref":    "refs/heads/main",
				"object": map[string]string{"sha": "aa218f56b14c9653891f9e74264a383fa43fefbd"},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/repos/octocat/hello-world/git/refs":
			var body struct {
				Ref string `json:"ref"`
				SHA string `json:"sha"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decoding create ref body: %v", err)
			}
			if body.Ref != "refs/heads/feature-x" {
				t.Errorf("ref = %q, want refs/heads/feature-x", body.Ref)
			}
			if body.SHA != "aa218f56b14c9653891f9e74264a383fa43fefbd" {
				t.Errorf("sha = %q, want head of main", body.SHA)
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"ref":    body.Ref,
				"object": map[string]string{"sha": body.SHA},
			})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	branch, err := provider.CreateBranch(context.Background(), testAccessToken, "octocat", "hello-world", "feature-x", "")
	if err != nil {
		t.Fatalf("CreateBranch() error = %v", err)
	}
	if branch.Name != "feature-x" {
		t.Errorf("Name = %q, want feature-x", branch.Name)
	}
	if branch.SHA != "aa218f56b14c9653891f9e74264a383fa43fefbd" {
		t.Errorf("SHA = %q", branch.SHA)
	}
}

func TestCreateBranchFromNamedBranch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/repos/octocat/hello-world/git/ref/heads/develop":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"object": map[string]string{"sha": "deadbeef"},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/repos/octocat/hello-world/git/refs":
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"object": map[string]string{"sha": "deadbeef"},
			})
		default:
			// The repository metadata lookup must be skipped when the
			// source branch is named explicitly.
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	branch, err := provider.CreateBranch(context.Background(), testAccessToken, "octocat", "hello-world", "feature-y", "develop")
	if err != nil {
		t.Fatalf("CreateBranch() error = %v", err)
	}
	if branch.SHA != "deadbeef" {
		t.Errorf("SHA = %q, want deadbeef", branch.SHA)
	}
}

func TestCreateBranchRequiresName(t *testing.T) {
	provider := newTestProvider(t, "http://localhost")
	if _, err := provider.CreateBranch(context.Background(), testAccessToken, "octocat", "hello-world", "", "main"); err == nil {
		t.Error("CreateBranch() with empty name should fail")
	}
}

func TestCreatePullRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkAPIHeaders(t, r)
		if r.Method != http.MethodPost || r.URL.Path != "/repos/octocat/hello-world/pulls" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["title"] != "Add feature" || body["head"] != "feature-x" || body["base"] != "main" {
			t.Errorf("body = %v", body)
		}
		if _, present := body["draft"]; present {
			t.Error("draft should be omitted when false")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"number":   101,
			"title":    "Add feature",
			"state":    "open",
			"html_url": "https://github.com/octocat/hello-world/pull/101",
			"user":     map[string]string{"login": "octocat"},
			"head":     map[string]string{"ref": "feature-x"},
			"base":     map[string]string{"ref": "main"},
		})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	pr, err := provider.CreatePullRequest(context.Background(), testAccessToken, "octocat", "hello-world", providers.CreatePullRequestRequest{
		Title: "Add feature",
		Head:  "feature-x",
		Base:  "main",
		Body:  "Adds the feature.",
	})
	if err != nil {
		t.Fatalf("CreatePullRequest() error = %v", err)
	}

	if pr.Number != 101 {
		t.Errorf("Number = %d, want 101", pr.Number)
	}
	if pr.HTMLURL != "https://github.com/octocat/hello-world/pull/101" {
		t.Errorf("HTMLURL = %q", pr.HTMLURL)
	}
}

func TestCreatePullRequestValidation(t *testing.T) {
	provider := newTestProvider(t, "http://localhost")
	_, err := provider.CreatePullRequest(context.Background(), testAccessToken, "octocat", "hello-world", providers.CreatePullRequestRequest{Title: "no branches"})
	if err == nil || !strings.Contains(err.Error(), "required") {
		t.Errorf("CreatePullRequest() error = %v, want required-field error", err)
	}
}

func TestCreateIssue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["title"] != "Widget is broken" {
			t.Errorf("title = %v", body["title"])
		}
		labels, _ := body["labels"].([]interface{})
		if len(labels) != 1 || labels[0] != "bug" {
			t.Errorf("labels = %v, want [bug]", body["labels"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"number":   55,
			"title":    "Widget is broken",
			"state":    "open",
			"html_url": "https://github.com/octocat/hello-world/issues/55",
			"user":     map[string]string{"login": "octocat"},
			"labels":   []map[string]string{{"name": "bug"}},
		})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	issue, err := provider.CreateIssue(context.Background(), testAccessToken, "octocat", "hello-world", providers.CreateIssueRequest{
		Title:  "Widget is broken",
		Body:   "Steps to reproduce...",
		Labels: []string{"bug"},
	})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if issue.Number != 55 || issue.HTMLURL == "" {
		t.Errorf("issue = %+v", issue)
	}
}

func TestUpdateFileCreatesWhenMissing(t *testing.T) {
	content := []byte("# Dashboard\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodGet:
			if got := r.URL.Query().Get("ref"); got != "main" {
				t.Errorf("ref = %q, want main", got)
			}
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
		case http.MethodPut:
			var body map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if _, present := body["sha"]; present {
				t.Error("sha should be omitted when creating a new file")
			}
			encoded, _ := body["content"].(string)
			decoded, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil || string(decoded) != string(content) {
				t.Errorf("content = %q, want base64 of original", encoded)
			}
			if body["branch"] != "main" || body["message"] != "Add README" {
				t.Errorf("body = %v", body)
			}

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"commit": map[string]string{
					"sha":      "7638417db6d59f3c431d3e1f261cc637155684cd",
					"html_url": "https://github.com/octocat/hello-world/commit/7638417",
				},
			})
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	update, err := provider.UpdateFile(context.Background(), testAccessToken, "octocat", "hello-world", providers.UpdateFileRequest{
		Path:    "README.md",
		Branch:  "main",
		Message: "Add README",
		Content: content,
	})
	if err != nil {
		t.Fatalf("UpdateFile() error = %v", err)
	}

	if update.CommitSHA != "7638417db6d59f3c431d3e1f261cc637155684cd" {
		t.Errorf("CommitSHA = %q", update.CommitSHA)
	}
	if update.Path != "README.md" || update.Branch != "main" {
		t.Errorf("update = %+v", update)
	}
}

func TestUpdateFileSendsExistingSHA(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]string{"sha": "95b966ae1c166bd92f8ae7d1c313e738c731dfc3"})
		case http.MethodPut:
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["sha"] != "95b966ae1c166bd92f8ae7d1c313e738c731dfc3" {
				t.Errorf("sha = %v, want existing blob SHA", body["sha"])
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"commit": map[string]string{"sha": "new-commit-sha"},
			})
		}
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	update, err := provider.UpdateFile(context.Background(), testAccessToken, "octocat", "hello-world", providers.UpdateFileRequest{
		Path:    "docs/setup guide.md",
		Branch:  "main",
		Message: "Update setup guide",
		Content: []byte("updated"),
	})
	if err != nil {
		t.Fatalf("UpdateFile() error = %v", err)
	}
	if update.CommitSHA != "new-commit-sha" {
		t.Errorf("CommitSHA = %q", update.CommitSHA)
	}
}

func TestCheckConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			t.Errorf("path = %q, want /user", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"login": "octocat"})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	status, err := provider.CheckConnection(context.Background(), testAccessToken)
	if err != nil {
		t.Fatalf("CheckConnection() error = %v", err)
	}
	if !status.Connected || status.Login != "octocat" {
		t.Errorf("status = %+v, want connected as octocat", status)
	}
}

func TestCheckConnectionAuthFailureIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Bad credentials"})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	status, err := provider.CheckConnection(context.Background(), "ghu_revoked")
	if err != nil {
		t.Fatalf("CheckConnection() error = %v, auth failure must be reported in the status", err)
	}
	if status.Connected {
		t.Error("Connected = true, want false")
	}
	if status.Reason == "" {
		t.Error("Reason should explain the rejection")
	}
}

func TestNextPageURL(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{
			name: "next and last",
			link: `<https://api.github.com/user/repos?page=2>; rel="next", <https://api.github.com/user/repos?page=5>; rel="last"`,
			want: "https://api.github.com/user/repos?page=2",
		},
		{
			name: "prev before next",
			link: `<https://api.github.com/user/repos?page=1>; rel="prev", <https://api.github.com/user/repos?page=3>; rel="next"`,
			want: "https://api.github.com/user/repos?page=3",
		},
		{
			name: "no next on last page",
			link: `<https://api.github.com/user/repos?page=4>; rel="prev", <https://api.github.com/user/repos?page=5>; rel="first"`,
			want: "",
		},
		{
			name: "empty header",
			link: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextPageURL(tt.link); got != tt.want {
				t.Errorf("nextPageURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapePath(t *testing.T) {
	if got := escapePath("docs/setup guide.md"); got != "docs/setup%20guide.md" {
		t.Errorf("escapePath() = %q", got)
	}
	if got := escapePath("README.md"); got != "README.md" {
		t.Errorf("escapePath() = %q", got)
	}
}
