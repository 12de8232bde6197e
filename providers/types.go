package providers

import "time"

// Repository describes one repository visible to the authenticated user.
type Repository struct {
	// ID is the provider's numeric repository id.
	ID int64 `json:"id"`

	// Name is the repository name without the owner (e.g. "dash-widgets").
	Name string `json:"name"`

	// FullName is the owner-qualified name (e.g. "octocat/dash-widgets").
	FullName string `json:"fullName"`

	// Owner is the login of the owning user or organization.
	Owner string `json:"owner"`

	// Private indicates whether the repository is private.
	Private bool `json:"private"`

	// DefaultBranch is the repository's default branch name.
	DefaultBranch string `json:"defaultBranch"`

	// Description is the repository description, possibly empty.
	Description string `json:"description,omitempty"`

	// HTMLURL is the repository's web URL.
	HTMLURL string `json:"htmlUrl"`
}

// PullRequest summarizes one pull request.
type PullRequest struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Body      string    `json:"body,omitempty"`
	Author    string    `json:"author"`
	HeadRef   string    `json:"headRef"`
	BaseRef   string    `json:"baseRef"`
	Draft     bool      `json:"draft"`
	HTMLURL   string    `json:"htmlUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Repository is the owner-qualified repository name. List calls scoped
	// to one repository leave it set for uniformity with cross-repository
	// aggregation.
	Repository string `json:"repository,omitempty"`
}

// Issue summarizes one issue.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Body      string    `json:"body,omitempty"`
	Author    string    `json:"author"`
	Labels    []string  `json:"labels,omitempty"`
	HTMLURL   string    `json:"htmlUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Branch describes one branch head.
type Branch struct {
	// Name is the branch name without the "refs/heads/" prefix.
	Name string `json:"name"`

	// SHA is the commit the branch points at.
	SHA string `json:"sha"`
}

// FileUpdate describes the commit produced by UpdateFile.
type FileUpdate struct {
	// Path is the repository-relative file path that was written.
	Path string `json:"path"`

	// Branch is the branch the commit landed on.
	Branch string `json:"branch"`

	// CommitSHA is the commit created for the write.
	CommitSHA string `json:"commitSha"`

	// HTMLURL is the commit's web URL, when the provider reports one.
	HTMLURL string `json:"htmlUrl,omitempty"`
}

// ConnectionStatus reports whether a token is usable against the provider.
type ConnectionStatus struct {
	// Connected is true when the provider accepted the token.
	Connected bool `json:"connected"`

	// Login is the authenticated account login when connected.
	Login string `json:"login,omitempty"`

	// Reason explains why the token was rejected when not connected.
	Reason string `json:"reason,omitempty"`
}

// CreatePullRequestRequest holds the fields for opening a pull request.
type CreatePullRequestRequest struct {
	// Title is the pull request title. Required.
	Title string

	// Head is the branch the changes live on. Required.
	Head string

	// Base is the branch the changes should merge into. Required.
	Base string

	// Body is the pull request description, optional.
	Body string

	// Draft opens the pull request as a draft.
	Draft bool
}

// CreateIssueRequest holds the fields for opening an issue.
type CreateIssueRequest struct {
	// Title is the issue title. Required.
	Title string

	// Body is the issue description, optional.
	Body string

	// Labels to apply on creation, optional.
	Labels []string

	// Assignees to assign on creation, optional.
	Assignees []string
}

// UpdateFileRequest holds the fields for creating or updating one file.
type UpdateFileRequest struct {
	// Path is the repository-relative file path. Required.
	Path string

	// Branch is the branch to commit to. Required.
	Branch string

	// Message is the commit message. Required.
	Message string

	// Content is the full new file content.
	Content []byte
}

// ListOptions bounds paginated pull request and issue listings.
type ListOptions struct {
	// State filters by state: StateOpen, StateClosed or StateAll.
	// Empty means StateOpen.
	State string

	// PerPage is the page size to request. Zero means DefaultPerPage;
	// values above MaxPerPage are clamped.
	PerPage int

	// MaxPages bounds how many pages are fetched. Zero means
	// DefaultMaxPages.
	MaxPages int
}

// ListRepositoriesOptions bounds paginated repository listings.
type ListRepositoriesOptions struct {
	// Affiliation filters by the user's relationship to the repository
	// (e.g. "owner", "collaborator", "organization_member"). Empty means
	// the provider default.
	Affiliation string

	// Sort orders the listing (e.g. "pushed", "updated", "full_name").
	// Empty means the provider default.
	Sort string

	// PerPage is the page size to request. Zero means DefaultPerPage;
	// values above MaxPerPage are clamped.
	PerPage int

	// MaxPages bounds how many pages are fetched. Zero means
	// DefaultMaxPages.
	MaxPages int
}
