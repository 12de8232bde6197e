package providers

// Issue and pull request state filters accepted by ListOptions.State.
const (
	StateOpen   = "open"
	StateClosed = "closed"
	StateAll    = "all"
)

// Pagination bounds shared by all adapters.
const (
	// DefaultPerPage is the page size used when ListOptions.PerPage is zero.
	DefaultPerPage = 30

	// MaxPerPage is the largest page size adapters will request.
	MaxPerPage = 100

	// DefaultMaxPages bounds pagination when ListOptions.MaxPages is zero,
	// keeping a single capability call from walking an unbounded listing.
	DefaultMaxPages = 10
)

// NormalizeListOptions applies defaults and clamps bounds. Adapters call it
// once at the top of each list capability so behavior is uniform across
// providers.
func NormalizeListOptions(opts ListOptions) ListOptions {
	if opts.State == "" {
		opts.State = StateOpen
	}
	opts.PerPage = clampPerPage(opts.PerPage)
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	return opts
}

// NormalizeRepositoryOptions applies defaults and clamps bounds for
// repository listings.
func NormalizeRepositoryOptions(opts ListRepositoriesOptions) ListRepositoriesOptions {
	opts.PerPage = clampPerPage(opts.PerPage)
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	return opts
}

func clampPerPage(perPage int) int {
	switch {
	case perPage <= 0:
		return DefaultPerPage
	case perPage > MaxPerPage:
		return MaxPerPage
	default:
		return perPage
	}
}
