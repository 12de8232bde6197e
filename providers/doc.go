// Package providers defines the capability interface for version control
// providers and the shared data types those capabilities exchange.
//
// A Provider covers two concerns for one hosting service:
//   - the credential flow: authorization URL, code exchange, refresh
//     and revocation, all speaking the provider's OAuth token endpoint;
//   - the capability set: repositories, pull requests, issues, branches
//     and file updates, all called with an explicit access token.
//
// Tokens are passed explicitly on every capability call. Adapters never
// load, cache or refresh credentials themselves; the lifecycle manager
// owns that and hands a valid access token to each call.
//
// Implementations are provided in subpackages:
//   - providers/github: GitHub OAuth Apps and GitHub Apps (REST v3)
//   - providers/mock: fixed in-memory data for tests and local development
package providers
