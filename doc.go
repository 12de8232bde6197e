// Package vcsauth manages provider credentials for multi-tenant dashboards
// that perform version control operations on behalf of their users.
//
// The library owns the full credential lifecycle: authorization-code
// exchange, encrypted storage, proactive refresh ahead of expiry, and
// teardown. Application code never touches tokens; it asks for a scoped
// client and calls capabilities:
//
//	err := vcsauth.Initialize(vcsauth.Config{
//		Providers: []providers.Provider{github},
//		Store:     store,
//	})
//	...
//	registry, err := vcsauth.Default()
//	client, err := registry.GetScoped(userID)
//	repos, err := client.ListRepositories(ctx, "github", opts)
//
// Expired access tokens are refreshed transparently, with concurrent
// refreshes for the same credential coalesced into one provider call. When
// a credential cannot be renewed, errors wrap ErrReconnectRequired so the
// dashboard shows exactly one signal: ask the user to reconnect.
//
// Subpackages: providers (adapter contract and implementations), storage
// (encrypted credential stores), security (cipher, audit log, rate
// limiting), instrumentation (OpenTelemetry wiring).
package vcsauth
