// Package github implements the provider capability interface for GitHub.
// It speaks the OAuth token endpoint for code exchange, refresh and
// revocation, and the REST v3 API for repository capabilities.
//
// GitHub specifics the adapter absorbs so callers don't have to:
//   - User-to-server tokens expire after eight hours. When a token response
//     carries no expires_in, the adapter computes a local expiry from the
//     configured validity window so the lifecycle manager can still schedule
//     refreshes.
//   - Refresh tokens are rotated: every refresh response may carry a
//     replacement refresh token that invalidates the old one.
//   - Token endpoint failures often arrive with a 200 status and an error
//     field in the body. The adapter classifies every response into the
//     NetworkError / TransferError / GrantError taxonomy regardless of
//     status code.
//   - The issues listing includes pull requests; the adapter filters
//     them out.
//   - Revoked and expired tokens surface as *vcsauth.AuthExpiredError on
//     every capability call.
//
// GitHub Apps are supported through AppAuth, which mints the app-identity
// JWT and exchanges it for installation access tokens.
//
// GitHub Enterprise Server works by overriding BaseURL, AuthURL and
// TokenURL in the Config.
package github
