// Package security provides the credential protection primitives of the
// library: AES-256-GCM encryption of token material at rest, key
// generation and derivation, per-user connect rate limiting, and audit
// logging of credential lifecycle events.
package security
