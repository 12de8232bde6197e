// Package util provides small shared helpers used across the vcs-auth
// library: safe string truncation for logging identifier prefixes and URL
// normalization for base URL comparison. Anything domain-specific belongs in
// its own package, not here.
package util
