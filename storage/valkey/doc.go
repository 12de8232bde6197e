// Package valkey provides a Valkey-backed credential store.
//
// Credentials are encrypted before they reach the server and stored as JSON
// under "{prefix}cred:{userID}:{providerID}" keys with no TTL: an expired
// record is input to the next refresh, never evicted. Listing a user's
// credentials uses SCAN with a per-user key pattern.
//
// Valkey suits deployments that already run it for sessions or caching and
// want one operational surface; prefer the postgres store when credentials
// must survive a cache flush.
package valkey
