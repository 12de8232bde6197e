// Package storage defines the credential persistence contract and the
// shared encryption rules every backend follows. Concrete stores live in
// the subpackages: memory (tests and single-process deployments),
// postgres (durable system of record), valkey (shared cache for
// horizontally scaled deployments), and mock (configurable test double).
package storage
