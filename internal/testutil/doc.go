// Package testutil provides shared test helpers for the vcs-auth library:
// a controllable time source, credential generators, and small error
// assertions used by the lifecycle tests.
package testutil
