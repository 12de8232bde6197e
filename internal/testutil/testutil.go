package testutil

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/catalyst-dev/vcs-auth/storage"
)

// MockTime is a controllable time source for deterministic tests. Its Now
// method matches the clock signature the lifecycle manager accepts, and it
// is safe to advance from one goroutine while others read it.
type MockTime struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockTime creates a mock time source starting at t.
func NewMockTime(t time.Time) *MockTime {
	return &MockTime{now: t}
}

// Now returns the current mock time.
func (m *MockTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock time forward by d.
func (m *MockTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set moves the mock time to t.
func (m *MockTime) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// GenerateRandomString generates a random URL-safe string of the given
// length.
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random string: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}

// GenerateTestCredential creates a credential for a user and provider with
// a token pair valid for eight hours, the window GitHub user-to-server
// tokens live for.
func GenerateTestCredential(userID, providerID string) *storage.Credential {
	return GenerateTestCredentialWithExpiry(userID, providerID, time.Now().Add(8*time.Hour))
}

// GenerateTestCredentialWithExpiry creates a credential whose access token
// expires at the given instant.
func GenerateTestCredentialWithExpiry(userID, providerID string, expiry time.Time) *storage.Credential {
	return &storage.Credential{
		UserID:       userID,
		ProviderID:   providerID,
		AccessToken:  "access-" + GenerateRandomString(24),
		RefreshToken: "refresh-" + GenerateRandomString(24),
		TokenType:    "bearer",
		Scope:        "repo read:user",
		ExpiresAt:    expiry,
	}
}

// AssertNoError fails the test immediately if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test immediately if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

// AssertErrorIs fails the test if err does not match target per errors.Is.
func AssertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("error = %v, want match for %v", err, target)
	}
}
