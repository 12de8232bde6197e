// Package mock provides a mock credential store for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/catalyst-dev/vcs-auth/storage"
)

// MockCredentialStore is a mock implementation of storage.CredentialStore.
// The default behavior is a plaintext in-memory store with the same write
// semantics as the real backends; individual operations can be overridden
// through the Func fields to inject failures.
type MockCredentialStore struct {
	mu          sync.RWMutex
	credentials map[string]*storage.Credential

	GetFunc        func(ctx context.Context, userID, providerID string) (*storage.Credential, error)
	PutFunc        func(ctx context.Context, cred *storage.Credential) error
	DeleteFunc     func(ctx context.Context, userID, providerID string) error
	ListByUserFunc func(ctx context.Context, userID string) ([]*storage.Credential, error)

	CallCounts map[string]int
}

// Compile-time interface check
var _ storage.CredentialStore = (*MockCredentialStore)(nil)

func key(userID, providerID string) string {
	return userID + "/" + providerID
}

// NewMockCredentialStore creates a new mock credential store
func NewMockCredentialStore() *MockCredentialStore {
	m := &MockCredentialStore{
		credentials: make(map[string]*storage.Credential),
		CallCounts:  make(map[string]int),
	}

	// Default implementations mirror the real backends' write semantics
	m.GetFunc = func(ctx context.Context, userID, providerID string) (*storage.Credential, error) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		cred, ok := m.credentials[key(userID, providerID)]
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", storage.ErrCredentialNotFound, userID, providerID)
		}
		return cred.Clone(), nil
	}

	m.PutFunc = func(ctx context.Context, cred *storage.Credential) error {
		if cred == nil || cred.UserID == "" || cred.ProviderID == "" {
			return fmt.Errorf("invalid credential")
		}

		record := cred.Clone()
		now := time.Now().UTC()
		record.UpdatedAt = now

		m.mu.Lock()
		defer m.mu.Unlock()

		if existing, ok := m.credentials[key(record.UserID, record.ProviderID)]; ok {
			record.ID = existing.ID
			record.CreatedAt = existing.CreatedAt
			if record.ResourceID == "" {
				record.ResourceID = existing.ResourceID
			}
		} else {
			if record.ID == "" {
				record.ID = uuid.NewString()
			}
			if record.CreatedAt.IsZero() {
				record.CreatedAt = now
			}
		}

		m.credentials[key(record.UserID, record.ProviderID)] = record
		return nil
	}

	m.DeleteFunc = func(ctx context.Context, userID, providerID string) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.credentials, key(userID, providerID))
		return nil
	}

	m.ListByUserFunc = func(ctx context.Context, userID string) ([]*storage.Credential, error) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		var creds []*storage.Credential
		for _, cred := range m.credentials {
			if cred.UserID == userID {
				creds = append(creds, cred.Clone())
			}
		}
		sort.Slice(creds, func(i, j int) bool {
			return creds[i].ProviderID < creds[j].ProviderID
		})
		return creds, nil
	}

	return m
}

// bump increments a call counter and returns under lock
func (m *MockCredentialStore) bump(name string) {
	m.mu.Lock()
	m.CallCounts[name]++
	m.mu.Unlock()
}

// Calls reports how many times the named operation ran
func (m *MockCredentialStore) Calls(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.CallCounts[name]
}

// Get retrieves a credential for a user and provider
func (m *MockCredentialStore) Get(ctx context.Context, userID, providerID string) (*storage.Credential, error) {
	m.bump("Get")
	m.mu.RLock()
	fn := m.GetFunc
	m.mu.RUnlock()
	return fn(ctx, userID, providerID)
}

// Put stores a credential
func (m *MockCredentialStore) Put(ctx context.Context, cred *storage.Credential) error {
	m.bump("Put")
	m.mu.RLock()
	fn := m.PutFunc
	m.mu.RUnlock()
	return fn(ctx, cred)
}

// Delete removes a credential for a user and provider
func (m *MockCredentialStore) Delete(ctx context.Context, userID, providerID string) error {
	m.bump("Delete")
	m.mu.RLock()
	fn := m.DeleteFunc
	m.mu.RUnlock()
	return fn(ctx, userID, providerID)
}

// ListByUser returns all credentials for a user
func (m *MockCredentialStore) ListByUser(ctx context.Context, userID string) ([]*storage.Credential, error) {
	m.bump("ListByUser")
	m.mu.RLock()
	fn := m.ListByUserFunc
	m.mu.RUnlock()
	return fn(ctx, userID)
}

// Seed inserts a credential directly, bypassing the Put semantics. Useful
// for arranging store state in tests.
func (m *MockCredentialStore) Seed(cred *storage.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[key(cred.UserID, cred.ProviderID)] = cred.Clone()
}
