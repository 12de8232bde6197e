// Package memory provides an in-memory credential store for development and testing.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/catalyst-dev/vcs-auth/instrumentation"
	"github.com/catalyst-dev/vcs-auth/security"
	"github.com/catalyst-dev/vcs-auth/storage"
)

// Store is an in-memory implementation of storage.CredentialStore.
// Credentials are encrypted at rest exactly as they would be in a durable
// backend, so encryption bugs surface in tests rather than in production.
type Store struct {
	mu sync.RWMutex

	// Credential storage keyed by user ID and provider ID
	credentials map[credentialKey]*storage.EncryptedCredential

	// Security
	cipher  *security.Cipher
	auditor *security.Auditor

	// Instrumentation
	instrumentation *instrumentation.Instrumentation
	tracer          trace.Tracer

	// Atomic counter for metrics (lock-free access during metric collection)
	credentialCount atomic.Int64

	logger *slog.Logger
}

type credentialKey struct {
	userID     string
	providerID string
}

// Compile-time interface check
var _ storage.CredentialStore = (*Store)(nil)

// New creates a new in-memory store. The cipher is required: credentials are
// never held in plaintext, even in memory-backed storage.
func New(cipher *security.Cipher) (*Store, error) {
	if cipher == nil {
		return nil, fmt.Errorf("cipher is required")
	}

	return &Store{
		credentials: make(map[credentialKey]*storage.EncryptedCredential),
		cipher:      cipher,
		logger:      slog.Default(),
	}, nil
}

// SetLogger sets a custom logger for the store
func (s *Store) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetAuditor sets the security auditor for credential access events
func (s *Store) SetAuditor(auditor *security.Auditor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditor = auditor
}

// SetInstrumentation sets OpenTelemetry instrumentation for the store
func (s *Store) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.mu.Lock()
	s.instrumentation = inst
	if inst != nil {
		s.tracer = inst.Tracer("storage")
	}
	s.credentialCount.Store(int64(len(s.credentials)))
	s.mu.Unlock()

	if inst != nil {
		// Register the credential count gauge using the atomic counter (lock-free)
		err := inst.RegisterCredentialCountCallback(
			func() int64 { return s.credentialCount.Load() },
		)
		if err != nil {
			s.logger.Warn("Failed to register credential count callback", "error", err)
		}
	}
}

// Get retrieves and decrypts the credential for a user and provider.
// A record that fails authenticated decryption is reported as absent: the
// failure is logged and audited, and storage.ErrCredentialNotFound is
// returned so callers treat the user as not connected.
func (s *Store) Get(ctx context.Context, userID, providerID string) (*storage.Credential, error) {
	ctx, span := s.startStorageSpan(ctx, "get_credential")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "get_credential", err, startTime)
	}()

	if userID == "" || providerID == "" {
		err = fmt.Errorf("user ID and provider ID are required")
		return nil, err
	}

	s.mu.RLock()
	enc, ok := s.credentials[credentialKey{userID, providerID}]
	s.mu.RUnlock()

	if !ok {
		err = fmt.Errorf("%w: %s/%s", storage.ErrCredentialNotFound, userID, providerID)
		return nil, err
	}

	cred, decErr := storage.DecryptCredential(s.cipher, enc)
	if decErr != nil {
		s.logger.Error("Stored credential failed decryption, treating as not connected",
			"user_id", userID,
			"provider_id", providerID,
			"error", decErr)
		if s.auditor != nil {
			s.auditor.LogDecryptFailure(userID, providerID, decErr.Error())
		}
		if s.instrumentation != nil {
			s.instrumentation.Metrics().RecordDecryptFailure(ctx, providerID)
		}
		err = fmt.Errorf("%w: %s/%s", storage.ErrCredentialNotFound, userID, providerID)
		return nil, err
	}

	return cred, nil
}

// Put encrypts and stores a credential, inserting or replacing the record for
// the credential's user and provider. An empty incoming ResourceID preserves
// the stored one. CreatedAt survives updates; UpdatedAt is always bumped.
func (s *Store) Put(ctx context.Context, cred *storage.Credential) error {
	ctx, span := s.startStorageSpan(ctx, "put_credential")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "put_credential", err, startTime)
	}()

	if cred == nil {
		err = fmt.Errorf("credential is required")
		return err
	}
	if cred.UserID == "" || cred.ProviderID == "" {
		err = fmt.Errorf("user ID and provider ID are required")
		return err
	}

	record := cred.Clone()
	now := time.Now().UTC()
	record.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	key := credentialKey{record.UserID, record.ProviderID}
	existing, existed := s.credentials[key]

	if existed {
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

	enc, encErr := storage.EncryptCredential(s.cipher, record)
	if encErr != nil {
		err = encErr
		return err
	}

	s.credentials[key] = enc
	if !existed {
		s.credentialCount.Add(1)
	}

	s.logger.Debug("Saved credential",
		"user_id", record.UserID,
		"provider_id", record.ProviderID,
		"updated", existed)
	return nil
}

// Delete removes the credential for a user and provider. Deleting a
// credential that does not exist is not an error.
func (s *Store) Delete(ctx context.Context, userID, providerID string) error {
	ctx, span := s.startStorageSpan(ctx, "delete_credential")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "delete_credential", err, startTime)
	}()

	if userID == "" || providerID == "" {
		err = fmt.Errorf("user ID and provider ID are required")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := credentialKey{userID, providerID}
	_, existed := s.credentials[key]

	delete(s.credentials, key)

	if existed {
		s.credentialCount.Add(-1)
	}

	s.logger.Debug("Deleted credential", "user_id", userID, "provider_id", providerID)
	return nil
}

// ListByUser returns all decryptable credentials for a user, ordered by
// provider ID. Records that fail decryption are skipped and logged.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*storage.Credential, error) {
	ctx, span := s.startStorageSpan(ctx, "list_credentials")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "list_credentials", err, startTime)
	}()

	if userID == "" {
		err = fmt.Errorf("user ID is required")
		return nil, err
	}

	s.mu.RLock()
	encs := make([]*storage.EncryptedCredential, 0, len(s.credentials))
	for key, enc := range s.credentials {
		if key.userID == userID {
			encs = append(encs, enc)
		}
	}
	s.mu.RUnlock()

	creds := make([]*storage.Credential, 0, len(encs))
	for _, enc := range encs {
		cred, decErr := storage.DecryptCredential(s.cipher, enc)
		if decErr != nil {
			s.logger.Error("Skipping credential that failed decryption",
				"user_id", userID,
				"provider_id", enc.ProviderID,
				"error", decErr)
			if s.auditor != nil {
				s.auditor.LogDecryptFailure(userID, enc.ProviderID, decErr.Error())
			}
			continue
		}
		creds = append(creds, cred)
	}

	sort.Slice(creds, func(i, j int) bool {
		return creds[i].ProviderID < creds[j].ProviderID
	})

	return creds, nil
}

// Len reports the number of stored credentials across all users
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.credentials)
}

// startStorageSpan starts a tracing span for a storage operation (no-op when
// instrumentation is not configured)
func (s *Store) startStorageSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := s.tracer.Start(ctx, fmt.Sprintf("storage.%s", operation),
		trace.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("storage.type", "memory"),
		))

	return ctx, span
}

// recordStorageOperation records metrics for a storage operation and sets span status
func (s *Store) recordStorageOperation(ctx context.Context, span trace.Span, operation string, err error, startTime time.Time) {
	if s.instrumentation == nil {
		return
	}

	durationMs := float64(time.Since(startTime).Milliseconds())
	result := "success"
	if err != nil {
		result = "error"
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	} else {
		if span != nil {
			span.SetStatus(codes.Ok, "")
		}
	}

	s.instrumentation.Metrics().RecordStorageOperation(ctx, operation, result, durationMs)
}
