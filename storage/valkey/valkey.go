package valkey

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	valkeygo "github.com/valkey-io/valkey-go"

	"github.com/catalyst-dev/vcs-auth/security"
	"github.com/catalyst-dev/vcs-auth/storage"
)

const (
	// DefaultKeyPrefix is the default prefix for all Valkey keys
	DefaultKeyPrefix = "vcsauth:"

	// scanBatchSize is the number of keys to fetch per SCAN iteration
	scanBatchSize = 100

	// connectionVerifyTimeout is the timeout for initial connection verification
	connectionVerifyTimeout = 5 * time.Second

	// MaxIDLength is the maximum allowed length for identifiers (userID, providerID)
	MaxIDLength = 256
)

// Config holds configuration for the Valkey storage backend.
type Config struct {
	// Address is the Valkey server address (required), e.g., "localhost:6379"
	Address string

	// Password is the optional password for Valkey authentication
	Password string

	// DB is the optional database number (default 0)
	DB int

	// KeyPrefix is the prefix for all keys (default "vcsauth:")
	KeyPrefix string

	// TLS is the optional TLS configuration for encrypted connections
	TLS *tls.Config

	// Cipher encrypts tokens before they reach Valkey (required)
	Cipher *security.Cipher

	// Logger is the optional structured logger (default: slog.Default())
	Logger *slog.Logger
}

// Store is a Valkey-backed implementation of storage.CredentialStore.
// Credentials are stored without TTL: a stale record is input to the next
// refresh, never evicted.
type Store struct {
	client valkeygo.Client
	prefix string
	cipher *security.Cipher
	logger *slog.Logger

	auditor *security.Auditor
}

// Compile-time interface check
var _ storage.CredentialStore = (*Store)(nil)

// New creates a new Valkey-backed storage instance.
// Returns an error if the connection cannot be established.
func New(cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("valkey address is required")
	}
	if cfg.Cipher == nil {
		return nil, fmt.Errorf("cipher is required")
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := valkeygo.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	if cfg.TLS != nil {
		opts.TLSConfig = cfg.TLS
	}

	client, err := valkeygo.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), connectionVerifyTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	logger.Info("Connected to Valkey storage",
		"address", cfg.Address,
		"db", cfg.DB,
		"prefix", prefix)

	return &Store{
		client: client,
		prefix: prefix,
		cipher: cfg.Cipher,
		logger: logger,
	}, nil
}

// Close closes the Valkey client connection.
func (s *Store) Close() {
	s.client.Close()
	s.logger.Info("Valkey storage connection closed")
}

// SetLogger sets a custom logger for the store.
func (s *Store) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// SetAuditor sets the security auditor for credential access events.
func (s *Store) SetAuditor(auditor *security.Auditor) {
	s.auditor = auditor
}

// credentialKey builds the key for a user's credential with a provider
func (s *Store) credentialKey(userID, providerID string) string {
	return fmt.Sprintf("%scred:%s:%s", s.prefix, userID, providerID)
}

// encryptedTokenJSON is the wire form of one sealed token field.
type encryptedTokenJSON struct {
	Ciphertext []byte `json:"ciphertext"`
	IV         []byte `json:"iv"`
	AuthTag    []byte `json:"auth_tag"`
}

// credentialJSON is the JSON-serializable representation of an encrypted
// credential as stored in Valkey.
type credentialJSON struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	ProviderID   string             `json:"provider_id"`
	ResourceID   string             `json:"resource_id,omitempty"`
	AccessToken  encryptedTokenJSON `json:"access_token"`
	RefreshToken encryptedTokenJSON `json:"refresh_token"`
	TokenType    string             `json:"token_type,omitempty"`
	Scope        string             `json:"scope,omitempty"`
	ExpiresAt    time.Time          `json:"expires_at"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func toCredentialJSON(enc *storage.EncryptedCredential) *credentialJSON {
	return &credentialJSON{
		ID:         enc.ID,
		UserID:     enc.UserID,
		ProviderID: enc.ProviderID,
		ResourceID: enc.ResourceID,
		AccessToken: encryptedTokenJSON{
			Ciphertext: enc.AccessToken.Ciphertext,
			IV:         enc.AccessToken.IV,
			AuthTag:    enc.AccessToken.AuthTag,
		},
		RefreshToken: encryptedTokenJSON{
			Ciphertext: enc.RefreshToken.Ciphertext,
			IV:         enc.RefreshToken.IV,
			AuthTag:    enc.RefreshToken.AuthTag,
		},
		TokenType: enc.TokenType,
		Scope:     enc.Scope,
		ExpiresAt: enc.ExpiresAt,
		CreatedAt: enc.CreatedAt,
		UpdatedAt: enc.UpdatedAt,
	}
}

func fromCredentialJSON(j *credentialJSON) *storage.EncryptedCredential {
	return &storage.EncryptedCredential{
		ID:         j.ID,
		UserID:     j.UserID,
		ProviderID: j.ProviderID,
		ResourceID: j.ResourceID,
		AccessToken: &security.EncryptedToken{
			Ciphertext: j.AccessToken.Ciphertext,
			IV:         j.AccessToken.IV,
			AuthTag:    j.AccessToken.AuthTag,
		},
		RefreshToken: &security.EncryptedToken{
			Ciphertext: j.RefreshToken.Ciphertext,
			IV:         j.RefreshToken.IV,
			AuthTag:    j.RefreshToken.AuthTag,
		},
		TokenType: j.TokenType,
		Scope:     j.Scope,
		ExpiresAt: j.ExpiresAt,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// validateID rejects identifiers that would produce oversized keys
func validateID(value, field string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(value) > MaxIDLength {
		return fmt.Errorf("%s exceeds maximum length of %d", field, MaxIDLength)
	}
	return nil
}

// Get retrieves and decrypts the credential for a user and provider.
// A record that fails authenticated decryption, or that no longer
// unmarshals, is reported as absent and logged.
func (s *Store) Get(ctx context.Context, userID, providerID string) (*storage.Credential, error) {
	if err := validateID(userID, "user ID"); err != nil {
		return nil, err
	}
	if err := validateID(providerID, "provider ID"); err != nil {
		return nil, err
	}

	key := s.credentialKey(userID, providerID)

	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if valkeygo.IsValkeyNil(err) {
			return nil, fmt.Errorf("%w: %s/%s", storage.ErrCredentialNotFound, userID, providerID)
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	var j credentialJSON
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		s.logger.Error("Stored credential is malformed, treating as not connected",
			"user_id", userID,
			"provider_id", providerID,
			"error", err)
		return nil, fmt.Errorf("%w: %s/%s", storage.ErrCredentialNotFound, userID, providerID)
	}

	cred, decErr := storage.DecryptCredential(s.cipher, fromCredentialJSON(&j))
	if decErr != nil {
		s.logger.Error("Stored credential failed decryption, treating as not connected",
			"user_id", userID,
			"provider_id", providerID,
			"error", decErr)
		if s.auditor != nil {
			s.auditor.LogDecryptFailure(userID, providerID, decErr.Error())
		}
		return nil, fmt.Errorf("%w: %s/%s", storage.ErrCredentialNotFound, userID, providerID)
	}

	return cred, nil
}

// Put encrypts and stores a credential, inserting or replacing the record
// for the credential's user and provider. The read-modify-write is not
// atomic across processes; concurrent writers resolve last-write-wins.
func (s *Store) Put(ctx context.Context, cred *storage.Credential) error {
	if cred == nil {
		return fmt.Errorf("credential is required")
	}
	if err := validateID(cred.UserID, "user ID"); err != nil {
		return err
	}
	if err := validateID(cred.ProviderID, "provider ID"); err != nil {
		return err
	}

	record := cred.Clone()
	now := time.Now().UTC()
	record.UpdatedAt = now

	// Carry forward identity fields from an existing record
	key := s.credentialKey(record.UserID, record.ProviderID)
	if data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).ToString(); err == nil {
		var existing credentialJSON
		if err := json.Unmarshal([]byte(data), &existing); err == nil {
			record.ID = existing.ID
			record.CreatedAt = existing.CreatedAt
			if record.ResourceID == "" {
				record.ResourceID = existing.ResourceID
			}
		}
	} else if !valkeygo.IsValkeyNil(err) {
		return fmt.Errorf("failed to read existing credential: %w", err)
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	enc, err := storage.EncryptCredential(s.cipher, record)
	if err != nil {
		return err
	}

	data, err := json.Marshal(toCredentialJSON(enc))
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	if err := s.client.Do(ctx, s.client.B().Set().Key(key).Value(string(data)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	s.logger.Debug("Saved credential",
		"user_id", record.UserID,
		"provider_id", record.ProviderID)
	return nil
}

// Delete removes the credential for a user and provider. Deleting a
// credential that does not exist is not an error.
func (s *Store) Delete(ctx context.Context, userID, providerID string) error {
	if err := validateID(userID, "user ID"); err != nil {
		return err
	}
	if err := validateID(providerID, "provider ID"); err != nil {
		return err
	}

	key := s.credentialKey(userID, providerID)

	if err := s.client.Do(ctx, s.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	s.logger.Debug("Deleted credential", "user_id", userID, "provider_id", providerID)
	return nil
}

// ListByUser returns all decryptable credentials for a user, ordered by
// provider ID. Records that fail decryption are skipped and logged.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*storage.Credential, error) {
	if err := validateID(userID, "user ID"); err != nil {
		return nil, err
	}

	pattern := s.credentialKey(userID, "*")

	// Deduplicate results (SCAN can return duplicates across iterations)
	seen := make(map[string]*storage.Credential)

	var cursor uint64
	for {
		result, err := s.client.Do(ctx,
			s.client.B().Scan().Cursor(cursor).Match(pattern).Count(scanBatchSize).Build(),
		).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to scan credentials: %w", err)
		}

		for _, key := range result.Elements {
			if _, exists := seen[key]; exists {
				continue
			}

			data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).ToString()
			if err != nil {
				if valkeygo.IsValkeyNil(err) {
					continue // Key deleted between SCAN and GET
				}
				return nil, fmt.Errorf("failed to get credential %s: %w", key, err)
			}

			var j credentialJSON
			if err := json.Unmarshal([]byte(data), &j); err != nil {
				s.logger.Warn("Skipping malformed credential record",
					"key", key,
					"error", err)
				continue
			}

			cred, decErr := storage.DecryptCredential(s.cipher, fromCredentialJSON(&j))
			if decErr != nil {
				s.logger.Error("Skipping credential that failed decryption",
					"user_id", userID,
					"provider_id", j.ProviderID,
					"error", decErr)
				if s.auditor != nil {
					s.auditor.LogDecryptFailure(userID, j.ProviderID, decErr.Error())
				}
				continue
			}

			seen[key] = cred
		}

		cursor = result.Cursor
		if cursor == 0 {
			break
		}
	}

	creds := make([]*storage.Credential, 0, len(seen))
	for _, cred := range seen {
		creds = append(creds, cred)
	}
	sort.Slice(creds, func(i, j int) bool {
		return creds[i].ProviderID < creds[j].ProviderID
	})

	return creds, nil
}
