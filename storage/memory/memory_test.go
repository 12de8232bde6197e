package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/catalyst-dev/vcs-auth/instrumentation"
	"github.com/catalyst-dev/vcs-auth/internal/testutil"
	"github.com/catalyst-dev/vcs-auth/security"
	"github.com/catalyst-dev/vcs-auth/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	key, err := security.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	cipher, err := security.NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	store, err := New(cipher)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	store.SetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	return store
}

func testCredential() *storage.Credential {
	return &storage.Credential{
		UserID:       "user-1",
		ProviderID:   "github",
		AccessToken:  "gho_access_token_value",
		RefreshToken: "ghr_refresh_token_value",
		TokenType:    "bearer",
		Scope:        "repo read:user",
		ExpiresAt:    time.Now().Add(8 * time.Hour).UTC(),
	}
}

func TestNewRequiresCipher(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) expected error, got nil")
	}
}

func TestPutAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cred := testCredential()
	if err := store.Put(ctx, cred); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx, "user-1", "github")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.AccessToken != cred.AccessToken {
		t.Errorf("AccessToken = %q, want %q", got.AccessToken, cred.AccessToken)
	}
	if got.RefreshToken != cred.RefreshToken {
		t.Errorf("RefreshToken = %q, want %q", got.RefreshToken, cred.RefreshToken)
	}
	if got.Scope != cred.Scope {
		t.Errorf("Scope = %q, want %q", got.Scope, cred.Scope)
	}
	if !got.ExpiresAt.Equal(cred.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, cred.ExpiresAt)
	}
	if got.ID == "" {
		t.Error("Get() returned credential with empty ID, want generated ID")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero, want set on insert")
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt is zero, want set on insert")
	}

	// The caller's copy must not be mutated into the stored record
	cred.AccessToken = "changed-after-put"
	got2, err := store.Get(ctx, "user-1", "github")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got2.AccessToken != "gho_access_token_value" {
		t.Errorf("stored AccessToken = %q, want insulation from caller mutation", got2.AccessToken)
	}
}

func TestPutUpsertsByUserAndProvider(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testCredential()
	first.ResourceID = "install-42"
	if err := store.Put(ctx, first); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	before, err := store.Get(ctx, "user-1", "github")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	second := testCredential()
	second.AccessToken = "gho_rotated_access"
	second.RefreshToken = "ghr_rotated_refresh"
	if err := store.Put(ctx, second); err != nil {
		t.Fatalf("Put() second error = %v", err)
	}

	after, err := store.Get(ctx, "user-1", "github")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after upsert", store.Len())
	}
	if after.AccessToken != "gho_rotated_access" {
		t.Errorf("AccessToken = %q, want rotated value", after.AccessToken)
	}
	if after.ID != before.ID {
		t.Errorf("ID changed on upsert: %q != %q", after.ID, before.ID)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("CreatedAt changed on upsert: %v != %v", after.CreatedAt, before.CreatedAt)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want later than %v", after.UpdatedAt, before.UpdatedAt)
	}
}

func TestPutPreservesResourceID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testCredential()
	first.ResourceID = "install-42"
	if err := store.Put(ctx, first); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Update with empty ResourceID keeps the stored identifier
	second := testCredential()
	second.ResourceID = ""
	if err := store.Put(ctx, second); err != nil {
		t.Fatalf("Put() second error = %v", err)
	}

	got, err := store.Get(ctx, "user-1", "github")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ResourceID != "install-42" {
		t.Errorf("ResourceID = %q, want preserved %q", got.ResourceID, "install-42")
	}

	// A non-empty incoming ResourceID replaces it
	third := testCredential()
	third.ResourceID = "install-99"
	if err := store.Put(ctx, third); err != nil {
		t.Fatalf("Put() third error = %v", err)
	}

	got, err = store.Get(ctx, "user-1", "github")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ResourceID != "install-99" {
		t.Errorf("ResourceID = %q, want %q", got.ResourceID, "install-99")
	}
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "user-1", "github")
	if !errors.Is(err, storage.ErrCredentialNotFound) {
		t.Errorf("Get() error = %v, want ErrCredentialNotFound", err)
	}
}

func TestGetFailsClosedOnUndecryptableRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var audit bytes.Buffer
	store.SetAuditor(security.NewAuditor(slog.New(slog.NewTextHandler(&audit, nil)), true))

	if err := store.Put(ctx, testCredential()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Corrupt the stored ciphertext to simulate key rotation or bit rot
	store.mu.Lock()
	enc := store.credentials[credentialKey{"user-1", "github"}]
	enc.AccessToken.Ciphertext[0] ^= 0xFF
	store.mu.Unlock()

	_, err := store.Get(ctx, "user-1", "github")
	if !errors.Is(err, storage.ErrCredentialNotFound) {
		t.Errorf("Get() error = %v, want ErrCredentialNotFound for undecryptable record", err)
	}

	if !bytes.Contains(audit.Bytes(), []byte("decrypt_failure")) {
		t.Error("expected decrypt_failure audit event, got none")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, testCredential()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := store.Delete(ctx, "user-1", "github"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "user-1", "github"); err != nil {
		t.Errorf("Delete() second call error = %v, want nil", err)
	}
	if err := store.Delete(ctx, "never-existed", "github"); err != nil {
		t.Errorf("Delete() unknown user error = %v, want nil", err)
	}

	if _, err := store.Get(ctx, "user-1", "github"); !errors.Is(err, storage.ErrCredentialNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrCredentialNotFound", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestListByUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"gitlab", "github", "bitbucket"} {
		cred := testCredential()
		cred.ProviderID = p
		if err := store.Put(ctx, cred); err != nil {
			t.Fatalf("Put(%s) error = %v", p, err)
		}
	}

	other := testCredential()
	other.UserID = "user-2"
	if err := store.Put(ctx, other); err != nil {
		t.Fatalf("Put(user-2) error = %v", err)
	}

	creds, err := store.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}

	want := []string{"bitbucket", "github", "gitlab"}
	if len(creds) != len(want) {
		t.Fatalf("ListByUser() returned %d credentials, want %d", len(creds), len(want))
	}
	for i, cred := range creds {
		if cred.ProviderID != want[i] {
			t.Errorf("creds[%d].ProviderID = %q, want %q", i, cred.ProviderID, want[i])
		}
	}
}

func TestListByUserSkipsUndecryptable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	good := testCredential()
	good.ProviderID = "github"
	if err := store.Put(ctx, good); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	bad := testCredential()
	bad.ProviderID = "gitlab"
	if err := store.Put(ctx, bad); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	store.mu.Lock()
	store.credentials[credentialKey{"user-1", "gitlab"}].RefreshToken.AuthTag[0] ^= 0x01
	store.mu.Unlock()

	creds, err := store.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(creds) != 1 {
		t.Fatalf("ListByUser() returned %d credentials, want 1", len(creds))
	}
	if creds[0].ProviderID != "github" {
		t.Errorf("ProviderID = %q, want %q", creds[0].ProviderID, "github")
	}
}

func TestValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, nil); err == nil {
		t.Error("Put(nil) expected error")
	}
	if err := store.Put(ctx, &storage.Credential{ProviderID: "github"}); err == nil {
		t.Error("Put() without user ID expected error")
	}
	if _, err := store.Get(ctx, "", "github"); err == nil {
		t.Error("Get() without user ID expected error")
	}
	if err := store.Delete(ctx, "user-1", ""); err == nil {
		t.Error("Delete() without provider ID expected error")
	}
	if _, err := store.ListByUser(ctx, ""); err == nil {
		t.Error("ListByUser() without user ID expected error")
	}
}

func TestInstrumentedOperations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inst, err := instrumentation.New(instrumentation.Config{Enabled: true, ServiceName: "test"})
	if err != nil {
		t.Fatalf("instrumentation.New() error = %v", err)
	}
	store.SetInstrumentation(inst)

	if err := store.Put(ctx, testCredential()); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := store.Get(ctx, "user-1", "github"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := store.Delete(ctx, "user-1", "github"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			mine := testutil.GenerateTestCredential(fmt.Sprintf("writer-%d", i), "github")
			for j := 0; j < 25; j++ {
				cred := testCredential()
				if err := store.Put(ctx, cred); err != nil {
					t.Errorf("Put() error = %v", err)
					return
				}
				if err := store.Put(ctx, mine); err != nil {
					t.Errorf("Put() error = %v", err)
					return
				}
				if _, err := store.Get(ctx, cred.UserID, cred.ProviderID); err != nil &&
					!errors.Is(err, storage.ErrCredentialNotFound) {
					t.Errorf("Get() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if store.Len() != 9 {
		t.Errorf("Len() = %d, want 9 (one shared key plus one per writer)", store.Len())
	}
}
