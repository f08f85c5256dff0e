package unlock

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"blockhunt/internal/db"
	"blockhunt/internal/models"
	"blockhunt/internal/scan"
)

func TestResolveGrantsThenDeduplicates(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com")
	code := env.createCode(t, "Hunt station 1", "controls_if", nil, nil)

	payload := &scan.Payload{Type: scan.PayloadType, QRID: code.ID, Block: "controls_if"}

	result, err := env.resolver.Resolve(user.ID, payload)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !result.IsNew {
		t.Error("first scan: isNew = false, want true")
	}
	if result.BlockID != "controls_if" {
		t.Errorf("blockId = %q, want %q", result.BlockID, "controls_if")
	}
	if result.TotalOwned != 1 {
		t.Errorf("totalOwned = %d, want 1", result.TotalOwned)
	}

	result, err = env.resolver.Resolve(user.ID, payload)
	if err != nil {
		t.Fatalf("Resolve() second scan error = %v", err)
	}
	if result.IsNew {
		t.Error("second scan: isNew = true, want false")
	}
	if result.TotalOwned != 1 {
		t.Errorf("totalOwned after re-scan = %d, want 1", result.TotalOwned)
	}

	owned, err := env.collection.OwnedSet(user.ID)
	if err != nil {
		t.Fatalf("OwnedSet() error = %v", err)
	}
	if len(owned) != 1 {
		t.Fatalf("owned set size = %d, want 1", len(owned))
	}
	if _, ok := owned["controls_if"]; !ok {
		t.Fatal("owned set missing controls_if")
	}
}

func TestResolveUnknownCodeLeavesCollectionUntouched(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "bob@example.com")

	payload := &scan.Payload{Type: scan.PayloadType, QRID: "qr_missing", Block: "controls_if"}

	_, err := env.resolver.Resolve(user.ID, payload)
	if !errors.Is(err, ErrUnknownCode) {
		t.Fatalf("Resolve() error = %v, want ErrUnknownCode", err)
	}

	count, err := env.collection.CountForUser(user.ID)
	if err != nil {
		t.Fatalf("CountForUser() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("owned count = %d, want 0", count)
	}
}

func TestResolveInactiveCodeShortCircuitsWithinWindow(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "carol@example.com")

	start := env.now.Add(-time.Hour)
	end := env.now.Add(time.Hour)
	code := env.createCode(t, "Disabled station", "text_print", &start, &end)
	if err := env.codes.SetActive(code.ID, false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}

	_, err := env.resolver.Resolve(user.ID, &scan.Payload{Type: scan.PayloadType, QRID: code.ID, Block: "text_print"})
	if !errors.Is(err, ErrInactiveCode) {
		t.Fatalf("Resolve() error = %v, want ErrInactiveCode", err)
	}
}

func TestResolveExpiredCodeRegardlessOfActiveFlag(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "dave@example.com")

	end := env.now.Add(-24 * time.Hour)
	payload := &scan.Payload{Type: scan.PayloadType, QRID: "", Block: "text_print"}

	// Expired wins whether the code is still enabled or was also disabled.
	for _, active := range []bool{true, false} {
		code := env.createCode(t, "Last week's hunt", "text_print", nil, &end)
		if !active {
			if err := env.codes.SetActive(code.ID, false); err != nil {
				t.Fatalf("SetActive() error = %v", err)
			}
		}

		payload.QRID = code.ID
		_, err := env.resolver.Resolve(user.ID, payload)
		if !errors.Is(err, ErrExpiredCode) {
			t.Fatalf("Resolve() with active=%v error = %v, want ErrExpiredCode", active, err)
		}
	}
}

func TestResolveNotYetActiveCode(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "erin@example.com")

	start := env.now.Add(24 * time.Hour)
	code := env.createCode(t, "Next week's hunt", "text_print", &start, nil)

	_, err := env.resolver.Resolve(user.ID, &scan.Payload{Type: scan.PayloadType, QRID: code.ID, Block: "text_print"})
	if !errors.Is(err, ErrNotYetActive) {
		t.Fatalf("Resolve() error = %v, want ErrNotYetActive", err)
	}
}

func TestResolveWindowBoundsAreInclusive(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "frank@example.com")

	start := env.now
	end := env.now
	code := env.createCode(t, "One-moment hunt", "text_print", &start, &end)

	result, err := env.resolver.Resolve(user.ID, &scan.Payload{Type: scan.PayloadType, QRID: code.ID, Block: "text_print"})
	if err != nil {
		t.Fatalf("Resolve() at window boundary error = %v", err)
	}
	if !result.IsNew {
		t.Fatal("isNew = false at inclusive boundary, want true")
	}
}

func TestIsUnlocked(t *testing.T) {
	owned := map[string]struct{}{"controls_if": {}}

	tests := []struct {
		name      string
		blockID   string
		isDefault bool
		want      bool
	}{
		{name: "default_block_without_ownership", blockID: "math_number", isDefault: true, want: true},
		{name: "default_block_with_ownership", blockID: "controls_if", isDefault: true, want: true},
		{name: "owned_gated_block", blockID: "controls_if", isDefault: false, want: true},
		{name: "unowned_gated_block", blockID: "controls_for", isDefault: false, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnlocked(tt.blockID, owned, tt.isDefault); got != tt.want {
				t.Fatalf("IsUnlocked(%q) = %v, want %v", tt.blockID, got, tt.want)
			}
		})
	}
}

type testEnv struct {
	users      *db.UserRepository
	codes      *db.QRCodeRepository
	collection *db.CollectionRepository
	resolver   *Resolver
	now        time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	env := &testEnv{
		users:      db.NewUserRepository(database),
		codes:      db.NewQRCodeRepository(database),
		collection: db.NewCollectionRepository(database),
		now:        time.Now().UTC(),
	}
	env.resolver = NewResolver(env.codes, env.collection)
	env.resolver.now = func() time.Time { return env.now }

	return env
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()

	user, err := e.users.Create(email, "Test User", "hash", models.RoleUser)
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return user
}

func (e *testEnv) createCode(t *testing.T, label, blockID string, startsAt, endsAt *time.Time) *models.QRCode {
	t.Helper()

	code, err := e.codes.Create(label, blockID, startsAt, endsAt)
	if err != nil {
		t.Fatalf("creating QR code: %v", err)
	}
	return code
}
