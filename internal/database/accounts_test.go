package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"moo-rewards-go/internal/models"
	"moo-rewards-go/internal/store"
)

func setupTestDB(t *testing.T) (*Service, func()) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every pooled :memory: connection is a separate database.
	db.SetMaxOpenConns(1)

	service, err := NewServiceWithDB(db)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	cleanup := func() {
		db.Close()
	}
	return service, cleanup
}

func mustCreate(t *testing.T, service *Service, account models.UserAccount) *models.UserAccount {
	t.Helper()
	created, err := service.CreateAccount(context.Background(), account)
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	return created
}

func TestCreateAndGetAccount(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	created := mustCreate(t, service, models.NewUserAccount("7001", "MOO-AAAA1111"))
	if created.Version != 1 {
		t.Errorf("new account version = %d, want 1", created.Version)
	}
	if !created.MainBalance.IsZero() || !created.PendingBalance.IsZero() {
		t.Errorf("new account balances = %s/%s, want 0/0", created.MainBalance, created.PendingBalance)
	}
	for _, name := range models.TaskNames {
		if created.SocialTasks[name] != models.TaskIdle {
			t.Errorf("task %s = %s, want idle", name, created.SocialTasks[name])
		}
	}

	got, err := service.GetAccount(ctx, "7001")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got.ReferralCode != "MOO-AAAA1111" {
		t.Errorf("referral code = %q", got.ReferralCode)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := service.GetAccount(context.Background(), "nobody")
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("GetAccount(nobody) err = %v, want ErrAccountNotFound", err)
	}
}

func TestCreateAccount_Duplicate(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	mustCreate(t, service, models.NewUserAccount("7001", "MOO-AAAA1111"))
	_, err := service.CreateAccount(context.Background(), models.NewUserAccount("7001", "MOO-BBBB2222"))
	if !errors.Is(err, store.ErrAccountExists) {
		t.Errorf("duplicate create err = %v, want ErrAccountExists", err)
	}

	// Referral codes are unique too.
	_, err = service.CreateAccount(context.Background(), models.NewUserAccount("7002", "MOO-AAAA1111"))
	if !errors.Is(err, store.ErrAccountExists) {
		t.Errorf("duplicate code create err = %v, want ErrAccountExists", err)
	}
}

func TestUpdateAccount_IncrementsPending(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	mustCreate(t, service, models.NewUserAccount("7001", "MOO-AAAA1111"))

	updated, err := service.UpdateAccount(ctx, "7001", func(account *models.UserAccount) error {
		account.PendingBalance = account.PendingBalance.Add(decimal.NewFromInt(20))
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}
	if !updated.PendingBalance.Equal(decimal.NewFromInt(20)) {
		t.Errorf("pending = %s, want 20", updated.PendingBalance)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}

	// Reread confirms the write is durable, not just echoed.
	got, err := service.GetAccount(ctx, "7001")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !got.PendingBalance.Equal(decimal.NewFromInt(20)) {
		t.Errorf("stored pending = %s, want 20", got.PendingBalance)
	}
}

func TestUpdateAccount_NoChange(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	created := mustCreate(t, service, models.NewUserAccount("7001", "MOO-AAAA1111"))

	got, err := service.UpdateAccount(ctx, "7001", func(account *models.UserAccount) error {
		account.PendingBalance = decimal.NewFromInt(999) // must be discarded
		return store.ErrNoChange
	})
	if err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}
	if !got.PendingBalance.IsZero() {
		t.Errorf("pending after no-change = %s, want 0", got.PendingBalance)
	}
	if got.Version != created.Version {
		t.Errorf("version after no-change = %d, want %d", got.Version, created.Version)
	}
}

// bumpVersion simulates a concurrent writer committing between the read and
// the guarded write of one update attempt. Run inside the attempt's own
// transaction it is rolled back with the failed attempt, so every retry
// conflicts again until the hook stops firing.
func bumpVersion(tx *sql.Tx, userID string) error {
	_, err := tx.Exec("UPDATE accounts SET version = version + 1 WHERE id = ?", userID)
	return err
}

func TestUpdateAccount_RetriesAfterVersionConflict(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	mustCreate(t, service, models.NewUserAccount("7001", "MOO-AAAA1111"))

	conflicts := 0
	service.beforeUpdateWrite = func(tx *sql.Tx) error {
		if conflicts >= 2 {
			return nil
		}
		conflicts++
		return bumpVersion(tx, "7001")
	}

	attempts := 0
	updated, err := service.UpdateAccount(ctx, "7001", func(account *models.UserAccount) error {
		attempts++
		account.PendingBalance = account.PendingBalance.Add(decimal.NewFromInt(5))
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("update func ran %d times, want 3 (two conflicts then success)", attempts)
	}
	// Each conflicted attempt rolled back whole; the increment lands once.
	if !updated.PendingBalance.Equal(decimal.NewFromInt(5)) {
		t.Errorf("pending = %s, want 5", updated.PendingBalance)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}

	got, err := service.GetAccount(ctx, "7001")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !got.PendingBalance.Equal(decimal.NewFromInt(5)) {
		t.Errorf("stored pending = %s, want 5", got.PendingBalance)
	}
}

func TestUpdateAccount_ExhaustsRetries(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	mustCreate(t, service, models.NewUserAccount("7001", "MOO-AAAA1111"))

	service.beforeUpdateWrite = func(tx *sql.Tx) error {
		return bumpVersion(tx, "7001")
	}

	_, err := service.UpdateAccount(ctx, "7001", func(account *models.UserAccount) error {
		account.PendingBalance = account.PendingBalance.Add(decimal.NewFromInt(5))
		return nil
	})
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Fatalf("exhausted update err = %v, want ErrConcurrentModification", err)
	}

	// Nothing committed across any attempt.
	got, err := service.GetAccount(ctx, "7001")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !got.PendingBalance.IsZero() {
		t.Errorf("pending after exhausted update = %s, want 0", got.PendingBalance)
	}
	if got.Version != 1 {
		t.Errorf("version after exhausted update = %d, want 1", got.Version)
	}
}

func TestUpdateAccount_NotFound(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := service.UpdateAccount(context.Background(), "nobody", func(account *models.UserAccount) error {
		return nil
	})
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("UpdateAccount(nobody) err = %v, want ErrAccountNotFound", err)
	}
}

func TestUpdateAccount_PersistsTasksAndBoosts(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	mustCreate(t, service, models.NewUserAccount("7001", "MOO-AAAA1111"))

	_, err := service.UpdateAccount(ctx, "7001", func(account *models.UserAccount) error {
		account.LicenseActive = true
		account.SocialTasks[models.TaskTwitter] = models.TaskCompleted
		account.Boosts = append(account.Boosts, "5x")
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}

	got, err := service.GetAccount(ctx, "7001")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !got.LicenseActive {
		t.Error("license not persisted")
	}
	if got.SocialTasks[models.TaskTwitter] != models.TaskCompleted {
		t.Errorf("twitter task = %s, want completed", got.SocialTasks[models.TaskTwitter])
	}
	if !got.HasBoost("5x") {
		t.Errorf("boosts = %v, want [5x]", got.Boosts)
	}
}

func TestApplyReferral(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	mustCreate(t, service, models.NewUserAccount("referrer", "MOO-REF11111"))
	mustCreate(t, service, models.NewUserAccount("referee", "MOO-REF22222"))

	bonus := decimal.NewFromInt(100)
	referee, err := service.ApplyReferral(ctx, "referee", "MOO-REF11111", bonus)
	if err != nil {
		t.Fatalf("ApplyReferral failed: %v", err)
	}
	if referee.ReferredBy != "referrer" {
		t.Errorf("referred_by = %q, want referrer", referee.ReferredBy)
	}
	if referee.SocialTasks[models.TaskReferral] != models.TaskCompleted {
		t.Errorf("referral task = %s, want completed", referee.SocialTasks[models.TaskReferral])
	}

	referrer, err := service.GetAccount(ctx, "referrer")
	if err != nil {
		t.Fatalf("GetAccount(referrer) failed: %v", err)
	}
	if !referrer.MainBalance.Equal(bonus) {
		t.Errorf("referrer main = %s, want %s", referrer.MainBalance, bonus)
	}
}

func TestApplyReferral_Immutable(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	mustCreate(t, service, models.NewUserAccount("referrer", "MOO-REF11111"))
	mustCreate(t, service, models.NewUserAccount("other", "MOO-REF33333"))
	mustCreate(t, service, models.NewUserAccount("referee", "MOO-REF22222"))

	bonus := decimal.NewFromInt(100)
	if _, err := service.ApplyReferral(ctx, "referee", "MOO-REF11111", bonus); err != nil {
		t.Fatalf("first ApplyReferral failed: %v", err)
	}
	_, err := service.ApplyReferral(ctx, "referee", "MOO-REF33333", bonus)
	if !errors.Is(err, store.ErrReferralAlreadySet) {
		t.Errorf("second ApplyReferral err = %v, want ErrReferralAlreadySet", err)
	}

	// First referrer keeps exactly one bonus, second got nothing.
	referrer, _ := service.GetAccount(ctx, "referrer")
	if !referrer.MainBalance.Equal(bonus) {
		t.Errorf("referrer main = %s, want %s", referrer.MainBalance, bonus)
	}
	other, _ := service.GetAccount(ctx, "other")
	if !other.MainBalance.IsZero() {
		t.Errorf("other main = %s, want 0", other.MainBalance)
	}
}

func TestApplyReferral_Errors(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	mustCreate(t, service, models.NewUserAccount("referee", "MOO-REF22222"))
	bonus := decimal.NewFromInt(100)

	if _, err := service.ApplyReferral(ctx, "referee", "MOO-NOPE0000", bonus); !errors.Is(err, store.ErrReferralCodeUnknown) {
		t.Errorf("unknown code err = %v, want ErrReferralCodeUnknown", err)
	}
	if _, err := service.ApplyReferral(ctx, "referee", "MOO-REF22222", bonus); !errors.Is(err, store.ErrSelfReferral) {
		t.Errorf("self referral err = %v, want ErrSelfReferral", err)
	}
	if _, err := service.ApplyReferral(ctx, "nobody", "MOO-REF22222", bonus); !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("missing referee err = %v, want ErrAccountNotFound", err)
	}
}

func TestListAccounts(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	mustCreate(t, service, models.NewUserAccount("7001", "MOO-AAAA1111"))
	mustCreate(t, service, models.NewUserAccount("7002", "MOO-BBBB2222"))

	accounts, err := service.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("ListAccounts returned %d accounts, want 2", len(accounts))
	}
}
