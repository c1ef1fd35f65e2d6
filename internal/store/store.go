package store

import (
	"context"
	"errors"

	"moo-rewards-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountExists          = errors.New("account already exists")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrReferralAlreadySet     = errors.New("referral already set")
	ErrReferralCodeUnknown    = errors.New("referral code unknown")
	ErrSelfReferral           = errors.New("self referral not allowed")

	// ErrNoChange may be returned from an UpdateFunc to abort the update
	// without writing anything. UpdateAccount then returns the account as
	// read, and no row is touched.
	ErrNoChange = errors.New("no change")
)

// UpdateFunc mutates an account inside an atomic read-modify-write. The
// argument is a fresh copy of the stored record; the function must be pure
// with respect to everything except its argument, because the store may
// invoke it again after a version conflict.
type UpdateFunc func(*models.UserAccount) error

// AccountStore is the contract every backend (SQLite, in-memory) must
// satisfy. Both writers to an account record, the message reward handler
// and the settlement job, go through this interface; no caller mutates
// account fields outside a transactional method.
type AccountStore interface {
	// --- Accounts ---
	GetAccount(ctx context.Context, userID string) (*models.UserAccount, error)
	GetAccountByReferralCode(ctx context.Context, code string) (*models.UserAccount, error)
	CreateAccount(ctx context.Context, account models.UserAccount) (*models.UserAccount, error)
	ListAccounts(ctx context.Context) ([]models.UserAccount, error)

	// UpdateAccount atomically applies fn to the account identified by
	// userID. The read and the write happen under the same transaction
	// with compare-and-retry on the record version; a concurrent writer
	// never causes a lost increment, only a retry.
	UpdateAccount(ctx context.Context, userID string, fn UpdateFunc) (*models.UserAccount, error)

	// ApplyReferral links referee to the owner of code, credits the
	// referrer's main balance with bonus and marks the referee's referral
	// task completed, all in one transaction.
	ApplyReferral(ctx context.Context, refereeID, code string, bonus decimal.Decimal) (*models.UserAccount, error)

	// SettlePendingBalances moves every nonzero pending balance into the
	// corresponding main balance and zeroes pending, as one atomic batch.
	// Accounts with zero pending are not written at all.
	SettlePendingBalances(ctx context.Context) (*models.SettlementSummary, error)

	// --- Settings ---
	GetSettings(ctx context.Context) (*models.AppSettings, error)
	SaveSettings(ctx context.Context, settings models.AppSettings) error

	// --- Lifecycle ---
	Close()
}
