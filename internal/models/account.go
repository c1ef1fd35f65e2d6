package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Social task names. Every account tracks exactly these four.
const (
	TaskTwitter   = "twitter"
	TaskTelegram  = "telegram"
	TaskCommunity = "community"
	TaskReferral  = "referral"
)

// TaskNames lists the social tasks in canonical order.
var TaskNames = []string{TaskTwitter, TaskTelegram, TaskCommunity, TaskReferral}

// Task statuses.
const (
	TaskIdle      = "idle"
	TaskVerifying = "verifying"
	TaskCompleted = "completed"
)

// UserAccount represents one Telegram user's reward state.
// MainBalance is settled currency; PendingBalance is accrued from chat
// activity and moved into MainBalance by the settlement job or an explicit
// claim. Version backs optimistic locking and must never be touched by
// callers.
type UserAccount struct {
	ID             string            `db:"id"`
	MainBalance    decimal.Decimal   `db:"main_balance"`
	PendingBalance decimal.Decimal   `db:"pending_balance"`
	LicenseActive  bool              `db:"license_active"`
	SocialTasks    map[string]string `db:"-"`
	Boosts         []string          `db:"-"`
	ReferralCode   string            `db:"referral_code"`
	ReferredBy     string            `db:"referred_by"`
	Version        int64             `db:"version"`
	CreatedAt      time.Time         `db:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at"`
}

// NewUserAccount returns a zero-balance account with all tasks idle.
func NewUserAccount(id, referralCode string) UserAccount {
	tasks := make(map[string]string, len(TaskNames))
	for _, name := range TaskNames {
		tasks[name] = TaskIdle
	}
	return UserAccount{
		ID:             id,
		MainBalance:    decimal.Zero,
		PendingBalance: decimal.Zero,
		SocialTasks:    tasks,
		Boosts:         []string{},
		ReferralCode:   referralCode,
	}
}

// AllTasksCompleted reports whether every social task has reached completed.
func (a *UserAccount) AllTasksCompleted() bool {
	for _, name := range TaskNames {
		if a.SocialTasks[name] != TaskCompleted {
			return false
		}
	}
	return true
}

// HasBoost reports whether the account owns the given boost.
func (a *UserAccount) HasBoost(id string) bool {
	for _, b := range a.Boosts {
		if b == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so update closures can mutate freely without
// aliasing store-held state.
func (a *UserAccount) Clone() UserAccount {
	cp := *a
	cp.SocialTasks = make(map[string]string, len(a.SocialTasks))
	for k, v := range a.SocialTasks {
		cp.SocialTasks[k] = v
	}
	cp.Boosts = append([]string(nil), a.Boosts...)
	return cp
}

// AppSettings is the singleton airdrop configuration record.
type AppSettings struct {
	AirdropLive    bool       `db:"airdrop_live"`
	AirdropEndDate *time.Time `db:"airdrop_end_date"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// SettledAccount records one user's movement in a settlement pass.
type SettledAccount struct {
	UserID string
	Amount decimal.Decimal
}

// SettlementSummary reports the outcome of one settlement pass.
type SettlementSummary struct {
	Accounts   []SettledAccount
	TotalMoved decimal.Decimal
	StartedAt  time.Time
	Duration   time.Duration
}
