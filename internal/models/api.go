package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountView is the profile shape returned to the Mini App.
type AccountView struct {
	ID             string            `json:"id"`
	MainBalance    decimal.Decimal   `json:"main_balance"`
	PendingBalance decimal.Decimal   `json:"pending_balance"`
	LicenseActive  bool              `json:"license_active"`
	SocialTasks    map[string]string `json:"social_tasks"`
	Boosts         []string          `json:"boosts"`
	ReferralCode   string            `json:"referral_code"`
	ReferredBy     string            `json:"referred_by,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// ViewOf converts a stored account into its API representation.
func ViewOf(a *UserAccount) AccountView {
	return AccountView{
		ID:             a.ID,
		MainBalance:    a.MainBalance,
		PendingBalance: a.PendingBalance,
		LicenseActive:  a.LicenseActive,
		SocialTasks:    a.SocialTasks,
		Boosts:         a.Boosts,
		ReferralCode:   a.ReferralCode,
		ReferredBy:     a.ReferredBy,
		CreatedAt:      a.CreatedAt,
	}
}

// RateView is the earning-speed preview returned alongside profiles.
type RateView struct {
	Rate     decimal.Decimal `json:"rate"`
	Eligible bool            `json:"eligible"`
}

// ClaimResult reports an explicit pending-to-main claim.
type ClaimResult struct {
	Claimed     decimal.Decimal `json:"claimed"`
	MainBalance decimal.Decimal `json:"main_balance"`
}

// TaskResult reports a social-task verification step.
type TaskResult struct {
	Task   string `json:"task"`
	Status string `json:"status"`
}

// InvoiceResult carries a created Telegram Stars invoice link.
type InvoiceResult struct {
	Boost       string `json:"boost"`
	InvoiceLink string `json:"invoice_link"`
}

// SettingsView is the airdrop settings payload.
type SettingsView struct {
	AirdropLive    bool       `json:"airdrop_live"`
	AirdropEndDate *time.Time `json:"airdrop_end_date,omitempty"`
}

// APIError is the uniform error body for the Mini-App API.
type APIError struct {
	Error string `json:"error"`
}
