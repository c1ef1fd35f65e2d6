// Package rewards holds the eligibility evaluator: the pure step function
// from a user's license, task and boost state to the per-message reward.
// The webhook handler and the earning-speed preview endpoint both call this
// one function, so they cannot diverge.
package rewards

import (
	"github.com/shopspring/decimal"

	"moo-rewards-go/internal/models"
)

// RewardRate returns the per-message reward for the given account state.
// Priority order is fixed: no license -> 0, any incomplete social task -> 0,
// otherwise the highest owned boost tier, or the base rate with no boosts.
func (t *Table) RewardRate(account *models.UserAccount) decimal.Decimal {
	if !account.LicenseActive {
		return decimal.Zero
	}
	if !account.AllTasksCompleted() {
		return decimal.Zero
	}
	// Tiers are ordered highest first, so membership order in the boost
	// set never matters.
	for _, tier := range t.Tiers {
		if account.HasBoost(tier.Boost) {
			return tier.Rate
		}
	}
	return t.Base
}

// Eligible reports whether the account accrues any reward at all.
func (t *Table) Eligible(account *models.UserAccount) bool {
	return t.RewardRate(account).IsPositive()
}
