// Package api implements the Mini-App HTTP surface: profile, claim,
// license, social tasks, boost invoices, referrals and settings. Every
// account mutation goes through the store's transactional methods; nothing
// here overwrites a field outside a read-modify-write.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"moo-rewards-go/internal/models"
	"moo-rewards-go/internal/rewards"
	"moo-rewards-go/internal/store"
	"moo-rewards-go/internal/webapp"
)

// MembershipChecker verifies chat membership for social-task completion.
type MembershipChecker interface {
	IsChatMember(chatID, userID int64) (bool, error)
}

// InvoiceCreator creates Telegram Stars invoice links for boost purchases.
type InvoiceCreator interface {
	CreateInvoiceLink(title, description, payload string, stars int) (string, error)
}

type Service struct {
	store         store.AccountStore
	rates         *rewards.Table
	membership    MembershipChecker
	invoices      InvoiceCreator
	telegram      models.TelegramConfig
	referralBonus decimal.Decimal
}

func NewService(accounts store.AccountStore, rates *rewards.Table, membership MembershipChecker, invoices InvoiceCreator, telegram models.TelegramConfig, referralBonus decimal.Decimal) *Service {
	return &Service{
		store:         accounts,
		rates:         rates,
		membership:    membership,
		invoices:      invoices,
		telegram:      telegram,
		referralBonus: referralBonus,
	}
}

// newReferralCode mints the shareable code owned by a new account.
func newReferralCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "MOO-" + strings.ToUpper(raw[:8])
}

// requireOwner enforces that the authenticated Mini-App user only touches
// their own account. With auth disabled there is no identity to check.
func (s *Service) requireOwner(w http.ResponseWriter, r *http.Request, userID string) bool {
	identity := webapp.IdentityFrom(r.Context())
	if identity != nil && identity.UserID != userID {
		respondError(w, http.StatusForbidden, "account does not belong to caller")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.APIError{Error: message})
}

// respondStoreError maps store sentinels onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrAccountNotFound):
		respondError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, store.ErrReferralCodeUnknown):
		respondError(w, http.StatusNotFound, "referral code unknown")
	case errors.Is(err, store.ErrReferralAlreadySet):
		respondError(w, http.StatusConflict, "referral already set")
	case errors.Is(err, store.ErrSelfReferral):
		respondError(w, http.StatusBadRequest, "cannot refer yourself")
	case errors.Is(err, store.ErrAccountExists):
		respondError(w, http.StatusConflict, "account already exists")
	default:
		zap.L().Error("Store operation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
