package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"moo-rewards-go/internal/models"
	"moo-rewards-go/internal/store"
	"moo-rewards-go/internal/webapp"
)

type createAccountRequest struct {
	ID string `json:"id"`
}

// CreateAccount lazily creates the caller's account on first Mini-App load.
// The endpoint is idempotent: an existing account is returned unchanged.
func (s *Service) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	userID := req.ID
	if identity := webapp.IdentityFrom(r.Context()); identity != nil {
		// The signed init data, not the request body, decides whose
		// account gets created.
		userID = identity.UserID
	}
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user id required")
		return
	}

	if !s.requireOwner(w, r, userID) {
		return
	}

	account, err := s.store.GetAccount(r.Context(), userID)
	if err == nil {
		respondJSON(w, http.StatusOK, models.ViewOf(account))
		return
	}
	if !errors.Is(err, store.ErrAccountNotFound) {
		respondStoreError(w, err)
		return
	}

	account, err = s.store.CreateAccount(r.Context(), models.NewUserAccount(userID, newReferralCode()))
	if errors.Is(err, store.ErrAccountExists) {
		// Lost a creation race; the winner's row is the account.
		if account, err = s.store.GetAccount(r.Context(), userID); err != nil {
			respondStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, models.ViewOf(account))
		return
	}
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, models.ViewOf(account))
}

func (s *Service) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !s.requireOwner(w, r, userID) {
		return
	}

	account, err := s.store.GetAccount(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, models.ViewOf(account))
}

// GetRate previews the caller's earning speed using the same evaluator the
// webhook applies, so the preview and the accrual cannot drift apart.
func (s *Service) GetRate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !s.requireOwner(w, r, userID) {
		return
	}

	account, err := s.store.GetAccount(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	rate := s.rates.RewardRate(account)
	respondJSON(w, http.StatusOK, models.RateView{Rate: rate, Eligible: rate.IsPositive()})
}

// Claim moves the caller's pending balance into their main balance. The
// move happens inside one read-modify-write, so it cannot race the webhook
// or the settlement job into losing an increment.
func (s *Service) Claim(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !s.requireOwner(w, r, userID) {
		return
	}

	claimed := decimal.Zero
	account, err := s.store.UpdateAccount(r.Context(), userID, func(account *models.UserAccount) error {
		if !account.PendingBalance.IsPositive() {
			claimed = decimal.Zero
			return store.ErrNoChange
		}
		claimed = account.PendingBalance
		account.MainBalance = account.MainBalance.Add(account.PendingBalance)
		account.PendingBalance = decimal.Zero
		return nil
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, models.ClaimResult{Claimed: claimed, MainBalance: account.MainBalance})
}

// ActivateLicense flips the accrual gate on. Activation is permanent.
func (s *Service) ActivateLicense(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !s.requireOwner(w, r, userID) {
		return
	}

	account, err := s.store.UpdateAccount(r.Context(), userID, func(account *models.UserAccount) error {
		if account.LicenseActive {
			return store.ErrNoChange
		}
		account.LicenseActive = true
		return nil
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, models.ViewOf(account))
}
