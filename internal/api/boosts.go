package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"moo-rewards-go/internal/models"
)

// boostPrices lists the Telegram Stars cost per boost tier.
var boostPrices = map[string]int{
	"2x":  100,
	"5x":  250,
	"10x": 500,
}

type invoiceRequest struct {
	Boost string `json:"boost"`
}

// CreateBoostInvoice returns a Telegram Stars invoice link for a boost
// tier. The boost itself is credited by the webhook once Telegram reports
// the payment succeeded; this endpoint only mints the link.
func (s *Service) CreateBoostInvoice(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !s.requireOwner(w, r, userID) {
		return
	}

	var req invoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stars, priced := boostPrices[req.Boost]
	if !priced || !s.rates.KnownBoost(req.Boost) {
		respondError(w, http.StatusBadRequest, "unknown boost")
		return
	}

	account, err := s.store.GetAccount(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if account.HasBoost(req.Boost) {
		respondError(w, http.StatusConflict, "boost already owned")
		return
	}

	link, err := s.invoices.CreateInvoiceLink(
		fmt.Sprintf("MOO %s boost", req.Boost),
		fmt.Sprintf("Permanently raise your earning rate with the %s boost.", req.Boost),
		"boost:"+req.Boost,
		stars,
	)
	if err != nil {
		zap.L().Error("Invoice creation failed",
			zap.String("user_id", userID),
			zap.String("boost", req.Boost),
			zap.Error(err))
		respondError(w, http.StatusBadGateway, "invoice creation failed")
		return
	}

	respondJSON(w, http.StatusOK, models.InvoiceResult{Boost: req.Boost, InvoiceLink: link})
}
