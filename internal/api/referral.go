package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"moo-rewards-go/internal/models"
)

type applyReferralRequest struct {
	Code string `json:"code"`
}

// ApplyReferral links the caller to the owner of a referral code. The link,
// the referrer's bonus and the caller's referral-task completion commit in
// one store transaction; there is no window where one exists without the
// others. A second application is rejected, never re-credited.
func (s *Service) ApplyReferral(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !s.requireOwner(w, r, userID) {
		return
	}

	var req applyReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		respondError(w, http.StatusBadRequest, "referral code required")
		return
	}

	account, err := s.store.ApplyReferral(r.Context(), userID, req.Code, s.referralBonus)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	zap.L().Info("Referral applied",
		zap.String("referee_id", userID),
		zap.String("code", req.Code))

	respondJSON(w, http.StatusOK, models.ViewOf(account))
}

// ReferralQR serves a PNG QR code that opens the Mini App with the referral
// code prefilled. The image is public: a share card needs no init data.
func (s *Service) ReferralQR(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		http.NotFound(w, r)
		return
	}

	// Only mint QR images for codes that exist.
	if _, err := s.store.GetAccountByReferralCode(r.Context(), code); err != nil {
		http.NotFound(w, r)
		return
	}

	link := s.telegram.MiniAppURL + "?startapp=" + code
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		zap.L().Error("QR encoding failed", zap.String("code", code), zap.Error(err))
		http.Error(w, "failed to generate qr", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
