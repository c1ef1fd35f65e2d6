package api

import (
	"net/http"

	"moo-rewards-go/internal/models"
)

// GetSettings returns the airdrop settings singleton.
func (s *Service) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, models.SettingsView{
		AirdropLive:    settings.AirdropLive,
		AirdropEndDate: settings.AirdropEndDate,
	})
}

// Health reports liveness; the router mounts it unauthenticated.
func (s *Service) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.GetSettings(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
