package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"moo-rewards-go/internal/api"
	"moo-rewards-go/internal/models"
	"moo-rewards-go/internal/webapp"
	"moo-rewards-go/internal/webhook"
)

// Router wires the webhook and Mini-App API. The webhook and the public
// endpoints (health, referral QR) sit outside the init-data guard; the
// webhook has its own secret-token check.
func Router(svc *api.Service, hook *webhook.Handler, telegram models.TelegramConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", svc.Health)
	r.Method(http.MethodPost, "/tg/webhook", hook)
	r.Get("/api/referral/{code}/qr.png", svc.ReferralQR)

	r.Group(func(ar chi.Router) {
		ar.Use(webapp.Middleware(telegram.BotToken, telegram.AuthDisabled))

		ar.Post("/api/accounts", svc.CreateAccount)
		ar.Get("/api/accounts/{id}", svc.GetAccount)
		ar.Get("/api/accounts/{id}/rate", svc.GetRate)
		ar.Post("/api/accounts/{id}/claim", svc.Claim)
		ar.Post("/api/accounts/{id}/license", svc.ActivateLicense)
		ar.Post("/api/accounts/{id}/tasks/{task}/verify", svc.VerifyTask)
		ar.Post("/api/accounts/{id}/boosts/invoice", svc.CreateBoostInvoice)
		ar.Post("/api/accounts/{id}/referral", svc.ApplyReferral)
		ar.Get("/api/settings", svc.GetSettings)
	})

	return r
}
