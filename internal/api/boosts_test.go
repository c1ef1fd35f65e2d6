package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"moo-rewards-go/internal/models"
)

func TestCreateBoostInvoice(t *testing.T) {
	api := newTestAPI(t, true)
	api.seedAccount(t, "42", "MOO-AAAA1111")

	rec := api.do(t, http.MethodPost, "/api/accounts/42/boosts/invoice", map[string]string{"boost": "5x"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var result models.InvoiceResult
	decodeBody(t, rec, &result)
	if result.Boost != "5x" {
		t.Errorf("boost = %q, want 5x", result.Boost)
	}
	if result.InvoiceLink != api.invoices.link {
		t.Errorf("invoice link = %q, want %q", result.InvoiceLink, api.invoices.link)
	}
	if api.invoices.lastPayload != "boost:5x" {
		t.Errorf("payload = %q, want boost:5x", api.invoices.lastPayload)
	}
	if api.invoices.lastStars != 250 {
		t.Errorf("stars = %d, want 250", api.invoices.lastStars)
	}
}

func TestCreateBoostInvoice_UnknownBoost(t *testing.T) {
	api := newTestAPI(t, true)
	api.seedAccount(t, "42", "MOO-AAAA1111")

	rec := api.do(t, http.MethodPost, "/api/accounts/42/boosts/invoice", map[string]string{"boost": "100x"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateBoostInvoice_AlreadyOwned(t *testing.T) {
	api := newTestAPI(t, true)
	api.seedAccount(t, "42", "MOO-AAAA1111")

	_, err := api.store.UpdateAccount(context.Background(), "42", func(account *models.UserAccount) error {
		account.Boosts = append(account.Boosts, "5x")
		return nil
	})
	if err != nil {
		t.Fatalf("failed to seed boost: %v", err)
	}

	rec := api.do(t, http.MethodPost, "/api/accounts/42/boosts/invoice", map[string]string{"boost": "5x"}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestCreateBoostInvoice_TelegramUnavailable(t *testing.T) {
	api := newTestAPI(t, true)
	api.seedAccount(t, "42", "MOO-AAAA1111")
	api.invoices.err = errors.New("bot api timeout")

	rec := api.do(t, http.MethodPost, "/api/accounts/42/boosts/invoice", map[string]string{"boost": "2x"}, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}
