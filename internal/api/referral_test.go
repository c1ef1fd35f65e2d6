package api

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"moo-rewards-go/internal/models"
)

func TestApplyReferral(t *testing.T) {
	api := newTestAPI(t, true)
	api.seedAccount(t, "1", "MOO-REFERRER")
	api.seedAccount(t, "2", "MOO-REFEREE1")

	rec := api.do(t, http.MethodPost, "/api/accounts/2/referral", map[string]string{"code": "MOO-REFERRER"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var view models.AccountView
	decodeBody(t, rec, &view)
	if view.ReferredBy != "1" {
		t.Errorf("referred_by = %q, want 1", view.ReferredBy)
	}
	if view.SocialTasks[models.TaskReferral] != models.TaskCompleted {
		t.Errorf("referral task = %q, want completed", view.SocialTasks[models.TaskReferral])
	}

	referrer, err := api.store.GetAccount(context.Background(), "1")
	if err != nil {
		t.Fatalf("failed to load referrer: %v", err)
	}
	if !referrer.MainBalance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("referrer bonus = %s, want 100", referrer.MainBalance)
	}
}

func TestApplyReferral_Immutable(t *testing.T) {
	api := newTestAPI(t, true)
	api.seedAccount(t, "1", "MOO-REFERRER")
	api.seedAccount(t, "2", "MOO-REFEREE1")
	api.seedAccount(t, "3", "MOO-OTHERREF")

	rec := api.do(t, http.MethodPost, "/api/accounts/2/referral", map[string]string{"code": "MOO-REFERRER"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first apply status = %d, want 200", rec.Code)
	}

	rec = api.do(t, http.MethodPost, "/api/accounts/2/referral", map[string]string{"code": "MOO-OTHERREF"}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second apply status = %d, want 409", rec.Code)
	}
}

func TestApplyReferral_Errors(t *testing.T) {
	api := newTestAPI(t, true)
	api.seedAccount(t, "2", "MOO-REFEREE1")

	cases := []struct {
		name string
		code string
		want int
	}{
		{"missing code", "", http.StatusBadRequest},
		{"unknown code", "MOO-NOSUCH00", http.StatusNotFound},
		{"own code", "MOO-REFEREE1", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/accounts/2/referral", map[string]string{"code": tc.code}, nil)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestReferralQR(t *testing.T) {
	api := newTestAPI(t, true)
	api.seedAccount(t, "1", "MOO-REFERRER")

	rec := api.do(t, http.MethodGet, "/api/referral/MOO-REFERRER/qr.png", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}
	pngMagic := []byte{0x89, 'P', 'N', 'G'}
	if body := rec.Body.Bytes(); len(body) < 4 || !bytes.Equal(body[:4], pngMagic) {
		t.Error("response body is not a PNG")
	}
}

func TestReferralQR_UnknownCode(t *testing.T) {
	api := newTestAPI(t, true)

	rec := api.do(t, http.MethodGet, "/api/referral/MOO-NOSUCH00/qr.png", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
