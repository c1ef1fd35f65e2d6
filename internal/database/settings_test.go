package database

import (
	"context"
	"testing"
	"time"

	"moo-rewards-go/internal/models"
)

func TestSettings_DefaultWhenUnset(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	settings, err := service.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings.AirdropLive || settings.AirdropEndDate != nil {
		t.Errorf("unset settings = %+v, want zero values", settings)
	}
}

func TestSettings_SaveAndReload(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	if err := service.SaveSettings(ctx, models.AppSettings{AirdropLive: true, AirdropEndDate: &end}); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	settings, err := service.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if !settings.AirdropLive {
		t.Error("airdrop_live not persisted")
	}
	if settings.AirdropEndDate == nil || !settings.AirdropEndDate.Equal(end) {
		t.Errorf("airdrop_end_date = %v, want %v", settings.AirdropEndDate, end)
	}

	// Upsert replaces the singleton row.
	if err := service.SaveSettings(ctx, models.AppSettings{AirdropLive: false}); err != nil {
		t.Fatalf("second SaveSettings failed: %v", err)
	}
	settings, err = service.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings.AirdropLive || settings.AirdropEndDate != nil {
		t.Errorf("settings after overwrite = %+v, want cleared", settings)
	}
}
