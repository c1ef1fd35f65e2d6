package database

import (
	"context"
	"database/sql"
	"fmt"

	"moo-rewards-go/internal/models"
)

// GetSettings returns the airdrop settings singleton. A missing row is not
// an error; defaults apply until an admin first saves settings.
func (s *Service) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	var settings models.AppSettings
	err := s.db.QueryRowContext(ctx, queryGetSettings).
		Scan(&settings.AirdropLive, &settings.AirdropEndDate, &settings.UpdatedAt)
	if err == sql.ErrNoRows {
		return &models.AppSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &settings, nil
}

func (s *Service) SaveSettings(ctx context.Context, settings models.AppSettings) error {
	_, err := s.db.ExecContext(ctx, queryUpsertSettings, settings.AirdropLive, settings.AirdropEndDate)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
