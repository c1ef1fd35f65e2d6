package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"moo-rewards-go/internal/models"
	"moo-rewards-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxUpdateRetries bounds compare-and-retry attempts under version conflicts.
const maxUpdateRetries = 5

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.UserAccount, error) {
	var (
		account                     models.UserAccount
		mainStr, pendingStr         string
		twitter, telegram           string
		community, referral, boosts string
	)

	err := row.Scan(&account.ID, &mainStr, &pendingStr, &account.LicenseActive,
		&twitter, &telegram, &community, &referral,
		&boosts, &account.ReferralCode, &account.ReferredBy,
		&account.Version, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}

	account.MainBalance, err = decimal.NewFromString(mainStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse main balance '%s': %w", mainStr, err)
	}
	account.PendingBalance, err = decimal.NewFromString(pendingStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pending balance '%s': %w", pendingStr, err)
	}

	account.SocialTasks = map[string]string{
		models.TaskTwitter:   twitter,
		models.TaskTelegram:  telegram,
		models.TaskCommunity: community,
		models.TaskReferral:  referral,
	}
	if err := json.Unmarshal([]byte(boosts), &account.Boosts); err != nil {
		return nil, fmt.Errorf("failed to parse boosts '%s': %w", boosts, err)
	}

	return &account, nil
}

func encodeBoosts(boosts []string) (string, error) {
	if boosts == nil {
		boosts = []string{}
	}
	raw, err := json.Marshal(boosts)
	if err != nil {
		return "", fmt.Errorf("failed to encode boosts: %w", err)
	}
	return string(raw), nil
}

func (s *Service) GetAccount(ctx context.Context, userID string) (*models.UserAccount, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetAccount, userID))
	if err == sql.ErrNoRows {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", userID, err)
	}
	return account, nil
}

func (s *Service) GetAccountByReferralCode(ctx context.Context, code string) (*models.UserAccount, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetAccountByReferralCode, code))
	if err == sql.ErrNoRows {
		return nil, store.ErrReferralCodeUnknown
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by referral code: %w", err)
	}
	return account, nil
}

func (s *Service) CreateAccount(ctx context.Context, account models.UserAccount) (*models.UserAccount, error) {
	boosts, err := encodeBoosts(account.Boosts)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, queryInsertAccount,
		account.ID, account.MainBalance.String(), account.PendingBalance.String(),
		account.LicenseActive,
		account.SocialTasks[models.TaskTwitter], account.SocialTasks[models.TaskTelegram],
		account.SocialTasks[models.TaskCommunity], account.SocialTasks[models.TaskReferral],
		boosts, account.ReferralCode, account.ReferredBy)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create account %s: %w", account.ID, err)
	}

	zap.L().Info("Account created",
		zap.String("user_id", account.ID),
		zap.String("referral_code", account.ReferralCode))

	return s.GetAccount(ctx, account.ID)
}

func (s *Service) ListAccounts(ctx context.Context) ([]models.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, queryListAccounts)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var accounts []models.UserAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

// UpdateAccount applies fn atomically with compare-and-retry on the record
// version. fn always sees the freshly read row of the current attempt, so a
// retried update recomputes from current state rather than a stale snapshot.
func (s *Service) UpdateAccount(ctx context.Context, userID string, fn store.UpdateFunc) (*models.UserAccount, error) {
	var lastErr error
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		account, err := s.updateAccountOnce(ctx, userID, fn)
		if errors.Is(err, store.ErrConcurrentModification) {
			zap.L().Debug("Version conflict, retrying account update",
				zap.String("user_id", userID),
				zap.Int("attempt", attempt+1))
			lastErr = err
			continue
		}
		return account, err
	}
	return nil, fmt.Errorf("account update exhausted %d retries: %w", maxUpdateRetries, lastErr)
}

func (s *Service) updateAccountOnce(ctx context.Context, userID string, fn store.UpdateFunc) (*models.UserAccount, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanAccount(tx.QueryRowContext(ctx, queryGetAccount, userID))
	if err == sql.ErrNoRows {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account %s: %w", userID, err)
	}

	updated := current.Clone()
	if err := fn(&updated); err != nil {
		if errors.Is(err, store.ErrNoChange) {
			return current, nil
		}
		return nil, err
	}

	boosts, err := encodeBoosts(updated.Boosts)
	if err != nil {
		return nil, err
	}

	if s.beforeUpdateWrite != nil {
		if err := s.beforeUpdateWrite(tx); err != nil {
			return nil, err
		}
	}

	result, err := tx.ExecContext(ctx, queryUpdateAccount,
		updated.MainBalance.String(), updated.PendingBalance.String(),
		updated.LicenseActive,
		updated.SocialTasks[models.TaskTwitter], updated.SocialTasks[models.TaskTelegram],
		updated.SocialTasks[models.TaskCommunity], updated.SocialTasks[models.TaskReferral],
		boosts, updated.ReferredBy,
		userID, current.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update account %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("account update failed - %w", store.ErrConcurrentModification)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	updated.Version = current.Version + 1
	return &updated, nil
}

// ApplyReferral links the referee to the owner of code, credits the
// referrer and completes the referee's referral task in one transaction.
func (s *Service) ApplyReferral(ctx context.Context, refereeID, code string, bonus decimal.Decimal) (*models.UserAccount, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	referee, err := scanAccount(tx.QueryRowContext(ctx, queryGetAccount, refereeID))
	if err == sql.ErrNoRows {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read referee %s: %w", refereeID, err)
	}
	if referee.ReferredBy != "" {
		return nil, store.ErrReferralAlreadySet
	}
	if referee.ReferralCode == code {
		return nil, store.ErrSelfReferral
	}

	referrer, err := scanAccount(tx.QueryRowContext(ctx, queryGetAccountByReferralCode, code))
	if err == sql.ErrNoRows {
		return nil, store.ErrReferralCodeUnknown
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read referrer by code: %w", err)
	}
	if referrer.ID == refereeID {
		return nil, store.ErrSelfReferral
	}

	updatedReferee := referee.Clone()
	updatedReferee.ReferredBy = referrer.ID
	updatedReferee.SocialTasks[models.TaskReferral] = models.TaskCompleted

	updatedReferrer := referrer.Clone()
	updatedReferrer.MainBalance = referrer.MainBalance.Add(bonus)

	for _, pair := range []struct {
		account *models.UserAccount
		version int64
	}{
		{&updatedReferee, referee.Version},
		{&updatedReferrer, referrer.Version},
	} {
		boosts, err := encodeBoosts(pair.account.Boosts)
		if err != nil {
			return nil, err
		}
		result, err := tx.ExecContext(ctx, queryUpdateAccount,
			pair.account.MainBalance.String(), pair.account.PendingBalance.String(),
			pair.account.LicenseActive,
			pair.account.SocialTasks[models.TaskTwitter], pair.account.SocialTasks[models.TaskTelegram],
			pair.account.SocialTasks[models.TaskCommunity], pair.account.SocialTasks[models.TaskReferral],
			boosts, pair.account.ReferredBy,
			pair.account.ID, pair.version)
		if err != nil {
			return nil, fmt.Errorf("failed to update account %s: %w", pair.account.ID, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return nil, fmt.Errorf("referral update failed - %w", store.ErrConcurrentModification)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Referral applied",
		zap.String("referee_id", refereeID),
		zap.String("referrer_id", referrer.ID),
		zap.String("bonus", bonus.String()))

	updatedReferee.Version = referee.Version + 1
	return &updatedReferee, nil
}

func isUniqueViolation(err error) bool {
	// mattn/go-sqlite3 reports constraint violations in the error text.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
