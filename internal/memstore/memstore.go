// Package memstore provides an in-memory AccountStore used by tests and
// local demo runs. It mirrors the SQLite backend's semantics, including
// version bumps on every write, so either backend can sit behind the
// settlement core.
package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"moo-rewards-go/internal/models"
	"moo-rewards-go/internal/store"

	"github.com/shopspring/decimal"
)

// Compile-time check: *Store must satisfy store.AccountStore.
var _ store.AccountStore = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	accounts map[string]*models.UserAccount
	byCode   map[string]string
	settings models.AppSettings
}

func New() *Store {
	return &Store{
		accounts: make(map[string]*models.UserAccount),
		byCode:   make(map[string]string),
	}
}

func (s *Store) GetAccount(ctx context.Context, userID string) (*models.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[userID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	cp := account.Clone()
	return &cp, nil
}

func (s *Store) GetAccountByReferralCode(ctx context.Context, code string) (*models.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.byCode[code]
	if !ok {
		return nil, store.ErrReferralCodeUnknown
	}
	cp := s.accounts[userID].Clone()
	return &cp, nil
}

func (s *Store) CreateAccount(ctx context.Context, account models.UserAccount) (*models.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.ID]; exists {
		return nil, store.ErrAccountExists
	}
	if _, exists := s.byCode[account.ReferralCode]; exists {
		return nil, store.ErrAccountExists
	}

	now := time.Now()
	stored := account.Clone()
	stored.Version = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.accounts[stored.ID] = &stored
	s.byCode[stored.ReferralCode] = stored.ID

	cp := stored.Clone()
	return &cp, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts := make([]models.UserAccount, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account.Clone())
	}
	return accounts, nil
}

func (s *Store) UpdateAccount(ctx context.Context, userID string, fn store.UpdateFunc) (*models.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.accounts[userID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}

	updated := current.Clone()
	if err := fn(&updated); err != nil {
		if errors.Is(err, store.ErrNoChange) {
			cp := current.Clone()
			return &cp, nil
		}
		return nil, err
	}

	updated.Version = current.Version + 1
	updated.UpdatedAt = time.Now()
	s.accounts[userID] = &updated

	cp := updated.Clone()
	return &cp, nil
}

func (s *Store) ApplyReferral(ctx context.Context, refereeID, code string, bonus decimal.Decimal) (*models.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	referee, ok := s.accounts[refereeID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	if referee.ReferredBy != "" {
		return nil, store.ErrReferralAlreadySet
	}
	if referee.ReferralCode == code {
		return nil, store.ErrSelfReferral
	}
	referrerID, ok := s.byCode[code]
	if !ok {
		return nil, store.ErrReferralCodeUnknown
	}
	if referrerID == refereeID {
		return nil, store.ErrSelfReferral
	}
	referrer := s.accounts[referrerID]

	updatedReferee := referee.Clone()
	updatedReferee.ReferredBy = referrerID
	updatedReferee.SocialTasks[models.TaskReferral] = models.TaskCompleted
	updatedReferee.Version = referee.Version + 1
	updatedReferee.UpdatedAt = time.Now()

	updatedReferrer := referrer.Clone()
	updatedReferrer.MainBalance = referrer.MainBalance.Add(bonus)
	updatedReferrer.Version = referrer.Version + 1
	updatedReferrer.UpdatedAt = time.Now()

	s.accounts[refereeID] = &updatedReferee
	s.accounts[referrerID] = &updatedReferrer

	cp := updatedReferee.Clone()
	return &cp, nil
}

func (s *Store) SettlePendingBalances(ctx context.Context) (*models.SettlementSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	summary := &models.SettlementSummary{
		TotalMoved: decimal.Zero,
		StartedAt:  started,
	}

	for id, account := range s.accounts {
		if !account.PendingBalance.IsPositive() {
			continue
		}
		updated := account.Clone()
		updated.MainBalance = account.MainBalance.Add(account.PendingBalance)
		updated.PendingBalance = decimal.Zero
		updated.Version = account.Version + 1
		updated.UpdatedAt = time.Now()
		s.accounts[id] = &updated

		summary.Accounts = append(summary.Accounts, models.SettledAccount{
			UserID: id,
			Amount: account.PendingBalance,
		})
		summary.TotalMoved = summary.TotalMoved.Add(account.PendingBalance)
	}

	summary.Duration = time.Since(started)
	return summary, nil
}

func (s *Store) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.settings
	return &cp, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings models.AppSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.UpdatedAt = time.Now()
	s.settings = settings
	return nil
}

func (s *Store) Close() {}
