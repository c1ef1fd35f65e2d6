package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"moo-rewards-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettlePendingBalances moves every nonzero pending balance into the main
// balance in a single transaction. Rows with zero pending are never
// written, so write volume tracks active users. If the commit fails,
// nothing has moved and the whole pass is safe to retry: the increments are
// recomputed from the rows as read inside the next transaction, never from
// a snapshot carried across attempts.
func (s *Service) SettlePendingBalances(ctx context.Context) (*models.SettlementSummary, error) {
	started := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin settlement transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, querySelectPending)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending balances: %w", err)
	}

	type staged struct {
		userID  string
		newMain decimal.Decimal
		moved   decimal.Decimal
	}

	var stagedWrites []staged
	for rows.Next() {
		var userID, mainStr, pendingStr string
		if err := rows.Scan(&userID, &mainStr, &pendingStr); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan pending row: %w", err)
		}
		main, err := decimal.NewFromString(mainStr)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to parse main balance '%s': %w", mainStr, err)
		}
		pending, err := decimal.NewFromString(pendingStr)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to parse pending balance '%s': %w", pendingStr, err)
		}
		stagedWrites = append(stagedWrites, staged{
			userID:  userID,
			newMain: main.Add(pending),
			moved:   pending,
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating pending rows: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to close pending rows: %w", err)
	}

	summary := &models.SettlementSummary{
		TotalMoved: decimal.Zero,
		StartedAt:  started,
	}

	for _, w := range stagedWrites {
		if err := settleOne(ctx, tx, w.userID, w.newMain); err != nil {
			return nil, err
		}
		summary.Accounts = append(summary.Accounts, models.SettledAccount{
			UserID: w.userID,
			Amount: w.moved,
		})
		summary.TotalMoved = summary.TotalMoved.Add(w.moved)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement batch: %w", err)
	}

	summary.Duration = time.Since(started)

	zap.L().Info("Settlement pass complete",
		zap.Int("accounts_settled", len(summary.Accounts)),
		zap.String("total_moved", summary.TotalMoved.String()),
		zap.Duration("duration", summary.Duration))

	return summary, nil
}

func settleOne(ctx context.Context, tx *sql.Tx, userID string, newMain decimal.Decimal) error {
	result, err := tx.ExecContext(ctx, querySettleAccount, newMain.String(), userID)
	if err != nil {
		return fmt.Errorf("failed to settle account %s: %w", userID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("settlement write for account %s affected no rows", userID)
	}
	return nil
}
