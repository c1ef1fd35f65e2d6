// Package settlement runs the periodic pending-to-main balance transfer.
package settlement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"moo-rewards-go/internal/models"
	"moo-rewards-go/internal/store"
)

// Runner drives settlement passes on a fixed cadence. Each pass is a single
// atomic batch in the store; the runner itself keeps no state between
// ticks, so a crashed or skipped pass is simply covered by the next one.
type Runner struct {
	store    store.AccountStore
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewRunner(accounts store.AccountStore, interval time.Duration) *Runner {
	return &Runner{
		store:    accounts,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the settlement loop. One pass runs immediately so a
// restart never extends the settlement gap beyond one interval.
func (r *Runner) Start(ctx context.Context) {
	zap.L().Info("Settlement runner started", zap.Duration("interval", r.interval))
	go r.loop(ctx)
}

// Stop blocks until the loop has exited. An in-flight pass finishes first.
func (r *Runner) Stop() {
	zap.L().Info("Stopping settlement runner")
	close(r.stopChan)
	<-r.doneChan
	zap.L().Info("Settlement runner stopped")
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runPass(ctx)

	for {
		select {
		case <-ticker.C:
			r.runPass(ctx)
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) runPass(ctx context.Context) {
	if _, err := RunOnce(ctx, r.store); err != nil {
		// The failed pass moved nothing; pending balances are intact and
		// the next tick retries from a fresh read.
		zap.L().Error("Settlement pass failed", zap.Error(err))
	}
}

// RunOnce executes a single settlement pass and returns its summary.
func RunOnce(ctx context.Context, accounts store.AccountStore) (*models.SettlementSummary, error) {
	zap.L().Info("Running settlement pass")
	summary, err := accounts.SettlePendingBalances(ctx)
	if err != nil {
		return nil, err
	}
	for _, settled := range summary.Accounts {
		zap.L().Debug("Settled account",
			zap.String("user_id", settled.UserID),
			zap.String("amount", settled.Amount.String()))
	}
	return summary, nil
}
