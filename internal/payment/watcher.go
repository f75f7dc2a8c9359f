package payment

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Outcome is the terminal state of a settlement watch.
type Outcome int

const (
	// OutcomeSettled means a matching transfer landed.
	OutcomeSettled Outcome = iota
	// OutcomeTimedOut means the attempt ceiling was exhausted without a match.
	// The pending exit is left for the operator to resolve; nothing is
	// finalized or cancelled automatically.
	OutcomeTimedOut
	// OutcomeCancelled means the watch context was cancelled.
	OutcomeCancelled
)

// Result describes how a settlement watch ended.
type Result struct {
	Outcome     Outcome
	Transaction *Transaction
	Attempts    int
}

// SettlementChecker is the polling side of the gateway.
type SettlementChecker interface {
	CheckSettlement(ctx context.Context, amount int64, orderID string) (*Transaction, error)
}

// Watcher polls the gateway for a settled transfer at a fixed interval,
// bounded by a maximum attempt count. A failed poll consumes an attempt but
// never aborts the watch; only exhaustion does.
type Watcher struct {
	checker     SettlementChecker
	interval    time.Duration
	maxAttempts int
	logger      *zap.Logger
}

// NewWatcher builds a watcher.
func NewWatcher(checker SettlementChecker, interval time.Duration, maxAttempts int, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 60
	}
	return &Watcher{
		checker:     checker,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Wait blocks until the transfer settles, the attempt ceiling is reached, or
// ctx is cancelled. It respects the polling interval even after failed
// checks.
func (w *Watcher) Wait(ctx context.Context, amount int64, orderID string) Result {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("settlement watch cancelled",
				zap.String("order_id", orderID), zap.Int("attempts", attempts))
			return Result{Outcome: OutcomeCancelled, Attempts: attempts}
		case <-ticker.C:
			attempts++
			tx, err := w.checker.CheckSettlement(ctx, amount, orderID)
			if err != nil {
				w.logger.Warn("settlement check failed",
					zap.String("order_id", orderID),
					zap.Int("attempt", attempts),
					zap.Error(err))
			} else if tx != nil {
				return Result{Outcome: OutcomeSettled, Transaction: tx, Attempts: attempts}
			}
			if attempts >= w.maxAttempts {
				w.logger.Warn("settlement watch timed out",
					zap.String("order_id", orderID), zap.Int("attempts", attempts))
				return Result{Outcome: OutcomeTimedOut, Attempts: attempts}
			}
		}
	}
}
