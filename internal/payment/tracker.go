package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// State of one tracked payment workflow.
type State string

const (
	StateAwaitingCode State = "awaiting_code"
	StatePolling      State = "polling"
	StateSettled      State = "settled"
	StateTimedOut     State = "timed_out"
	StateCancelled    State = "cancelled"
)

// ExitCommitter finalizes or aborts a pending exit. Implemented by the
// parking coordinator.
type ExitCommitter interface {
	FinalizeExit(ctx context.Context, sessionID, amount int64, method string) error
	CancelExit(sessionID int64) error
}

// CodeCreator is the code-generation side of the gateway.
type CodeCreator interface {
	CreateCode(ctx context.Context, amount int64, orderID string) (*Code, error)
}

type watch struct {
	sessionID   int64
	orderID     string
	amount      int64
	code        *Code
	state       State
	transaction *Transaction
	cancel      context.CancelFunc
}

// Status is a snapshot of one payment workflow for operator polling.
type Status struct {
	SessionID   int64        `json:"session_id"`
	OrderID     string       `json:"order_id"`
	Amount      int64        `json:"amount"`
	State       State        `json:"state"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// Tracker manages the QR settlement workflow per pending exit: request a
// code, poll until settled, finalize through the committer. Cash settlement
// never passes through here; the committer's resolution guard arbitrates if
// both paths race.
type Tracker struct {
	mu        sync.Mutex
	gateway   CodeCreator
	watcher   *Watcher
	committer ExitCommitter
	logger    *zap.Logger
	watches   map[int64]*watch
	wg        sync.WaitGroup
}

// NewTracker builds a tracker.
func NewTracker(gateway CodeCreator, watcher *Watcher, committer ExitCommitter, logger *zap.Logger) *Tracker {
	return &Tracker{
		gateway:   gateway,
		watcher:   watcher,
		committer: committer,
		logger:    logger,
		watches:   make(map[int64]*watch),
	}
}

// Begin starts the QR settlement workflow for a pending exit and returns the
// transfer code. Calling Begin again while a watch is live returns the
// existing code.
func (t *Tracker) Begin(ctx context.Context, sessionID, amount int64) (*Code, error) {
	if amount <= 0 {
		return nil, errors.New("payment: zero-fee exits do not require settlement")
	}

	t.mu.Lock()
	if existing, ok := t.watches[sessionID]; ok {
		if existing.state == StatePolling && existing.code != nil {
			code := existing.code
			t.mu.Unlock()
			return code, nil
		}
		if existing.state == StateAwaitingCode {
			t.mu.Unlock()
			return nil, errors.New("payment: code request already in flight")
		}
		// Terminal watch left over from a previous attempt; start fresh.
	}
	w := &watch{
		sessionID: sessionID,
		orderID:   NewOrderID(),
		amount:    amount,
		state:     StateAwaitingCode,
	}
	t.watches[sessionID] = w
	t.mu.Unlock()

	code, err := t.gateway.CreateCode(ctx, amount, w.orderID)
	if err != nil {
		t.mu.Lock()
		delete(t.watches, sessionID)
		t.mu.Unlock()
		if errors.Is(err, ErrCodeGeneration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCodeGeneration, err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	w.code = code
	w.state = StatePolling
	w.cancel = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(watchCtx, w)

	t.logger.Info("settlement watch started",
		zap.Int64("session_id", sessionID),
		zap.String("order_id", w.orderID),
		zap.Int64("amount", amount))
	return code, nil
}

func (t *Tracker) run(ctx context.Context, w *watch) {
	defer t.wg.Done()

	result := t.watcher.Wait(ctx, w.amount, w.orderID)

	switch result.Outcome {
	case OutcomeSettled:
		t.mu.Lock()
		w.state = StateSettled
		w.transaction = result.Transaction
		t.mu.Unlock()
		if err := t.committer.FinalizeExit(context.Background(), w.sessionID, w.amount, "transfer"); err != nil {
			// Likely already resolved by a cash finalize that won the race.
			t.logger.Info("settled payment could not finalize exit",
				zap.Int64("session_id", w.sessionID), zap.Error(err))
		}
	case OutcomeTimedOut:
		// Surfaced via Status; the pending exit stays open for the operator
		// to retry, take cash, or cancel.
		t.mu.Lock()
		w.state = StateTimedOut
		t.mu.Unlock()
	case OutcomeCancelled:
		t.mu.Lock()
		if w.state == StatePolling {
			w.state = StateCancelled
		}
		t.mu.Unlock()
	}
}

// Cancel aborts the watch and cancels the pending exit: the vehicle remains
// parked. Racing a settlement, the committer's guard decides the winner.
func (t *Tracker) Cancel(sessionID int64) error {
	t.mu.Lock()
	w, ok := t.watches[sessionID]
	if ok && w.cancel != nil {
		w.state = StateCancelled
		w.cancel()
	}
	t.mu.Unlock()

	return t.committer.CancelExit(sessionID)
}

// Stop halts the watch without touching the pending exit. Used when the exit
// was finalized through another path.
func (t *Tracker) Stop(sessionID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.watches[sessionID]; ok {
		if w.cancel != nil && w.state == StatePolling {
			w.cancel()
		}
		delete(t.watches, sessionID)
	}
}

// Status returns the workflow snapshot for a session.
func (t *Tracker) Status(sessionID int64) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.watches[sessionID]
	if !ok {
		return Status{}, false
	}
	return Status{
		SessionID:   w.sessionID,
		OrderID:     w.orderID,
		Amount:      w.amount,
		State:       w.state,
		Transaction: w.transaction,
	}, true
}

// Shutdown cancels every live watch and waits for their goroutines.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	for _, w := range t.watches {
		if w.cancel != nil {
			w.cancel()
		}
	}
	t.mu.Unlock()
	t.wg.Wait()
}
