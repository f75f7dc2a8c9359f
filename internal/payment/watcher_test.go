package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type scriptedChecker struct {
	mu         sync.Mutex
	calls      int
	settleAt   int   // settle on this call number; 0 means never
	failUntil  int   // return an error for the first N calls
	lastAmount int64
}

func (c *scriptedChecker) CheckSettlement(_ context.Context, amount int64, orderID string) (*Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.lastAmount = amount
	if c.calls <= c.failUntil {
		return nil, errors.New("gateway unreachable")
	}
	if c.settleAt > 0 && c.calls >= c.settleAt {
		return &Transaction{ID: "tx-1", Content: "SEVQR " + orderID}, nil
	}
	return nil, nil
}

func (c *scriptedChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestWatcherSettles(t *testing.T) {
	checker := &scriptedChecker{settleAt: 3}
	watcher := NewWatcher(checker, 5*time.Millisecond, 10, zap.NewNop())

	result := watcher.Wait(context.Background(), 10000, "P1234")
	if result.Outcome != OutcomeSettled {
		t.Fatalf("expected settled, got %v", result.Outcome)
	}
	if result.Transaction == nil || result.Transaction.ID != "tx-1" {
		t.Fatalf("missing matched transaction: %+v", result.Transaction)
	}
	if result.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", result.Attempts)
	}
}

func TestWatcherTimesOutAfterMaxAttempts(t *testing.T) {
	checker := &scriptedChecker{}
	watcher := NewWatcher(checker, time.Millisecond, 5, zap.NewNop())

	result := watcher.Wait(context.Background(), 10000, "P1234")
	if result.Outcome != OutcomeTimedOut {
		t.Fatalf("expected timeout, got %v", result.Outcome)
	}
	if result.Attempts != 5 {
		t.Fatalf("expected exactly 5 attempts, got %d", result.Attempts)
	}
	if checker.callCount() != 5 {
		t.Fatalf("checker called %d times, want 5", checker.callCount())
	}
}

func TestWatcherFailedChecksCountTowardCeiling(t *testing.T) {
	checker := &scriptedChecker{failUntil: 3}
	watcher := NewWatcher(checker, time.Millisecond, 3, zap.NewNop())

	result := watcher.Wait(context.Background(), 10000, "P1234")
	if result.Outcome != OutcomeTimedOut {
		t.Fatalf("expected timeout when every attempt fails, got %v", result.Outcome)
	}
	if result.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", result.Attempts)
	}
}

func TestWatcherCancellation(t *testing.T) {
	checker := &scriptedChecker{}
	watcher := NewWatcher(checker, 5*time.Millisecond, 1000, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() {
		done <- watcher.Wait(ctx, 10000, "P1234")
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case result := <-done:
		if result.Outcome != OutcomeCancelled {
			t.Fatalf("expected cancelled, got %v", result.Outcome)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}
