package parking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"parkgate/internal/cache"
	"parkgate/internal/fee"
	"parkgate/internal/models"
	"parkgate/internal/repository"
)

// Business errors. These are expected outcomes reported to the operator,
// never fatal.
var (
	ErrUnknownCard     = errors.New("parking: card not registered")
	ErrAlreadyParked   = errors.New("parking: card already has a vehicle in the lot")
	ErrLotFull         = errors.New("parking: no available slots")
	ErrNotParked       = errors.New("parking: no vehicle found for card")
	ErrAlreadyResolved = errors.New("parking: pending exit already resolved")
)

// Payment methods recorded on finalize.
const (
	MethodCash     = "cash"
	MethodTransfer = "transfer"
	MethodFree     = "free"
)

// CardRegistry resolves RFID cards.
type CardRegistry interface {
	GetByCardID(ctx context.Context, cardID string) (*models.Card, error)
}

// SessionLedger is the persistent session history.
type SessionLedger interface {
	Open(ctx context.Context, cardID, plateNumber string, slotNumber int, entryTime time.Time) (*models.Session, error)
	Close(ctx context.Context, sessionID, fee int64, exitTime time.Time) error
	FindOpenByCard(ctx context.Context, cardID string) (*models.Session, error)
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
	Recent(ctx context.Context, limit int) ([]models.Session, error)
	Active(ctx context.Context, limit int) ([]models.Session, error)
	RevenueByDay(ctx context.Context, day time.Time) (int64, error)
}

// SlotAllocator tracks the slot pool.
type SlotAllocator interface {
	FindAvailable(ctx context.Context) (int, bool, error)
	Stats(ctx context.Context) (models.SlotStats, error)
}

// ExitResult is returned by ProcessExit.
type ExitResult struct {
	Session  *models.Session
	Pending  PendingExit
	Repeated bool // the exit was already pending; fee was not recomputed
}

// Coordinator drives the per-card state machine: Absent -> Parked ->
// PendingPayment -> Absent. All four mutating operations are serialized under
// one mutex; card events arrive at human speed, so a single serialization
// point is both sufficient and the simplest thing that is correct.
type Coordinator struct {
	mu sync.Mutex

	cards   CardRegistry
	ledger  SessionLedger
	slots   SlotAllocator
	calc    *fee.Calculator
	active  *cache.ActiveStore // optional
	pending *pendingStore
	events  chan Event
	logger  *zap.Logger
	now     func() time.Time
}

// NewCoordinator builds the coordinator. active may be nil when no cache is
// configured.
func NewCoordinator(cards CardRegistry, ledger SessionLedger, slots SlotAllocator, calc *fee.Calculator, active *cache.ActiveStore, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		cards:   cards,
		ledger:  ledger,
		slots:   slots,
		calc:    calc,
		active:  active,
		pending: newPendingStore(),
		events:  make(chan Event, 64),
		logger:  logger,
		now:     time.Now,
	}
}

// Events returns the outbound domain event stream.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

func (c *Coordinator) emit(event Event) {
	select {
	case c.events <- event:
	default:
		c.logger.Warn("dropping domain event, buffer full", zap.String("type", string(event.Type)))
	}
}

func (c *Coordinator) emitSlotsChanged(ctx context.Context) {
	stats, err := c.slots.Stats(ctx)
	if err != nil {
		c.logger.Warn("failed to read slot stats", zap.Error(err))
		return
	}
	c.emit(Event{Type: EventSlotsChanged, Stats: &stats})
}

// ProcessEntry handles an entry-checkpoint card scan.
func (c *Coordinator) ProcessEntry(ctx context.Context, cardID string) (*models.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	card, err := c.cards.GetByCardID(ctx, cardID)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			c.logger.Info("entry rejected: unknown card", zap.String("card_id", cardID))
			c.emit(Event{Type: EventEntryRejected, CardID: cardID, Reason: "card not registered"})
			return nil, ErrUnknownCard
		}
		return nil, fmt.Errorf("parking: resolve card: %w", err)
	}

	open, err := c.ledger.FindOpenByCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("parking: find open session: %w", err)
	}
	if open != nil {
		c.logger.Info("entry rejected: already parked",
			zap.String("card_id", cardID), zap.Int64("session_id", open.ID))
		c.emit(Event{Type: EventEntryRejected, CardID: cardID, Reason: "vehicle already in lot"})
		return nil, ErrAlreadyParked
	}

	slot, ok, err := c.slots.FindAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("parking: find slot: %w", err)
	}
	if !ok {
		c.logger.Info("entry rejected: lot full", zap.String("card_id", cardID))
		c.emit(Event{Type: EventEntryRejected, CardID: cardID, Reason: "lot full"})
		return nil, ErrLotFull
	}

	session, err := c.ledger.Open(ctx, cardID, card.PlateNumber, slot, c.now())
	if err != nil {
		if errors.Is(err, repository.ErrSlotOccupied) {
			// Should be impossible under the serialization lock; treat as corruption.
			c.logger.Error("slot occupancy invariant violated",
				zap.String("card_id", cardID), zap.Int("slot", slot))
		}
		return nil, fmt.Errorf("parking: open session: %w", err)
	}

	if c.active != nil {
		if err := c.active.Save(ctx, cache.ActiveSession{
			SessionID:   session.ID,
			CardID:      session.CardID,
			PlateNumber: session.PlateNumber,
			SlotNumber:  session.SlotNumber,
			EntryTime:   session.EntryTime,
		}); err != nil {
			c.logger.Warn("failed to cache active session", zap.Error(err))
		}
	}

	c.logger.Info("vehicle entered",
		zap.Int64("session_id", session.ID),
		zap.String("card_id", cardID),
		zap.Int("slot", session.SlotNumber))
	c.emit(Event{Type: EventEntryAccepted, CardID: cardID, Session: session})
	c.emitSlotsChanged(ctx)
	return session, nil
}

// ProcessExit handles an exit-checkpoint card scan: it computes the fee and
// parks the session in PendingPayment. A repeated scan while pending returns
// the existing pending exit without recomputing or re-emitting exit_ready.
func (c *Coordinator) ProcessExit(ctx context.Context, cardID string) (*ExitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pending.getByCard(cardID); ok {
		session, err := c.ledger.GetByID(ctx, p.SessionID)
		if err != nil {
			return nil, fmt.Errorf("parking: load pending session: %w", err)
		}
		return &ExitResult{Session: session, Pending: p, Repeated: true}, nil
	}

	session, err := c.ledger.FindOpenByCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("parking: find open session: %w", err)
	}
	if session == nil {
		c.logger.Info("exit rejected: not parked", zap.String("card_id", cardID))
		c.emit(Event{Type: EventExitRejected, CardID: cardID, Reason: "no vehicle found for card"})
		return nil, ErrNotParked
	}

	breakdown, err := c.calc.Compute(session.EntryTime, c.now())
	if err != nil {
		return nil, fmt.Errorf("parking: compute fee: %w", err)
	}

	p := PendingExit{
		SessionID:   session.ID,
		CardID:      session.CardID,
		PlateNumber: session.PlateNumber,
		Fee:         breakdown.Fee,
		Breakdown:   breakdown,
		CreatedAt:   c.now(),
	}
	c.pending.put(p)

	c.logger.Info("exit ready",
		zap.Int64("session_id", session.ID),
		zap.String("card_id", cardID),
		zap.Int64("fee", breakdown.Fee))
	c.emit(Event{Type: EventExitReady, CardID: cardID, Session: session, Breakdown: &breakdown})
	return &ExitResult{Session: session, Pending: p}, nil
}

// FinalizeExit is the single commit point for an exit: it closes the session
// at the charged amount (which may differ from the computed fee for cash
// overrides), frees the slot and clears the pending exit. The first of
// finalize/cancel wins; the loser gets ErrAlreadyResolved.
func (c *Coordinator) FinalizeExit(ctx context.Context, sessionID, amount int64, method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending.resolve(sessionID)
	if !ok {
		return ErrAlreadyResolved
	}

	if err := c.ledger.Close(ctx, sessionID, amount, c.now()); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) || errors.Is(err, repository.ErrSessionClosed) {
			c.logger.Error("pending exit referenced unusable session",
				zap.Int64("session_id", sessionID), zap.Error(err))
			return err
		}
		// Transient failure: keep the pending exit so the operator can retry.
		c.pending.put(p)
		return fmt.Errorf("parking: close session: %w", err)
	}

	if c.active != nil {
		if err := c.active.Delete(ctx, p.CardID); err != nil {
			c.logger.Warn("failed to drop active session cache", zap.Error(err))
		}
	}

	session, err := c.ledger.GetByID(ctx, sessionID)
	if err != nil {
		c.logger.Warn("failed to reload closed session", zap.Int64("session_id", sessionID), zap.Error(err))
	}

	c.logger.Info("exit finalized",
		zap.Int64("session_id", sessionID),
		zap.Int64("amount", amount),
		zap.String("method", method))
	c.emit(Event{Type: EventExitCompleted, CardID: p.CardID, Session: session, Amount: amount, Method: method})
	c.emitSlotsChanged(ctx)
	return nil
}

// CancelExit clears the pending exit without closing the session; the vehicle
// is still parked. A cancel racing a finalize loses with ErrAlreadyResolved.
func (c *Coordinator) CancelExit(sessionID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending.resolve(sessionID)
	if !ok {
		return ErrAlreadyResolved
	}

	c.logger.Info("exit cancelled",
		zap.Int64("session_id", sessionID),
		zap.String("card_id", p.CardID))
	return nil
}

// PendingExitBySession returns the pending exit for a session, if any.
func (c *Coordinator) PendingExitBySession(sessionID int64) (PendingExit, bool) {
	return c.pending.getBySession(sessionID)
}

// Stats returns current slot occupancy.
func (c *Coordinator) Stats(ctx context.Context) (models.SlotStats, error) {
	return c.slots.Stats(ctx)
}

// Recent returns the latest sessions.
func (c *Coordinator) Recent(ctx context.Context, limit int) ([]models.Session, error) {
	return c.ledger.Recent(ctx, limit)
}

// ActiveSessions returns currently open sessions.
func (c *Coordinator) ActiveSessions(ctx context.Context, limit int) ([]models.Session, error) {
	return c.ledger.Active(ctx, limit)
}

// RevenueToday sums fees collected today.
func (c *Coordinator) RevenueToday(ctx context.Context) (int64, error) {
	return c.ledger.RevenueByDay(ctx, c.now())
}
