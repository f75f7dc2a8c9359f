package parking

import (
	"sync"
	"time"

	"parkgate/internal/fee"
)

// PendingExit is the transient record of an exit awaiting payment. It lives
// only in memory; after a restart the operator re-scans the card and the fee
// is recomputed.
type PendingExit struct {
	SessionID   int64         `json:"session_id"`
	CardID      string        `json:"card_id"`
	PlateNumber string        `json:"plate_number"`
	Fee         int64         `json:"fee"`
	Breakdown   fee.Breakdown `json:"breakdown"`
	CreatedAt   time.Time     `json:"created_at"`
}

// pendingStore holds pending exits keyed by session and by card. Resolve is
// single-assignment: the first caller wins and removes the entry; every later
// finalize or cancel for the same session loses.
type pendingStore struct {
	mu        sync.Mutex
	bySession map[int64]PendingExit
	byCard    map[string]int64
}

func newPendingStore() *pendingStore {
	return &pendingStore{
		bySession: make(map[int64]PendingExit),
		byCard:    make(map[string]int64),
	}
}

func (s *pendingStore) put(p PendingExit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySession[p.SessionID] = p
	s.byCard[p.CardID] = p.SessionID
}

func (s *pendingStore) getByCard(cardID string) (PendingExit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID, ok := s.byCard[cardID]
	if !ok {
		return PendingExit{}, false
	}
	p, ok := s.bySession[sessionID]
	return p, ok
}

func (s *pendingStore) getBySession(sessionID int64) (PendingExit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.bySession[sessionID]
	return p, ok
}

// resolve removes and returns the pending exit. The second caller gets false.
func (s *pendingStore) resolve(sessionID int64) (PendingExit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.bySession[sessionID]
	if !ok {
		return PendingExit{}, false
	}
	delete(s.bySession, sessionID)
	delete(s.byCard, p.CardID)
	return p, true
}
