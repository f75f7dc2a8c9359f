package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveSession is the cached snapshot of an open session, keyed by card.
// The session ledger stays authoritative; this cache only speeds up
// dashboard reads and survives on a TTL.
type ActiveSession struct {
	SessionID   int64     `json:"session_id"`
	CardID      string    `json:"card_id"`
	PlateNumber string    `json:"plate_number"`
	SlotNumber  int       `json:"slot_number"`
	EntryTime   time.Time `json:"entry_time"`
}

// ActiveStore manages the active-session cache.
type ActiveStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewActiveStore returns a redis-backed store.
func NewActiveStore(client *redis.Client, ttl time.Duration) *ActiveStore {
	return &ActiveStore{client: client, ttl: ttl}
}

func (s *ActiveStore) key(cardID string) string {
	return fmt.Sprintf("parking:active:%s", cardID)
}

// Save caches the open session for a card.
func (s *ActiveStore) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.CardID), data, s.ttl).Err()
}

// Get returns the cached session for a card.
func (s *ActiveStore) Get(ctx context.Context, cardID string) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.key(cardID)).Result()
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the cached session for a card.
func (s *ActiveStore) Delete(ctx context.Context, cardID string) error {
	return s.client.Del(ctx, s.key(cardID)).Err()
}
