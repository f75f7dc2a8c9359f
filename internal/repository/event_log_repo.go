package repository

import (
	"context"
	"database/sql"
)

// GateEventRepository keeps an audit trail of device frames.
type GateEventRepository struct {
	db *sql.DB
}

// NewGateEventRepository returns repository.
func NewGateEventRepository(db *sql.DB) *GateEventRepository {
	return &GateEventRepository{db: db}
}

// Save records a single inbound or outbound frame.
func (r *GateEventRepository) Save(ctx context.Context, deviceID, direction, frameType string, payload []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gate_events (device_id, direction, frame_type, payload) VALUES ($1, $2, $3, $4)`,
		deviceID, direction, frameType, payload)
	return err
}
