package repository

import (
	"context"
	"database/sql"
	"errors"

	"parkgate/internal/models"
)

// SlotRepository tracks occupancy of the fixed slot pool. Reservation and
// release during session open/close happen inside the SessionRepository
// transaction; the standalone methods here serve reads and recovery.
type SlotRepository struct {
	db *sql.DB
}

// NewSlotRepository returns repository.
func NewSlotRepository(db *sql.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// FindAvailable returns the lowest free slot number. The second return value
// is false when the lot is full.
func (r *SlotRepository) FindAvailable(ctx context.Context) (int, bool, error) {
	const query = `
		SELECT slot_number
		FROM slots
		WHERE is_occupied = FALSE
		ORDER BY slot_number
		LIMIT 1
	`
	var slot int
	err := r.db.QueryRowContext(ctx, query).Scan(&slot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return slot, true, nil
}

// Release frees a slot. Releasing an already-free slot is a no-op.
func (r *SlotRepository) Release(ctx context.Context, slotNumber int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE slots SET is_occupied = FALSE, current_session_id = NULL WHERE slot_number = $1`,
		slotNumber)
	return err
}

// Stats returns the occupancy summary.
func (r *SlotRepository) Stats(ctx context.Context) (models.SlotStats, error) {
	const query = `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_occupied)
		FROM slots
	`
	var stats models.SlotStats
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.Total, &stats.Occupied); err != nil {
		return models.SlotStats{}, err
	}
	stats.Available = stats.Total - stats.Occupied
	return stats, nil
}

// List returns all slots ordered by number.
func (r *SlotRepository) List(ctx context.Context) ([]models.Slot, error) {
	const query = `
		SELECT slot_number, is_occupied, current_session_id
		FROM slots
		ORDER BY slot_number
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []models.Slot
	for rows.Next() {
		var slot models.Slot
		if err := rows.Scan(&slot.SlotNumber, &slot.IsOccupied, &slot.CurrentSessionID); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}
