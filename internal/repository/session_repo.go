package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"parkgate/internal/models"
)

// SessionRepository is the persistent session ledger. Session creation and
// closure mutate the paired slot row in the same transaction, so slot state
// and session state can never disagree about who holds a slot.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Open creates a session and reserves the slot as one atomic unit.
// Returns ErrSlotOccupied if the slot was taken since it was picked.
func (r *SessionRepository) Open(ctx context.Context, cardID, plateNumber string, slotNumber int, entryTime time.Time) (*models.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	session := &models.Session{
		CardID:        cardID,
		PlateNumber:   plateNumber,
		SlotNumber:    slotNumber,
		EntryTime:     entryTime.UTC(),
		PaymentStatus: models.PaymentPending,
	}

	const insertSession = `
		INSERT INTO sessions (card_id, plate_number, slot_number, entry_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := tx.QueryRowContext(ctx, insertSession,
		session.CardID,
		session.PlateNumber,
		session.SlotNumber,
		session.EntryTime,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return nil, err
	}

	const reserveSlot = `
		UPDATE slots
		SET is_occupied = TRUE, current_session_id = $1
		WHERE slot_number = $2 AND is_occupied = FALSE
	`
	result, err := tx.ExecContext(ctx, reserveSlot, session.ID, session.SlotNumber)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrSlotOccupied
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return session, nil
}

// Close finalizes a session at the charged amount and frees its slot as one
// atomic unit. Returns ErrSessionNotFound for unknown ids and
// ErrSessionClosed when the exit time is already set.
func (r *SessionRepository) Close(ctx context.Context, sessionID, fee int64, exitTime time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var slotNumber int
	var closedAt sql.NullTime
	const lockSession = `
		SELECT slot_number, exit_time
		FROM sessions
		WHERE id = $1
		FOR UPDATE
	`
	if err := tx.QueryRowContext(ctx, lockSession, sessionID).Scan(&slotNumber, &closedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		return err
	}
	if closedAt.Valid {
		return ErrSessionClosed
	}

	const closeSession = `
		UPDATE sessions
		SET exit_time = $2, fee = $3, payment_status = $4
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, closeSession, sessionID, exitTime.UTC(), fee, models.PaymentPaid); err != nil {
		return err
	}

	const releaseSlot = `
		UPDATE slots
		SET is_occupied = FALSE, current_session_id = NULL
		WHERE slot_number = $1
	`
	if _, err := tx.ExecContext(ctx, releaseSlot, slotNumber); err != nil {
		return err
	}

	return tx.Commit()
}

const sessionColumns = `id, card_id, plate_number, slot_number, entry_time, exit_time, fee, payment_status, created_at`

func scanSession(row interface{ Scan(...interface{}) error }) (*models.Session, error) {
	var s models.Session
	if err := row.Scan(
		&s.ID,
		&s.CardID,
		&s.PlateNumber,
		&s.SlotNumber,
		&s.EntryTime,
		&s.ExitTime,
		&s.Fee,
		&s.PaymentStatus,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

// FindOpenByCard returns the open session for a card, or nil when the card is
// not in the lot.
func (r *SessionRepository) FindOpenByCard(ctx context.Context, cardID string) (*models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE card_id = $1 AND exit_time IS NULL
		ORDER BY entry_time DESC
		LIMIT 1
	`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, cardID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

// GetByID returns a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1
	`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Recent returns the latest sessions, most recent first.
func (r *SessionRepository) Recent(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		ORDER BY created_at DESC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// Active returns currently open sessions ordered by entry time.
func (r *SessionRepository) Active(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE exit_time IS NULL
		ORDER BY entry_time DESC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// RevenueByDay sums fees of sessions closed and paid on the given day.
func (r *SessionRepository) RevenueByDay(ctx context.Context, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	const query = `
		SELECT COALESCE(SUM(fee), 0)
		FROM sessions
		WHERE payment_status = $1 AND exit_time >= $2 AND exit_time < $3
	`
	var revenue int64
	if err := r.db.QueryRowContext(ctx, query, models.PaymentPaid, start, end).Scan(&revenue); err != nil {
		return 0, err
	}
	return revenue, nil
}
