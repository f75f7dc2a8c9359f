package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"parkgate/internal/models"
)

const pgUniqueViolation = "23505"

// CardRepository handles persistence of RFID cards.
type CardRepository struct {
	db *sql.DB
}

// NewCardRepository returns repository.
func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db}
}

// Create registers a new card.
func (r *CardRepository) Create(ctx context.Context, card *models.Card) error {
	const query = `
		INSERT INTO cards (card_id, owner_name, plate_number, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_active, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		card.CardID,
		card.OwnerName,
		card.PlateNumber,
		card.Phone,
	).Scan(&card.ID, &card.IsActive, &card.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrCardExists
		}
		return err
	}
	return nil
}

// GetByCardID returns an active card by its RFID identifier.
func (r *CardRepository) GetByCardID(ctx context.Context, cardID string) (*models.Card, error) {
	const query = `
		SELECT id, card_id, owner_name, plate_number, phone, is_active, created_at
		FROM cards
		WHERE card_id = $1 AND is_active = TRUE
	`
	var card models.Card
	err := r.db.QueryRowContext(ctx, query, cardID).Scan(
		&card.ID,
		&card.CardID,
		&card.OwnerName,
		&card.PlateNumber,
		&card.Phone,
		&card.IsActive,
		&card.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

// ListActive returns all active cards, most recent first.
func (r *CardRepository) ListActive(ctx context.Context) ([]models.Card, error) {
	const query = `
		SELECT id, card_id, owner_name, plate_number, phone, is_active, created_at
		FROM cards
		WHERE is_active = TRUE
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var card models.Card
		if err := rows.Scan(
			&card.ID,
			&card.CardID,
			&card.OwnerName,
			&card.PlateNumber,
			&card.Phone,
			&card.IsActive,
			&card.CreatedAt,
		); err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

// Deactivate soft-deletes a card; history referencing it is preserved.
func (r *CardRepository) Deactivate(ctx context.Context, cardID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cards SET is_active = FALSE WHERE card_id = $1 AND is_active = TRUE`, cardID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCardNotFound
	}
	return nil
}
