package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"parkgate/internal/models"
)

// OperatorRepository handles staff accounts.
type OperatorRepository struct {
	db *sql.DB
}

// NewOperatorRepository returns repository.
func NewOperatorRepository(db *sql.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

// Create inserts a new operator account.
func (r *OperatorRepository) Create(ctx context.Context, op *models.Operator) error {
	const query = `
		INSERT INTO operators (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, op.Username, op.PasswordHash).Scan(&op.ID, &op.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return errors.New("repository: operator already exists")
		}
		return err
	}
	return nil
}

// GetByUsername returns an operator account.
func (r *OperatorRepository) GetByUsername(ctx context.Context, username string) (*models.Operator, error) {
	const query = `
		SELECT id, username, password_hash, created_at
		FROM operators
		WHERE username = $1
	`
	var op models.Operator
	err := r.db.QueryRowContext(ctx, query, username).Scan(&op.ID, &op.Username, &op.PasswordHash, &op.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOperatorNotFound
		}
		return nil, err
	}
	return &op, nil
}
