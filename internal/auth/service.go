package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"parkgate/internal/models"
	"parkgate/internal/repository"
)

// ErrInvalidCredentials represents login failure.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// OperatorRepository defines the storage contract used by the service.
type OperatorRepository interface {
	Create(ctx context.Context, op *models.Operator) error
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
}

// Service contains operator login logic.
type Service struct {
	repo      OperatorRepository
	hasher    Hasher
	tokenizer *TokenService
	logger    *zap.Logger
}

// NewService builds Service.
func NewService(repo OperatorRepository, hasher Hasher, tokenizer *TokenService, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		hasher:    hasher,
		tokenizer: tokenizer,
		logger:    logger,
	}
}

// Login authenticates an operator and produces a JWT.
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.Operator, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	op, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrOperatorNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := s.hasher.Compare(op.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokenizer.GenerateToken(op.ID, op.Username)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("operator logged in", zap.Int64("operator_id", op.ID), zap.String("username", op.Username))
	return token, op, nil
}

// EnsureOperator creates the bootstrap account when it does not exist yet.
func (s *Service) EnsureOperator(ctx context.Context, username, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrOperatorNotFound) {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	op := &models.Operator{Username: username, PasswordHash: hash}
	if err := s.repo.Create(ctx, op); err != nil {
		return err
	}
	s.logger.Info("bootstrap operator created", zap.String("username", username))
	return nil
}
