package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"parkgate/internal/models"
	"parkgate/internal/repository"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)

	token, err := tokens.GenerateToken(7, "operator1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := tokens.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.OperatorID != 7 || claims.Username != "operator1" {
		t.Fatalf("claims lost: %+v", claims)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Hour).GenerateToken(1, "op")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenService("secret-b", time.Hour).ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestTokenRequiresOperatorID(t *testing.T) {
	if _, err := NewTokenService("s", time.Hour).GenerateToken(0, "op"); err == nil {
		t.Fatal("expected error for zero operator id")
	}
}

type memoryOperators struct {
	ops map[string]*models.Operator
}

func (m *memoryOperators) Create(_ context.Context, op *models.Operator) error {
	op.ID = int64(len(m.ops) + 1)
	m.ops[op.Username] = op
	return nil
}

func (m *memoryOperators) GetByUsername(_ context.Context, username string) (*models.Operator, error) {
	op, ok := m.ops[username]
	if !ok {
		return nil, repository.ErrOperatorNotFound
	}
	return op, nil
}

func newTestService(t *testing.T) (*Service, *memoryOperators) {
	t.Helper()
	repo := &memoryOperators{ops: make(map[string]*models.Operator)}
	svc := NewService(repo, NewBcryptHasher(bcryptTestCost), NewTokenService("test-secret", time.Hour), zap.NewNop())
	return svc, repo
}

// Minimum cost keeps the hashing in tests fast.
const bcryptTestCost = 4

func TestLoginSucceedsWithCorrectPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.EnsureOperator(ctx, "admin", "parking123"); err != nil {
		t.Fatalf("ensure operator: %v", err)
	}

	token, op, err := svc.Login(ctx, "ADMIN", "parking123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" || op == nil || op.Username != "admin" {
		t.Fatalf("unexpected login result: token=%q op=%+v", token, op)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.EnsureOperator(ctx, "admin", "parking123"); err != nil {
		t.Fatalf("ensure operator: %v", err)
	}

	if _, _, err := svc.Login(ctx, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "ghost", "parking123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestEnsureOperatorIsIdempotent(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if err := svc.EnsureOperator(ctx, "admin", "parking123"); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	first := repo.ops["admin"].PasswordHash
	if err := svc.EnsureOperator(ctx, "admin", "other"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if repo.ops["admin"].PasswordHash != first {
		t.Fatal("existing operator must not be overwritten")
	}
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)
	token, err := tokens.GenerateToken(3, "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var gotClaims *Claims
	handler := Middleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotClaims == nil || gotClaims.OperatorID != 3 {
		t.Fatalf("claims not propagated: %+v", gotClaims)
	}
}

func TestMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)
	handler := Middleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a valid token")
	}))

	for _, header := range []string{"", "Bearer garbage", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}
