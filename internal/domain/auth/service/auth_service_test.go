package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nqn-field/notifica/internal/domain/auth/repository"
)

// mockAuthRepo implements repository.AuthRepository in memory
type mockAuthRepo struct {
	users map[string]*repository.User
}

func newMockAuthRepo(users ...*repository.User) *mockAuthRepo {
	m := &mockAuthRepo{users: make(map[string]*repository.User)}
	for _, u := range users {
		m.users[strings.ToLower(u.Email)] = u
	}
	return m
}

func (m *mockAuthRepo) CreateUser(ctx context.Context, u *repository.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[strings.ToLower(u.Email)] = u
	return nil
}

func (m *mockAuthRepo) GetUserByEmail(ctx context.Context, email string) (*repository.User, error) {
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*repository.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) ListAgents(ctx context.Context) ([]*repository.User, error) {
	var out []*repository.User
	for _, u := range m.users {
		if u.Role == repository.RoleAgent && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func testUser(t *testing.T, password string) *repository.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return &repository.User{
		ID:           uuid.New(),
		Email:        "notifier@example.com",
		PasswordHash: string(hash),
		FullName:     "Agente de Campo",
		Role:         repository.RoleAgent,
		IsActive:     true,
	}
}

func newTestService(t *testing.T, users ...*repository.User) *AuthService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tm := NewTokenManager([]byte("test-secret"), time.Hour)
	return NewAuthService(newMockAuthRepo(users...), tm, logger)
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		user := testUser(t, "demo123")
		svc := newTestService(t, user)

		result, err := svc.Login(context.Background(), "notifier@example.com", "demo123")
		require.NoError(t, err)
		assert.Equal(t, user.ID, result.User.ID)
		assert.NotEmpty(t, result.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := newTestService(t, testUser(t, "demo123"))

		_, err := svc.Login(context.Background(), "notifier@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc := newTestService(t)

		_, err := svc.Login(context.Background(), "nobody@example.com", "demo123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		user := testUser(t, "demo123")
		user.IsActive = false
		svc := newTestService(t, user)

		_, err := svc.Login(context.Background(), "notifier@example.com", "demo123")
		assert.ErrorIs(t, err, ErrAccountInactive)
	})

	t.Run("email case and whitespace tolerated", func(t *testing.T) {
		svc := newTestService(t, testUser(t, "demo123"))

		_, err := svc.Login(context.Background(), "  Notifier@Example.com ", "demo123")
		assert.NoError(t, err)
	})
}

func TestCreateUser(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.CreateUser(context.Background(), "office@epen.gov.ar", "s3cret", "Mesa de Entradas", repository.RoleOffice, "")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.NotEqual(t, "s3cret", user.PasswordHash)

	_, err = svc.CreateUser(context.Background(), "office@epen.gov.ar", "other", "Duplicate", repository.RoleOffice, "")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestTokenManager(t *testing.T) {
	user := &repository.User{
		ID:    uuid.New(),
		Email: "agent@epen.gov.ar",
		Role:  repository.RoleAgent,
	}

	t.Run("round trip", func(t *testing.T) {
		tm := NewTokenManager([]byte("secret"), time.Hour)

		token, err := tm.Generate(user)
		require.NoError(t, err)

		claims, err := tm.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, user.Email, claims.Email)
		assert.Equal(t, repository.RoleAgent, claims.Role)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		tm := NewTokenManager([]byte("secret"), -time.Minute)

		token, err := tm.Generate(user)
		require.NoError(t, err)

		_, err = tm.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token, err := NewTokenManager([]byte("secret"), time.Hour).Generate(user)
		require.NoError(t, err)

		_, err = NewTokenManager([]byte("other"), time.Hour).Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		tm := NewTokenManager([]byte("secret"), time.Hour)
		_, err := tm.Validate("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
