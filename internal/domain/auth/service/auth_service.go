// Package service coordinates authentication business logic.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nqn-field/notifica/internal/domain/auth/repository"
)

var (
	// ErrInvalidCredentials is returned for unknown emails and wrong
	// passwords alike. Login never reveals which one failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountInactive is returned when a user has been disabled.
	ErrAccountInactive = errors.New("account is deactivated")

	// ErrUserAlreadyExists is returned when the email is taken.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// dummyHash keeps the bcrypt cost of an unknown-email login comparable to a
// wrong-password one.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("timing-equalizer"), bcrypt.DefaultCost)

// LoginResult is produced after a successful login.
type LoginResult struct {
	User  *repository.User
	Token string
}

// AuthService coordinates authentication business logic.
type AuthService struct {
	repo         repository.AuthRepository
	tokenManager TokenManager
	logger       *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(repo repository.AuthRepository, tokenManager TokenManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		repo:         repo,
		tokenManager: tokenManager,
		logger:       logger,
	}
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, sql.ErrNoRows) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("failed login attempt", slog.String("email", user.Email))
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	token, err := s.tokenManager.Generate(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID.String()),
		slog.String("role", string(user.Role)),
	)
	return &LoginResult{User: user, Token: token}, nil
}

// CreateUser registers a new account with a hashed password.
func (s *AuthService) CreateUser(ctx context.Context, email, password, fullName string, role repository.Role, zone string) (*repository.User, error) {
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &repository.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         role,
		Zone:         zone,
		IsActive:     true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves one user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*repository.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// ListAgents retrieves the active field agents for assignment.
func (s *AuthService) ListAgents(ctx context.Context) ([]*repository.User, error) {
	return s.repo.ListAgents(ctx)
}
