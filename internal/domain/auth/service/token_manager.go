package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nqn-field/notifica/internal/domain/auth/repository"
)

// ErrInvalidToken is returned for expired, malformed or forged tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims carried by an access token.
type Claims struct {
	UserID uuid.UUID       `json:"uid"`
	Email  string          `json:"email"`
	Role   repository.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates access tokens.
type TokenManager interface {
	Generate(user *repository.User) (string, error)
	Validate(tokenString string) (*Claims, error)
}

// JWTTokenManager implements TokenManager with HMAC-signed JWTs.
type JWTTokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a JWT token manager.
func NewTokenManager(secret []byte, ttl time.Duration) *JWTTokenManager {
	return &JWTTokenManager{secret: secret, ttl: ttl}
}

// Generate issues a signed access token for the user.
func (m *JWTTokenManager) Generate(user *repository.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies an access token.
func (m *JWTTokenManager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
