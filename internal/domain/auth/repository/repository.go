// Package repository provides database operations for users.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role controls what a user may do
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOffice Role = "office"
	RoleAgent  Role = "agent"
)

// User represents an account: office staff importing schedules, field agents
// capturing visits, or admins.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         Role
	Zone         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthRepository defines the interface for user persistence
type AuthRepository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	ListAgents(ctx context.Context) ([]*User, error)
}
