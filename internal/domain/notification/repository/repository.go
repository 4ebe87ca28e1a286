// Package repository provides database operations for notifications.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a notification
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Notification represents one citizen notification to be delivered in the
// field. Capture fields stay nil until a field agent completes the visit.
type Notification struct {
	ID                uuid.UUID
	BatchID           *uuid.UUID
	OrderNumber       string
	SupplyNumber      string
	ClientNumber      string
	CitizenName       string
	Address           string
	Zone              string
	Phone             string
	NotificationType  string
	Status            Status
	AssignedTo        *uuid.UUID
	Latitude          *float64
	Longitude         *float64
	PhotoURL          *string
	SignatureURL      *string
	Observations      string
	Result            string
	VerificationToken *string
	CompletedBy       *uuid.UUID
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Filter narrows List and Count queries
type Filter struct {
	Status     *Status
	Zone       string
	AssignedTo *uuid.UUID
	BatchID    *uuid.UUID
	Limit      int
	Offset     int
}

// CaptureUpdate carries the field data that completes a notification
type CaptureUpdate struct {
	ID                uuid.UUID
	Latitude          float64
	Longitude         float64
	PhotoURL          *string
	SignatureURL      *string
	Observations      string
	Result            string
	VerificationToken string
	CompletedBy       uuid.UUID
	CompletedAt       time.Time
}

// StatusCount is one row of the per-status stats breakdown
type StatusCount struct {
	Status Status
	Count  int
}

// ZoneCount is one row of the per-zone stats breakdown
type ZoneCount struct {
	Zone      string
	Total     int
	Completed int
}

// NotificationRepository defines the interface for notification persistence
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	GetByToken(ctx context.Context, token string) (*Notification, error)
	List(ctx context.Context, f Filter) ([]*Notification, error)
	Count(ctx context.Context, f Filter) (int, error)

	// Update edits the citizen-facing fields of an open notification.
	Update(ctx context.Context, n *Notification) error

	// Delete removes a notification that has not been completed.
	Delete(ctx context.Context, id uuid.UUID) error

	// Assign sets the assignee on a set of notifications and moves pending
	// ones to in_progress. Returns the number of rows updated.
	Assign(ctx context.Context, ids []uuid.UUID, agentID uuid.UUID) (int, error)

	// AssignZone assigns every open unassigned notification in a zone.
	AssignZone(ctx context.Context, zone string, agentID uuid.UUID) (int, error)

	// Unassign clears the assignee and returns in_progress rows to pending.
	Unassign(ctx context.Context, ids []uuid.UUID) (int, error)

	// SetStatus transitions a notification without touching capture fields.
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error

	// CompleteCapture atomically transitions a notification to completed.
	// The update is guarded: it only applies while the notification is
	// still open and unverified, so a concurrent second capture loses and
	// gets sql.ErrNoRows.
	CompleteCapture(ctx context.Context, u *CaptureUpdate) (*Notification, error)

	StatsByStatus(ctx context.Context) ([]StatusCount, error)
	StatsByZone(ctx context.Context) ([]ZoneCount, error)
}
