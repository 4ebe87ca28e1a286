// Package dispatch queues and delivers citizen SMS messages. Messages are
// written to a database outbox in the capture transaction's wake and drained
// by a background job, so delivery failures never block field work.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxStatus represents the delivery state of a queued message
type OutboxStatus string

const (
	OutboxQueued OutboxStatus = "queued"
	OutboxSent   OutboxStatus = "sent"
	OutboxFailed OutboxStatus = "failed"
)

// maxAttempts before a message is parked as failed
const maxAttempts = 5

// OutboxMessage is one queued SMS
type OutboxMessage struct {
	ID             uuid.UUID
	NotificationID uuid.UUID
	Phone          string
	Body           string
	Status         OutboxStatus
	Attempts       int
	LastError      string
	CreatedAt      time.Time
	SentAt         *time.Time
}

// OutboxRepository defines the interface for outbox persistence
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg *OutboxMessage) error
	ListQueued(ctx context.Context, limit int) ([]*OutboxMessage, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// PostgresOutboxRepository implements OutboxRepository using PostgreSQL
type PostgresOutboxRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresOutboxRepository creates a new PostgreSQL outbox repository
func NewPostgresOutboxRepository(pool *pgxpool.Pool) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{pool: pool}
}

// Enqueue inserts a message into the outbox
func (r *PostgresOutboxRepository) Enqueue(ctx context.Context, msg *OutboxMessage) error {
	query := `
		INSERT INTO sms_outbox (id, notification_id, phone, body, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Status == "" {
		msg.Status = OutboxQueued
	}

	err := r.pool.QueryRow(ctx, query,
		msg.ID,
		msg.NotificationID,
		msg.Phone,
		msg.Body,
		msg.Status,
	).Scan(&msg.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to enqueue sms: %w", err)
	}
	return nil
}

// ListQueued retrieves retryable messages, oldest first.
func (r *PostgresOutboxRepository) ListQueued(ctx context.Context, limit int) ([]*OutboxMessage, error) {
	query := `
		SELECT id, notification_id, phone, body, status, attempts, last_error, created_at, sent_at
		FROM sms_outbox
		WHERE status = 'queued' AND attempts < $1
		ORDER BY created_at
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list queued sms: %w", err)
	}
	defer rows.Close()

	var out []*OutboxMessage
	for rows.Next() {
		msg := &OutboxMessage{}
		err := rows.Scan(
			&msg.ID,
			&msg.NotificationID,
			&msg.Phone,
			&msg.Body,
			&msg.Status,
			&msg.Attempts,
			&msg.LastError,
			&msg.CreatedAt,
			&msg.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// MarkSent records a successful delivery
func (r *PostgresOutboxRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sms_outbox
		SET status = 'sent', attempts = attempts + 1, last_error = '', sent_at = now()
		WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark sms sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt. The message stays queued until it
// exhausts its attempts, then parks as failed.
func (r *PostgresOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	query := `
		UPDATE sms_outbox
		SET attempts = attempts + 1,
		    last_error = $2,
		    status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'queued' END
		WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id, lastError, maxAttempts); err != nil {
		return fmt.Errorf("failed to mark sms failed: %w", err)
	}
	return nil
}
