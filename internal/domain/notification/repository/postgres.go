package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs. Narrowing to an
// interface lets tests substitute a pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const notificationColumns = `id, batch_id, order_number, supply_number, client_number, citizen_name,
	address, zone, phone, notification_type, status, assigned_to, latitude, longitude,
	photo_url, signature_url, observations, result, verification_token, completed_by,
	completed_at, created_at, updated_at`

// PostgresNotificationRepository implements NotificationRepository using PostgreSQL
type PostgresNotificationRepository struct {
	pool DB
}

// NewPostgresNotificationRepository creates a new PostgreSQL notification repository
func NewPostgresNotificationRepository(pool DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{pool: pool}
}

// Create inserts a new notification
func (r *PostgresNotificationRepository) Create(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (id, batch_id, order_number, supply_number, client_number, citizen_name, address, zone, phone, notification_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = StatusPending
	}

	err := r.pool.QueryRow(ctx, query,
		n.ID,
		n.BatchID,
		n.OrderNumber,
		n.SupplyNumber,
		n.ClientNumber,
		n.CitizenName,
		n.Address,
		n.Zone,
		n.Phone,
		n.NotificationType,
		n.Status,
	).Scan(&n.CreatedAt, &n.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByID retrieves a notification by ID
func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := r.scanOne(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// GetByToken retrieves a completed notification by its verification token
func (r *PostgresNotificationRepository) GetByToken(ctx context.Context, token string) (*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE verification_token = $1`

	n, err := r.scanOne(r.pool.QueryRow(ctx, query, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification by token: %w", err)
	}
	return n, nil
}

// List retrieves notifications matching the filter, newest first
func (r *PostgresNotificationRepository) List(ctx context.Context, f Filter) ([]*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications`
	where, args := buildFilter(f)
	query += where + ` ORDER BY created_at DESC`

	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Count returns the number of notifications matching the filter
func (r *PostgresNotificationRepository) Count(ctx context.Context, f Filter) (int, error) {
	query := `SELECT COUNT(*) FROM notifications`
	where, args := buildFilter(f)
	query += where

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// Update edits the citizen-facing fields of an open notification. Completed
// records are immutable: their content backs issued verification tokens.
func (r *PostgresNotificationRepository) Update(ctx context.Context, n *Notification) error {
	query := `
		UPDATE notifications
		SET citizen_name = $2,
		    address = $3,
		    zone = $4,
		    phone = $5,
		    notification_type = $6,
		    updated_at = now()
		WHERE id = $1 AND status != 'completed'`

	result, err := r.pool.Exec(ctx, query,
		n.ID, n.CitizenName, n.Address, n.Zone, n.Phone, n.NotificationType)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an uncompleted notification
func (r *PostgresNotificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM notifications WHERE id = $1 AND status != 'completed'`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Assign sets the assignee on the given notifications
func (r *PostgresNotificationRepository) Assign(ctx context.Context, ids []uuid.UUID, agentID uuid.UUID) (int, error) {
	query := `
		UPDATE notifications
		SET assigned_to = $1,
		    status = CASE WHEN status = 'pending' THEN 'in_progress' ELSE status END,
		    updated_at = now()
		WHERE id = ANY($2) AND status IN ('pending', 'in_progress')`

	result, err := r.pool.Exec(ctx, query, agentID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to assign notifications: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// AssignZone assigns every open unassigned notification in a zone
func (r *PostgresNotificationRepository) AssignZone(ctx context.Context, zone string, agentID uuid.UUID) (int, error) {
	query := `
		UPDATE notifications
		SET assigned_to = $1,
		    status = CASE WHEN status = 'pending' THEN 'in_progress' ELSE status END,
		    updated_at = now()
		WHERE zone = $2 AND assigned_to IS NULL AND status IN ('pending', 'in_progress')`

	result, err := r.pool.Exec(ctx, query, agentID, zone)
	if err != nil {
		return 0, fmt.Errorf("failed to assign zone: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// Unassign clears the assignee on the given notifications
func (r *PostgresNotificationRepository) Unassign(ctx context.Context, ids []uuid.UUID) (int, error) {
	query := `
		UPDATE notifications
		SET assigned_to = NULL,
		    status = CASE WHEN status = 'in_progress' THEN 'pending' ELSE status END,
		    updated_at = now()
		WHERE id = ANY($1) AND status IN ('pending', 'in_progress')`

	result, err := r.pool.Exec(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to unassign notifications: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// SetStatus transitions a notification's status
func (r *PostgresNotificationRepository) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	query := `UPDATE notifications SET status = $2, updated_at = now() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set notification status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CompleteCapture applies a capture and transitions the notification to
// completed. The WHERE clause is the concurrency guard: of two racing
// captures exactly one matches the open row, the other scans no rows.
func (r *PostgresNotificationRepository) CompleteCapture(ctx context.Context, u *CaptureUpdate) (*Notification, error) {
	query := `
		UPDATE notifications
		SET status = 'completed',
		    latitude = $2,
		    longitude = $3,
		    photo_url = $4,
		    signature_url = $5,
		    observations = $6,
		    result = $7,
		    verification_token = $8,
		    completed_by = $9,
		    completed_at = $10,
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('pending', 'in_progress')
		  AND verification_token IS NULL
		RETURNING ` + notificationColumns

	n, err := r.scanOne(r.pool.QueryRow(ctx, query,
		u.ID,
		u.Latitude,
		u.Longitude,
		u.PhotoURL,
		u.SignatureURL,
		u.Observations,
		u.Result,
		u.VerificationToken,
		u.CompletedBy,
		u.CompletedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete capture: %w", err)
	}
	return n, nil
}

// StatsByStatus returns a count of notifications per status
func (r *PostgresNotificationRepository) StatsByStatus(ctx context.Context) ([]StatusCount, error) {
	query := `SELECT status, COUNT(*) FROM notifications GROUP BY status ORDER BY status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query status stats: %w", err)
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status stats: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// StatsByZone returns total and completed counts per zone
func (r *PostgresNotificationRepository) StatsByZone(ctx context.Context) ([]ZoneCount, error) {
	query := `
		SELECT zone,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'completed')
		FROM notifications
		GROUP BY zone
		ORDER BY zone`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query zone stats: %w", err)
	}
	defer rows.Close()

	var out []ZoneCount
	for rows.Next() {
		var zc ZoneCount
		if err := rows.Scan(&zc.Zone, &zc.Total, &zc.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan zone stats: %w", err)
		}
		out = append(out, zc)
	}
	return out, rows.Err()
}

func (r *PostgresNotificationRepository) scanOne(row pgx.Row) (*Notification, error) {
	n := &Notification{}
	err := row.Scan(
		&n.ID,
		&n.BatchID,
		&n.OrderNumber,
		&n.SupplyNumber,
		&n.ClientNumber,
		&n.CitizenName,
		&n.Address,
		&n.Zone,
		&n.Phone,
		&n.NotificationType,
		&n.Status,
		&n.AssignedTo,
		&n.Latitude,
		&n.Longitude,
		&n.PhotoURL,
		&n.SignatureURL,
		&n.Observations,
		&n.Result,
		&n.VerificationToken,
		&n.CompletedBy,
		&n.CompletedAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// buildFilter renders the WHERE clause shared by List and Count
func buildFilter(f Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.Status != nil {
		args = append(args, *f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Zone != "" {
		args = append(args, f.Zone)
		conds = append(conds, fmt.Sprintf("zone = $%d", len(args)))
	}
	if f.AssignedTo != nil {
		args = append(args, *f.AssignedTo)
		conds = append(conds, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if f.BatchID != nil {
		args = append(args, *f.BatchID)
		conds = append(conds, fmt.Sprintf("batch_id = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
