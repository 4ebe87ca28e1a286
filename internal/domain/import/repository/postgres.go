package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs. Narrowing to an
// interface lets tests substitute a pgxmock pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresImportRepository implements ImportRepository using PostgreSQL
type PostgresImportRepository struct {
	pool DB
}

// NewPostgresImportRepository creates a new PostgreSQL import repository
func NewPostgresImportRepository(pool DB) *PostgresImportRepository {
	return &PostgresImportRepository{pool: pool}
}

// CreateBatch inserts a new import batch
func (r *PostgresImportRepository) CreateBatch(ctx context.Context, b *Batch) error {
	query := `
		INSERT INTO import_batches (id, schedule_number, contact_email, branch_office, source, imported_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		b.ID,
		b.ScheduleNumber,
		b.ContactEmail,
		b.BranchOffice,
		b.Source,
		b.ImportedBy,
	).Scan(&b.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create import batch: %w", err)
	}
	return nil
}

// InsertRecords inserts the batch's notifications inside one transaction.
// ON CONFLICT DO NOTHING implements the duplicate-skip rule at the database
// level, so a concurrent import of the same schedule cannot double-insert.
func (r *PostgresImportRepository) InsertRecords(ctx context.Context, batchID uuid.UUID, records []Record) (inserted, skipped int, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO notifications (id, batch_id, order_number, supply_number, client_number, citizen_name, address, zone, notification_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (order_number) DO NOTHING`

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query,
			uuid.New(),
			batchID,
			rec.OrderNumber,
			rec.SupplyNumber,
			rec.ClientNumber,
			rec.CitizenName,
			rec.Address,
			rec.Zone,
			rec.NotificationType,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		tag, execErr := results.Exec()
		if execErr != nil {
			results.Close()
			return 0, 0, fmt.Errorf("failed to insert notification: %w", execErr)
		}
		if tag.RowsAffected() > 0 {
			inserted++
		} else {
			skipped++
		}
	}
	if err := results.Close(); err != nil {
		return 0, 0, fmt.Errorf("failed to close insert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to commit import transaction: %w", err)
	}
	return inserted, skipped, nil
}

// FinishBatch stores the final counts and warnings
func (r *PostgresImportRepository) FinishBatch(ctx context.Context, id uuid.UUID, imported, skipped int, warnings []string) error {
	query := `
		UPDATE import_batches
		SET imported_count = $2, skipped_count = $3, warnings = $4
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, imported, skipped, warnings)
	if err != nil {
		return fmt.Errorf("failed to finish import batch: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetBatch retrieves a batch by ID
func (r *PostgresImportRepository) GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error) {
	query := `
		SELECT id, schedule_number, contact_email, branch_office, source, imported_count, skipped_count, warnings, imported_by, created_at
		FROM import_batches
		WHERE id = $1`

	b, err := scanBatch(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import batch: %w", err)
	}
	return b, nil
}

// ListBatches retrieves batches, newest first
func (r *PostgresImportRepository) ListBatches(ctx context.Context, limit, offset int) ([]*Batch, error) {
	query := `
		SELECT id, schedule_number, contact_email, branch_office, source, imported_count, skipped_count, warnings, imported_by, created_at
		FROM import_batches
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list import batches: %w", err)
	}
	defer rows.Close()

	var out []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBatch(row pgx.Row) (*Batch, error) {
	b := &Batch{}
	err := row.Scan(
		&b.ID,
		&b.ScheduleNumber,
		&b.ContactEmail,
		&b.BranchOffice,
		&b.Source,
		&b.ImportedCount,
		&b.SkippedCount,
		&b.Warnings,
		&b.ImportedBy,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}
