// Package zone manages the locality registry and resolves free-text
// addresses to delivery zones.
package zone

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Zone is one delivery zone with the locality names that map into it.
type Zone struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Localities []string  `json:"localities"`
	CreatedAt  time.Time `json:"created_at"`
}

// ZoneRepository defines the interface for zone persistence
type ZoneRepository interface {
	Create(ctx context.Context, z *Zone) error
	List(ctx context.Context) ([]*Zone, error)
	GetByName(ctx context.Context, name string) (*Zone, error)
}

// PostgresZoneRepository implements ZoneRepository using PostgreSQL
type PostgresZoneRepository struct {
	db *pgxpool.Pool
}

// NewPostgresZoneRepository creates a new PostgreSQL zone repository
func NewPostgresZoneRepository(db *pgxpool.Pool) *PostgresZoneRepository {
	return &PostgresZoneRepository{db: db}
}

// Create inserts a new zone
func (r *PostgresZoneRepository) Create(ctx context.Context, z *Zone) error {
	query := `
		INSERT INTO zones (name, localities)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, z.Name, z.Localities).Scan(&z.ID, &z.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create zone: %w", err)
	}
	return nil
}

// List returns all zones ordered by name
func (r *PostgresZoneRepository) List(ctx context.Context) ([]*Zone, error) {
	query := `
		SELECT id, name, localities, created_at
		FROM zones
		ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	defer rows.Close()

	var zones []*Zone
	for rows.Next() {
		z := &Zone{}
		if err := rows.Scan(&z.ID, &z.Name, &z.Localities, &z.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// GetByName returns one zone by its exact name
func (r *PostgresZoneRepository) GetByName(ctx context.Context, name string) (*Zone, error) {
	query := `
		SELECT id, name, localities, created_at
		FROM zones
		WHERE name = $1`

	z := &Zone{}
	err := r.db.QueryRow(ctx, query, name).Scan(&z.ID, &z.Name, &z.Localities, &z.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get zone: %w", err)
	}
	return z, nil
}
