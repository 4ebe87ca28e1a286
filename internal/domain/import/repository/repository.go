// Package repository provides database operations for import batches.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Source identifies where a batch's records came from
type Source string

const (
	SourcePDF Source = "pdf"
	SourceCSV Source = "csv"
)

// Batch records one schedule import
type Batch struct {
	ID             uuid.UUID
	ScheduleNumber string
	ContactEmail   string
	BranchOffice   string
	Source         Source
	ImportedCount  int
	SkippedCount   int
	Warnings       []string
	ImportedBy     *uuid.UUID
	CreatedAt      time.Time
}

// Record is one notification row to insert for a batch
type Record struct {
	OrderNumber      string
	SupplyNumber     string
	ClientNumber     string
	CitizenName      string
	Address          string
	Zone             string
	NotificationType string
}

// ImportRepository defines the interface for import persistence
type ImportRepository interface {
	CreateBatch(ctx context.Context, b *Batch) error

	// InsertRecords inserts the batch's notifications. Records whose order
	// number already exists are skipped, not updated. Returns how many
	// rows were inserted and how many were skipped as duplicates.
	InsertRecords(ctx context.Context, batchID uuid.UUID, records []Record) (inserted, skipped int, err error)

	// FinishBatch stores the final counts and warnings on the batch row.
	FinishBatch(ctx context.Context, id uuid.UUID, imported, skipped int, warnings []string) error

	GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error)
	ListBatches(ctx context.Context, limit, offset int) ([]*Batch, error)
}
