// Package service provides the import orchestration logic: parse a schedule
// payload, create the batch, insert the records with duplicate skipping, and
// notify the schedule contact.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nqn-field/notifica/internal/domain/import/parser"
	"github.com/nqn-field/notifica/internal/domain/import/repository"
	"github.com/nqn-field/notifica/pkg/mailer"
	"github.com/nqn-field/notifica/pkg/metrics"
)

// ErrBatchNotFound is returned when the requested import batch does not exist.
var ErrBatchNotFound = errors.New("import batch not found")

// Summary is the outcome of one import
type Summary struct {
	BatchID  uuid.UUID            `json:"batch_id"`
	Metadata parser.BatchMetadata `json:"metadata"`
	Imported int                  `json:"imported"`
	Skipped  int                  `json:"skipped"`
	Warnings []string             `json:"warnings,omitempty"`
}

// Preview is the parse result returned without persisting anything
type Preview struct {
	Metadata parser.BatchMetadata `json:"metadata"`
	Records  []parser.Record      `json:"records"`
	Warnings []string             `json:"warnings,omitempty"`
}

// SummaryMailer sends the post-import email. Implemented by pkg/mailer.
type SummaryMailer interface {
	SendImportSummary(to string, summary mailer.ImportSummary) error
}

// ImportService orchestrates schedule imports
type ImportService struct {
	repo   repository.ImportRepository
	mail   SummaryMailer
	logger *slog.Logger
	tracer trace.Tracer
}

// NewImportService creates a new import service
func NewImportService(repo repository.ImportRepository, mail SummaryMailer, logger *slog.Logger) *ImportService {
	return &ImportService{
		repo:   repo,
		mail:   mail,
		logger: logger,
		tracer: otel.Tracer("import"),
	}
}

// ImportPDFText imports records from the extracted text of a schedule PDF.
func (s *ImportService) ImportPDFText(ctx context.Context, userID uuid.UUID, text string) (*Summary, error) {
	result := parser.Parse(text)
	return s.persist(ctx, userID, repository.SourcePDF, result)
}

// ImportCSV imports records from a CSV export.
func (s *ImportService) ImportCSV(ctx context.Context, userID uuid.UUID, data []byte) (*Summary, error) {
	result, err := parser.ParseCSV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return s.persist(ctx, userID, repository.SourceCSV, result)
}

// PreviewPDFText parses schedule text without writing anything, so office
// staff can inspect what an import would produce.
func (s *ImportService) PreviewPDFText(text string) *Preview {
	result := parser.Parse(text)
	return &Preview{
		Metadata: result.Metadata,
		Records:  result.Records,
		Warnings: result.Warnings,
	}
}

// GetBatch retrieves one import batch
func (s *ImportService) GetBatch(ctx context.Context, id uuid.UUID) (*repository.Batch, error) {
	batch, err := s.repo.GetBatch(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	return batch, err
}

// ListBatches retrieves import batches, newest first
func (s *ImportService) ListBatches(ctx context.Context, limit, offset int) ([]*repository.Batch, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListBatches(ctx, limit, offset)
}

func (s *ImportService) persist(ctx context.Context, userID uuid.UUID, source repository.Source, result *parser.Result) (*Summary, error) {
	ctx, span := s.tracer.Start(ctx, "import.persist",
		trace.WithAttributes(
			attribute.String("source", string(source)),
			attribute.Int("records", len(result.Records)),
		),
	)
	defer span.End()

	batch := &repository.Batch{
		ScheduleNumber: result.Metadata.ScheduleNumber,
		ContactEmail:   result.Metadata.ContactEmail,
		BranchOffice:   result.Metadata.BranchOffice,
		Source:         source,
	}
	if userID != uuid.Nil {
		batch.ImportedBy = &userID
	}
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	records := make([]repository.Record, 0, len(result.Records))
	for _, rec := range result.Records {
		records = append(records, repository.Record{
			OrderNumber:      rec.OrderNumber,
			SupplyNumber:     rec.SupplyNumber,
			ClientNumber:     rec.ClientNumber,
			CitizenName:      rec.CitizenName,
			Address:          rec.Address,
			Zone:             rec.Zone,
			NotificationType: rec.NotificationType,
		})
	}

	inserted, skipped, err := s.repo.InsertRecords(ctx, batch.ID, records)
	if err != nil {
		return nil, err
	}

	if err := s.repo.FinishBatch(ctx, batch.ID, inserted, skipped, result.Warnings); err != nil {
		return nil, err
	}

	metrics.ImportBatchesTotal.WithLabelValues(string(source)).Inc()
	metrics.ImportedRecordsTotal.Add(float64(inserted))
	metrics.ImportSkippedTotal.Add(float64(skipped))

	s.logger.Info("schedule imported",
		slog.String("batch_id", batch.ID.String()),
		slog.String("schedule_number", batch.ScheduleNumber),
		slog.String("source", string(source)),
		slog.Int("imported", inserted),
		slog.Int("skipped", skipped),
		slog.Int("warnings", len(result.Warnings)),
	)

	// The summary email is best-effort, after data has committed.
	if err := s.mail.SendImportSummary(batch.ContactEmail, mailer.ImportSummary{
		ScheduleNumber: batch.ScheduleNumber,
		BranchOffice:   batch.BranchOffice,
		ImportedCount:  inserted,
		SkippedCount:   skipped,
		Warnings:       result.Warnings,
	}); err != nil {
		s.logger.Warn("failed to send import summary email",
			slog.String("batch_id", batch.ID.String()),
			slog.Any("error", err),
		)
	}

	return &Summary{
		BatchID:  batch.ID,
		Metadata: result.Metadata,
		Imported: inserted,
		Skipped:  skipped,
		Warnings: result.Warnings,
	}, nil
}
