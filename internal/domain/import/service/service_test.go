package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nqn-field/notifica/internal/domain/import/repository"
	"github.com/nqn-field/notifica/pkg/mailer"
)

// mockImportRepo implements repository.ImportRepository in memory
type mockImportRepo struct {
	batches    map[uuid.UUID]*repository.Batch
	ordersSeen map[string]bool
	inserted   []repository.Record
	insertErr  error
}

func newMockImportRepo(existingOrders ...string) *mockImportRepo {
	m := &mockImportRepo{
		batches:    make(map[uuid.UUID]*repository.Batch),
		ordersSeen: make(map[string]bool),
	}
	for _, o := range existingOrders {
		m.ordersSeen[o] = true
	}
	return m
}

func (m *mockImportRepo) CreateBatch(ctx context.Context, b *repository.Batch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	m.batches[b.ID] = b
	return nil
}

func (m *mockImportRepo) InsertRecords(ctx context.Context, batchID uuid.UUID, records []repository.Record) (int, int, error) {
	if m.insertErr != nil {
		return 0, 0, m.insertErr
	}

	inserted, skipped := 0, 0
	for _, rec := range records {
		if m.ordersSeen[rec.OrderNumber] {
			skipped++
			continue
		}
		m.ordersSeen[rec.OrderNumber] = true
		m.inserted = append(m.inserted, rec)
		inserted++
	}
	return inserted, skipped, nil
}

func (m *mockImportRepo) FinishBatch(ctx context.Context, id uuid.UUID, imported, skipped int, warnings []string) error {
	b := m.batches[id]
	b.ImportedCount = imported
	b.SkippedCount = skipped
	b.Warnings = warnings
	return nil
}

func (m *mockImportRepo) GetBatch(ctx context.Context, id uuid.UUID) (*repository.Batch, error) {
	return m.batches[id], nil
}

func (m *mockImportRepo) ListBatches(ctx context.Context, limit, offset int) ([]*repository.Batch, error) {
	var out []*repository.Batch
	for _, b := range m.batches {
		out = append(out, b)
	}
	return out, nil
}

// mockMailer records import summary emails
type mockMailer struct {
	to        string
	summaries []mailer.ImportSummary
}

func (m *mockMailer) SendImportSummary(to string, summary mailer.ImportSummary) error {
	m.to = to
	m.summaries = append(m.summaries, summary)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const scheduleText = `Nro Cronograma: 4521
Sucursal: ZAPALA
Correo: cronogramas@epen.gov.ar
IN ORDENATIVO DE 1234567 400211 1 98221 GOMEZ JUAN  AV. ARGENTINA 100 (8300) - NEUQUE
INTIMACION
IN ORDENATIVO DE 7654321 400876 2 98455 PEREZ MARIA  CALLE FALSA 123 (8340) - ZAPALA
INTIMACION
`

func TestImportPDFText(t *testing.T) {
	repo := newMockImportRepo()
	mail := &mockMailer{}
	svc := NewImportService(repo, mail, testLogger())

	userID := uuid.New()
	summary, err := svc.ImportPDFText(context.Background(), userID, scheduleText)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, "4521", summary.Metadata.ScheduleNumber)

	batch := repo.batches[summary.BatchID]
	require.NotNil(t, batch)
	assert.Equal(t, repository.SourcePDF, batch.Source)
	assert.Equal(t, 2, batch.ImportedCount)
	require.NotNil(t, batch.ImportedBy)
	assert.Equal(t, userID, *batch.ImportedBy)

	// Summary email goes to the contact parsed from the document.
	assert.Equal(t, "cronogramas@epen.gov.ar", mail.to)
	require.Len(t, mail.summaries, 1)
	assert.Equal(t, 2, mail.summaries[0].ImportedCount)
}

func TestImportPDFText_SkipsDuplicateOrders(t *testing.T) {
	repo := newMockImportRepo("1234567")
	svc := NewImportService(repo, &mockMailer{}, testLogger())

	summary, err := svc.ImportPDFText(context.Background(), uuid.New(), scheduleText)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)

	require.Len(t, repo.inserted, 1)
	assert.Equal(t, "7654321", repo.inserted[0].OrderNumber)
}

func TestImportPDFText_Reimport(t *testing.T) {
	repo := newMockImportRepo()
	svc := NewImportService(repo, &mockMailer{}, testLogger())

	first, err := svc.ImportPDFText(context.Background(), uuid.New(), scheduleText)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)

	second, err := svc.ImportPDFText(context.Background(), uuid.New(), scheduleText)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 2, second.Skipped)
}

func TestImportCSV(t *testing.T) {
	repo := newMockImportRepo()
	svc := NewImportService(repo, &mockMailer{}, testLogger())

	csv := "numero_orden,nombre,direccion,zona\n" +
		"1111111,LOPEZ PEDRO,RUTA 22 KM 1250,PLOTTIE\n"

	summary, err := svc.ImportCSV(context.Background(), uuid.New(), []byte(csv))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Imported)
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, "PLOTTIER", repo.inserted[0].Zone)

	batch := repo.batches[summary.BatchID]
	assert.Equal(t, repository.SourceCSV, batch.Source)
}

func TestPreviewPDFText_PersistsNothing(t *testing.T) {
	repo := newMockImportRepo()
	svc := NewImportService(repo, &mockMailer{}, testLogger())

	preview := svc.PreviewPDFText(scheduleText)

	assert.Len(t, preview.Records, 2)
	assert.Equal(t, "4521", preview.Metadata.ScheduleNumber)
	assert.Empty(t, repo.batches)
	assert.Empty(t, repo.inserted)
}
