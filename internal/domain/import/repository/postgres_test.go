package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		{
			OrderNumber:      "1234567",
			SupplyNumber:     "123456",
			ClientNumber:     "654321",
			CitizenName:      "GARCIA JUAN",
			Address:          "CALLE ROCA 42 (8340) - ZAPALA, CENTRO",
			Zone:             "ZAPALA",
			NotificationType: "IN ORDENATIVO DE INTIMACION",
		},
		{
			OrderNumber:      "7654321",
			SupplyNumber:     "222222",
			ClientNumber:     "333333",
			CitizenName:      "LOPEZ MARIA",
			Address:          "AV. ARGENTINA 100 (8300) - NEUQUEN",
			Zone:             "NEUQUEN CAPITAL",
			NotificationType: "IN ORDENATIVO DE INTIMACION",
		},
	}
}

func expectInsert(eb *pgxmock.ExpectedBatch, batchID uuid.UUID, rec Record, rowsAffected int64) {
	eb.ExpectExec(`INSERT INTO notifications`).
		WithArgs(pgxmock.AnyArg(), batchID, rec.OrderNumber, rec.SupplyNumber,
			rec.ClientNumber, rec.CitizenName, rec.Address, rec.Zone, rec.NotificationType).
		WillReturnResult(pgxmock.NewResult("INSERT", rowsAffected))
}

func TestInsertRecords_CountsInsertedAndSkipped(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresImportRepository(mock)
	batchID := uuid.New()
	records := sampleRecords()

	mock.ExpectBegin()
	eb := mock.ExpectBatch()
	expectInsert(eb, batchID, records[0], 1)
	// second order already exists, ON CONFLICT swallows it
	expectInsert(eb, batchID, records[1], 0)
	mock.ExpectCommit()

	inserted, skipped, err := repo.InsertRecords(context.Background(), batchID, records)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 1, skipped)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRecords_RollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresImportRepository(mock)
	batchID := uuid.New()
	records := sampleRecords()[:1]

	mock.ExpectBegin()
	eb := mock.ExpectBatch()
	eb.ExpectExec(`INSERT INTO notifications`).
		WithArgs(pgxmock.AnyArg(), batchID, records[0].OrderNumber, records[0].SupplyNumber,
			records[0].ClientNumber, records[0].CitizenName, records[0].Address,
			records[0].Zone, records[0].NotificationType).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, _, err = repo.InsertRecords(context.Background(), batchID, records)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresImportRepository(mock)
	importedBy := uuid.New()
	now := time.Now()

	b := &Batch{
		ScheduleNumber: "4521",
		ContactEmail:   "cronogramas@epen.gov.ar",
		BranchOffice:   "ZAPALA",
		Source:         SourcePDF,
		ImportedBy:     &importedBy,
	}

	mock.ExpectQuery(`INSERT INTO import_batches`).
		WithArgs(pgxmock.AnyArg(), b.ScheduleNumber, b.ContactEmail, b.BranchOffice, b.Source, b.ImportedBy).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	require.NoError(t, repo.CreateBatch(context.Background(), b))
	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.True(t, now.Equal(b.CreatedAt))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishBatch_MissingBatchSurfacesNoRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresImportRepository(mock)
	id := uuid.New()

	mock.ExpectExec(`UPDATE import_batches`).
		WithArgs(id, 5, 2, []string{"order 6666666: no citizen name recovered, record dropped"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.FinishBatch(context.Background(), id, 5, 2,
		[]string{"order 6666666: no citizen name recovered, record dropped"})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}
