package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var notificationRowColumns = []string{
	"id", "batch_id", "order_number", "supply_number", "client_number", "citizen_name",
	"address", "zone", "phone", "notification_type", "status", "assigned_to",
	"latitude", "longitude", "photo_url", "signature_url", "observations", "result",
	"verification_token", "completed_by", "completed_at", "created_at", "updated_at",
}

func completedRow(u *CaptureUpdate, now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(notificationRowColumns).AddRow(
		u.ID, nil, "1234567", "123456", "654321", "GARCIA JUAN",
		"CALLE ROCA 42", "ZAPALA", "", "IN ORDENATIVO DE INTIMACION", StatusCompleted, nil,
		&u.Latitude, &u.Longitude, u.PhotoURL, u.SignatureURL, u.Observations, u.Result,
		&u.VerificationToken, &u.CompletedBy, &u.CompletedAt, now, now,
	)
}

func newCaptureUpdate() *CaptureUpdate {
	photoURL := "/uploads/captures/photo.jpg"
	completedAt := time.Date(2026, 3, 12, 11, 30, 0, 0, time.UTC)
	return &CaptureUpdate{
		ID:                uuid.New(),
		Latitude:          -38.95,
		Longitude:         -68.06,
		PhotoURL:          &photoURL,
		Observations:      "entregado en mano",
		Result:            "entregado",
		VerificationToken: "deadbeef",
		CompletedBy:       uuid.New(),
		CompletedAt:       completedAt,
	}
}

func TestCompleteCapture_AppliesGuardedUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresNotificationRepository(mock)
	u := newCaptureUpdate()
	now := time.Now()

	mock.ExpectQuery(`UPDATE notifications`).
		WithArgs(u.ID, u.Latitude, u.Longitude, u.PhotoURL, u.SignatureURL,
			u.Observations, u.Result, u.VerificationToken, u.CompletedBy, u.CompletedAt).
		WillReturnRows(completedRow(u, now))

	n, err := repo.CompleteCapture(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, n.Status)
	assert.Equal(t, "1234567", n.OrderNumber)
	require.NotNil(t, n.VerificationToken)
	assert.Equal(t, u.VerificationToken, *n.VerificationToken)
	require.NotNil(t, n.CompletedAt)
	assert.True(t, u.CompletedAt.Equal(*n.CompletedAt))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteCapture_LostRaceSurfacesNoRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresNotificationRepository(mock)
	u := newCaptureUpdate()

	mock.ExpectQuery(`UPDATE notifications`).
		WithArgs(u.ID, u.Latitude, u.Longitude, u.PhotoURL, u.SignatureURL,
			u.Observations, u.Result, u.VerificationToken, u.CompletedBy, u.CompletedAt).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.CompleteCapture(context.Background(), u)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_ReturnsUpdatedCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresNotificationRepository(mock)
	agentID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	// one of the three is already completed and stays untouched
	mock.ExpectExec(`UPDATE notifications`).
		WithArgs(agentID, ids).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	updated, err := repo.Assign(context.Background(), ids, agentID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatus_MissingRowSurfacesNoRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresNotificationRepository(mock)
	id := uuid.New()

	mock.ExpectExec(`UPDATE notifications SET status`).
		WithArgs(id, StatusFailed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.SetStatus(context.Background(), id, StatusFailed)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByToken_UnknownTokenSurfacesNoRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresNotificationRepository(mock)
	token := "0000000000000000000000000000000000000000000000000000000000000000"

	mock.ExpectQuery(`SELECT (.+) FROM notifications`).
		WithArgs(token).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByToken(context.Background(), token)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}
