package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notifrepo "github.com/nqn-field/notifica/internal/domain/notification/repository"
)

// listRepo implements notifrepo.NotificationRepository; only List is used by
// the search service.
type listRepo struct {
	notifrepo.NotificationRepository

	all []*notifrepo.Notification
}

func (r *listRepo) List(ctx context.Context, f notifrepo.Filter) ([]*notifrepo.Notification, error) {
	if f.Offset >= len(r.all) {
		return nil, nil
	}
	end := f.Offset + f.Limit
	if f.Limit <= 0 || end > len(r.all) {
		end = len(r.all)
	}
	return r.all[f.Offset:end], nil
}

func testNotification(order, name, address, zone string) *notifrepo.Notification {
	return &notifrepo.Notification{
		ID:          uuid.New(),
		OrderNumber: order,
		CitizenName: name,
		Address:     address,
		Zone:        zone,
		Status:      notifrepo.StatusPending,
	}
}

func newTestService(t *testing.T, repo notifrepo.NotificationRepository) *Service {
	t.Helper()
	svc, err := NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func hitIDs(hits []Hit) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.NotificationID)
	}
	return ids
}

func TestSearch_ByCitizenName(t *testing.T) {
	svc := newTestService(t, &listRepo{})

	target := testNotification("1234567", "FERNANDEZ RAMIREZ LUCIA", "CALLE ROCA 42", "ZAPALA")
	require.NoError(t, svc.Index(target))
	require.NoError(t, svc.Index(testNotification("7654321", "LOPEZ MARIO", "AV. ARGENTINA 100", "NEUQUEN CAPITAL")))

	hits, err := svc.Search(context.Background(), "fernandez", 20)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, target.ID, hits[0].NotificationID)
	assert.Equal(t, "FERNANDEZ RAMIREZ LUCIA", hits[0].CitizenName)
	assert.Equal(t, "1234567", hits[0].OrderNumber)
}

func TestSearch_ByOrderNumber(t *testing.T) {
	svc := newTestService(t, &listRepo{})

	target := testNotification("5550123", "SOSA PEDRO", "LOTE 9", "PLOTTIER")
	require.NoError(t, svc.Index(target))

	hits, err := svc.Search(context.Background(), "5550123", 20)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, target.ID, hits[0].NotificationID)
}

func TestSearch_ToleratesTypo(t *testing.T) {
	svc := newTestService(t, &listRepo{})

	target := testNotification("1112223", "GUTIERREZ ANA", "CALLE MITRE 8", "CENTENARIO")
	require.NoError(t, svc.Index(target))

	hits, err := svc.Search(context.Background(), "gutierez", 20)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hitIDs(hits), target.ID)
}

func TestSearch_NoResults(t *testing.T) {
	svc := newTestService(t, &listRepo{})
	require.NoError(t, svc.Index(testNotification("1234567", "PEREZ JUAN", "CALLE 1", "ZAPALA")))

	hits, err := svc.Search(context.Background(), "zzzzzzzzz", 20)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestReindex_PagesThroughEverything(t *testing.T) {
	gofakeit.Seed(11)

	repo := &listRepo{}
	for i := 0; i < 2*reindexPageSize+37; i++ {
		repo.all = append(repo.all, testNotification(
			fmt.Sprintf("%07d", 1000000+i),
			gofakeit.Name(),
			gofakeit.Street(),
			"ZAPALA",
		))
	}
	target := testNotification("9999999", "QUINTRIQUEO HUMBERTO", "RUTA 22 KM 1200", "ZAPALA")
	repo.all = append(repo.all, target)

	svc := newTestService(t, repo)

	indexed, err := svc.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(repo.all), indexed)

	hits, err := svc.Search(context.Background(), "quintriqueo", 20)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hitIDs(hits), target.ID)
}

func TestIndex_UpdateReplacesDocument(t *testing.T) {
	svc := newTestService(t, &listRepo{})

	n := testNotification("1234567", "ORIGINAL NAME", "CALLE 1", "ZAPALA")
	require.NoError(t, svc.Index(n))

	n.Status = notifrepo.StatusCompleted
	require.NoError(t, svc.Index(n))

	hits, err := svc.Search(context.Background(), "original", 20)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "completed", hits[0].Status)
}
