package capture

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notifrepo "github.com/nqn-field/notifica/internal/domain/notification/repository"
	"github.com/nqn-field/notifica/pkg/storage"
)

// mockNotificationRepo implements notifrepo.NotificationRepository for testing
type mockNotificationRepo struct {
	notifrepo.NotificationRepository

	mu            sync.Mutex
	notifications map[uuid.UUID]*notifrepo.Notification
	completeErr   error
}

func newMockNotificationRepo(ns ...*notifrepo.Notification) *mockNotificationRepo {
	m := &mockNotificationRepo{notifications: make(map[uuid.UUID]*notifrepo.Notification)}
	for _, n := range ns {
		m.notifications[n.ID] = n
	}
	return m
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *notifrepo.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[n.ID] = n
	return nil
}

func (m *mockNotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*notifrepo.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *n
	return &copied, nil
}

func (m *mockNotificationRepo) GetByToken(ctx context.Context, token string) (*notifrepo.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.VerificationToken != nil && *n.VerificationToken == token {
			copied := *n
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockNotificationRepo) List(ctx context.Context, f notifrepo.Filter) ([]*notifrepo.Notification, error) {
	return nil, nil
}

func (m *mockNotificationRepo) Count(ctx context.Context, f notifrepo.Filter) (int, error) {
	return 0, nil
}

func (m *mockNotificationRepo) Assign(ctx context.Context, ids []uuid.UUID, agentID uuid.UUID) (int, error) {
	return 0, nil
}

func (m *mockNotificationRepo) SetStatus(ctx context.Context, id uuid.UUID, status notifrepo.Status) error {
	return nil
}

// CompleteCapture mirrors the guarded UPDATE: the transition only applies
// while the row is open and unverified.
func (m *mockNotificationRepo) CompleteCapture(ctx context.Context, u *notifrepo.CaptureUpdate) (*notifrepo.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.completeErr != nil {
		return nil, m.completeErr
	}

	n, ok := m.notifications[u.ID]
	if !ok || n.VerificationToken != nil ||
		(n.Status != notifrepo.StatusPending && n.Status != notifrepo.StatusInProgress) {
		return nil, sql.ErrNoRows
	}

	n.Status = notifrepo.StatusCompleted
	n.Latitude = &u.Latitude
	n.Longitude = &u.Longitude
	n.PhotoURL = u.PhotoURL
	n.SignatureURL = u.SignatureURL
	n.Observations = u.Observations
	n.Result = u.Result
	n.VerificationToken = &u.VerificationToken
	n.CompletedBy = &u.CompletedBy
	n.CompletedAt = &u.CompletedAt

	copied := *n
	return &copied, nil
}

func (m *mockNotificationRepo) StatsByStatus(ctx context.Context) ([]notifrepo.StatusCount, error) {
	return nil, nil
}

func (m *mockNotificationRepo) StatsByZone(ctx context.Context) ([]notifrepo.ZoneCount, error) {
	return nil, nil
}

// mockStorage implements storage.Storage in memory
type mockStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockStorage() *mockStorage {
	return &mockStorage{objects: make(map[string][]byte)}
}

func (m *mockStorage) Put(ctx context.Context, notificationID uuid.UUID, kind storage.Kind, contentType string, r io.Reader) (*storage.Artifact, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	// Unique per call; the real backend's millisecond keys could collide
	// between goroutines inside one test.
	key := "captures/" + string(kind) + "_" + notificationID.String() + "_" + uuid.NewString()
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()

	return &storage.Artifact{
		Key:         key,
		URL:         "/uploads/" + key,
		Size:        int64(len(data)),
		ContentType: contentType,
		StoredAt:    time.Now(),
	}, nil
}

func (m *mockStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *mockStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// mockNotifier records enqueued SMS notices
type mockNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (m *mockNotifier) EnqueueCompletionNotice(ctx context.Context, notificationID uuid.UUID, phone, citizenName, token, baseURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, phone)
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingNotification() *notifrepo.Notification {
	return &notifrepo.Notification{
		ID:          uuid.New(),
		OrderNumber: "1234567",
		CitizenName: "GOMEZ JUAN CARLOS",
		Address:     "AV. OLASCOAGA 455",
		Phone:       "+5492990000000",
		Status:      notifrepo.StatusPending,
	}
}

func TestComplete_Success(t *testing.T) {
	n := pendingNotification()
	repo := newMockNotificationRepo(n)
	store := newMockStorage()
	notifier := &mockNotifier{}
	svc := NewService(repo, store, notifier, []byte("secret"), "https://notifica.test", testLogger())

	agentID := uuid.New()
	outcome, err := svc.Complete(context.Background(), agentID, &Input{
		NotificationID: n.ID,
		Latitude:       -38.9516,
		Longitude:      -68.0591,
		Photo:          []byte("jpeg-bytes"),
		Signature:      []byte("png-bytes"),
		Observations:   "entregada en mano",
		Result:         "entregada",
	})
	require.NoError(t, err)

	assert.Equal(t, n.ID, outcome.NotificationID)
	assert.Equal(t, "GOMEZ JUAN CARLOS", outcome.CitizenName)
	assert.Regexp(t, `^[a-f0-9]{64}$`, outcome.VerificationToken)
	assert.Equal(t, "America/Argentina/Buenos_Aires", outcome.CompletedAt.Location().String())

	stored, err := repo.GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, notifrepo.StatusCompleted, stored.Status)
	require.NotNil(t, stored.VerificationToken)
	assert.Equal(t, outcome.VerificationToken, *stored.VerificationToken)
	require.NotNil(t, stored.PhotoURL)
	require.NotNil(t, stored.SignatureURL)
	assert.Equal(t, agentID, *stored.CompletedBy)

	assert.Equal(t, 2, store.count())
	assert.Equal(t, 1, notifier.count())
}

func TestComplete_Validation(t *testing.T) {
	n := pendingNotification()
	svc := NewService(newMockNotificationRepo(n), newMockStorage(), &mockNotifier{}, []byte("secret"), "", testLogger())

	cases := []struct {
		name  string
		input *Input
	}{
		{"missing id", &Input{Latitude: -38.9, Longitude: -68.0}},
		{"latitude out of range", &Input{NotificationID: n.ID, Latitude: 91, Longitude: -68.0}},
		{"longitude out of range", &Input{NotificationID: n.ID, Latitude: -38.9, Longitude: -181}},
		{"null island fix", &Input{NotificationID: n.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Complete(context.Background(), uuid.New(), tc.input)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestComplete_NotFound(t *testing.T) {
	svc := NewService(newMockNotificationRepo(), newMockStorage(), &mockNotifier{}, []byte("secret"), "", testLogger())

	_, err := svc.Complete(context.Background(), uuid.New(), &Input{
		NotificationID: uuid.New(),
		Latitude:       -38.9,
		Longitude:      -68.0,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComplete_AlreadyCompleted(t *testing.T) {
	n := pendingNotification()
	token := "existing-token"
	n.Status = notifrepo.StatusCompleted
	n.VerificationToken = &token

	notifier := &mockNotifier{}
	svc := NewService(newMockNotificationRepo(n), newMockStorage(), notifier, []byte("secret"), "", testLogger())

	_, err := svc.Complete(context.Background(), uuid.New(), &Input{
		NotificationID: n.ID,
		Latitude:       -38.9,
		Longitude:      -68.0,
	})
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Equal(t, 0, notifier.count())
}

func TestComplete_StorageFailureLeavesNotificationOpen(t *testing.T) {
	n := pendingNotification()
	repo := newMockNotificationRepo(n)
	store := newMockStorage()
	store.putErr = errors.New("disk full")
	svc := NewService(repo, store, &mockNotifier{}, []byte("secret"), "", testLogger())

	_, err := svc.Complete(context.Background(), uuid.New(), &Input{
		NotificationID: n.ID,
		Latitude:       -38.9,
		Longitude:      -68.0,
		Photo:          []byte("jpeg-bytes"),
	})
	require.Error(t, err)

	stored, err := repo.GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, notifrepo.StatusPending, stored.Status)
	assert.Nil(t, stored.VerificationToken)
}

func TestComplete_ConcurrentCaptureCompletesOnce(t *testing.T) {
	n := pendingNotification()
	repo := newMockNotificationRepo(n)
	store := newMockStorage()
	notifier := &mockNotifier{}
	svc := NewService(repo, store, notifier, []byte("secret"), "", testLogger())

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Complete(context.Background(), uuid.New(), &Input{
				NotificationID: n.ID,
				Latitude:       -38.9516,
				Longitude:      -68.0591,
				Photo:          []byte("jpeg-bytes"),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyCompleted)
		}
	}
	assert.Equal(t, 1, succeeded)

	// Exactly one SMS queued and no orphaned artifacts from the losers.
	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, 1, store.count())
}

func TestSyncBatch_ItemsAreIndependent(t *testing.T) {
	good := pendingNotification()
	repo := newMockNotificationRepo(good)
	svc := NewService(repo, newMockStorage(), &mockNotifier{}, []byte("secret"), "", testLogger())

	missing := uuid.New()
	results := svc.SyncBatch(context.Background(), uuid.New(), []*Input{
		{NotificationID: missing, Latitude: -38.9, Longitude: -68.0},
		{NotificationID: good.ID, Latitude: -38.9, Longitude: -68.0},
	})

	require.Len(t, results, 2)
	assert.Equal(t, missing, results[0].NotificationID)
	assert.NotEmpty(t, results[0].Error)
	assert.Nil(t, results[0].Outcome)

	require.NotNil(t, results[1].Outcome)
	assert.Empty(t, results[1].Error)
}
