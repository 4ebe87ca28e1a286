// Package capture implements the completion pipeline for field visits: it
// validates the agent's GPS and artifacts, persists photo and signature,
// transitions the notification to completed exactly once, mints the
// verification token, and queues the citizen SMS.
package capture

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// Embedded tzdata so the Argentina timestamp survives scratch containers.
	_ "time/tzdata"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	notifrepo "github.com/nqn-field/notifica/internal/domain/notification/repository"
	"github.com/nqn-field/notifica/pkg/metrics"
	"github.com/nqn-field/notifica/pkg/storage"
)

var (
	// ErrNotFound is returned when the notification does not exist.
	ErrNotFound = errors.New("notification not found")

	// ErrAlreadyCompleted is returned when a capture arrives for a
	// notification that was already completed. The first capture wins;
	// later ones are rejected, never merged.
	ErrAlreadyCompleted = errors.New("notification already completed")
)

// ValidationError marks capture input the agent must correct.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Input is one capture submission from a field agent. CapturedAt is the
// device clock at capture time; completion time is always the server clock.
type Input struct {
	NotificationID uuid.UUID
	Latitude       float64
	Longitude      float64
	CapturedAt     time.Time
	Photo          []byte
	Signature      []byte
	Observations   string
	Result         string
}

// Outcome is what the agent's device gets back after a successful capture.
type Outcome struct {
	NotificationID    uuid.UUID `json:"notification_id"`
	CitizenName       string    `json:"citizen_name"`
	Address           string    `json:"address"`
	VerificationToken string    `json:"verification_token"`
	CompletedAt       time.Time `json:"completed_at"`
}

// CompletionNotifier queues the citizen-facing SMS after a capture commits.
type CompletionNotifier interface {
	EnqueueCompletionNotice(ctx context.Context, notificationID uuid.UUID, phone, citizenName, token, baseURL string)
}

// Service runs the capture completion pipeline
type Service struct {
	repo     notifrepo.NotificationRepository
	store    storage.Storage
	notifier CompletionNotifier
	secret   []byte
	baseURL  string
	location *time.Location
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewService creates a new capture service
func NewService(repo notifrepo.NotificationRepository, store storage.Storage, notifier CompletionNotifier, secret []byte, baseURL string, logger *slog.Logger) *Service {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		logger.Warn("argentina timezone unavailable, falling back to UTC", slog.Any("error", err))
		loc = time.UTC
	}

	return &Service{
		repo:     repo,
		store:    store,
		notifier: notifier,
		secret:   secret,
		baseURL:  baseURL,
		location: loc,
		logger:   logger,
		tracer:   otel.Tracer("capture"),
	}
}

// Complete runs the full pipeline for one capture. Artifacts are written to
// storage before the database transition so a committed capture never
// references a file that failed to persist; on a lost race the orphaned
// artifacts are removed best-effort.
func (s *Service) Complete(ctx context.Context, agentID uuid.UUID, in *Input) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "capture.Complete",
		trace.WithAttributes(attribute.String("notification_id", in.NotificationID.String())),
	)
	defer span.End()

	start := time.Now()

	if err := validate(in); err != nil {
		metrics.CapturesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	// Early check gives a clean error before any storage work. The guarded
	// update below remains the authority under concurrency.
	existing, err := s.repo.GetByID(ctx, in.NotificationID)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.CapturesTotal.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if existing.Status == notifrepo.StatusCompleted {
		metrics.CapturesTotal.WithLabelValues("conflict").Inc()
		return nil, ErrAlreadyCompleted
	}

	photoURL, signatureURL, keys, err := s.storeArtifacts(ctx, in)
	if err != nil {
		metrics.CapturesTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("failed to store capture artifacts: %w", err)
	}

	completedAt := time.Now().In(s.location)
	token := Token(s.secret, in.Latitude, in.Longitude, completedAt, in.NotificationID)

	n, err := s.repo.CompleteCapture(ctx, &notifrepo.CaptureUpdate{
		ID:                in.NotificationID,
		Latitude:          in.Latitude,
		Longitude:         in.Longitude,
		PhotoURL:          photoURL,
		SignatureURL:      signatureURL,
		Observations:      in.Observations,
		Result:            in.Result,
		VerificationToken: token,
		CompletedBy:       agentID,
		CompletedAt:       completedAt,
	})
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the race or the row vanished. The stored artifacts belong
		// to no committed capture, so clean them up.
		s.removeArtifacts(ctx, keys)
		if _, getErr := s.repo.GetByID(ctx, in.NotificationID); errors.Is(getErr, sql.ErrNoRows) {
			metrics.CapturesTotal.WithLabelValues("not_found").Inc()
			return nil, ErrNotFound
		}
		metrics.CapturesTotal.WithLabelValues("conflict").Inc()
		return nil, ErrAlreadyCompleted
	}
	if err != nil {
		s.removeArtifacts(ctx, keys)
		return nil, err
	}

	// SMS is queued only after the capture committed; a queue failure is
	// logged inside the notifier and never unwinds the capture.
	s.notifier.EnqueueCompletionNotice(ctx, n.ID, n.Phone, n.CitizenName, token, s.baseURL)

	metrics.CapturesTotal.WithLabelValues("completed").Inc()
	metrics.CaptureDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("capture completed",
		slog.String("notification_id", n.ID.String()),
		slog.String("agent_id", agentID.String()),
		slog.String("order_number", n.OrderNumber),
	)

	return &Outcome{
		NotificationID:    n.ID,
		CitizenName:       n.CitizenName,
		Address:           n.Address,
		VerificationToken: token,
		CompletedAt:       completedAt,
	}, nil
}

// SyncResult reports the outcome of one item in an offline sync batch.
type SyncResult struct {
	NotificationID uuid.UUID `json:"notification_id"`
	Outcome        *Outcome  `json:"outcome,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// SyncBatch processes captures queued on the device while offline. Items are
// independent: one failure never aborts the rest.
func (s *Service) SyncBatch(ctx context.Context, agentID uuid.UUID, inputs []*Input) []SyncResult {
	results := make([]SyncResult, 0, len(inputs))
	for _, in := range inputs {
		res := SyncResult{NotificationID: in.NotificationID}

		outcome, err := s.Complete(ctx, agentID, in)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Outcome = outcome
		}
		results = append(results, res)
	}
	return results
}

func validate(in *Input) error {
	if in.NotificationID == uuid.Nil {
		return &ValidationError{Field: "notification_id", Reason: "required"}
	}
	if in.Latitude < -90 || in.Latitude > 90 {
		return &ValidationError{Field: "latitude", Reason: "out of range"}
	}
	if in.Longitude < -180 || in.Longitude > 180 {
		return &ValidationError{Field: "longitude", Reason: "out of range"}
	}
	if in.Latitude == 0 && in.Longitude == 0 {
		return &ValidationError{Field: "gps", Reason: "missing fix"}
	}
	return nil
}

// storeArtifacts persists the photo and signature, returning storage URLs
// and the keys needed for cleanup on a lost race.
func (s *Service) storeArtifacts(ctx context.Context, in *Input) (photoURL, signatureURL *string, keys []string, err error) {
	if len(in.Photo) > 0 {
		art, err := s.store.Put(ctx, in.NotificationID, storage.KindPhoto, "image/jpeg", bytes.NewReader(in.Photo))
		if err != nil {
			return nil, nil, nil, err
		}
		photoURL = &art.URL
		keys = append(keys, art.Key)
	}

	if len(in.Signature) > 0 {
		art, err := s.store.Put(ctx, in.NotificationID, storage.KindSignature, "image/png", bytes.NewReader(in.Signature))
		if err != nil {
			s.removeArtifacts(ctx, keys)
			return nil, nil, nil, err
		}
		signatureURL = &art.URL
		keys = append(keys, art.Key)
	}

	return photoURL, signatureURL, keys, nil
}

func (s *Service) removeArtifacts(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to remove orphaned artifact",
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
	}
}
