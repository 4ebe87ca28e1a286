// Package verify serves the public proof-of-delivery lookup. Every failure
// mode collapses into the same not-found answer so the endpoint leaks
// nothing about which tokens, orders or citizens exist.
package verify

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"time"

	notifrepo "github.com/nqn-field/notifica/internal/domain/notification/repository"
	"github.com/nqn-field/notifica/pkg/cache"
	"github.com/nqn-field/notifica/pkg/metrics"
)

// ErrNotFound is the only error the lookup ever returns to callers.
var ErrNotFound = errors.New("verification not found")

// tokenRe matches a well-formed verification token. Anything else skips the
// database entirely.
var tokenRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Delivery is the public view of a completed notification. It deliberately
// omits addresses, coordinates and internal identifiers.
type Delivery struct {
	OrderNumber      string    `json:"order_number"`
	CitizenName      string    `json:"citizen_name"`
	Zone             string    `json:"zone,omitempty"`
	NotificationType string    `json:"notification_type"`
	Result           string    `json:"result,omitempty"`
	CompletedAt      time.Time `json:"completed_at"`
}

// Service resolves verification tokens
type Service struct {
	repo   notifrepo.NotificationRepository
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewService creates a new verify service
func NewService(repo notifrepo.NotificationRepository, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// Lookup resolves a verification token to its delivery record
func (s *Service) Lookup(ctx context.Context, token string) (*Delivery, error) {
	if !tokenRe.MatchString(token) {
		metrics.VerifyRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrNotFound
	}

	key := "verify:" + token
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var d Delivery
		if err := json.Unmarshal(raw, &d); err == nil {
			metrics.VerifyRequestsTotal.WithLabelValues("found").Inc()
			metrics.VerifyCacheHitsTotal.Inc()
			return &d, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("verify cache lookup failed", slog.Any("error", err))
	}

	n, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("verify lookup failed", slog.Any("error", err))
		}
		metrics.VerifyRequestsTotal.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	}
	if n.Status != notifrepo.StatusCompleted || n.CompletedAt == nil {
		metrics.VerifyRequestsTotal.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	}

	d := &Delivery{
		OrderNumber:      n.OrderNumber,
		CitizenName:      n.CitizenName,
		Zone:             n.Zone,
		NotificationType: n.NotificationType,
		Result:           n.Result,
		CompletedAt:      *n.CompletedAt,
	}

	if raw, err := json.Marshal(d); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			s.logger.Warn("verify cache store failed", slog.Any("error", err))
		}
	}

	metrics.VerifyRequestsTotal.WithLabelValues("found").Inc()
	return d, nil
}
