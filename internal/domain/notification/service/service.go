// Package service provides business logic for notification management.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nqn-field/notifica/internal/domain/notification/repository"
)

// ErrNotFound is returned when a notification does not exist.
var ErrNotFound = errors.New("notification not found")

// Stats aggregates the dashboard breakdowns
type Stats struct {
	Total    int                    `json:"total"`
	ByStatus map[string]int         `json:"by_status"`
	ByZone   []repository.ZoneCount `json:"by_zone"`
}

// Service provides notification management business logic
type Service struct {
	repo   repository.NotificationRepository
	logger *slog.Logger
}

// NewService creates a new notification service
func NewService(repo repository.NotificationRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Get retrieves a notification by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*repository.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return n, err
}

// List retrieves notifications matching the filter together with the total
// match count for pagination.
func (s *Service) List(ctx context.Context, f repository.Filter) ([]*repository.Notification, int, error) {
	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// ListAssignments returns the open notifications assigned to an agent. This
// is the working set the mobile client syncs before going offline.
func (s *Service) ListAssignments(ctx context.Context, agentID uuid.UUID) ([]*repository.Notification, error) {
	items, err := s.repo.List(ctx, repository.Filter{AssignedTo: &agentID})
	if err != nil {
		return nil, err
	}

	open := make([]*repository.Notification, 0, len(items))
	for _, n := range items {
		if n.Status == repository.StatusPending || n.Status == repository.StatusInProgress {
			open = append(open, n)
		}
	}
	return open, nil
}

// Create registers a manually entered notification
func (s *Service) Create(ctx context.Context, n *repository.Notification) error {
	if n.OrderNumber == "" {
		return fmt.Errorf("order number is required")
	}
	if n.CitizenName == "" {
		return fmt.Errorf("citizen name is required")
	}
	return s.repo.Create(ctx, n)
}

// Update edits an open notification's citizen-facing fields
func (s *Service) Update(ctx context.Context, n *repository.Notification) error {
	err := s.repo.Update(ctx, n)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes an uncompleted notification
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Assign assigns a set of notifications to an agent
func (s *Service) Assign(ctx context.Context, ids []uuid.UUID, agentID uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("no notification ids given")
	}

	updated, err := s.repo.Assign(ctx, ids, agentID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("notifications assigned",
		slog.String("agent_id", agentID.String()),
		slog.Int("requested", len(ids)),
		slog.Int("updated", updated),
	)
	return updated, nil
}

// AssignZone assigns every open unassigned notification in a zone
func (s *Service) AssignZone(ctx context.Context, zone string, agentID uuid.UUID) (int, error) {
	if zone == "" {
		return 0, fmt.Errorf("zone is required")
	}

	updated, err := s.repo.AssignZone(ctx, zone, agentID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("zone assigned",
		slog.String("zone", zone),
		slog.String("agent_id", agentID.String()),
		slog.Int("updated", updated),
	)
	return updated, nil
}

// Unassign returns a set of notifications to the unassigned pool
func (s *Service) Unassign(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("no notification ids given")
	}
	return s.repo.Unassign(ctx, ids)
}

// ZonesInUse lists the zones that currently hold notifications
func (s *Service) ZonesInUse(ctx context.Context) ([]repository.ZoneCount, error) {
	return s.repo.StatsByZone(ctx)
}

// MarkFailed records a failed delivery attempt without capture data
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID) error {
	err := s.repo.SetStatus(ctx, id, repository.StatusFailed)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// GetStats aggregates the per-status and per-zone breakdowns
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	byStatus, err := s.repo.StatsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	byZone, err := s.repo.StatsByZone(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ByStatus: make(map[string]int, len(byStatus)),
		ByZone:   byZone,
	}
	for _, sc := range byStatus {
		stats.ByStatus[string(sc.Status)] = sc.Count
		stats.Total += sc.Count
	}
	return stats, nil
}
