package zone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/nqn-field/notifica/internal/domain/import/parser"
)

// ErrZoneExists is returned when creating a zone whose name is taken.
var ErrZoneExists = errors.New("zone already exists")

// Service keeps the zone registry and a current address matcher. The matcher
// is swapped atomically on every registry change, so resolution never locks.
type Service struct {
	repo    ZoneRepository
	matcher atomic.Pointer[Matcher]
	logger  *slog.Logger
}

// NewService creates a zone service and loads the initial matcher.
func NewService(ctx context.Context, repo ZoneRepository, logger *slog.Logger) (*Service, error) {
	s := &Service{repo: repo, logger: logger}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rebuilds the matcher from the database. Built-in localities from
// the schedule normalization table are always included, so resolution works
// even with an empty registry.
func (s *Service) Reload(ctx context.Context) error {
	zones, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load zones: %w", err)
	}

	registered := make(map[string]struct{}, len(zones))
	for _, z := range zones {
		registered[strings.ToUpper(z.Name)] = struct{}{}
	}
	for _, name := range parser.CanonicalZones() {
		if _, ok := registered[strings.ToUpper(name)]; !ok {
			zones = append(zones, &Zone{Name: name})
		}
	}

	s.matcher.Store(NewMatcher(zones))
	s.logger.Info("zone matcher reloaded", slog.Int("zones", len(zones)))
	return nil
}

// Resolve maps a free-text address to a zone name, or "" when unknown.
func (s *Service) Resolve(address string) string {
	return s.matcher.Load().Resolve(address)
}

// List returns all registered zones
func (s *Service) List(ctx context.Context) ([]*Zone, error) {
	return s.repo.List(ctx)
}

// Create registers a new zone and rebuilds the matcher
func (s *Service) Create(ctx context.Context, name string, localities []string) (*Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("zone name is required")
	}

	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return nil, ErrZoneExists
	}

	clean := make([]string, 0, len(localities))
	for _, loc := range localities {
		if loc = strings.TrimSpace(loc); loc != "" {
			clean = append(clean, loc)
		}
	}

	z := &Zone{Name: name, Localities: clean}
	if err := s.repo.Create(ctx, z); err != nil {
		return nil, err
	}

	if err := s.Reload(ctx); err != nil {
		s.logger.Warn("matcher reload after zone create failed", slog.Any("error", err))
	}
	return z, nil
}
