// Package search maintains a full-text index over notifications so office
// staff can find records by citizen name, address or order number without
// knowing the exact spelling the schedule used.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"

	notifrepo "github.com/nqn-field/notifica/internal/domain/notification/repository"
)

// reindexPageSize bounds how many notifications one reindex page loads.
const reindexPageSize = 500

// document is the indexed shape of a notification
type document struct {
	OrderNumber  string `json:"order_number"`
	SupplyNumber string `json:"supply_number"`
	ClientNumber string `json:"client_number"`
	CitizenName  string `json:"citizen_name"`
	Address      string `json:"address"`
	Zone         string `json:"zone"`
	Status       string `json:"status"`
}

// Hit is one search result
type Hit struct {
	NotificationID uuid.UUID `json:"notification_id"`
	OrderNumber    string    `json:"order_number"`
	CitizenName    string    `json:"citizen_name"`
	Address        string    `json:"address"`
	Zone           string    `json:"zone,omitempty"`
	Status         string    `json:"status"`
	Score          float64   `json:"score"`
}

// Service owns the in-memory search index
type Service struct {
	repo   notifrepo.NotificationRepository
	index  bleve.Index
	logger *slog.Logger
}

// NewService creates the search service with an empty in-memory index.
// Call Reindex to populate it.
func NewService(repo notifrepo.NotificationRepository, logger *slog.Logger) (*Service, error) {
	mapping := bleve.NewIndexMapping()
	index, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}

	return &Service{
		repo:   repo,
		index:  index,
		logger: logger,
	}, nil
}

// Index adds or updates one notification in the index
func (s *Service) Index(n *notifrepo.Notification) error {
	doc := document{
		OrderNumber:  n.OrderNumber,
		SupplyNumber: n.SupplyNumber,
		ClientNumber: n.ClientNumber,
		CitizenName:  n.CitizenName,
		Address:      n.Address,
		Zone:         n.Zone,
		Status:       string(n.Status),
	}
	if err := s.index.Index(n.ID.String(), doc); err != nil {
		return fmt.Errorf("failed to index notification: %w", err)
	}
	return nil
}

// Reindex rebuilds the index from the database, paging through all
// notifications. Returns the number of documents indexed.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	start := time.Now()
	indexed := 0

	for offset := 0; ; offset += reindexPageSize {
		page, err := s.repo.List(ctx, notifrepo.Filter{Limit: reindexPageSize, Offset: offset})
		if err != nil {
			return indexed, fmt.Errorf("failed to load notifications for indexing: %w", err)
		}
		if len(page) == 0 {
			break
		}

		batch := s.index.NewBatch()
		for _, n := range page {
			doc := document{
				OrderNumber:  n.OrderNumber,
				SupplyNumber: n.SupplyNumber,
				ClientNumber: n.ClientNumber,
				CitizenName:  n.CitizenName,
				Address:      n.Address,
				Zone:         n.Zone,
				Status:       string(n.Status),
			}
			if err := batch.Index(n.ID.String(), doc); err != nil {
				return indexed, fmt.Errorf("failed to batch document: %w", err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return indexed, fmt.Errorf("failed to apply index batch: %w", err)
		}
		indexed += len(page)

		if len(page) < reindexPageSize {
			break
		}
	}

	s.logger.Info("search index rebuilt",
		slog.Int("documents", indexed),
		slog.Duration("took", time.Since(start)),
	)
	return indexed, nil
}

// Search runs a free-text query and returns matching notifications by
// relevance. A trailing fuzziness of one edit is applied so minor typos in
// names still hit.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	match := bleve.NewMatchQuery(query)
	match.SetFuzziness(1)

	req := bleve.NewSearchRequestOptions(match, limit, 0, false)
	req.Fields = []string{"order_number", "citizen_name", "address", "zone", "status"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{
			NotificationID: id,
			OrderNumber:    fieldString(h.Fields, "order_number"),
			CitizenName:    fieldString(h.Fields, "citizen_name"),
			Address:        fieldString(h.Fields, "address"),
			Zone:           fieldString(h.Fields, "zone"),
			Status:         fieldString(h.Fields, "status"),
			Score:          h.Score,
		})
	}
	return hits, nil
}

// Close releases the index
func (s *Service) Close() error {
	return s.index.Close()
}

func fieldString(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
