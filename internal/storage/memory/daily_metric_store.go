package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/storage"
)

// DailyMetricStore is an in-memory implementation of
// storage.DailyMetricStore. Main and breakdown rows are held apart,
// mirroring the two output tables.
type DailyMetricStore struct {
	mu        sync.RWMutex
	main      map[domain.EntityType][]*domain.EntityDailyMetric
	breakdown map[domain.EntityType]map[domain.BreakdownType][]*domain.EntityDailyMetric
}

// NewDailyMetricStore creates a new in-memory daily metric store.
func NewDailyMetricStore() *DailyMetricStore {
	return &DailyMetricStore{
		main:      make(map[domain.EntityType][]*domain.EntityDailyMetric),
		breakdown: make(map[domain.EntityType]map[domain.BreakdownType][]*domain.EntityDailyMetric),
	}
}

// ReplaceAll replaces every main-table row for the entity type.
func (s *DailyMetricStore) ReplaceAll(_ context.Context, entityType domain.EntityType, rows []*domain.EntityDailyMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := make([]*domain.EntityDailyMetric, 0, len(rows))
	for _, r := range rows {
		if r == nil || r.EntityID == "" {
			return storage.ErrInvalidInput
		}
		copy := *r
		replaced = append(replaced, &copy)
	}
	s.main[entityType] = replaced
	return nil
}

// ReplaceAllBreakdown replaces breakdown rows for one
// (entity_type, breakdown_type) scope.
func (s *DailyMetricStore) ReplaceAllBreakdown(_ context.Context, entityType domain.EntityType, breakdownType domain.BreakdownType, rows []*domain.EntityDailyMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := make([]*domain.EntityDailyMetric, 0, len(rows))
	for _, r := range rows {
		if r == nil || r.EntityID == "" {
			return storage.ErrInvalidInput
		}
		copy := *r
		replaced = append(replaced, &copy)
	}
	if s.breakdown[entityType] == nil {
		s.breakdown[entityType] = make(map[domain.BreakdownType][]*domain.EntityDailyMetric)
	}
	s.breakdown[entityType][breakdownType] = replaced
	return nil
}

// ListForRange reads main-table rows back, ordered by entity_id ASC,
// date ASC.
func (s *DailyMetricStore) ListForRange(_ context.Context, entityType domain.EntityType, from, to time.Time) ([]*domain.EntityDailyMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EntityDailyMetric
	for _, r := range s.main[entityType] {
		if !inDayRange(r.Date, from, to) {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EntityID != result[j].EntityID {
			return result[i].EntityID < result[j].EntityID
		}
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// ListBreakdown reads breakdown rows for one scope; test helper mirror
// of the breakdown table.
func (s *DailyMetricStore) ListBreakdown(_ context.Context, entityType domain.EntityType, breakdownType domain.BreakdownType) ([]*domain.EntityDailyMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.breakdown[entityType][breakdownType]
	result := make([]*domain.EntityDailyMetric, 0, len(rows))
	for _, r := range rows {
		copy := *r
		result = append(result, &copy)
	}
	return result, nil
}

var _ storage.DailyMetricStore = (*DailyMetricStore)(nil)
