package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/storage"
)

// PlatformMetricStore is an in-memory implementation of
// storage.PlatformMetricStore.
type PlatformMetricStore struct {
	mu   sync.RWMutex
	data []*domain.PlatformMetric
}

// NewPlatformMetricStore creates a new in-memory platform metric store.
func NewPlatformMetricStore() *PlatformMetricStore {
	return &PlatformMetricStore{}
}

// InsertBulk adds platform rows.
func (s *PlatformMetricStore) InsertBulk(_ context.Context, metrics []*domain.PlatformMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range metrics {
		if m == nil || m.EntityID == "" {
			return storage.ErrInvalidInput
		}
		copy := *m
		s.data = append(s.data, &copy)
	}
	return nil
}

// ListForRange retrieves rows for an entity type with dates in [from, to]
// inclusive, filtered by breakdown dimension.
func (s *PlatformMetricStore) ListForRange(_ context.Context, entityType domain.EntityType, from, to time.Time, breakdownType domain.BreakdownType) ([]*domain.PlatformMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PlatformMetric
	for _, m := range s.data {
		if m.EntityType != entityType || m.BreakdownType != breakdownType {
			continue
		}
		if !inDayRange(m.Date, from, to) {
			continue
		}
		copy := *m
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EntityID != result[j].EntityID {
			return result[i].EntityID < result[j].EntityID
		}
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].BreakdownValue < result[j].BreakdownValue
	})

	return result, nil
}

var _ storage.PlatformMetricStore = (*PlatformMetricStore)(nil)
