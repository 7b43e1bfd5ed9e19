package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/storage"
)

// AttributionStore is an in-memory implementation of storage.AttributionStore.
type AttributionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Attribution // keyed by user_id|product_id
}

// NewAttributionStore creates a new in-memory attribution store.
func NewAttributionStore() *AttributionStore {
	return &AttributionStore{
		data: make(map[string]*domain.Attribution),
	}
}

func attributionKey(userID, productID string) string {
	return userID + "|" + productID
}

// InsertBulk adds attribution rows. Returns ErrDuplicateKey if a
// (user_id, product_id) pair already exists.
func (s *AttributionStore) InsertBulk(_ context.Context, attrs []*domain.Attribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		if a == nil || a.UserID == "" || a.ProductID == "" {
			return storage.ErrInvalidInput
		}
		key := attributionKey(a.UserID, a.ProductID)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, a := range attrs {
		copy := *a
		s.data[attributionKey(a.UserID, a.ProductID)] = &copy
	}
	return nil
}

// ListValidCreditedBetween retrieves valid rows credited within
// [from, to] inclusive.
func (s *AttributionStore) ListValidCreditedBetween(_ context.Context, from, to time.Time) ([]*domain.Attribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Attribution
	for _, a := range s.data {
		if !a.Valid || !inDayRange(a.CreditedDate, from, to) {
			continue
		}
		copy := *a
		result = append(result, &copy)
	}
	sortAttributions(result)
	return result, nil
}

// ListValidForEntityType retrieves valid in-range rows carrying a
// non-empty entity id for the given type.
func (s *AttributionStore) ListValidForEntityType(_ context.Context, entityType domain.EntityType, from, to time.Time) ([]*domain.Attribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Attribution
	for _, a := range s.data {
		if !a.Valid || a.EntityID(entityType) == "" || !inDayRange(a.CreditedDate, from, to) {
			continue
		}
		copy := *a
		result = append(result, &copy)
	}
	sortAttributions(result)
	return result, nil
}

// ListValidWithoutRates retrieves valid rows missing any rate estimate.
func (s *AttributionStore) ListValidWithoutRates(_ context.Context) ([]*domain.Attribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Attribution
	for _, a := range s.data {
		if !a.Valid || a.HasRates() {
			continue
		}
		copy := *a
		result = append(result, &copy)
	}
	sortAttributions(result)
	return result, nil
}

// UpdateRates writes back rate estimates, matched by (user_id, product_id).
// Returns ErrNotFound if any row does not exist.
func (s *AttributionStore) UpdateRates(_ context.Context, attrs []*domain.Attribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range attrs {
		stored, exists := s.data[attributionKey(a.UserID, a.ProductID)]
		if !exists {
			return storage.ErrNotFound
		}
		stored.TrialConversionRate = copyRate(a.TrialConversionRate)
		stored.TrialRefundRate = copyRate(a.TrialRefundRate)
		stored.PurchaseRefundRate = copyRate(a.PurchaseRefundRate)
		stored.RateAccuracy = a.RateAccuracy
	}
	return nil
}

func copyRate(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func inDayRange(d, from, to time.Time) bool {
	day := domain.DayOf(d)
	return !day.Before(domain.DayOf(from)) && !day.After(domain.DayOf(to))
}

func sortAttributions(attrs []*domain.Attribution) {
	sort.Slice(attrs, func(i, j int) bool {
		if attrs[i].UserID != attrs[j].UserID {
			return attrs[i].UserID < attrs[j].UserID
		}
		return attrs[i].ProductID < attrs[j].ProductID
	})
}

var _ storage.AttributionStore = (*AttributionStore)(nil)
