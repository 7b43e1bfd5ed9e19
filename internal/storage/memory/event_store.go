package memory

import (
	"context"
	"sort"
	"sync"

	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu     sync.RWMutex
	events []*domain.LifecycleEvent
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// InsertBulk adds events.
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.LifecycleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e == nil || e.UserID == "" || e.ProductID == "" {
			return storage.ErrInvalidInput
		}
		copy := *e
		s.events = append(s.events, &copy)
	}
	return nil
}

// ListForUsers retrieves events for the given users, filtered to kinds
// when non-empty, ordered by event_time ASC, user_id ASC.
func (s *EventStore) ListForUsers(_ context.Context, userIDs []string, kinds []domain.EventKind) ([]*domain.LifecycleEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		users[id] = struct{}{}
	}
	wantKind := make(map[domain.EventKind]struct{}, len(kinds))
	for _, k := range kinds {
		wantKind[k] = struct{}{}
	}

	var result []*domain.LifecycleEvent
	for _, e := range s.events {
		if _, ok := users[e.UserID]; !ok {
			continue
		}
		if len(wantKind) > 0 {
			if _, ok := wantKind[e.Kind]; !ok {
				continue
			}
		}
		copy := *e
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].EventTime.Equal(result[j].EventTime) {
			return result[i].EventTime.Before(result[j].EventTime)
		}
		return result[i].UserID < result[j].UserID
	})

	return result, nil
}

var _ storage.EventStore = (*EventStore)(nil)
