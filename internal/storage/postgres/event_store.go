package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// InsertBulk adds lifecycle events in one transaction.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.LifecycleEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO lifecycle_events (
			user_id, product_id, event_kind, event_time, revenue
		) VALUES ($1, $2, $3, $4, $5)
	`

	for _, e := range events {
		_, err := tx.Exec(ctx, query,
			e.UserID,
			e.ProductID,
			string(e.Kind),
			e.EventTime,
			e.Revenue,
		)
		if err != nil {
			return fmt.Errorf("insert lifecycle event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListForUsers retrieves events for the given users ordered by
// event_time ASC, user_id ASC, filtered to kinds when non-empty.
func (s *EventStore) ListForUsers(ctx context.Context, userIDs []string, kinds []domain.EventKind) ([]*domain.LifecycleEvent, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT user_id, product_id, event_kind, event_time, revenue
		FROM lifecycle_events
		WHERE user_id = ANY($1)
		  AND (cardinality($2::text[]) = 0 OR event_kind = ANY($2))
		ORDER BY event_time ASC, user_id ASC
	`

	kindStrings := make([]string, 0, len(kinds))
	for _, k := range kinds {
		kindStrings = append(kindStrings, string(k))
	}

	rows, err := s.pool.Query(ctx, query, userIDs, kindStrings)
	if err != nil {
		return nil, fmt.Errorf("list events for users: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// scanEvents scans rows into a slice of LifecycleEvent.
func scanEvents(rows pgx.Rows) ([]*domain.LifecycleEvent, error) {
	var events []*domain.LifecycleEvent

	for rows.Next() {
		var e domain.LifecycleEvent
		var kind string

		err := rows.Scan(
			&e.UserID,
			&e.ProductID,
			&kind,
			&e.EventTime,
			&e.Revenue,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		e.EventTime = e.EventTime.UTC()

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
