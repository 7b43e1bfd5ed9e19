package storage

import (
	"context"
	"time"

	"ad-metrics-pipeline/internal/domain"
)

// EventStore provides read access to the append-only lifecycle_events
// table. Results are ordered by event_time ASC; the forward-scan rules
// in the cohort estimator depend on that order.
type EventStore interface {
	// InsertBulk adds events; used by ingestion and fixtures.
	InsertBulk(ctx context.Context, events []*domain.LifecycleEvent) error

	// ListForUsers retrieves every event for the given users, filtered
	// to kinds when non-empty, ordered by event_time ASC, user_id ASC.
	ListForUsers(ctx context.Context, userIDs []string, kinds []domain.EventKind) ([]*domain.LifecycleEvent, error)
}

// AttributionStore provides access to user_product_attributions. The
// rollup reads attribution rows and writes back rate estimates.
type AttributionStore interface {
	// InsertBulk adds attribution rows; used by ingestion and fixtures.
	InsertBulk(ctx context.Context, attrs []*domain.Attribution) error

	// ListValidCreditedBetween retrieves valid rows credited within
	// [from, to] inclusive, regardless of entity linkage. Feeds cohort
	// index construction.
	ListValidCreditedBetween(ctx context.Context, from, to time.Time) ([]*domain.Attribution, error)

	// ListValidForEntityType retrieves valid rows credited within
	// [from, to] inclusive that carry a non-empty entity id for the
	// given entity type. Eligibility is enforced here, at the query
	// boundary, not by post-hoc filtering.
	ListValidForEntityType(ctx context.Context, entityType domain.EntityType, from, to time.Time) ([]*domain.Attribution, error)

	// ListValidWithoutRates retrieves valid rows that have not received
	// rate estimates; input to the mandatory end-of-run cleanup pass.
	ListValidWithoutRates(ctx context.Context) ([]*domain.Attribution, error)

	// UpdateRates writes back the rate estimates and accuracy labels
	// carried on the given rows, matched by (user_id, product_id).
	UpdateRates(ctx context.Context, attrs []*domain.Attribution) error
}

// PlatformMetricStore provides read access to the pre-aggregated daily
// ad-platform rows produced by the platform ingestion pipeline.
type PlatformMetricStore interface {
	// InsertBulk adds platform rows; used by ingestion and fixtures.
	InsertBulk(ctx context.Context, metrics []*domain.PlatformMetric) error

	// ListForRange retrieves rows for an entity type with dates in
	// [from, to] inclusive. breakdownType BreakdownNone selects the
	// unsliced rows; otherwise only rows of that breakdown dimension.
	ListForRange(ctx context.Context, entityType domain.EntityType, from, to time.Time, breakdownType domain.BreakdownType) ([]*domain.PlatformMetric, error)
}

// DailyMetricStore is the write side of the reconciled output. Each run
// fully replaces the scope it recomputed; there is no incremental upsert.
type DailyMetricStore interface {
	// ReplaceAll deletes every main-table row for the entity type and
	// bulk-inserts the given rows, sequenced as tightly as the engine
	// allows.
	ReplaceAll(ctx context.Context, entityType domain.EntityType, rows []*domain.EntityDailyMetric) error

	// ReplaceAllBreakdown is the breakdown-table analog, scoped to one
	// (entity_type, breakdown_type) pair.
	ReplaceAllBreakdown(ctx context.Context, entityType domain.EntityType, breakdownType domain.BreakdownType, rows []*domain.EntityDailyMetric) error

	// ListForRange reads main-table rows back, ordered by entity_id ASC,
	// date ASC; used by reporting.
	ListForRange(ctx context.Context, entityType domain.EntityType, from, to time.Time) ([]*domain.EntityDailyMetric, error)
}
