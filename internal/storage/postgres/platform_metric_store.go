package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/storage"
)

// PlatformMetricStore implements storage.PlatformMetricStore using
// PostgreSQL.
type PlatformMetricStore struct {
	pool *Pool
}

// NewPlatformMetricStore creates a new PlatformMetricStore.
func NewPlatformMetricStore(pool *Pool) *PlatformMetricStore {
	return &PlatformMetricStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PlatformMetricStore = (*PlatformMetricStore)(nil)

// InsertBulk adds platform rows in one transaction. Returns
// ErrDuplicateKey on a duplicate (entity, date, breakdown) key.
func (s *PlatformMetricStore) InsertBulk(ctx context.Context, metrics []*domain.PlatformMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO platform_daily_metrics (
			entity_type, entity_id, date, breakdown_type, breakdown_value,
			spend, impressions, clicks, trial_count, purchase_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, m := range metrics {
		_, err := tx.Exec(ctx, query,
			string(m.EntityType), m.EntityID, domain.DayOf(m.Date),
			string(m.BreakdownType), m.BreakdownValue,
			m.Spend, m.Impressions, m.Clicks, m.TrialCount, m.PurchaseCount,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert platform metric: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListForRange retrieves rows for an entity type with dates in [from, to]
// inclusive, filtered by breakdown dimension.
func (s *PlatformMetricStore) ListForRange(ctx context.Context, entityType domain.EntityType, from, to time.Time, breakdownType domain.BreakdownType) ([]*domain.PlatformMetric, error) {
	query := `
		SELECT entity_type, entity_id, date, breakdown_type, breakdown_value,
		       spend, impressions, clicks, trial_count, purchase_count
		FROM platform_daily_metrics
		WHERE entity_type = $1 AND breakdown_type = $2
		  AND date >= $3 AND date <= $4
		ORDER BY entity_id ASC, date ASC, breakdown_value ASC
	`

	rows, err := s.pool.Query(ctx, query,
		string(entityType), string(breakdownType), domain.DayOf(from), domain.DayOf(to))
	if err != nil {
		return nil, fmt.Errorf("list platform metrics: %w", err)
	}
	defer rows.Close()

	return scanPlatformMetrics(rows)
}

// scanPlatformMetrics scans rows into a slice of PlatformMetric.
func scanPlatformMetrics(rows pgx.Rows) ([]*domain.PlatformMetric, error) {
	var metrics []*domain.PlatformMetric

	for rows.Next() {
		var m domain.PlatformMetric
		var entityType, breakdownType string

		err := rows.Scan(
			&entityType, &m.EntityID, &m.Date, &breakdownType, &m.BreakdownValue,
			&m.Spend, &m.Impressions, &m.Clicks, &m.TrialCount, &m.PurchaseCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan platform metric row: %w", err)
		}
		m.EntityType = domain.EntityType(entityType)
		m.BreakdownType = domain.BreakdownType(breakdownType)
		m.Date = domain.DayOf(m.Date)

		metrics = append(metrics, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate platform metric rows: %w", err)
	}

	return metrics, nil
}
