package clickhouse

import (
	"context"
	"fmt"
	"time"

	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/storage"
)

// DailyMetricStore implements storage.DailyMetricStore using ClickHouse.
// Each run deletes its scope and bulk-inserts the fresh rows back to
// back on the same connection; ClickHouse offers no cross-statement
// transaction, so the replace is sequenced as tightly as the engine
// allows.
type DailyMetricStore struct {
	conn *Conn
}

// NewDailyMetricStore creates a new DailyMetricStore.
func NewDailyMetricStore(conn *Conn) *DailyMetricStore {
	return &DailyMetricStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyMetricStore = (*DailyMetricStore)(nil)

const metricColumns = `
	entity_type, entity_id, date, breakdown_type, breakdown_value,
	spend, impressions, clicks, platform_trial_count, platform_purchase_count,
	trial_user_count, purchase_user_count, trial_user_ids, purchase_user_ids,
	post_trial_user_count, converted_user_count, trial_refund_user_count, purchase_refund_user_count,
	trial_conversion_rate_estimated, trial_conversion_rate_actual,
	trial_refund_rate_estimated, trial_refund_rate_actual,
	purchase_refund_rate_estimated, purchase_refund_rate_actual,
	trial_accuracy_ratio, purchase_accuracy_ratio, primary_accuracy_ratio,
	estimated_revenue, adjusted_estimated_revenue,
	actual_revenue, actual_refunds, net_actual_revenue,
	profit, estimated_roas,
	cost_per_trial, cost_per_purchase, platform_cost_per_trial, platform_cost_per_purchase,
	click_to_trial_rate
`

// ReplaceAll deletes every main-table row for the entity type and bulk
// inserts the given rows.
func (s *DailyMetricStore) ReplaceAll(ctx context.Context, entityType domain.EntityType, rows []*domain.EntityDailyMetric) error {
	deleteQuery := `ALTER TABLE entity_daily_metrics DELETE WHERE entity_type = ?`
	if err := s.conn.Exec(ctx, deleteQuery, string(entityType)); err != nil {
		return fmt.Errorf("delete daily metrics scope: %w", err)
	}
	return s.insertRows(ctx, "entity_daily_metrics", rows)
}

// ReplaceAllBreakdown is the breakdown-table analog, scoped to one
// (entity_type, breakdown_type) pair.
func (s *DailyMetricStore) ReplaceAllBreakdown(ctx context.Context, entityType domain.EntityType, breakdownType domain.BreakdownType, rows []*domain.EntityDailyMetric) error {
	deleteQuery := `
		ALTER TABLE entity_daily_metrics_breakdown
		DELETE WHERE entity_type = ? AND breakdown_type = ?
	`
	if err := s.conn.Exec(ctx, deleteQuery, string(entityType), string(breakdownType)); err != nil {
		return fmt.Errorf("delete breakdown metrics scope: %w", err)
	}
	return s.insertRows(ctx, "entity_daily_metrics_breakdown", rows)
}

// insertRows bulk-inserts rows into the given table.
func (s *DailyMetricStore) insertRows(ctx context.Context, table string, rows []*domain.EntityDailyMetric) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO `+table+` (`+metricColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			string(r.EntityType), r.EntityID, r.Date, string(r.BreakdownType), r.BreakdownValue,
			r.Spend, r.Impressions, r.Clicks, r.PlatformTrialCount, r.PlatformPurchaseCount,
			int64(r.TrialUserCount), int64(r.PurchaseUserCount), r.TrialUserIDs, r.PurchaseUserIDs,
			int64(r.PostTrialUserCount), int64(r.ConvertedUserCount), int64(r.TrialRefundUserCount), int64(r.PurchaseRefundUserCount),
			r.TrialConversionRateEstimated, r.TrialConversionRateActual,
			r.TrialRefundRateEstimated, r.TrialRefundRateActual,
			r.PurchaseRefundRateEstimated, r.PurchaseRefundRateActual,
			r.TrialAccuracyRatio, r.PurchaseAccuracyRatio, r.PrimaryAccuracyRatio,
			r.EstimatedRevenue, r.AdjustedEstimatedRevenue,
			r.ActualRevenue, r.ActualRefunds, r.NetActualRevenue,
			r.Profit, r.EstimatedROAS,
			r.CostPerTrial, r.CostPerPurchase, r.PlatformCostPerTrial, r.PlatformCostPerPurchase,
			r.ClickToTrialRate,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// ListForRange reads main-table rows back, ordered by entity_id ASC,
// date ASC.
func (s *DailyMetricStore) ListForRange(ctx context.Context, entityType domain.EntityType, from, to time.Time) ([]*domain.EntityDailyMetric, error) {
	query := `
		SELECT ` + metricColumns + `
		FROM entity_daily_metrics
		WHERE entity_type = ? AND date >= ? AND date <= ?
		ORDER BY entity_id ASC, date ASC
	`

	rows, err := s.conn.Query(ctx, query, string(entityType), domain.DayOf(from), domain.DayOf(to))
	if err != nil {
		return nil, fmt.Errorf("list daily metrics: %w", err)
	}
	defer rows.Close()

	var result []*domain.EntityDailyMetric
	for rows.Next() {
		var r domain.EntityDailyMetric
		var entityTypeStr, breakdownTypeStr string
		var trialUserCount, purchaseUserCount int64
		var postTrial, converted, trialRefund, purchaseRefund int64

		err := rows.Scan(
			&entityTypeStr, &r.EntityID, &r.Date, &breakdownTypeStr, &r.BreakdownValue,
			&r.Spend, &r.Impressions, &r.Clicks, &r.PlatformTrialCount, &r.PlatformPurchaseCount,
			&trialUserCount, &purchaseUserCount, &r.TrialUserIDs, &r.PurchaseUserIDs,
			&postTrial, &converted, &trialRefund, &purchaseRefund,
			&r.TrialConversionRateEstimated, &r.TrialConversionRateActual,
			&r.TrialRefundRateEstimated, &r.TrialRefundRateActual,
			&r.PurchaseRefundRateEstimated, &r.PurchaseRefundRateActual,
			&r.TrialAccuracyRatio, &r.PurchaseAccuracyRatio, &r.PrimaryAccuracyRatio,
			&r.EstimatedRevenue, &r.AdjustedEstimatedRevenue,
			&r.ActualRevenue, &r.ActualRefunds, &r.NetActualRevenue,
			&r.Profit, &r.EstimatedROAS,
			&r.CostPerTrial, &r.CostPerPurchase, &r.PlatformCostPerTrial, &r.PlatformCostPerPurchase,
			&r.ClickToTrialRate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily metric row: %w", err)
		}
		r.EntityType = domain.EntityType(entityTypeStr)
		r.BreakdownType = domain.BreakdownType(breakdownTypeStr)
		r.Date = domain.DayOf(r.Date)
		r.TrialUserCount = int(trialUserCount)
		r.PurchaseUserCount = int(purchaseUserCount)
		r.PostTrialUserCount = int(postTrial)
		r.ConvertedUserCount = int(converted)
		r.TrialRefundUserCount = int(trialRefund)
		r.PurchaseRefundUserCount = int(purchaseRefund)

		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily metric rows: %w", err)
	}

	return result, nil
}
