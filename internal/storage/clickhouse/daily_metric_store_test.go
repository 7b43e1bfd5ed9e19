package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ad-metrics-pipeline/internal/domain"
)

func testMetricRow(entityID string, date time.Time) *domain.EntityDailyMetric {
	return &domain.EntityDailyMetric{
		EntityType:               domain.EntityCampaign,
		EntityID:                 entityID,
		Date:                     date,
		Spend:                    120.00,
		Impressions:              48000,
		Clicks:                   950,
		PlatformTrialCount:       12,
		TrialUserCount:           14,
		TrialUserIDs:             []string{"u1", "u2"},
		PurchaseUserIDs:          []string{},
		TrialAccuracyRatio:       116.67,
		PrimaryAccuracyRatio:     116.67,
		EstimatedRevenue:         259.0,
		AdjustedEstimatedRevenue: 221.97,
		Profit:                   101.97,
		EstimatedROAS:            1.85,
	}
}

func TestDailyMetricStore_ReplaceAllAndListRoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDailyMetricStore(conn)
	day := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)

	rows := []*domain.EntityDailyMetric{
		testMetricRow("cmp_1", day),
		testMetricRow("cmp_2", day.AddDate(0, 0, 1)),
	}
	require.NoError(t, store.ReplaceAll(ctx, domain.EntityCampaign, rows))

	got, err := store.ListForRange(ctx, domain.EntityCampaign, day, day.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "cmp_1", got[0].EntityID)
	require.True(t, got[0].Date.Equal(day))
	require.Equal(t, 120.00, got[0].Spend)
	require.Equal(t, 14, got[0].TrialUserCount)
	require.Equal(t, []string{"u1", "u2"}, got[0].TrialUserIDs)
	require.InDelta(t, 116.67, got[0].PrimaryAccuracyRatio, 1e-9)
}

func TestDailyMetricStore_ReplaceAllScopedToEntityType(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDailyMetricStore(conn)
	day := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)

	campaignRow := testMetricRow("cmp_1", day)
	adRow := testMetricRow("ad_1", day)
	adRow.EntityType = domain.EntityAd

	require.NoError(t, store.ReplaceAll(ctx, domain.EntityCampaign, []*domain.EntityDailyMetric{campaignRow}))
	require.NoError(t, store.ReplaceAll(ctx, domain.EntityAd, []*domain.EntityDailyMetric{adRow}))

	// Replacing the campaign scope with fresh rows must leave ads alone.
	require.NoError(t, store.ReplaceAll(ctx, domain.EntityCampaign, []*domain.EntityDailyMetric{testMetricRow("cmp_9", day)}))

	campaigns, err := store.ListForRange(ctx, domain.EntityCampaign, day, day)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	require.Equal(t, "cmp_9", campaigns[0].EntityID)

	ads, err := store.ListForRange(ctx, domain.EntityAd, day, day)
	require.NoError(t, err)
	require.Len(t, ads, 1)
	require.Equal(t, "ad_1", ads[0].EntityID)
}

func TestDailyMetricStore_ReplaceAllEmptyClearsScope(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDailyMetricStore(conn)
	day := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.ReplaceAll(ctx, domain.EntityCampaign, []*domain.EntityDailyMetric{testMetricRow("cmp_1", day)}))
	require.NoError(t, store.ReplaceAll(ctx, domain.EntityCampaign, nil))

	got, err := store.ListForRange(ctx, domain.EntityCampaign, day, day)
	require.NoError(t, err)
	require.Empty(t, got)
}
