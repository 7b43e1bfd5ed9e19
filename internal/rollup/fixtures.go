package rollup

import (
	"context"
	"fmt"
	"time"

	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/storage"
)

// FixtureNow is the fixed run clock the demo dataset is anchored to.
// Every fixture date is derived from it so window membership stays
// stable regardless of when the demo runs.
var FixtureNow = time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

// LoadFixtures populates stores with a small deterministic dataset for
// demonstration runs against the in-memory stores.
func LoadFixtures(
	ctx context.Context,
	eventStore storage.EventStore,
	attributionStore storage.AttributionStore,
	platformStore storage.PlatformMetricStore,
) error {
	attrs, events := fixtureUsers()

	if err := attributionStore.InsertBulk(ctx, attrs); err != nil {
		return fmt.Errorf("load fixture attributions: %w", err)
	}
	if err := eventStore.InsertBulk(ctx, events); err != nil {
		return fmt.Errorf("load fixture events: %w", err)
	}
	if err := platformStore.InsertBulk(ctx, fixturePlatformRows()); err != nil {
		return fmt.Errorf("load fixture platform metrics: %w", err)
	}
	return nil
}

// fixtureUsers builds one campaign's worth of users: a cohort credited
// five weeks back, half of which converted, plus two direct purchasers
// and one refunded purchase.
func fixtureUsers() ([]*domain.Attribution, []*domain.LifecycleEvent) {
	creditedDay := domain.DayOf(FixtureNow.AddDate(0, 0, -25)) // inside the cohort window
	purchaseDay := domain.DayOf(FixtureNow.AddDate(0, 0, -5))

	var attrs []*domain.Attribution
	var events []*domain.LifecycleEvent

	for i := 0; i < 14; i++ {
		userID := fmt.Sprintf("user_%03d", i+1)
		attrs = append(attrs, &domain.Attribution{
			UserID:         userID,
			ProductID:      "premium_monthly",
			CreditedDate:   creditedDay,
			CampaignID:     "cmp_summer_promo",
			AdsetID:        "as_us_ios",
			AdID:           "ad_video_01",
			PriceBucket:    "p25",
			Store:          "app_store",
			EconomicTier:   "tier1",
			Country:        "US",
			Region:         "CA",
			EstimatedValue: 18.50,
			Valid:          true,
		})

		events = append(events, &domain.LifecycleEvent{
			UserID:    userID,
			ProductID: "premium_monthly",
			Kind:      domain.EventTrialStarted,
			EventTime: creditedDay.Add(10 * time.Hour),
		})

		// Half the cohort converts a week after starting.
		if i%2 == 0 {
			events = append(events, &domain.LifecycleEvent{
				UserID:    userID,
				ProductID: "premium_monthly",
				Kind:      domain.EventTrialConverted,
				EventTime: creditedDay.AddDate(0, 0, 7).Add(10 * time.Hour),
				Revenue:   24.99,
			})
		}
	}

	// Two direct purchasers inside the analysis window, one refunded.
	for i, refunded := range []bool{false, true} {
		userID := fmt.Sprintf("buyer_%02d", i+1)
		attrs = append(attrs, &domain.Attribution{
			UserID:         userID,
			ProductID:      "lifetime",
			CreditedDate:   purchaseDay,
			CampaignID:     "cmp_summer_promo",
			AdsetID:        "as_us_ios",
			AdID:           "ad_video_02",
			PriceBucket:    "p80",
			Store:          "app_store",
			EconomicTier:   "tier1",
			Country:        "DE",
			EstimatedValue: 79.99,
			Valid:          true,
		})
		events = append(events, &domain.LifecycleEvent{
			UserID:    userID,
			ProductID: "lifetime",
			Kind:      domain.EventPurchase,
			EventTime: purchaseDay.Add(14 * time.Hour),
			Revenue:   79.99,
		})
		if refunded {
			events = append(events, &domain.LifecycleEvent{
				UserID:    userID,
				ProductID: "lifetime",
				Kind:      domain.EventCancellation,
				EventTime: purchaseDay.AddDate(0, 0, 2).Add(9 * time.Hour),
				Revenue:   -79.99,
			})
		}
	}

	return attrs, events
}

// fixturePlatformRows reports the same campaign from the ad platform's
// point of view, with the usual slight undercounting.
func fixturePlatformRows() []*domain.PlatformMetric {
	creditedDay := domain.DayOf(FixtureNow.AddDate(0, 0, -25))
	purchaseDay := domain.DayOf(FixtureNow.AddDate(0, 0, -5))

	rows := []*domain.PlatformMetric{
		{
			EntityType:  domain.EntityCampaign,
			EntityID:    "cmp_summer_promo",
			Date:        creditedDay,
			Spend:       120.00,
			Impressions: 48000,
			Clicks:      950,
			TrialCount:  12,
		},
		{
			EntityType:    domain.EntityCampaign,
			EntityID:      "cmp_summer_promo",
			Date:          purchaseDay,
			Spend:         85.00,
			Impressions:   31000,
			Clicks:        610,
			PurchaseCount: 2,
		},
		{
			EntityType:  domain.EntityAdset,
			EntityID:    "as_us_ios",
			Date:        creditedDay,
			Spend:       120.00,
			Impressions: 48000,
			Clicks:      950,
			TrialCount:  12,
		},
		{
			EntityType:  domain.EntityAd,
			EntityID:    "ad_video_01",
			Date:        creditedDay,
			Spend:       90.00,
			Impressions: 36000,
			Clicks:      720,
			TrialCount:  12,
		},
	}

	// Country slices of the campaign's credited day.
	rows = append(rows,
		&domain.PlatformMetric{
			EntityType:     domain.EntityCampaign,
			EntityID:       "cmp_summer_promo",
			Date:           creditedDay,
			BreakdownType:  domain.BreakdownCountry,
			BreakdownValue: "US",
			Spend:          100.00,
			Impressions:    40000,
			Clicks:         800,
			TrialCount:     12,
		},
		&domain.PlatformMetric{
			EntityType:     domain.EntityCampaign,
			EntityID:       "cmp_summer_promo",
			Date:           creditedDay,
			BreakdownType:  domain.BreakdownCountry,
			BreakdownValue: "DE",
			Spend:          20.00,
			Impressions:    8000,
			Clicks:         150,
		},
	)

	return rows
}
