package domain

import "time"

// EntityDailyMetric is the reconciled output row the dashboard reads.
// Keyed by (entity_type, entity_id, date) in the main table, plus
// (breakdown_type, breakdown_value) in the breakdown table. Rows are
// produced fresh on every recompute run; never updated in place.
type EntityDailyMetric struct {
	EntityType     EntityType
	EntityID       string
	Date           time.Time // UTC calendar day
	BreakdownType  BreakdownType
	BreakdownValue string

	// Raw platform metrics.
	Spend                 float64
	Impressions           int64
	Clicks                int64
	PlatformTrialCount    int64
	PlatformPurchaseCount int64

	// Deduplicated product-analytics counts and the user lists that
	// produced them.
	TrialUserCount    int
	PurchaseUserCount int
	TrialUserIDs      []string
	PurchaseUserIDs   []string

	// Lifecycle-derived sub-populations.
	PostTrialUserCount      int
	ConvertedUserCount      int
	TrialRefundUserCount    int
	PurchaseRefundUserCount int

	// Rate estimates: cohort-estimated means vs. observed ratios.
	TrialConversionRateEstimated float64
	TrialConversionRateActual    float64
	TrialRefundRateEstimated     float64
	TrialRefundRateActual        float64
	PurchaseRefundRateEstimated  float64
	PurchaseRefundRateActual     float64

	// Accuracy ratios (percentages; analytics count / platform count * 100).
	TrialAccuracyRatio    float64
	PurchaseAccuracyRatio float64
	PrimaryAccuracyRatio  float64

	// Revenue figures.
	EstimatedRevenue         float64 // naive, trial-side estimated values
	AdjustedEstimatedRevenue float64 // accuracy-adjusted
	ActualRevenue            float64 // realized from conversion/purchase events
	ActualRefunds            float64 // absolute refunded amount
	NetActualRevenue         float64 // ActualRevenue - ActualRefunds

	// Derived performance figures.
	Profit                  float64
	EstimatedROAS           float64
	CostPerTrial            float64 // against deduplicated counts
	CostPerPurchase         float64
	PlatformCostPerTrial    float64 // against platform-reported counts
	PlatformCostPerPurchase float64
	ClickToTrialRate        float64
}
