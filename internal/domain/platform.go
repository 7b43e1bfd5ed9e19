package domain

import "time"

// BreakdownType is the secondary dimension a metric row is sliced by.
// Empty means the unsliced (main table) row.
type BreakdownType string

const (
	BreakdownNone    BreakdownType = ""
	BreakdownCountry BreakdownType = "country"
	BreakdownRegion  BreakdownType = "region"
)

// AllBreakdownTypes lists the breakdown dimensions the reconciler fans
// out over.
var AllBreakdownTypes = []BreakdownType{BreakdownCountry, BreakdownRegion}

// UnknownBreakdownValue keys rows whose attribution carries an empty
// value for the breakdown property, so platform and analytics sides
// stay joinable.
const UnknownBreakdownValue = "unknown"

// PlatformMetric is one pre-aggregated daily row reported by the ad
// platform for an entity, optionally sliced by a breakdown dimension.
type PlatformMetric struct {
	EntityType     EntityType
	EntityID       string
	Date           time.Time // UTC calendar day
	BreakdownType  BreakdownType
	BreakdownValue string

	Spend       float64
	Impressions int64
	Clicks      int64

	// Platform-reported conversion counts, reconciled against the
	// deduplicated analytics-side counts.
	TrialCount    int64
	PurchaseCount int64
}
