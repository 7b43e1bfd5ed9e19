// Package reporting summarizes reconciled daily metrics for operators.
package reporting

import "time"

// Report is the run-summary structure rendered to Markdown.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	From        time.Time
	To          time.Time

	// Per entity-type totals over the window.
	EntitySummaries []EntitySummaryRow

	// Per-entity totals, sorted by spend descending.
	TopEntities []EntityPerformanceRow
}

// EntitySummaryRow aggregates one entity type over the report window.
type EntitySummaryRow struct {
	EntityType        string
	Rows              int
	Entities          int
	Spend             float64
	TrialUsers        int
	PurchaseUsers     int
	AdjustedRevenue   float64
	NetActualRevenue  float64
	BlendedROAS       float64 // adjusted revenue / spend over the whole window
	MeanPrimaryAccPct float64 // mean primary accuracy ratio over rows that have one
}

// EntityPerformanceRow aggregates one entity over the report window.
type EntityPerformanceRow struct {
	EntityType      string
	EntityID        string
	Spend           float64
	TrialUsers      int
	PurchaseUsers   int
	AdjustedRevenue float64
	Profit          float64
	ROAS            float64
}
