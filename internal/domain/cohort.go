package domain

// AccuracyLabel records how a rate estimate was obtained: which cohort
// specificity level matched, or which fallback produced the defaults.
type AccuracyLabel string

const (
	AccuracyVeryHigh AccuracyLabel = "very_high"
	AccuracyHigh     AccuracyLabel = "high"
	AccuracyMedium   AccuracyLabel = "medium"
	AccuracyLow      AccuracyLabel = "low"
	AccuracyDefault  AccuracyLabel = "default"

	// AccuracyAutosetDefault marks rows healed by the end-of-run
	// cleanup pass rather than the main cohort pass.
	AccuracyAutosetDefault AccuracyLabel = "invalid_lifecycle_autoset_to_default"
)

// Cohort specificity levels. Level 4 matches on every property; each
// lower level drops the least load-bearing remaining property, so the
// matched population only ever broadens on the way down.
const (
	CohortLevelVeryHigh = 4 // product, price bucket, store, economic tier, country, region
	CohortLevelHigh     = 3 // drop region
	CohortLevelMedium   = 2 // drop region, country
	CohortLevelLow      = 1 // drop region, country, economic tier
)

// AccuracyForLevel maps a matched cohort level to its accuracy label.
func AccuracyForLevel(level int) AccuracyLabel {
	switch level {
	case CohortLevelVeryHigh:
		return AccuracyVeryHigh
	case CohortLevelHigh:
		return AccuracyHigh
	case CohortLevelMedium:
		return AccuracyMedium
	case CohortLevelLow:
		return AccuracyLow
	default:
		return AccuracyDefault
	}
}

// CohortKey is a tuple of property values at one specificity level.
// Properties dropped at a level stay empty, and Level keeps buckets from
// colliding across levels when property subsets coincide.
type CohortKey struct {
	Level        int
	ProductID    string
	PriceBucket  string
	Store        string
	EconomicTier string
	Country      string
	Region       string
}

// RateEstimate carries the three cohort-derived rates and their provenance.
type RateEstimate struct {
	TrialConversionRate float64
	TrialRefundRate     float64
	PurchaseRefundRate  float64
	Accuracy            AccuracyLabel
	CohortSize          int
}

// DefaultRateEstimate returns the fixed fallback rates used when no
// cohort of adequate size exists at any level.
func DefaultRateEstimate(label AccuracyLabel) RateEstimate {
	return RateEstimate{
		TrialConversionRate: 0.25,
		TrialRefundRate:     0.20,
		PurchaseRefundRate:  0.40,
		Accuracy:            label,
	}
}
