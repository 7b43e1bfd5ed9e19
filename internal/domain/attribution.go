package domain

import "time"

// EntityType identifies the advertising construct a metric row is keyed by.
type EntityType string

const (
	EntityCampaign EntityType = "campaign"
	EntityAdset    EntityType = "adset"
	EntityAd       EntityType = "ad"
)

// AllEntityTypes lists entity types in reporting order.
var AllEntityTypes = []EntityType{EntityCampaign, EntityAdset, EntityAd}

// Attribution is one user-product pair with the advertising entities and
// cohort-matching properties established at ingestion time. Immutable
// for the rollup except for the rate fields, which the estimator writes
// back once per run.
type Attribution struct {
	UserID    string
	ProductID string

	// CreditedDate is the UTC calendar day the pair's start event is
	// attributed to; the anchor for cohort-window membership.
	CreditedDate time.Time

	// Entity linkage. An empty id excludes the user from that entity
	// type's rollup entirely.
	CampaignID string
	AdsetID    string
	AdID       string

	// Cohort-matching properties, most to least specific.
	PriceBucket  string
	Store        string
	EconomicTier string
	Country      string
	Region       string

	// EstimatedValue is the current estimated value of the trial,
	// summed into a day's naive estimated revenue.
	EstimatedValue float64

	// Valid reports whether the row passed upstream lifecycle validity
	// checks. Every valid row must leave a run with rates assigned.
	Valid bool

	// Rate estimates written back by the cohort estimator. Nil until a
	// run has assigned them.
	TrialConversionRate *float64
	TrialRefundRate     *float64
	PurchaseRefundRate  *float64
	RateAccuracy        AccuracyLabel
}

// EntityID returns the entity id for the given entity type, empty when
// the user has no attribution for that type.
func (a *Attribution) EntityID(t EntityType) string {
	switch t {
	case EntityCampaign:
		return a.CampaignID
	case EntityAdset:
		return a.AdsetID
	case EntityAd:
		return a.AdID
	default:
		return ""
	}
}

// HasRates reports whether all three rate estimates are assigned.
func (a *Attribution) HasRates() bool {
	return a.TrialConversionRate != nil && a.TrialRefundRate != nil && a.PurchaseRefundRate != nil
}

// SetRates assigns all three rates and the accuracy label.
func (a *Attribution) SetRates(est RateEstimate) {
	conv, trial, purchase := est.TrialConversionRate, est.TrialRefundRate, est.PurchaseRefundRate
	a.TrialConversionRate = &conv
	a.TrialRefundRate = &trial
	a.PurchaseRefundRate = &purchase
	a.RateAccuracy = est.Accuracy
}
