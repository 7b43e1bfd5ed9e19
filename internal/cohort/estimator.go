package cohort

import (
	"time"

	"ad-metrics-pipeline/internal/domain"
)

// DefaultMinCohortSize is the minimum cohort population required before
// a specificity level is accepted.
const DefaultMinCohortSize = 12

// Estimator finds the most specific adequately-sized cohort for a
// target user-product pair and computes its three rates.
type Estimator struct {
	ctx           *Context
	minCohortSize int

	// ZeroRateCohorts counts estimates where a cohort of adequate size
	// had zero eligible trials, conversions and purchases for the
	// target product. The zero rates are still used as truth; this is
	// a diagnostic, keyed by accuracy label.
	ZeroRateCohorts map[domain.AccuracyLabel]int
}

// NewEstimator creates an estimator over a built context. minCohortSize
// <= 0 selects DefaultMinCohortSize.
func NewEstimator(ctx *Context, minCohortSize int) *Estimator {
	if minCohortSize <= 0 {
		minCohortSize = DefaultMinCohortSize
	}
	return &Estimator{
		ctx:             ctx,
		minCohortSize:   minCohortSize,
		ZeroRateCohorts: make(map[domain.AccuracyLabel]int),
	}
}

// Estimate runs the progressive fallback search for the target pair.
// Levels are tried most to least specific, never skipping one; the
// first bucket of at least minCohortSize members wins. When every level
// is exhausted the fixed default rates apply.
func (e *Estimator) Estimate(target *domain.Attribution) domain.RateEstimate {
	for _, level := range searchLevels {
		members := e.ctx.Members(KeyAtLevel(target, level))
		if len(members) < e.minCohortSize {
			continue
		}

		est := e.computeRates(members, target.ProductID)
		est.Accuracy = domain.AccuracyForLevel(level)
		est.CohortSize = len(members)
		if est.TrialConversionRate == 0 && est.TrialRefundRate == 0 && est.PurchaseRefundRate == 0 {
			e.ZeroRateCohorts[est.Accuracy]++
		}
		return est
	}

	return domain.DefaultRateEstimate(domain.AccuracyDefault)
}

// computeRates derives the three rates from the cohort's event
// histories, restricted to the target product.
func (e *Estimator) computeRates(members []*domain.Attribution, productID string) domain.RateEstimate {
	w := e.ctx.Windows()

	var trialsInWindow, matchedConversions int
	var conversionsEligible, conversionRefunds int
	var purchasesEligible, purchaseRefunds int

	for _, m := range members {
		events := e.ctx.EventsForUser(m.UserID)

		for i, ev := range events {
			if ev.ProductID != productID {
				continue
			}

			switch ev.Kind {
			case domain.EventTrialStarted:
				if !w.InTrialCohortWindow(m.CreditedDate) {
					continue
				}
				trialsInWindow++
				if hasLaterEvent(events, i, productID, domain.EventTrialConverted) {
					matchedConversions++
				}

			case domain.EventTrialConverted:
				if !ev.EventTime.Before(w.TrialRefundCutoff) {
					continue
				}
				conversionsEligible++
				if hasRefundWithin(events, i, productID, w.RefundScanSpan) {
					conversionRefunds++
				}

			case domain.EventPurchase:
				if !ev.EventTime.Before(w.PurchaseRefundCutoff) {
					continue
				}
				purchasesEligible++
				if hasRefundWithin(events, i, productID, w.RefundScanSpan) {
					purchaseRefunds++
				}
			}
		}
	}

	return domain.RateEstimate{
		TrialConversionRate: safeRate(matchedConversions, trialsInWindow),
		TrialRefundRate:     safeRate(conversionRefunds, conversionsEligible),
		PurchaseRefundRate:  safeRate(purchaseRefunds, purchasesEligible),
	}
}

// hasLaterEvent reports whether a strictly-later event of the given
// kind on the same product exists. events must be time-sorted ASC.
func hasLaterEvent(events []*domain.LifecycleEvent, from int, productID string, kind domain.EventKind) bool {
	for _, ev := range events[from+1:] {
		if ev.ProductID == productID && ev.Kind == kind {
			return true
		}
	}
	return false
}

// hasRefundWithin reports whether a negative-revenue cancellation on
// the same product occurs within span of events[from]. The scan stops
// as soon as the window is exceeded; events must be time-sorted ASC.
func hasRefundWithin(events []*domain.LifecycleEvent, from int, productID string, span time.Duration) bool {
	deadline := events[from].EventTime.Add(span)
	for _, ev := range events[from+1:] {
		if ev.EventTime.After(deadline) {
			return false
		}
		if ev.ProductID == productID && ev.IsRefund() {
			return true
		}
	}
	return false
}

// safeRate divides, clamping a zero denominator to 0.0 rather than
// erroring.
func safeRate(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
