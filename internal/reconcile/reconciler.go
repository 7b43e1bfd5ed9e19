// Package reconcile combines deduplicated analytics counts, cohort rate
// estimates and platform-reported metrics into reconciled daily rows.
package reconcile

import (
	"time"

	"ad-metrics-pipeline/internal/domain"
)

// Reconciler assembles EntityDailyMetric rows for one run. It owns no
// mutable state beyond the run's event histories; every Row call is
// independent.
type Reconciler struct {
	windows domain.RunWindows
	events  map[string][]*domain.LifecycleEvent // per user, time-sorted ASC
}

// New creates a reconciler. events must be grouped per user and
// time-sorted ASC (see SortEventsByUser).
func New(windows domain.RunWindows, events map[string][]*domain.LifecycleEvent) *Reconciler {
	return &Reconciler{windows: windows, events: events}
}

// RowInput is everything one reconciled row is derived from.
type RowInput struct {
	EntityType     domain.EntityType
	EntityID       string
	Day            time.Time
	BreakdownType  domain.BreakdownType
	BreakdownValue string

	// Deduplicated user sets for this entity/day.
	TrialUsers    []string
	PurchaseUsers []string

	// Attrs maps user id to the eligible attribution for this entity
	// type (and breakdown slice, when fanning out).
	Attrs map[string]*domain.Attribution

	// Platform is the matching platform row; nil when the platform
	// dataset has no row for this entity/day, which yields zeros, not
	// a missing output row.
	Platform *domain.PlatformMetric

	// EstimatedRevenue is the naive trial-side estimate for the day.
	EstimatedRevenue float64
}

// Row builds one reconciled row. Every denominator is clamped: division
// by zero yields 0, never an error, NaN or infinity.
func (r *Reconciler) Row(in RowInput) *domain.EntityDailyMetric {
	row := &domain.EntityDailyMetric{
		EntityType:     in.EntityType,
		EntityID:       in.EntityID,
		Date:           domain.DayOf(in.Day),
		BreakdownType:  in.BreakdownType,
		BreakdownValue: in.BreakdownValue,

		TrialUserCount:    len(in.TrialUsers),
		PurchaseUserCount: len(in.PurchaseUsers),
		TrialUserIDs:      in.TrialUsers,
		PurchaseUserIDs:   in.PurchaseUsers,

		EstimatedRevenue: in.EstimatedRevenue,
	}

	if in.Platform != nil {
		row.Spend = in.Platform.Spend
		row.Impressions = in.Platform.Impressions
		row.Clicks = in.Platform.Clicks
		row.PlatformTrialCount = in.Platform.TrialCount
		row.PlatformPurchaseCount = in.Platform.PurchaseCount
	}

	sub := r.deriveSubpopulations(in.TrialUsers, in.PurchaseUsers, in.Attrs)
	row.PostTrialUserCount = len(sub.PostTrialUsers)
	row.ConvertedUserCount = len(sub.ConvertedUsers)
	row.TrialRefundUserCount = len(sub.TrialRefundUsers)
	row.PurchaseRefundUserCount = len(sub.PurchaseRefundUsers)

	// Estimated rates: mean of each user's own cohort-derived rate.
	row.TrialConversionRateEstimated = meanRate(in.TrialUsers, in.Attrs, func(a *domain.Attribution) *float64 { return a.TrialConversionRate })
	row.TrialRefundRateEstimated = meanRate(sub.ConvertedUsers, in.Attrs, func(a *domain.Attribution) *float64 { return a.TrialRefundRate })
	row.PurchaseRefundRateEstimated = meanRate(in.PurchaseUsers, in.Attrs, func(a *domain.Attribution) *float64 { return a.PurchaseRefundRate })

	// Actual rates from observed sub-population sizes.
	row.TrialConversionRateActual = safeRatio(float64(len(sub.ConvertedUsers)), float64(len(sub.PostTrialUsers)))
	row.TrialRefundRateActual = safeRatio(float64(len(sub.TrialRefundUsers)), float64(len(sub.ConvertedUsers)))
	row.PurchaseRefundRateActual = safeRatio(float64(len(sub.PurchaseRefundUsers)), float64(len(in.PurchaseUsers)))

	// Accuracy: analytics-side count over platform-reported count. The
	// larger analytics population is trusted as the better proxy.
	row.TrialAccuracyRatio = safeRatio(float64(row.TrialUserCount), float64(row.PlatformTrialCount)) * 100
	row.PurchaseAccuracyRatio = safeRatio(float64(row.PurchaseUserCount), float64(row.PlatformPurchaseCount)) * 100
	if row.TrialUserCount >= row.PurchaseUserCount {
		row.PrimaryAccuracyRatio = row.TrialAccuracyRatio
	} else {
		row.PrimaryAccuracyRatio = row.PurchaseAccuracyRatio
	}

	// A zero accuracy ratio means "no adjustment", not infinite revenue.
	row.AdjustedEstimatedRevenue = row.EstimatedRevenue
	if row.PrimaryAccuracyRatio > 0 {
		row.AdjustedEstimatedRevenue = row.EstimatedRevenue / (row.PrimaryAccuracyRatio / 100)
	}

	row.ActualRevenue, row.ActualRefunds = r.actualRevenue(in.TrialUsers, in.PurchaseUsers, in.Attrs)
	row.NetActualRevenue = row.ActualRevenue - row.ActualRefunds

	row.Profit = row.AdjustedEstimatedRevenue - row.Spend
	row.EstimatedROAS = safeRatio(row.AdjustedEstimatedRevenue, row.Spend)

	row.CostPerTrial = safeRatio(row.Spend, float64(row.TrialUserCount))
	row.CostPerPurchase = safeRatio(row.Spend, float64(row.PurchaseUserCount))
	row.PlatformCostPerTrial = safeRatio(row.Spend, float64(row.PlatformTrialCount))
	row.PlatformCostPerPurchase = safeRatio(row.Spend, float64(row.PlatformPurchaseCount))
	row.ClickToTrialRate = safeRatio(float64(row.TrialUserCount), float64(row.Clicks))

	return row
}

// actualRevenue sums realized revenue from conversion and purchase
// events of the row's user set, and the absolute refunded amount from
// matching negative-revenue cancellations.
func (r *Reconciler) actualRevenue(trialUsers, purchaseUsers []string, attrs map[string]*domain.Attribution) (revenue, refunds float64) {
	seen := make(map[string]struct{}, len(trialUsers)+len(purchaseUsers))
	for _, lists := range [][]string{trialUsers, purchaseUsers} {
		for _, userID := range lists {
			if _, ok := seen[userID]; ok {
				continue
			}
			seen[userID] = struct{}{}

			a, ok := attrs[userID]
			if !ok {
				continue
			}
			for _, ev := range r.events[userID] {
				if ev.ProductID != a.ProductID {
					continue
				}
				switch {
				case ev.Kind == domain.EventPurchase || ev.Kind == domain.EventTrialConverted:
					revenue += ev.Revenue
				case ev.IsRefund():
					refunds += -ev.Revenue
				}
			}
		}
	}
	return revenue, refunds
}

// meanRate averages a rate field over the users that have it assigned.
func meanRate(userIDs []string, attrs map[string]*domain.Attribution, field func(*domain.Attribution) *float64) float64 {
	var sum float64
	var n int
	for _, userID := range userIDs {
		a, ok := attrs[userID]
		if !ok {
			continue
		}
		if rate := field(a); rate != nil {
			sum += *rate
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// safeRatio divides, clamping a zero denominator to 0.0.
func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
