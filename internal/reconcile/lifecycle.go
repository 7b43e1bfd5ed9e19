package reconcile

import (
	"sort"

	"ad-metrics-pipeline/internal/domain"
)

// Subpopulations are the lifecycle-derived user subsets that drive the
// actual-rate denominators.
type Subpopulations struct {
	// PostTrialUsers have had at least TrialDecisionDays to convert,
	// evaluated against the run's today, not the row's date.
	PostTrialUsers []string

	// ConvertedUsers is the post-trial subset with a TrialConverted
	// event on the attributed product.
	ConvertedUsers []string

	// TrialRefundUsers is the converted subset with a subsequent
	// negative-revenue cancellation.
	TrialRefundUsers []string

	// PurchaseRefundUsers is the purchase-user subset with a subsequent
	// negative-revenue cancellation.
	PurchaseRefundUsers []string
}

// SortEventsByUser groups events per user, each list sorted by event
// time ASC.
func SortEventsByUser(events []*domain.LifecycleEvent) map[string][]*domain.LifecycleEvent {
	byUser := make(map[string][]*domain.LifecycleEvent)
	for _, e := range events {
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}
	for _, list := range byUser {
		sort.Slice(list, func(i, j int) bool {
			return list[i].EventTime.Before(list[j].EventTime)
		})
	}
	return byUser
}

// deriveSubpopulations computes the four subsets for one entity/day row.
func (r *Reconciler) deriveSubpopulations(trialUsers, purchaseUsers []string, attrs map[string]*domain.Attribution) Subpopulations {
	var sub Subpopulations

	for _, userID := range trialUsers {
		a, ok := attrs[userID]
		if !ok {
			continue
		}
		events := r.events[userID]

		started, startIdx := latestEventIndex(events, a.ProductID, domain.EventTrialStarted)
		if !started || events[startIdx].Day().After(r.windows.PostTrialCutoff) {
			continue
		}
		sub.PostTrialUsers = append(sub.PostTrialUsers, userID)

		convIdx := firstEventAfter(events, -1, a.ProductID, domain.EventTrialConverted)
		if convIdx < 0 {
			continue
		}
		sub.ConvertedUsers = append(sub.ConvertedUsers, userID)

		if hasRefundAfter(events, convIdx, a.ProductID) {
			sub.TrialRefundUsers = append(sub.TrialRefundUsers, userID)
		}
	}

	for _, userID := range purchaseUsers {
		a, ok := attrs[userID]
		if !ok {
			continue
		}
		events := r.events[userID]
		found, purchaseIdx := latestEventIndex(events, a.ProductID, domain.EventPurchase)
		if !found {
			continue
		}
		if hasRefundAfter(events, purchaseIdx, a.ProductID) {
			sub.PurchaseRefundUsers = append(sub.PurchaseRefundUsers, userID)
		}
	}

	return sub
}

// latestEventIndex finds the last event of the given kind on the
// product. events must be time-sorted ASC.
func latestEventIndex(events []*domain.LifecycleEvent, productID string, kind domain.EventKind) (bool, int) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].ProductID == productID && events[i].Kind == kind {
			return true, i
		}
	}
	return false, -1
}

// firstEventAfter finds the first strictly-later event of the given
// kind on the product, -1 when none exists.
func firstEventAfter(events []*domain.LifecycleEvent, from int, productID string, kind domain.EventKind) int {
	for i := from + 1; i < len(events); i++ {
		if events[i].ProductID == productID && events[i].Kind == kind {
			return i
		}
	}
	return -1
}

// hasRefundAfter reports whether a negative-revenue cancellation on the
// product occurs strictly after events[from].
func hasRefundAfter(events []*domain.LifecycleEvent, from int, productID string) bool {
	for i := from + 1; i < len(events); i++ {
		if events[i].ProductID == productID && events[i].IsRefund() {
			return true
		}
	}
	return false
}
