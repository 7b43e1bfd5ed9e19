// Package dedup resolves multi-day event histories so each user is
// counted on exactly one calendar day per entity: the latest day in the
// window on which the event type is observed for that user.
package dedup

import (
	"sort"
	"time"

	"ad-metrics-pipeline/internal/domain"
)

// Deduplicator attributes trial and purchase users to days for one
// entity type. Attributions passed in must already be eligibility-
// filtered (valid, credited in window, non-empty entity id); the store
// query enforces that.
type Deduplicator struct {
	entityType domain.EntityType
	attrs      map[string]*domain.Attribution // by user id
}

// New creates a deduplicator over the eligible attributions.
func New(entityType domain.EntityType, attrs []*domain.Attribution) *Deduplicator {
	byUser := make(map[string]*domain.Attribution, len(attrs))
	for _, a := range attrs {
		if a.EntityID(entityType) == "" {
			continue
		}
		byUser[a.UserID] = a
	}
	return &Deduplicator{entityType: entityType, attrs: byUser}
}

// Result holds the exactly-once-counted user sets, keyed by entity id
// then day key (YYYY-MM-DD). Absent keys mean count 0; that is not an
// error.
type Result struct {
	TrialUsers    map[string]map[string][]string
	PurchaseUsers map[string]map[string][]string
}

// Run deduplicates TrialStarted and Purchase events within [from, to].
// A user with same-type events on multiple days in range lands only on
// the max date; the earlier days never see the user by construction.
func (d *Deduplicator) Run(events []*domain.LifecycleEvent, from, to time.Time) *Result {
	return &Result{
		TrialUsers:    d.latestDayUsers(events, domain.EventTrialStarted, from, to),
		PurchaseUsers: d.latestDayUsers(events, domain.EventPurchase, from, to),
	}
}

// latestDayUsers computes max event date per (entity, user) and inverts
// it to entity -> day -> sorted user list.
func (d *Deduplicator) latestDayUsers(events []*domain.LifecycleEvent, kind domain.EventKind, from, to time.Time) map[string]map[string][]string {
	fromDay, toDay := domain.DayOf(from), domain.DayOf(to)

	latest := make(map[string]map[string]time.Time) // entity -> user -> max day
	for _, e := range events {
		if e.Kind != kind {
			continue
		}
		a, ok := d.attrs[e.UserID]
		if !ok || e.ProductID != a.ProductID {
			continue
		}
		day := e.Day()
		if day.Before(fromDay) || day.After(toDay) {
			continue
		}
		entityID := a.EntityID(d.entityType)
		byUser, ok := latest[entityID]
		if !ok {
			byUser = make(map[string]time.Time)
			latest[entityID] = byUser
		}
		if cur, ok := byUser[e.UserID]; !ok || day.After(cur) {
			byUser[e.UserID] = day
		}
	}

	inverted := make(map[string]map[string][]string, len(latest))
	for entityID, byUser := range latest {
		byDay := make(map[string][]string)
		for userID, day := range byUser {
			key := domain.DayKey(day)
			byDay[key] = append(byDay[key], userID)
		}
		for _, users := range byDay {
			sort.Strings(users)
		}
		inverted[entityID] = byDay
	}
	return inverted
}

// EstimatedTrialRevenue sums the per-user estimated value over a day's
// trial users. Only trial-side revenue is estimated this way; purchase
// revenue is realized from actual events downstream.
func (d *Deduplicator) EstimatedTrialRevenue(r *Result, entityID string, dayKey string) float64 {
	var total float64
	for _, userID := range r.TrialUsers[entityID][dayKey] {
		if a, ok := d.attrs[userID]; ok {
			total += a.EstimatedValue
		}
	}
	return total
}

// Attribution returns the eligible attribution for a user, nil when the
// user is not attributed for this entity type.
func (d *Deduplicator) Attribution(userID string) *domain.Attribution {
	return d.attrs[userID]
}

// Attributions returns the user-keyed eligible attribution map.
func (d *Deduplicator) Attributions() map[string]*domain.Attribution {
	return d.attrs
}
