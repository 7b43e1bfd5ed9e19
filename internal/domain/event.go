package domain

import "time"

// EventKind identifies a user lifecycle event type.
type EventKind string

// Lifecycle event kinds as recorded by the product-analytics ingestion.
const (
	EventTrialStarted   EventKind = "TRIAL_STARTED"
	EventTrialConverted EventKind = "TRIAL_CONVERTED"
	EventPurchase       EventKind = "PURCHASE"
	EventCancellation   EventKind = "CANCELLATION"
)

// LifecycleEvent is an immutable product-analytics fact. Events are
// ordered per user by EventTime; every forward-scan rule in the rate
// math depends on that order.
type LifecycleEvent struct {
	UserID    string
	ProductID string
	Kind      EventKind
	EventTime time.Time // UTC instant
	Revenue   float64   // signed; negative on a Cancellation indicates a refund
}

// IsRefund reports whether the event is a refund (a Cancellation
// carrying negative revenue).
func (e *LifecycleEvent) IsRefund() bool {
	return e.Kind == EventCancellation && e.Revenue < 0
}

// Day returns the UTC calendar day the event falls on.
func (e *LifecycleEvent) Day() time.Time {
	return DayOf(e.EventTime)
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKeyLayout is the canonical YYYY-MM-DD day-key format.
const DayKeyLayout = "2006-01-02"

// DayKey formats a UTC calendar day as YYYY-MM-DD, the canonical map
// key for per-day grouping.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}
