package domain

import "time"

// Window geometry in days. Centralized here so every component receives
// the same boundaries instead of re-deriving them.
const (
	// AnalysisHorizonDays is the width of the recompute window.
	AnalysisHorizonDays = 45

	// TrialDecisionDays is how long a trial user gets before they are
	// counted as having had a chance to convert.
	TrialDecisionDays = 7

	// CohortDecisionOffsetDays excludes attributions too fresh to have
	// reached the trial-decision point from cohort membership.
	CohortDecisionOffsetDays = 8

	// CohortFreshnessDays bounds how old a cohort member may be.
	CohortFreshnessDays = 53

	// RefundWindowDays is the refund-eligibility span scanned forward
	// from a conversion or purchase event.
	RefundWindowDays = 30

	// TrialRefundCutoffDays guarantees a conversion has had the full
	// refund window elapse, with safety margin, before it is counted as
	// refund-eligible.
	TrialRefundCutoffDays = 38

	// PurchaseRefundCutoffDays is the purchase-side analog.
	PurchaseRefundCutoffDays = 30
)

// RunWindows holds every date boundary one run computes against. Built
// once from the run clock and passed into every component; the post-trial
// cutoff is deliberately anchored to the run's "today", not to each
// historical row's date.
type RunWindows struct {
	Now   time.Time
	Today time.Time // UTC midnight of Now

	// AnalysisStart..Today is the recompute window.
	AnalysisStart time.Time

	// TrialCohortStart..TrialCohortEnd bounds cohort membership by
	// credited date: [today-53d, today-8d].
	TrialCohortStart time.Time
	TrialCohortEnd   time.Time

	// TrialRefundCutoff: conversions strictly before it are
	// refund-eligible. PurchaseRefundCutoff is the purchase analog.
	TrialRefundCutoff    time.Time
	PurchaseRefundCutoff time.Time

	// RefundScanSpan is how far forward a refund match is searched.
	RefundScanSpan time.Duration

	// PostTrialCutoff: trial starts on or before it have had
	// TrialDecisionDays to convert.
	PostTrialCutoff time.Time
}

// NewRunWindows derives all window boundaries from the run clock.
func NewRunWindows(now time.Time) RunWindows {
	today := DayOf(now)
	return RunWindows{
		Now:                  now.UTC(),
		Today:                today,
		AnalysisStart:        today.AddDate(0, 0, -AnalysisHorizonDays),
		TrialCohortStart:     today.AddDate(0, 0, -CohortFreshnessDays),
		TrialCohortEnd:       today.AddDate(0, 0, -CohortDecisionOffsetDays),
		TrialRefundCutoff:    now.UTC().AddDate(0, 0, -TrialRefundCutoffDays),
		PurchaseRefundCutoff: now.UTC().AddDate(0, 0, -PurchaseRefundCutoffDays),
		RefundScanSpan:       RefundWindowDays * 24 * time.Hour,
		PostTrialCutoff:      today.AddDate(0, 0, -TrialDecisionDays),
	}
}

// InTrialCohortWindow reports whether a credited date falls inside the
// cohort membership window (inclusive bounds).
func (w RunWindows) InTrialCohortWindow(creditedDate time.Time) bool {
	d := DayOf(creditedDate)
	return !d.Before(w.TrialCohortStart) && !d.After(w.TrialCohortEnd)
}

// InAnalysisWindow reports whether a calendar day falls inside the
// recompute window (inclusive bounds).
func (w RunWindows) InAnalysisWindow(day time.Time) bool {
	d := DayOf(day)
	return !d.Before(w.AnalysisStart) && !d.After(w.Today)
}
