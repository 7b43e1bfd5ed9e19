package cohort

import (
	"fmt"
	"math"
	"testing"
	"time"

	"ad-metrics-pipeline/internal/domain"
)

var testNow = time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

// makeMember builds a cohort-eligible attribution credited 30 days back.
func makeMember(userID, region string) *domain.Attribution {
	return &domain.Attribution{
		UserID:       userID,
		ProductID:    "premium_monthly",
		CreditedDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		PriceBucket:  "p25",
		Store:        "app_store",
		EconomicTier: "tier1",
		Country:      "US",
		Region:       region,
		Valid:        true,
	}
}

func makeEvent(userID string, kind domain.EventKind, at time.Time, revenue float64) *domain.LifecycleEvent {
	return &domain.LifecycleEvent{
		UserID:    userID,
		ProductID: "premium_monthly",
		Kind:      kind,
		EventTime: at,
		Revenue:   revenue,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEstimate_FallsBackToBroaderLevel(t *testing.T) {
	windows := domain.NewRunWindows(testNow)
	trialAt := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	// 8 members in region CA, 7 in region NY. Neither region alone
	// reaches the minimum of 12; the country-level cohort of 15 does.
	var attrs []*domain.Attribution
	var events []*domain.LifecycleEvent
	for i := 0; i < 8; i++ {
		u := fmt.Sprintf("ca_%02d", i)
		attrs = append(attrs, makeMember(u, "CA"))
		events = append(events, makeEvent(u, domain.EventTrialStarted, trialAt, 0))
	}
	for i := 0; i < 7; i++ {
		u := fmt.Sprintf("ny_%02d", i)
		attrs = append(attrs, makeMember(u, "NY"))
		events = append(events, makeEvent(u, domain.EventTrialStarted, trialAt, 0))
	}
	// 5 of the 15 convert.
	for i := 0; i < 5; i++ {
		u := fmt.Sprintf("ca_%02d", i)
		events = append(events, makeEvent(u, domain.EventTrialConverted, trialAt.AddDate(0, 0, 7), 24.99))
	}

	ctx := BuildContext(windows, attrs, events)
	est := NewEstimator(ctx, 0)

	got := est.Estimate(attrs[0])
	if got.Accuracy != domain.AccuracyHigh {
		t.Fatalf("accuracy = %q, want %q", got.Accuracy, domain.AccuracyHigh)
	}
	if got.CohortSize != 15 {
		t.Errorf("cohort size = %d, want 15", got.CohortSize)
	}
	if !almostEqual(got.TrialConversionRate, 5.0/15.0) {
		t.Errorf("trial conversion rate = %v, want %v", got.TrialConversionRate, 5.0/15.0)
	}
}

func TestEstimate_MostSpecificLevelWins(t *testing.T) {
	windows := domain.NewRunWindows(testNow)
	trialAt := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	var attrs []*domain.Attribution
	var events []*domain.LifecycleEvent
	for i := 0; i < 12; i++ {
		u := fmt.Sprintf("ca_%02d", i)
		attrs = append(attrs, makeMember(u, "CA"))
		events = append(events, makeEvent(u, domain.EventTrialStarted, trialAt, 0))
	}

	ctx := BuildContext(windows, attrs, events)
	est := NewEstimator(ctx, 0)

	got := est.Estimate(attrs[0])
	if got.Accuracy != domain.AccuracyVeryHigh {
		t.Fatalf("accuracy = %q, want %q", got.Accuracy, domain.AccuracyVeryHigh)
	}
}

func TestEstimate_DefaultWhenNoLevelQualifies(t *testing.T) {
	windows := domain.NewRunWindows(testNow)

	attrs := []*domain.Attribution{makeMember("solo", "CA")}
	ctx := BuildContext(windows, attrs, nil)
	est := NewEstimator(ctx, 0)

	got := est.Estimate(attrs[0])
	want := domain.DefaultRateEstimate(domain.AccuracyDefault)
	if got != want {
		t.Fatalf("estimate = %+v, want fixed defaults %+v", got, want)
	}
}

func TestEstimate_TrialRefundWindow(t *testing.T) {
	windows := domain.NewRunWindows(testNow)

	// Conversions on 2025-06-01 are strictly before the trial refund
	// cutoff (now - 38d = 2025-06-07) and therefore refund-eligible.
	creditedDay := time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC)
	convertAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	var attrs []*domain.Attribution
	var events []*domain.LifecycleEvent
	for i := 0; i < 12; i++ {
		u := fmt.Sprintf("u_%02d", i)
		a := makeMember(u, "CA")
		a.CreditedDate = creditedDay
		attrs = append(attrs, a)
		events = append(events,
			makeEvent(u, domain.EventTrialStarted, creditedDay.Add(9*time.Hour), 0),
			makeEvent(u, domain.EventTrialConverted, convertAt, 24.99),
		)
	}
	// One refund inside the 30-day window, one just outside.
	events = append(events,
		makeEvent("u_00", domain.EventCancellation, convertAt.AddDate(0, 0, 29), -24.99),
		makeEvent("u_01", domain.EventCancellation, convertAt.AddDate(0, 0, 31), -24.99),
	)

	ctx := BuildContext(windows, attrs, events)
	est := NewEstimator(ctx, 0)

	got := est.Estimate(attrs[0])
	if !almostEqual(got.TrialRefundRate, 1.0/12.0) {
		t.Errorf("trial refund rate = %v, want %v", got.TrialRefundRate, 1.0/12.0)
	}
}

func TestEstimate_FreshConversionsExcludedFromRefundRate(t *testing.T) {
	windows := domain.NewRunWindows(testNow)
	trialAt := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	// Conversions after the cutoff have not had the full refund window
	// elapse; the denominator stays zero and the rate clamps to 0.
	var attrs []*domain.Attribution
	var events []*domain.LifecycleEvent
	for i := 0; i < 12; i++ {
		u := fmt.Sprintf("u_%02d", i)
		attrs = append(attrs, makeMember(u, "CA"))
		events = append(events,
			makeEvent(u, domain.EventTrialStarted, trialAt, 0),
			makeEvent(u, domain.EventTrialConverted, trialAt.AddDate(0, 0, 7), 24.99),
		)
	}

	ctx := BuildContext(windows, attrs, events)
	est := NewEstimator(ctx, 0)

	got := est.Estimate(attrs[0])
	if got.TrialRefundRate != 0 {
		t.Errorf("trial refund rate = %v, want 0 for post-cutoff conversions", got.TrialRefundRate)
	}
}

func TestEstimate_PurchaseRefundRate(t *testing.T) {
	windows := domain.NewRunWindows(testNow)
	// Purchases on 2025-06-10 are before the purchase refund cutoff
	// (now - 30d = 2025-06-15).
	purchaseAt := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

	var attrs []*domain.Attribution
	var events []*domain.LifecycleEvent
	for i := 0; i < 12; i++ {
		u := fmt.Sprintf("u_%02d", i)
		attrs = append(attrs, makeMember(u, "CA"))
		events = append(events, makeEvent(u, domain.EventPurchase, purchaseAt, 79.99))
	}
	for i := 0; i < 3; i++ {
		u := fmt.Sprintf("u_%02d", i)
		events = append(events, makeEvent(u, domain.EventCancellation, purchaseAt.AddDate(0, 0, 5), -79.99))
	}

	ctx := BuildContext(windows, attrs, events)
	est := NewEstimator(ctx, 0)

	got := est.Estimate(attrs[0])
	if !almostEqual(got.PurchaseRefundRate, 3.0/12.0) {
		t.Errorf("purchase refund rate = %v, want %v", got.PurchaseRefundRate, 3.0/12.0)
	}
}

func TestEstimate_OtherProductEventsIgnored(t *testing.T) {
	windows := domain.NewRunWindows(testNow)
	trialAt := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	var attrs []*domain.Attribution
	var events []*domain.LifecycleEvent
	for i := 0; i < 12; i++ {
		u := fmt.Sprintf("u_%02d", i)
		attrs = append(attrs, makeMember(u, "CA"))
		events = append(events, makeEvent(u, domain.EventTrialStarted, trialAt, 0))
		// Conversion on a different product must not count.
		other := makeEvent(u, domain.EventTrialConverted, trialAt.AddDate(0, 0, 7), 9.99)
		other.ProductID = "basic_monthly"
		events = append(events, other)
	}

	ctx := BuildContext(windows, attrs, events)
	est := NewEstimator(ctx, 0)

	got := est.Estimate(attrs[0])
	if got.TrialConversionRate != 0 {
		t.Errorf("trial conversion rate = %v, want 0 when conversions are cross-product", got.TrialConversionRate)
	}
}

func TestEstimate_ZeroRateCohortDiagnostic(t *testing.T) {
	windows := domain.NewRunWindows(testNow)

	// Adequate cohort size but no eligible events at all: rates are all
	// zero and used as-is, with the diagnostic counter bumped.
	var attrs []*domain.Attribution
	for i := 0; i < 12; i++ {
		attrs = append(attrs, makeMember(fmt.Sprintf("u_%02d", i), "CA"))
	}

	ctx := BuildContext(windows, attrs, nil)
	est := NewEstimator(ctx, 0)

	got := est.Estimate(attrs[0])
	if got.TrialConversionRate != 0 || got.TrialRefundRate != 0 || got.PurchaseRefundRate != 0 {
		t.Fatalf("expected all-zero rates, got %+v", got)
	}
	if got.Accuracy != domain.AccuracyVeryHigh {
		t.Errorf("accuracy = %q, want %q", got.Accuracy, domain.AccuracyVeryHigh)
	}
	if est.ZeroRateCohorts[domain.AccuracyVeryHigh] != 1 {
		t.Errorf("zero-rate diagnostic = %d, want 1", est.ZeroRateCohorts[domain.AccuracyVeryHigh])
	}
}

func TestBuildContext_ExcludesOutOfWindowAndInvalid(t *testing.T) {
	windows := domain.NewRunWindows(testNow)

	tooFresh := makeMember("fresh", "CA")
	tooFresh.CreditedDate = time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC) // after today-8d
	tooOld := makeMember("old", "CA")
	tooOld.CreditedDate = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) // before today-53d
	invalid := makeMember("invalid", "CA")
	invalid.Valid = false
	member := makeMember("member", "CA")

	ctx := BuildContext(windows, []*domain.Attribution{tooFresh, tooOld, invalid, member}, nil)

	got := ctx.Members(KeyAtLevel(member, domain.CohortLevelVeryHigh))
	if len(got) != 1 || got[0].UserID != "member" {
		t.Fatalf("cohort members = %v, want only the in-window valid member", got)
	}
}
