package memory

import (
	"context"
	"testing"
	"time"

	"ad-metrics-pipeline/internal/domain"
)

func TestEventStore_ListForUsersOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	events := []*domain.LifecycleEvent{
		{UserID: "u1", ProductID: "p", Kind: domain.EventTrialConverted, EventTime: base.AddDate(0, 0, 7)},
		{UserID: "u1", ProductID: "p", Kind: domain.EventTrialStarted, EventTime: base},
		{UserID: "u2", ProductID: "p", Kind: domain.EventPurchase, EventTime: base.AddDate(0, 0, 3)},
		{UserID: "other", ProductID: "p", Kind: domain.EventTrialStarted, EventTime: base},
	}
	if err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.ListForUsers(ctx, []string{"u1", "u2"}, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].EventTime.Before(got[i-1].EventTime) {
			t.Fatal("events not ordered by event_time ASC")
		}
	}

	trials, err := store.ListForUsers(ctx, []string{"u1", "u2"}, []domain.EventKind{domain.EventTrialStarted})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(trials) != 1 || trials[0].Kind != domain.EventTrialStarted {
		t.Fatalf("kind filter returned %d events, want 1 trial start", len(trials))
	}
}

func TestEventStore_InsertCopiesInput(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()

	ev := &domain.LifecycleEvent{
		UserID: "u1", ProductID: "p",
		Kind: domain.EventPurchase, EventTime: time.Now(), Revenue: 10,
	}
	if err := store.InsertBulk(ctx, []*domain.LifecycleEvent{ev}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	ev.Revenue = 999

	got, err := store.ListForUsers(ctx, []string{"u1"}, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got[0].Revenue != 10 {
		t.Errorf("stored revenue = %v, want 10; caller mutation leaked in", got[0].Revenue)
	}
}
