package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/storage/memory"
)

func seedRows(t *testing.T, store *memory.DailyMetricStore) {
	t.Helper()
	day := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	rows := []*domain.EntityDailyMetric{
		{
			EntityType: domain.EntityCampaign, EntityID: "cmp_1", Date: day,
			Spend: 100, TrialUserCount: 10, PurchaseUserCount: 2,
			AdjustedEstimatedRevenue: 250, NetActualRevenue: 40,
			Profit: 150, PrimaryAccuracyRatio: 90,
		},
		{
			EntityType: domain.EntityCampaign, EntityID: "cmp_2", Date: day,
			Spend: 50, TrialUserCount: 4,
			AdjustedEstimatedRevenue: 25, PrimaryAccuracyRatio: 110,
		},
	}
	if err := store.ReplaceAll(context.Background(), domain.EntityCampaign, rows); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestGenerate_SummarizesByEntityType(t *testing.T) {
	store := memory.NewDailyMetricStore()
	seedRows(t, store)

	fixed := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	gen := NewGenerator(store).WithClock(func() time.Time { return fixed })

	report, err := gen.Generate(context.Background(),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("generated at = %v, want fixed clock", report.GeneratedAt)
	}

	var campaign *EntitySummaryRow
	for i := range report.EntitySummaries {
		if report.EntitySummaries[i].EntityType == "campaign" {
			campaign = &report.EntitySummaries[i]
		}
	}
	if campaign == nil {
		t.Fatal("no campaign summary")
	}
	if campaign.Rows != 2 || campaign.Entities != 2 {
		t.Errorf("rows/entities = %d/%d, want 2/2", campaign.Rows, campaign.Entities)
	}
	if campaign.Spend != 150 {
		t.Errorf("spend = %v, want 150", campaign.Spend)
	}
	if got, want := campaign.BlendedROAS, 275.0/150.0; got != want {
		t.Errorf("blended roas = %v, want %v", got, want)
	}
	if campaign.MeanPrimaryAccPct != 100 {
		t.Errorf("mean accuracy = %v, want 100", campaign.MeanPrimaryAccPct)
	}

	if len(report.TopEntities) != 2 || report.TopEntities[0].EntityID != "cmp_1" {
		t.Errorf("top entities not ranked by spend: %+v", report.TopEntities)
	}
}

func TestRenderMarkdown_IncludesTables(t *testing.T) {
	store := memory.NewDailyMetricStore()
	seedRows(t, store)

	report, err := NewGenerator(store).Generate(context.Background(),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Ad Performance Summary",
		"## Totals by Entity Type",
		"## Top Entities by Spend",
		"cmp_1",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	day := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	rows := []*domain.EntityDailyMetric{
		{
			EntityType: domain.EntityCampaign, EntityID: "cmp_1", Date: day,
			Spend: 100.5, TrialUserCount: 10,
		},
	}

	out := RenderCSV(rows)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want header + 1 row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "entity_type,entity_id,date,") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "campaign,cmp_1,2025-06-20,100.50") {
		t.Errorf("unexpected row: %s", lines[1])
	}
}
