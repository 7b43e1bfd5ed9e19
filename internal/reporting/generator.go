package reporting

import (
	"context"
	"sort"
	"time"

	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/storage"
)

// Generator produces reports from the reconciled output tables.
type Generator struct {
	store storage.DailyMetricStore
	now   func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator.
func NewGenerator(store storage.DailyMetricStore) *Generator {
	return &Generator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the run summary over [from, to] for all entity types.
func (g *Generator) Generate(ctx context.Context, from, to time.Time) (*Report, error) {
	report := &Report{
		GeneratedAt: g.now(),
		From:        domain.DayOf(from),
		To:          domain.DayOf(to),
	}

	var allRows []*domain.EntityDailyMetric
	for _, entityType := range domain.AllEntityTypes {
		rows, err := g.store.ListForRange(ctx, entityType, from, to)
		if err != nil {
			return nil, err
		}
		report.EntitySummaries = append(report.EntitySummaries, summarize(entityType, rows))
		allRows = append(allRows, rows...)
	}

	report.TopEntities = rankEntities(allRows)
	return report, nil
}

// summarize totals one entity type's rows.
func summarize(entityType domain.EntityType, rows []*domain.EntityDailyMetric) EntitySummaryRow {
	s := EntitySummaryRow{EntityType: string(entityType), Rows: len(rows)}

	entities := make(map[string]struct{})
	var accSum float64
	var accRows int
	for _, row := range rows {
		entities[row.EntityID] = struct{}{}
		s.Spend += row.Spend
		s.TrialUsers += row.TrialUserCount
		s.PurchaseUsers += row.PurchaseUserCount
		s.AdjustedRevenue += row.AdjustedEstimatedRevenue
		s.NetActualRevenue += row.NetActualRevenue
		if row.PrimaryAccuracyRatio > 0 {
			accSum += row.PrimaryAccuracyRatio
			accRows++
		}
	}
	s.Entities = len(entities)
	if s.Spend > 0 {
		s.BlendedROAS = s.AdjustedRevenue / s.Spend
	}
	if accRows > 0 {
		s.MeanPrimaryAccPct = accSum / float64(accRows)
	}
	return s
}

// rankEntities totals per entity and sorts by spend descending.
func rankEntities(rows []*domain.EntityDailyMetric) []EntityPerformanceRow {
	type key struct {
		EntityType string
		EntityID   string
	}
	totals := make(map[key]*EntityPerformanceRow)
	for _, row := range rows {
		k := key{EntityType: string(row.EntityType), EntityID: row.EntityID}
		t, ok := totals[k]
		if !ok {
			t = &EntityPerformanceRow{EntityType: k.EntityType, EntityID: k.EntityID}
			totals[k] = t
		}
		t.Spend += row.Spend
		t.TrialUsers += row.TrialUserCount
		t.PurchaseUsers += row.PurchaseUserCount
		t.AdjustedRevenue += row.AdjustedEstimatedRevenue
		t.Profit += row.Profit
	}

	out := make([]EntityPerformanceRow, 0, len(totals))
	for _, t := range totals {
		if t.Spend > 0 {
			t.ROAS = t.AdjustedRevenue / t.Spend
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spend != out[j].Spend {
			return out[i].Spend > out[j].Spend
		}
		if out[i].EntityType != out[j].EntityType {
			return out[i].EntityType < out[j].EntityType
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}
