package reporting

import (
	"fmt"
	"strings"
	"time"

	"ad-metrics-pipeline/internal/domain"
)

// RenderMarkdown renders the run summary as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Ad Performance Summary\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Window: %s to %s\n\n", domain.DayKey(r.From), domain.DayKey(r.To)))

	// Entity type summaries
	sb.WriteString("## Totals by Entity Type\n\n")
	if len(r.EntitySummaries) > 0 {
		sb.WriteString("| Entity Type | Rows | Entities | Spend | Trials | Purchases | Adj Revenue | Net Actual | ROAS | Accuracy% |\n")
		sb.WriteString("|-------------|------|----------|-------|--------|-----------|-------------|------------|------|----------|\n")
		for _, s := range r.EntitySummaries {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f | %d | %d | %.2f | %.2f | %.2f | %.1f |\n",
				s.EntityType, s.Rows, s.Entities, s.Spend,
				s.TrialUsers, s.PurchaseUsers,
				s.AdjustedRevenue, s.NetActualRevenue,
				s.BlendedROAS, s.MeanPrimaryAccPct))
		}
	} else {
		sb.WriteString("No reconciled rows in the window.\n")
	}
	sb.WriteString("\n")

	// Top entities
	sb.WriteString("## Top Entities by Spend\n\n")
	if len(r.TopEntities) > 0 {
		sb.WriteString("| Entity Type | Entity | Spend | Trials | Purchases | Adj Revenue | Profit | ROAS |\n")
		sb.WriteString("|-------------|--------|-------|--------|-----------|-------------|--------|------|\n")
		for _, e := range r.TopEntities {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %d | %d | %.2f | %.2f | %.2f |\n",
				e.EntityType, e.EntityID, e.Spend,
				e.TrialUsers, e.PurchaseUsers,
				e.AdjustedRevenue, e.Profit, e.ROAS))
		}
	} else {
		sb.WriteString("No entity performance data available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
