package reporting

import (
	"fmt"
	"strings"

	"ad-metrics-pipeline/internal/domain"
)

// RenderCSV renders reconciled daily rows as a CSV string.
func RenderCSV(rows []*domain.EntityDailyMetric) string {
	var sb strings.Builder

	// Header
	sb.WriteString("entity_type,entity_id,date,spend,clicks,platform_trials,platform_purchases,")
	sb.WriteString("trial_users,purchase_users,trial_conversion_rate_est,trial_conversion_rate_actual,")
	sb.WriteString("primary_accuracy_ratio,estimated_revenue,adjusted_estimated_revenue,")
	sb.WriteString("net_actual_revenue,profit,estimated_roas\n")

	// Rows
	for _, m := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.2f,%d,%d,%d,%d,%d,%.6f,%.6f,%.2f,%.2f,%.2f,%.2f,%.2f,%.4f\n",
			m.EntityType,
			m.EntityID,
			domain.DayKey(m.Date),
			m.Spend,
			m.Clicks,
			m.PlatformTrialCount,
			m.PlatformPurchaseCount,
			m.TrialUserCount,
			m.PurchaseUserCount,
			m.TrialConversionRateEstimated,
			m.TrialConversionRateActual,
			m.PrimaryAccuracyRatio,
			m.EstimatedRevenue,
			m.AdjustedEstimatedRevenue,
			m.NetActualRevenue,
			m.Profit,
			m.EstimatedROAS,
		))
	}

	return sb.String()
}
