// Package main generates a Markdown/CSV summary of the reconciled
// output tables in ClickHouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"ad-metrics-pipeline/internal/config"
	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/observability"
	"ad-metrics-pipeline/internal/reporting"
	"ad-metrics-pipeline/internal/storage/clickhouse"
)

func main() {
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	days := flag.Int("days", domain.AnalysisHorizonDays, "Report window width in days, ending today")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	conn, err := clickhouse.NewConn(ctx, cfg.Clickhouse.DSN)
	if err != nil {
		logger.Fatal("clickhouse connect failed", zap.Error(err))
	}
	defer conn.Close()

	store := clickhouse.NewDailyMetricStore(conn)

	to := domain.DayOf(time.Now())
	from := to.AddDate(0, 0, -*days)

	report, err := reporting.NewGenerator(store).Generate(ctx, from, to)
	if err != nil {
		logger.Fatal("report generation failed", zap.Error(err))
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatal("create output dir failed", zap.Error(err))
	}

	mdPath := filepath.Join(*outputDir, "summary.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		logger.Fatal("write markdown failed", zap.Error(err))
	}

	var rows []*domain.EntityDailyMetric
	for _, entityType := range domain.AllEntityTypes {
		list, err := store.ListForRange(ctx, entityType, from, to)
		if err != nil {
			logger.Fatal("list daily metrics failed", zap.Error(err))
		}
		rows = append(rows, list...)
	}
	csvPath := filepath.Join(*outputDir, "daily_metrics.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(rows)), 0o644); err != nil {
		logger.Fatal("write csv failed", zap.Error(err))
	}

	logger.Info("report written",
		zap.String("markdown", mdPath),
		zap.String("csv", csvPath),
		zap.Int("rows", len(rows)))
}
