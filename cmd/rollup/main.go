// Package main runs the full recompute against the real databases.
// Reads from Postgres, writes reconciled rows to ClickHouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ad-metrics-pipeline/internal/config"
	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/observability"
	"ad-metrics-pipeline/internal/rollup"
	"ad-metrics-pipeline/internal/storage/clickhouse"
	"ad-metrics-pipeline/internal/storage/migrations"
	"ad-metrics-pipeline/internal/storage/postgres"
)

func main() {
	entityTypesFlag := flag.String("entity-types", "", "Comma-separated entity types to process (default: all)")
	asOf := flag.String("as-of", "", "Run clock override, RFC3339 (default: now)")
	skipBreakdowns := flag.Bool("skip-breakdowns", false, "Skip the country/region fan-out")
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

	entityTypes, err := parseEntityTypes(*entityTypesFlag)
	if err != nil {
		logger.Fatal("invalid -entity-types", zap.Error(err))
	}

	clock := time.Now
	if *asOf != "" {
		t, err := time.Parse(time.RFC3339, *asOf)
		if err != nil {
			logger.Fatal("invalid -as-of", zap.Error(err))
		}
		clock = func() time.Time { return t }
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Rollup.RunTimeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn("received signal, cancelling run", zap.String("signal", sig.String()))
		cancel()
	}()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("rollup")
		go func() {
			logger.Info("metrics endpoint listening", zap.String("addr", cfg.Metrics.Addr))
			if err := http.ListenAndServe(cfg.Metrics.Addr, observability.Handler()); err != nil {
				logger.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN())
	if err != nil {
		logger.Fatal("postgres connect failed", zap.Error(err))
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatal("postgres migrations failed", zap.Error(err))
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.Clickhouse.DSN)
	if err != nil {
		logger.Fatal("clickhouse migrations failed", zap.Error(err))
	}
	defer chConn.Close()

	runner := rollup.NewRunner(rollup.Options{
		EventStore:       postgres.NewEventStore(pool),
		AttributionStore: postgres.NewAttributionStore(pool),
		PlatformStore:    postgres.NewPlatformMetricStore(pool),
		DailyMetricStore: clickhouse.NewDailyMetricStore(chConn),
		EntityTypes:      entityTypes,
		MinCohortSize:    cfg.Rollup.MinCohortSize,
		SkipBreakdowns:   *skipBreakdowns,
		Clock:            clock,
		Logger:           logger,
		Metrics:          metrics,
	})

	result, err := runner.Run(ctx)
	if err != nil {
		logger.Fatal("rollup run failed", zap.Error(err))
	}
	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			logger.Error("run error", zap.String("error", msg))
		}
		os.Exit(1)
	}
}

// parseEntityTypes validates the -entity-types flag value.
func parseEntityTypes(value string) ([]domain.EntityType, error) {
	if value == "" {
		return nil, nil
	}
	var out []domain.EntityType
	for _, part := range strings.Split(value, ",") {
		t := domain.EntityType(strings.TrimSpace(part))
		switch t {
		case domain.EntityCampaign, domain.EntityAdset, domain.EntityAd:
			out = append(out, t)
		default:
			return nil, fmt.Errorf("unknown entity type %q", part)
		}
	}
	return out, nil
}
