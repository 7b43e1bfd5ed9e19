// Package config loads pipeline configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the rollup pipeline.
type Config struct {
	Env        string
	Postgres   PostgresConfig
	Clickhouse ClickhouseConfig
	Rollup     RollupConfig
	Log        LogConfig
	Metrics    MetricsConfig
}

// PostgresConfig describes the read-side database.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the PostgreSQL connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// ClickhouseConfig describes the output database.
type ClickhouseConfig struct {
	DSN string
}

// RollupConfig holds run parameters.
type RollupConfig struct {
	// AnalysisDays is the recompute window width.
	AnalysisDays int
	// MinCohortSize gates cohort specificity levels.
	MinCohortSize int
	// RunTimeout bounds one full recompute run.
	RunTimeout time.Duration
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	// Missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("ROLLUP_ENV", "development"),
		Postgres: PostgresConfig{
			Host:     getEnv("ROLLUP_PG_HOST", "localhost"),
			Port:     getIntEnv("ROLLUP_PG_PORT", 5432),
			User:     getEnv("ROLLUP_PG_USER", "rollup"),
			Password: getEnv("ROLLUP_PG_PASSWORD", ""),
			DBName:   getEnv("ROLLUP_PG_DBNAME", "rollup"),
			SSLMode:  getEnv("ROLLUP_PG_SSLMODE", "disable"),
		},
		Clickhouse: ClickhouseConfig{
			DSN: getEnv("ROLLUP_CLICKHOUSE_DSN", "clickhouse://default@localhost:9000/rollup"),
		},
		Rollup: RollupConfig{
			AnalysisDays:  getIntEnv("ROLLUP_ANALYSIS_DAYS", 45),
			MinCohortSize: getIntEnv("ROLLUP_MIN_COHORT_SIZE", 12),
			RunTimeout:    getDurationEnv("ROLLUP_RUN_TIMEOUT", 30*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("ROLLUP_LOG_LEVEL", "info"),
			Format: getEnv("ROLLUP_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("ROLLUP_METRICS_ENABLED", false),
			Addr:    getEnv("ROLLUP_METRICS_ADDR", ":9090"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that configuration is coherent.
func (c *Config) Validate() error {
	if c.Rollup.AnalysisDays <= 0 {
		return fmt.Errorf("ROLLUP_ANALYSIS_DAYS must be positive, got %d", c.Rollup.AnalysisDays)
	}
	if c.Rollup.MinCohortSize <= 0 {
		return fmt.Errorf("ROLLUP_MIN_COHORT_SIZE must be positive, got %d", c.Rollup.MinCohortSize)
	}
	if c.Rollup.RunTimeout <= 0 {
		return fmt.Errorf("ROLLUP_RUN_TIMEOUT must be positive, got %s", c.Rollup.RunTimeout)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
