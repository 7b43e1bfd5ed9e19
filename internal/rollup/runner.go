// Package rollup provides end-to-end run orchestration.
// It coordinates: cohort rate estimation → dedup → reconciliation → persistence
package rollup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ad-metrics-pipeline/internal/cohort"
	"ad-metrics-pipeline/internal/dedup"
	"ad-metrics-pipeline/internal/domain"
	"ad-metrics-pipeline/internal/observability"
	"ad-metrics-pipeline/internal/reconcile"
	"ad-metrics-pipeline/internal/storage"
)

// Runner coordinates one full recompute run across entity types.
// Flow per entity type: load attributions → estimate rates → dedup →
// reconcile (main + breakdowns) → replace output rows.
type Runner struct {
	// Stores
	eventStore       storage.EventStore
	attributionStore storage.AttributionStore
	platformStore    storage.PlatformMetricStore
	dailyMetricStore storage.DailyMetricStore

	// Options
	entityTypes    []domain.EntityType
	minCohortSize  int
	skipBreakdowns bool
	clock          func() time.Time

	logger  *zap.Logger
	metrics *observability.Metrics
}

// Options for creating a Runner.
type Options struct {
	// Required stores
	EventStore       storage.EventStore
	AttributionStore storage.AttributionStore
	PlatformStore    storage.PlatformMetricStore
	DailyMetricStore storage.DailyMetricStore

	// EntityTypes to process; defaults to all three.
	EntityTypes []domain.EntityType

	// MinCohortSize gates cohort levels; <= 0 selects the default.
	MinCohortSize int

	// SkipBreakdowns disables the country/region fan-out.
	SkipBreakdowns bool

	// Clock supplies the run's "now"; defaults to time.Now. Fixed in
	// tests and fixture runs.
	Clock func() time.Time

	Logger  *zap.Logger
	Metrics *observability.Metrics // optional
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	entityTypes := opts.EntityTypes
	if len(entityTypes) == 0 {
		entityTypes = domain.AllEntityTypes
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		eventStore:       opts.EventStore,
		attributionStore: opts.AttributionStore,
		platformStore:    opts.PlatformStore,
		dailyMetricStore: opts.DailyMetricStore,
		entityTypes:      entityTypes,
		minCohortSize:    opts.MinCohortSize,
		skipBreakdowns:   opts.SkipBreakdowns,
		clock:            clock,
		logger:           logger,
		metrics:          opts.Metrics,
	}
}

// RunResult contains results from one run.
type RunResult struct {
	RunID   string
	Windows domain.RunWindows

	AttributionsRated int
	RowsWritten       int
	BreakdownRows     int
	CleanupDefaults   int

	// ZeroRateCohorts counts adequate-size cohorts that produced
	// all-zero rates, by accuracy label.
	ZeroRateCohorts map[domain.AccuracyLabel]int

	// Errors collects non-fatal per-entity failures; the run keeps
	// going past them.
	Errors []string
}

// Run executes the full recompute.
// Phases:
//  1. Build the cohort context (members + event histories)
//  2. Per entity type: estimate rates, dedup, reconcile, persist
//  3. Cleanup: default rates for valid attributions still missing them
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	windows := domain.NewRunWindows(r.clock())
	result := &RunResult{
		RunID:           uuid.NewString(),
		Windows:         windows,
		ZeroRateCohorts: make(map[domain.AccuracyLabel]int),
	}
	logger := r.logger.With(zap.String("run_id", result.RunID))

	logger.Info("starting rollup run",
		zap.Time("analysis_start", windows.AnalysisStart),
		zap.Time("today", windows.Today),
		zap.Int("entity_types", len(r.entityTypes)))

	cohortCtx, err := r.buildCohortContext(ctx, windows)
	if err != nil {
		return nil, fmt.Errorf("build cohort context: %w", err)
	}

	for _, entityType := range r.entityTypes {
		started := time.Now()
		if err := r.runEntityType(ctx, logger, windows, cohortCtx, entityType, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("entity type %s: %v", entityType, err))
			if r.metrics != nil {
				r.metrics.RunErrors.WithLabelValues(string(entityType)).Inc()
			}
			logger.Error("entity type pass failed", zap.String("entity_type", string(entityType)), zap.Error(err))
			continue
		}
		if r.metrics != nil {
			r.metrics.RunDuration.WithLabelValues(string(entityType)).Observe(time.Since(started).Seconds())
		}
	}

	cleaned, err := r.runCleanup(ctx)
	if err != nil {
		return nil, fmt.Errorf("cleanup pass: %w", err)
	}
	result.CleanupDefaults = cleaned

	logger.Info("rollup run completed",
		zap.Int("attributions_rated", result.AttributionsRated),
		zap.Int("rows_written", result.RowsWritten),
		zap.Int("breakdown_rows", result.BreakdownRows),
		zap.Int("cleanup_defaults", result.CleanupDefaults),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

// buildCohortContext loads cohort members and their event histories.
// The context spans entity types; one build serves the whole run.
func (r *Runner) buildCohortContext(ctx context.Context, windows domain.RunWindows) (*cohort.Context, error) {
	members, err := r.attributionStore.ListValidCreditedBetween(ctx, windows.TrialCohortStart, windows.TrialCohortEnd)
	if err != nil {
		return nil, fmt.Errorf("list cohort members: %w", err)
	}

	events, err := r.eventStore.ListForUsers(ctx, userIDs(members), nil)
	if err != nil {
		return nil, fmt.Errorf("list cohort events: %w", err)
	}

	return cohort.BuildContext(windows, members, events), nil
}

// runEntityType executes one entity-type pass end to end.
func (r *Runner) runEntityType(
	ctx context.Context,
	logger *zap.Logger,
	windows domain.RunWindows,
	cohortCtx *cohort.Context,
	entityType domain.EntityType,
	result *RunResult,
) error {
	log := logger.With(zap.String("entity_type", string(entityType)))

	attrs, err := r.attributionStore.ListValidForEntityType(ctx, entityType, windows.TrialCohortStart, windows.Today)
	if err != nil {
		return fmt.Errorf("list attributions: %w", err)
	}
	log.Info("loaded attributions", zap.Int("count", len(attrs)))
	if len(attrs) == 0 {
		return r.persist(ctx, log, entityType, nil, nil, result)
	}

	// Rate estimation. Rates are recomputed every run so cohort drift
	// shows up without a backfill.
	estimator := cohort.NewEstimator(cohortCtx, r.minCohortSize)
	for _, a := range attrs {
		est := estimator.Estimate(a)
		a.SetRates(est)
		if r.metrics != nil {
			r.metrics.RateEstimates.WithLabelValues(string(est.Accuracy)).Inc()
		}
	}
	if err := r.attributionStore.UpdateRates(ctx, attrs); err != nil {
		return fmt.Errorf("update rates: %w", err)
	}
	result.AttributionsRated += len(attrs)
	for label, n := range estimator.ZeroRateCohorts {
		result.ZeroRateCohorts[label] += n
		if r.metrics != nil {
			r.metrics.ZeroRateCohorts.WithLabelValues(string(label)).Add(float64(n))
		}
	}

	events, err := r.eventStore.ListForUsers(ctx, userIDs(attrs), nil)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	deduper := dedup.New(entityType, attrs)
	dedupResult := deduper.Run(events, windows.AnalysisStart, windows.Today)

	reconciler := reconcile.New(windows, reconcile.SortEventsByUser(events))

	mainRows, err := r.buildMainRows(ctx, windows, entityType, deduper, dedupResult, reconciler)
	if err != nil {
		return err
	}

	var breakdownRows []*domain.EntityDailyMetric
	if !r.skipBreakdowns {
		breakdownRows, err = r.buildBreakdownRows(ctx, windows, entityType, deduper, dedupResult, reconciler)
		if err != nil {
			return err
		}
	}

	return r.persist(ctx, log, entityType, mainRows, breakdownRows, result)
}

// buildMainRows reconciles the unsliced rows: the union of entity/day
// keys seen by dedup and by the platform dataset.
func (r *Runner) buildMainRows(
	ctx context.Context,
	windows domain.RunWindows,
	entityType domain.EntityType,
	deduper *dedup.Deduplicator,
	dedupResult *dedup.Result,
	reconciler *reconcile.Reconciler,
) ([]*domain.EntityDailyMetric, error) {
	platformRows, err := r.platformStore.ListForRange(ctx, entityType, windows.AnalysisStart, windows.Today, domain.BreakdownNone)
	if err != nil {
		return nil, fmt.Errorf("list platform metrics: %w", err)
	}

	platform := make(map[rowKey]*domain.PlatformMetric, len(platformRows))
	keys := make(map[rowKey]struct{})
	for _, p := range platformRows {
		k := rowKey{EntityID: p.EntityID, Day: domain.DayKey(p.Date)}
		platform[k] = p
		keys[k] = struct{}{}
	}
	collectKeys(keys, dedupResult.TrialUsers)
	collectKeys(keys, dedupResult.PurchaseUsers)

	attrs := deduper.Attributions()
	rows := make([]*domain.EntityDailyMetric, 0, len(keys))
	for _, k := range sortedKeys(keys) {
		day, err := time.Parse(domain.DayKeyLayout, k.Day)
		if err != nil {
			return nil, fmt.Errorf("parse day key %q: %w", k.Day, err)
		}
		rows = append(rows, reconciler.Row(reconcile.RowInput{
			EntityType:       entityType,
			EntityID:         k.EntityID,
			Day:              day,
			TrialUsers:       dedupResult.TrialUsers[k.EntityID][k.Day],
			PurchaseUsers:    dedupResult.PurchaseUsers[k.EntityID][k.Day],
			Attrs:            attrs,
			Platform:         platform[k],
			EstimatedRevenue: deduper.EstimatedTrialRevenue(dedupResult, k.EntityID, k.Day),
		}))
	}
	return rows, nil
}

// buildBreakdownRows fans the entity/day rows out by country and region.
// User sets are partitioned by the attribution's own property value; the
// platform breakdown rows are matched by the same value.
func (r *Runner) buildBreakdownRows(
	ctx context.Context,
	windows domain.RunWindows,
	entityType domain.EntityType,
	deduper *dedup.Deduplicator,
	dedupResult *dedup.Result,
	reconciler *reconcile.Reconciler,
) ([]*domain.EntityDailyMetric, error) {
	attrs := deduper.Attributions()
	var out []*domain.EntityDailyMetric

	for _, breakdownType := range domain.AllBreakdownTypes {
		if breakdownType == domain.BreakdownNone {
			continue
		}

		platformRows, err := r.platformStore.ListForRange(ctx, entityType, windows.AnalysisStart, windows.Today, breakdownType)
		if err != nil {
			return nil, fmt.Errorf("list platform %s breakdown: %w", breakdownType, err)
		}

		platform := make(map[breakdownKey]*domain.PlatformMetric, len(platformRows))
		keys := make(map[breakdownKey]struct{})
		for _, p := range platformRows {
			k := breakdownKey{EntityID: p.EntityID, Day: domain.DayKey(p.Date), Value: p.BreakdownValue}
			platform[k] = p
			keys[k] = struct{}{}
		}

		trialParts := partitionUsers(dedupResult.TrialUsers, attrs, breakdownType)
		purchaseParts := partitionUsers(dedupResult.PurchaseUsers, attrs, breakdownType)
		for k := range trialParts {
			keys[k] = struct{}{}
		}
		for k := range purchaseParts {
			keys[k] = struct{}{}
		}

		for _, k := range sortedBreakdownKeys(keys) {
			day, err := time.Parse(domain.DayKeyLayout, k.Day)
			if err != nil {
				return nil, fmt.Errorf("parse day key %q: %w", k.Day, err)
			}
			trialUsers := trialParts[k]
			out = append(out, reconciler.Row(reconcile.RowInput{
				EntityType:       entityType,
				EntityID:         k.EntityID,
				Day:              day,
				BreakdownType:    breakdownType,
				BreakdownValue:   k.Value,
				TrialUsers:       trialUsers,
				PurchaseUsers:    purchaseParts[k],
				Attrs:            attrs,
				Platform:         platform[k],
				EstimatedRevenue: estimatedValueSum(trialUsers, attrs),
			}))
		}
	}
	return out, nil
}

// persist replaces the output tables for the recomputed scope.
func (r *Runner) persist(
	ctx context.Context,
	log *zap.Logger,
	entityType domain.EntityType,
	mainRows, breakdownRows []*domain.EntityDailyMetric,
	result *RunResult,
) error {
	if err := r.dailyMetricStore.ReplaceAll(ctx, entityType, mainRows); err != nil {
		return fmt.Errorf("replace daily metrics: %w", err)
	}
	result.RowsWritten += len(mainRows)
	if r.metrics != nil {
		r.metrics.RowsWritten.WithLabelValues("main", string(entityType)).Add(float64(len(mainRows)))
	}

	if !r.skipBreakdowns {
		byType := make(map[domain.BreakdownType][]*domain.EntityDailyMetric)
		for _, row := range breakdownRows {
			byType[row.BreakdownType] = append(byType[row.BreakdownType], row)
		}
		for _, breakdownType := range domain.AllBreakdownTypes {
			if breakdownType == domain.BreakdownNone {
				continue
			}
			rows := byType[breakdownType]
			if err := r.dailyMetricStore.ReplaceAllBreakdown(ctx, entityType, breakdownType, rows); err != nil {
				return fmt.Errorf("replace %s breakdown: %w", breakdownType, err)
			}
			result.BreakdownRows += len(rows)
			if r.metrics != nil {
				r.metrics.RowsWritten.WithLabelValues("breakdown", string(entityType)).Add(float64(len(rows)))
			}
		}
	}

	log.Info("persisted reconciled rows",
		zap.Int("main_rows", len(mainRows)),
		zap.Int("breakdown_rows", len(breakdownRows)))
	return nil
}

// runCleanup assigns the fixed default rates to every valid attribution
// that left the run without estimates, under the cleanup accuracy label.
func (r *Runner) runCleanup(ctx context.Context) (int, error) {
	missing, err := r.attributionStore.ListValidWithoutRates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list attributions without rates: %w", err)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	est := domain.DefaultRateEstimate(domain.AccuracyAutosetDefault)
	for _, a := range missing {
		a.SetRates(est)
	}
	if err := r.attributionStore.UpdateRates(ctx, missing); err != nil {
		return 0, fmt.Errorf("update cleanup rates: %w", err)
	}
	if r.metrics != nil {
		r.metrics.RateEstimates.WithLabelValues(string(domain.AccuracyAutosetDefault)).Add(float64(len(missing)))
	}
	return len(missing), nil
}

type rowKey struct {
	EntityID string
	Day      string
}

type breakdownKey struct {
	EntityID string
	Day      string
	Value    string
}

// collectKeys adds every entity/day pair present in a dedup user map.
func collectKeys(keys map[rowKey]struct{}, users map[string]map[string][]string) {
	for entityID, byDay := range users {
		for day := range byDay {
			keys[rowKey{EntityID: entityID, Day: day}] = struct{}{}
		}
	}
}

// partitionUsers splits dedup user sets by the breakdown property value
// of each user's attribution. Users with an empty value land in the
// "unknown" slice so dashboard totals still reconcile.
func partitionUsers(
	users map[string]map[string][]string,
	attrs map[string]*domain.Attribution,
	breakdownType domain.BreakdownType,
) map[breakdownKey][]string {
	parts := make(map[breakdownKey][]string)
	for entityID, byDay := range users {
		for day, userList := range byDay {
			for _, userID := range userList {
				a, ok := attrs[userID]
				if !ok {
					continue
				}
				value := breakdownValue(a, breakdownType)
				k := breakdownKey{EntityID: entityID, Day: day, Value: value}
				parts[k] = append(parts[k], userID)
			}
		}
	}
	for _, list := range parts {
		sort.Strings(list)
	}
	return parts
}

func breakdownValue(a *domain.Attribution, breakdownType domain.BreakdownType) string {
	var value string
	switch breakdownType {
	case domain.BreakdownCountry:
		value = a.Country
	case domain.BreakdownRegion:
		value = a.Region
	}
	if value == "" {
		return domain.UnknownBreakdownValue
	}
	return value
}

// estimatedValueSum totals the estimated trial value over a user set.
func estimatedValueSum(userIDs []string, attrs map[string]*domain.Attribution) float64 {
	var total float64
	for _, userID := range userIDs {
		if a, ok := attrs[userID]; ok {
			total += a.EstimatedValue
		}
	}
	return total
}

// userIDs extracts the deduplicated user id list from attributions.
func userIDs(attrs []*domain.Attribution) []string {
	seen := make(map[string]struct{}, len(attrs))
	ids := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if _, ok := seen[a.UserID]; ok {
			continue
		}
		seen[a.UserID] = struct{}{}
		ids = append(ids, a.UserID)
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys(keys map[rowKey]struct{}) []rowKey {
	out := make([]rowKey, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].Day < out[j].Day
	})
	return out
}

func sortedBreakdownKeys(keys map[breakdownKey]struct{}) []breakdownKey {
	out := make([]breakdownKey, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Value < out[j].Value
	})
	return out
}
