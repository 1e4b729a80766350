// Package aggregate implements the reporting passes that turn the
// clean and leakage trip tables into the Dashboard's aggregate tables.
// Passes are independent: each reads only persisted upstream tables and
// replaces its own outputs, so they run concurrently. A failing pass
// fails the whole run; the Dashboard reading a stale table is worse
// than a failed run.
package aggregate

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"taxipulse/internal/config"
	"taxipulse/internal/infrastructure"
	"taxipulse/internal/store"
	"taxipulse/pkg/contracts/domain"
)

// WeatherSource supplies the daily precipitation series for the rain
// pass.
type WeatherSource interface {
	DailyPrecipitation(ctx context.Context) ([]domain.DailyPrecipitation, error)
}

// Engine runs the aggregation passes against the table store.
type Engine struct {
	store   *store.Store
	cfg     config.PipelineConfig
	weather WeatherSource
	metrics *infrastructure.Metrics
	logger  *slog.Logger
}

// New creates an aggregation engine. metrics may be nil.
func New(st *store.Store, cfg config.PipelineConfig, weather WeatherSource, metrics *infrastructure.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, cfg: cfg, weather: weather, metrics: metrics, logger: logger}
}

// replace persists one aggregate table and records its row count.
func (e *Engine) replace(ctx context.Context, name string, header []string, rows [][]string) error {
	if err := e.store.Replace(ctx, name, header, rows); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.TableRows.WithLabelValues(name).Set(float64(len(rows)))
	}
	return nil
}

// pass is one independent aggregation unit.
type pass struct {
	name string
	run  func(context.Context) error
}

func (e *Engine) passes() []pass {
	return []pass{
		{"monthly_kpis", e.runMonthlyKPIs},
		{"zone_counts", e.runZoneCounts},
		{"monthly_leakage", e.runMonthlyLeakage},
		{"velocity_heatmap", e.runVelocityHeatmap},
		{"crowding_out", e.runCrowdingOut},
		{"border_effect", e.runBorderEffect},
		{"fleet_comparison", e.runFleetComparison},
		{"rain_impact", e.runRainImpact},
	}
}

// RunAll executes every pass with bounded concurrency and returns the
// first failure.
func (e *Engine) RunAll(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(e.cfg.AggregationWorkers)

	for _, p := range e.passes() {
		p := p
		group.Go(func() error {
			start := time.Now()
			if err := p.run(ctx); err != nil {
				e.logger.ErrorContext(ctx, "aggregation pass failed",
					slog.String("pass", p.name),
					slog.String("error", err.Error()))
				return err
			}
			elapsed := time.Since(start)
			if e.metrics != nil {
				e.metrics.StageDuration.WithLabelValues(p.name).Observe(elapsed.Seconds())
			}
			e.logger.InfoContext(ctx, "aggregation pass finished",
				slog.String("pass", p.name),
				slog.Duration("elapsed", elapsed))
			return nil
		})
	}

	return group.Wait()
}
