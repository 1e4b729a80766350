// Package app wires the pipeline components together and drives runs,
// either once or on a fixed schedule.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"taxipulse/internal/aggregate"
	"taxipulse/internal/config"
	"taxipulse/internal/exporter"
	"taxipulse/internal/fetcher"
	"taxipulse/internal/files"
	"taxipulse/internal/filter"
	"taxipulse/internal/imputer"
	"taxipulse/internal/infrastructure"
	"taxipulse/internal/leakage"
	"taxipulse/internal/operations"
	"taxipulse/internal/store"
	"taxipulse/internal/unifier"
	"taxipulse/internal/zones"
)

// App holds the assembled pipeline.
type App struct {
	cfg     *config.Config
	paths   *config.Paths
	store   *store.Store
	metrics *infrastructure.Metrics
	logger  *slog.Logger

	components operations.Components
}

// New assembles the pipeline from configuration. metrics may be nil.
func New(cfg *config.Config, metrics *infrastructure.Metrics, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	paths := config.NewPaths(cfg.Paths)
	if err := paths.EnsureDirectories(); err != nil {
		return nil, err
	}

	st := store.New(paths.TablesDir, logger)
	discovery := files.NewDiscovery(paths.RawDir)
	fetch := fetcher.New(cfg.Fetch, paths, logger)
	weather := fetcher.NewWeatherClient(cfg.Weather, paths.GetCachePath("ny_weather.csv"), logger)

	components := operations.Components{
		Fetcher:  fetch,
		Imputer:  imputer.New(st, discovery, fetch, cfg.Pipeline, logger),
		Unifier:  unifier.New(discovery, st, logger),
		Filter:   filter.New(st, cfg.Pipeline, logger),
		Zones:    zones.New(st, paths.GetZoneLookupPath(), cfg.Pipeline, logger),
		Leakage:  leakage.New(st, cfg.Pipeline, logger),
		Engine:   aggregate.New(st, cfg.Pipeline, weather, metrics, logger),
		Exporter: exporter.New(st, logger),
	}

	return &App{
		cfg:        cfg,
		paths:      paths,
		store:      st,
		metrics:    metrics,
		logger:     logger,
		components: components,
	}, nil
}

// Store exposes the table store, for a table server sharing one process
// with the pipeline.
func (a *App) Store() *store.Store {
	return a.store
}

// RunOptions select the optional edges of a run.
type RunOptions struct {
	SkipFetch      bool
	ExportWorkbook bool
}

// RunOnce executes a single pipeline run.
func (a *App) RunOnce(ctx context.Context, opts RunOptions) (operations.RunSummary, error) {
	workbookPath := ""
	if opts.ExportWorkbook {
		workbookPath = a.paths.GetExportPath(exporter.WorkbookName)
	}

	steps := operations.BuildSteps(a.components, operations.Options{
		SkipFetch:    opts.SkipFetch,
		WorkbookPath: workbookPath,
	})

	runner := operations.NewRunner(steps, a.metrics, a.logger)
	return runner.Run(ctx)
}

// RunScheduled executes the pipeline on the configured interval until
// ctx is cancelled. The first run fires immediately. A failed run is
// logged and the schedule keeps going; source data problems usually
// resolve by the next publication.
func (a *App) RunScheduled(ctx context.Context, opts RunOptions) error {
	scheduler := gocron.NewScheduler(time.UTC)

	_, err := scheduler.Every(a.cfg.Pipeline.RunInterval).StartImmediately().Do(func() {
		if _, err := a.RunOnce(ctx, opts); err != nil {
			a.logger.ErrorContext(ctx, "scheduled run failed",
				slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "scheduler started",
		slog.Duration("interval", a.cfg.Pipeline.RunInterval))

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()

	return nil
}
