// Command pipeline runs the taxi-trip congestion pipeline: download
// raw sources, unify schemas, filter ghost trips, derive the congestion
// zone, audit surcharge leakage, and materialize the aggregate tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"taxipulse/internal/app"
	"taxipulse/internal/config"
	"taxipulse/internal/infrastructure"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		mode      = flag.String("mode", "once", "execution mode: once or scheduled")
		skipFetch = flag.Bool("skip-fetch", false, "run against raw files already on disk")
		excel     = flag.Bool("excel", false, "export the analyst workbook after aggregation")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	metrics := infrastructure.NewDefaultMetrics()

	application, err := app.New(cfg, metrics, logger)
	if err != nil {
		return fmt.Errorf("failed to assemble pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.RunOptions{SkipFetch: *skipFetch, ExportWorkbook: *excel}

	switch *mode {
	case "once":
		summary, err := application.RunOnce(ctx, opts)
		logger.Info("run summary",
			slog.String("run_id", summary.RunID),
			slog.Bool("success", summary.Success),
			slog.Duration("duration", summary.Duration),
			slog.String("failed_step", summary.FailedID))
		return err
	case "scheduled":
		return application.RunScheduled(ctx, opts)
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}
}
