// Command tableserver serves the persisted pipeline output tables to
// the Dashboard over HTTP. It is strictly read-only and can run
// alongside the pipeline: table replacement is atomic, so a read never
// observes a half-written table.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taxipulse/internal/config"
	"taxipulse/internal/infrastructure"
	"taxipulse/internal/store"
	transport "taxipulse/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tableserver: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
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

	paths := config.NewPaths(cfg.Paths)
	st := store.New(paths.TablesDir, logger)

	server := transport.NewServer(cfg.Server, st, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return server.Shutdown(context.Background())
	}
}
