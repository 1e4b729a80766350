package operations

import (
	"context"

	"taxipulse/internal/filter"
	"taxipulse/pkg/contracts/domain"
)

// Fetching resolves and downloads the raw source artifacts.
type Fetching interface {
	ScrapeTripLinks(ctx context.Context) ([]string, error)
	DownloadAll(ctx context.Context, links []string) error
	EnsureZoneLookup(ctx context.Context) (string, error)
}

// Imputing backfills the missing target month.
type Imputing interface {
	Run(ctx context.Context) (bool, error)
}

// Unifying merges the raw fleet files into the unified table.
type Unifying interface {
	Run(ctx context.Context) (int, error)
}

// Filtering partitions unified trips into clean and ghost tables.
type Filtering interface {
	Run(ctx context.Context) (filter.Result, error)
}

// ZoneBuilding derives and persists the congestion and border zone
// sets.
type ZoneBuilding interface {
	Run(ctx context.Context) (domain.ZoneSet, domain.ZoneSet, error)
}

// LeakageAuditing runs the surcharge compliance audit.
type LeakageAuditing interface {
	Run(ctx context.Context) (domain.ComplianceStats, error)
}

// Aggregating runs the reporting passes.
type Aggregating interface {
	RunAll(ctx context.Context) error
}

// Exporting writes the analyst workbook.
type Exporting interface {
	Export(ctx context.Context, destPath string) error
}

// Components are the stage implementations a pipeline run is assembled
// from.
type Components struct {
	Fetcher  Fetching
	Imputer  Imputing
	Unifier  Unifying
	Filter   Filtering
	Zones    ZoneBuilding
	Leakage  LeakageAuditing
	Engine   Aggregating
	Exporter Exporting
}

// Options select the optional edges of a run.
type Options struct {
	// SkipFetch runs against raw files already on disk.
	SkipFetch bool
	// WorkbookPath, when non-empty, appends the workbook export step.
	WorkbookPath string
}

// BuildSteps assembles the ordered step chain for one pipeline run.
func BuildSteps(c Components, opts Options) []Step {
	var steps []Step

	if !opts.SkipFetch {
		steps = append(steps, NewStep(StepIDFetch, "Source Download", func(ctx context.Context) error {
			links, err := c.Fetcher.ScrapeTripLinks(ctx)
			if err != nil {
				return err
			}
			if err := c.Fetcher.DownloadAll(ctx, links); err != nil {
				return err
			}
			_, err = c.Fetcher.EnsureZoneLookup(ctx)
			return err
		}))
	}

	steps = append(steps,
		NewStep(StepIDImpute, "December Imputation", func(ctx context.Context) error {
			_, err := c.Imputer.Run(ctx)
			return err
		}),
		NewStep(StepIDUnify, "Schema Unification", func(ctx context.Context) error {
			_, err := c.Unifier.Run(ctx)
			return err
		}),
		NewStep(StepIDFilter, "Ghost Trip Filter", func(ctx context.Context) error {
			_, err := c.Filter.Run(ctx)
			return err
		}),
		NewStep(StepIDZones, "Congestion Zone Derivation", func(ctx context.Context) error {
			_, _, err := c.Zones.Run(ctx)
			return err
		}),
		NewStep(StepIDLeakage, "Leakage Audit", func(ctx context.Context) error {
			_, err := c.Leakage.Run(ctx)
			return err
		}),
		NewStep(StepIDAggregate, "Aggregation", func(ctx context.Context) error {
			return c.Engine.RunAll(ctx)
		}),
	)

	if opts.WorkbookPath != "" {
		steps = append(steps, NewStep(StepIDExport, "Workbook Export", func(ctx context.Context) error {
			return c.Exporter.Export(ctx, opts.WorkbookPath)
		}))
	}

	return steps
}
