// Package imputer backfills the study's final month. When the target
// December has not been published yet, it synthesizes month-level
// statistics as a weighted blend of the two reference Decembers, with
// the later year weighted heavier. The output is a statistics row, not
// synthetic trips; it never feeds back into the trip tables.
package imputer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taxipulse/internal/config"
	"taxipulse/internal/errors"
	"taxipulse/internal/files"
	"taxipulse/internal/store"
	"taxipulse/internal/unifier"
	"taxipulse/pkg/contracts/domain"
)

// TripFileEnsurer makes a per-month raw trip file available locally.
type TripFileEnsurer interface {
	EnsureTripFile(ctx context.Context, fleet string, year, month int) (string, error)
}

// Imputer synthesizes statistics for the missing target month.
type Imputer struct {
	store     *store.Store
	discovery *files.Discovery
	fetcher   TripFileEnsurer
	cfg       config.PipelineConfig
	logger    *slog.Logger
}

// New creates an imputer.
func New(st *store.Store, discovery *files.Discovery, fetcher TripFileEnsurer, cfg config.PipelineConfig, logger *slog.Logger) *Imputer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Imputer{store: st, discovery: discovery, fetcher: fetcher, cfg: cfg, logger: logger}
}

// Run produces the imputed statistics table when the target month has
// no raw file, and reports whether imputation happened. A reference
// December that cannot be obtained is fatal: the blend is meaningless
// with one side missing.
func (im *Imputer) Run(ctx context.Context) (bool, error) {
	present, err := im.discovery.HasFileForPeriod(im.cfg.ImputeTargetPeriod)
	if err != nil {
		return false, errors.NewStorageError("failed to check for target month file", err)
	}
	if present {
		im.logger.InfoContext(ctx, "target month present, skipping imputation",
			slog.String("period", im.cfg.ImputeTargetPeriod))
		return false, nil
	}

	early, err := im.referenceStats(ctx, im.cfg.ImputeEarlyYear)
	if err != nil {
		return false, err
	}
	late, err := im.referenceStats(ctx, im.cfg.ImputeLateYear)
	if err != nil {
		return false, err
	}

	blended := domain.Blend(early, late, im.cfg.ImputeEarlyWeight, im.cfg.ImputeLateWeight)

	row := []string{
		store.FormatFloat(blended.Trips),
		store.FormatFloat(blended.AvgDistance),
		store.FormatFloat(blended.AvgFare),
		store.FormatFloat(blended.AvgTotal),
		store.FormatFloat(blended.AvgSurcharge),
	}
	header := []string{"trips", "avg_distance", "avg_fare", "avg_total", "avg_surcharge"}
	if err := im.store.Replace(ctx, store.TableImputedDecember, header, [][]string{row}); err != nil {
		return false, err
	}

	im.logger.InfoContext(ctx, "imputed missing month",
		slog.String("period", im.cfg.ImputeTargetPeriod),
		slog.Float64("trips", blended.Trips))

	return true, nil
}

// referenceStats loads December of the given year for both fleets and
// summarizes it.
func (im *Imputer) referenceStats(ctx context.Context, year int) (domain.ImputedStats, error) {
	var december []domain.TripRecord

	for _, taxiType := range []domain.TaxiType{domain.TaxiTypeYellow, domain.TaxiTypeGreen} {
		fleet := strings.ToLower(string(taxiType))
		path, err := im.fetcher.EnsureTripFile(ctx, fleet, year, 12)
		if err != nil {
			return domain.ImputedStats{}, errors.NewMissingDependencyError(
				fmt.Sprintf("reference month %s December %d", fleet, year), err)
		}

		trips, err := unifier.ReadRawTripFile(path, taxiType)
		if err != nil {
			return domain.ImputedStats{}, err
		}
		for _, t := range trips {
			if t.PickupTime.Year() == year && t.PickupTime.Month() == time.December {
				december = append(december, t)
			}
		}
	}

	if len(december) == 0 {
		return domain.ImputedStats{}, errors.NewValidationError(
			fmt.Sprintf("reference December %d has no trips", year))
	}

	return Summarize(december), nil
}

// Summarize computes the month-level statistics of one reference
// December. The surcharge mean runs over the trips that carry one;
// missing surcharges stay out of the denominator so the fleet with
// sparse surcharge data does not drag the blend toward zero.
func Summarize(trips []domain.TripRecord) domain.ImputedStats {
	var stats domain.ImputedStats
	n := float64(len(trips))
	if n == 0 {
		return stats
	}

	surchargeN := 0
	for _, t := range trips {
		stats.AvgDistance += t.Distance
		stats.AvgFare += t.Fare
		stats.AvgTotal += t.Total
		if t.Surcharge != nil {
			stats.AvgSurcharge += *t.Surcharge
			surchargeN++
		}
	}

	stats.Trips = n
	stats.AvgDistance /= n
	stats.AvgFare /= n
	stats.AvgTotal /= n
	if surchargeN > 0 {
		stats.AvgSurcharge /= float64(surchargeN)
	}

	return stats
}
