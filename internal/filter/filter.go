// Package filter implements the ghost-trip audit stage. It reads the
// unified trip table, restricts it to the data-quality window, derives
// the duration and speed metrics, and partitions every surviving row
// into exactly one of two tables: clean trips or the audit log of
// physically implausible ("ghost") trips.
package filter

import (
	"context"
	"log/slog"

	"taxipulse/internal/config"
	"taxipulse/internal/store"
	"taxipulse/pkg/contracts/domain"
)

// Result summarizes one filter run.
type Result struct {
	CleanRows     int
	GhostRows     int
	BadTimestamps int
	BelowCutoff   int
}

// Filter partitions unified trips into clean and ghost tables.
type Filter struct {
	store  *store.Store
	cfg    config.PipelineConfig
	logger *slog.Logger
}

// New creates a filter with the given audit policy.
func New(st *store.Store, cfg config.PipelineConfig, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{store: st, cfg: cfg, logger: logger}
}

// Run reads the unified table and replaces the clean-trip and audit-log
// tables. Rows with an unparseable timestamp are dropped before
// classification: without both timestamps neither the quality window
// nor the plausibility predicates can be evaluated. Every row inside
// the quality window with valid timestamps lands in exactly one of the
// two output tables.
func (f *Filter) Run(ctx context.Context) (Result, error) {
	trips, err := f.store.ReadTrips(ctx, store.TableUnifiedTrips)
	if err != nil {
		return Result{}, err
	}

	var res Result
	clean := make([]domain.TripMetrics, 0, len(trips))
	var ghosts []domain.TripMetrics

	for _, trip := range trips {
		if !trip.HasValidTimes() {
			res.BadTimestamps++
			continue
		}
		if trip.PickupTime.Year() < f.cfg.QualityCutoffYear {
			res.BelowCutoff++
			continue
		}

		m := domain.DeriveMetrics(trip)
		if f.IsGhost(m) {
			ghosts = append(ghosts, m)
		} else {
			clean = append(clean, m)
		}
	}
	res.CleanRows = len(clean)
	res.GhostRows = len(ghosts)

	if err := f.store.ReplaceTripMetrics(ctx, store.TableCleanTrips, clean); err != nil {
		return Result{}, err
	}
	if err := f.store.ReplaceTripMetrics(ctx, store.TableAuditLog, ghosts); err != nil {
		return Result{}, err
	}

	f.logger.InfoContext(ctx, "ghost trip filter finished",
		slog.Int("clean", res.CleanRows),
		slog.Int("ghosts", res.GhostRows),
		slog.Int("bad_timestamps", res.BadTimestamps),
		slog.Int("below_cutoff", res.BelowCutoff))

	return res, nil
}

// IsGhost reports whether a trip is physically implausible under the
// audit policy. A trip is a ghost when any predicate fires:
//
//   - teleporting: average speed above the policy limit; only trips
//     with a defined speed (positive duration) can teleport
//   - flash fare: shorter than the minimum duration with a fare above
//     the suspicious threshold
//   - stationary charge: zero distance with a positive fare
func (f *Filter) IsGhost(m domain.TripMetrics) bool {
	if m.HasDefinedSpeed() && m.AvgSpeedMPH > f.cfg.SpeedLimitMPH {
		return true
	}
	if m.DurationMinutes < f.cfg.MinDurationMin && m.Fare > f.cfg.SuspiciousFare {
		return true
	}
	if m.Distance == 0 && m.Fare > 0 {
		return true
	}
	return false
}
