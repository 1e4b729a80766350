// Package leakage audits congestion-surcharge collection. A trip
// enters the zone when it starts outside and ends inside; from the
// policy cutoff year onward every entering trip should carry a
// surcharge. Trips that entered uncharged are revenue leakage. The
// entering set is computed once and feeds the compliance summary, the
// leakage trip table, and the worst-origin ranking.
package leakage

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"taxipulse/internal/config"
	"taxipulse/internal/store"
	"taxipulse/pkg/contracts/domain"
)

const topPickupCount = 3

// Auditor computes surcharge compliance over clean trips.
type Auditor struct {
	store  *store.Store
	cfg    config.PipelineConfig
	logger *slog.Logger
}

// New creates a leakage auditor.
func New(st *store.Store, cfg config.PipelineConfig, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{store: st, cfg: cfg, logger: logger}
}

// Run reads the clean trips and the congestion zone set, computes the
// entering set once, and replaces the compliance, leakage-trip, and
// top-pickup tables.
func (a *Auditor) Run(ctx context.Context) (domain.ComplianceStats, error) {
	trips, err := a.store.ReadTripMetrics(ctx, store.TableCleanTrips)
	if err != nil {
		return domain.ComplianceStats{}, err
	}
	zone, err := a.store.ReadZoneSet(ctx, store.TableCongestionZone)
	if err != nil {
		return domain.ComplianceStats{}, err
	}

	entering := EnteringTrips(trips, zone, a.cfg.PolicyCutoffYear)

	var stats domain.ComplianceStats
	var leaks []domain.TripMetrics
	for _, t := range entering {
		stats.TotalEntering++
		if t.HasSurcharge() {
			stats.CompliantTrips++
		} else {
			leaks = append(leaks, t)
		}
	}

	if err := a.store.Replace(ctx, store.TableComplianceStats,
		[]string{"total_entering", "compliant_trips"},
		[][]string{{
			strconv.FormatInt(stats.TotalEntering, 10),
			strconv.FormatInt(stats.CompliantTrips, 10),
		}}); err != nil {
		return domain.ComplianceStats{}, err
	}

	if err := a.store.ReplaceTripMetrics(ctx, store.TableLeakageTrips, leaks); err != nil {
		return domain.ComplianceStats{}, err
	}

	top := TopLeakagePickups(leaks, topPickupCount)
	topRows := make([][]string, 0, len(top))
	for _, p := range top {
		topRows = append(topRows, []string{
			strconv.Itoa(p.PickupZone),
			strconv.FormatInt(p.LeakageCount, 10),
		})
	}
	if err := a.store.Replace(ctx, store.TableTopLeakagePickups,
		[]string{"pickup_loc", "leakage_count"}, topRows); err != nil {
		return domain.ComplianceStats{}, err
	}

	a.logger.InfoContext(ctx, "leakage audit finished",
		slog.Int64("entering", stats.TotalEntering),
		slog.Int64("compliant", stats.CompliantTrips),
		slog.Int("leakage_trips", len(leaks)))

	return stats, nil
}

// EnteringTrips selects the trips that crossed into the zone on or
// after the policy cutoff year: pickup outside, dropoff inside.
func EnteringTrips(trips []domain.TripMetrics, zone domain.ZoneSet, policyCutoffYear int) []domain.TripMetrics {
	var entering []domain.TripMetrics
	for _, t := range trips {
		if t.PickupTime.Year() < policyCutoffYear {
			continue
		}
		if !zone.Contains(t.PickupZone) && zone.Contains(t.DropoffZone) {
			entering = append(entering, t)
		}
	}
	return entering
}

// TopLeakagePickups ranks origin zones by uncharged entering trips and
// returns the worst n. Ties break on the lower zone ID so the ranking
// is deterministic.
func TopLeakagePickups(leaks []domain.TripMetrics, n int) []domain.LeakagePickup {
	counts := make(map[int]int64)
	for _, t := range leaks {
		counts[t.PickupZone]++
	}

	ranked := make([]domain.LeakagePickup, 0, len(counts))
	for zone, count := range counts {
		ranked = append(ranked, domain.LeakagePickup{PickupZone: zone, LeakageCount: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].LeakageCount != ranked[j].LeakageCount {
			return ranked[i].LeakageCount > ranked[j].LeakageCount
		}
		return ranked[i].PickupZone < ranked[j].PickupZone
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
