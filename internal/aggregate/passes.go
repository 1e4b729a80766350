package aggregate

import (
	"context"
	"sort"
	"strconv"
	"time"

	"taxipulse/internal/store"
	"taxipulse/pkg/contracts/domain"
)

// runMonthlyKPIs groups clean trips by calendar month.
func (e *Engine) runMonthlyKPIs(ctx context.Context) error {
	trips, err := e.store.ReadTripMetrics(ctx, store.TableCleanTrips)
	if err != nil {
		return err
	}

	kpis := ComputeMonthlyKPIs(trips)
	rows := make([][]string, 0, len(kpis))
	for _, k := range kpis {
		rows = append(rows, []string{
			k.Month,
			strconv.FormatInt(k.TotalTrips, 10),
			store.FormatFloat(k.TotalRevenue),
			store.FormatFloat(k.CongestionRevenue),
			store.FormatFloat(k.AvgDistance),
			store.FormatFloat(k.AvgDurationMinutes),
		})
	}
	header := []string{"month", "total_trips", "total_revenue", "congestion_revenue", "avg_distance", "avg_duration_minutes"}
	return e.replace(ctx, store.TableMonthlyKPIs, header, rows)
}

// ComputeMonthlyKPIs summarizes clean trips per month, sorted by month.
// Congestion revenue counts a missing surcharge as zero.
func ComputeMonthlyKPIs(trips []domain.TripMetrics) []domain.MonthlyKPI {
	byMonth := make(map[string]*domain.MonthlyKPI)
	for _, t := range trips {
		month := t.Month()
		k, ok := byMonth[month]
		if !ok {
			k = &domain.MonthlyKPI{Month: month}
			byMonth[month] = k
		}
		k.TotalTrips++
		k.TotalRevenue += t.Total
		if t.Surcharge != nil {
			k.CongestionRevenue += *t.Surcharge
		}
		k.AvgDistance += t.Distance
		k.AvgDurationMinutes += t.DurationMinutes
	}

	kpis := make([]domain.MonthlyKPI, 0, len(byMonth))
	for _, k := range byMonth {
		n := float64(k.TotalTrips)
		k.AvgDistance /= n
		k.AvgDurationMinutes /= n
		kpis = append(kpis, *k)
	}
	sort.Slice(kpis, func(i, j int) bool { return kpis[i].Month < kpis[j].Month })
	return kpis
}

// runZoneCounts groups clean trips by pickup zone.
func (e *Engine) runZoneCounts(ctx context.Context) error {
	trips, err := e.store.ReadTripMetrics(ctx, store.TableCleanTrips)
	if err != nil {
		return err
	}

	counts := ComputeZoneCounts(trips)
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{
			strconv.Itoa(c.PickupZone),
			strconv.FormatInt(c.TripCount, 10),
			store.FormatFloat(c.Revenue),
		})
	}
	header := []string{"pickup_loc", "trip_count", "revenue"}
	return e.replace(ctx, store.TableZoneTripCounts, header, rows)
}

// ComputeZoneCounts counts clean trips and revenue per pickup zone,
// sorted descending by count for top-N consumption. Ties break on the
// lower zone ID.
func ComputeZoneCounts(trips []domain.TripMetrics) []domain.ZoneTripCount {
	byZone := make(map[int]*domain.ZoneTripCount)
	for _, t := range trips {
		c, ok := byZone[t.PickupZone]
		if !ok {
			c = &domain.ZoneTripCount{PickupZone: t.PickupZone}
			byZone[t.PickupZone] = c
		}
		c.TripCount++
		c.Revenue += t.Total
	}

	counts := make([]domain.ZoneTripCount, 0, len(byZone))
	for _, c := range byZone {
		counts = append(counts, *c)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].TripCount != counts[j].TripCount {
			return counts[i].TripCount > counts[j].TripCount
		}
		return counts[i].PickupZone < counts[j].PickupZone
	})
	return counts
}

// runMonthlyLeakage groups leakage trips by month.
func (e *Engine) runMonthlyLeakage(ctx context.Context) error {
	leaks, err := e.store.ReadTripMetrics(ctx, store.TableLeakageTrips)
	if err != nil {
		return err
	}

	monthly := ComputeMonthlyLeakage(leaks)
	rows := make([][]string, 0, len(monthly))
	for _, m := range monthly {
		rows = append(rows, []string{
			m.Month,
			strconv.FormatInt(m.LeakageTrips, 10),
			store.FormatFloat(m.LeakageRevenue),
		})
	}
	header := []string{"month", "leakage_trips", "leakage_revenue"}
	return e.replace(ctx, store.TableMonthlyLeakage, header, rows)
}

// ComputeMonthlyLeakage summarizes uncharged entering trips per month.
// Leakage revenue is the total fare volume that bypassed the surcharge.
func ComputeMonthlyLeakage(leaks []domain.TripMetrics) []domain.MonthlyLeakage {
	byMonth := make(map[string]*domain.MonthlyLeakage)
	for _, t := range leaks {
		month := t.Month()
		m, ok := byMonth[month]
		if !ok {
			m = &domain.MonthlyLeakage{Month: month}
			byMonth[month] = m
		}
		m.LeakageTrips++
		m.LeakageRevenue += t.Total
	}

	monthly := make([]domain.MonthlyLeakage, 0, len(byMonth))
	for _, m := range byMonth {
		monthly = append(monthly, *m)
	}
	sort.Slice(monthly, func(i, j int) bool { return monthly[i].Month < monthly[j].Month })
	return monthly
}

// runVelocityHeatmap averages in-zone speed per (weekday, hour) slot.
func (e *Engine) runVelocityHeatmap(ctx context.Context) error {
	trips, err := e.store.ReadTripMetrics(ctx, store.TableCleanTrips)
	if err != nil {
		return err
	}
	zone, err := e.store.ReadZoneSet(ctx, store.TableCongestionZone)
	if err != nil {
		return err
	}

	cells := ComputeVelocityHeatmap(trips, zone)
	rows := make([][]string, 0, len(cells))
	for _, c := range cells {
		rows = append(rows, []string{
			strconv.Itoa(c.Weekday),
			strconv.Itoa(c.Hour),
			store.FormatFloat(c.AvgSpeedMPH),
		})
	}
	header := []string{"weekday", "hour", "avg_speed_mph"}
	return e.replace(ctx, store.TableVelocityHeatmap, header, rows)
}

// ComputeVelocityHeatmap computes the mean speed of clean trips picked
// up inside the zone, per (weekday, hour) slot. Trips with an undefined
// speed are excluded from the mean, and a slot with no measurable trips
// emits no cell at all.
func ComputeVelocityHeatmap(trips []domain.TripMetrics, zone domain.ZoneSet) []domain.HeatmapCell {
	type slot struct{ weekday, hour int }
	sums := make(map[slot]float64)
	counts := make(map[slot]int)

	for _, t := range trips {
		if !zone.Contains(t.PickupZone) || !t.HasDefinedSpeed() {
			continue
		}
		s := slot{int(t.PickupTime.Weekday()), t.PickupTime.Hour()}
		sums[s] += t.AvgSpeedMPH
		counts[s]++
	}

	cells := make([]domain.HeatmapCell, 0, len(sums))
	for s, sum := range sums {
		cells = append(cells, domain.HeatmapCell{
			Weekday:     s.weekday,
			Hour:        s.hour,
			AvgSpeedMPH: sum / float64(counts[s]),
		})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Weekday != cells[j].Weekday {
			return cells[i].Weekday < cells[j].Weekday
		}
		return cells[i].Hour < cells[j].Hour
	})
	return cells
}

// runCrowdingOut compares mean surcharge against mean tip ratio per
// month.
func (e *Engine) runCrowdingOut(ctx context.Context) error {
	trips, err := e.store.ReadTripMetrics(ctx, store.TableCleanTrips)
	if err != nil {
		return err
	}

	summaries := ComputeCrowdingOut(trips)
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Month,
			store.FormatFloat(s.AvgSurcharge),
			store.FormatFloat(s.AvgTipRatio),
		})
	}
	header := []string{"month", "avg_surcharge", "avg_tip_ratio"}
	return e.replace(ctx, store.TableCrowdingOut, header, rows)
}

// ComputeCrowdingOut computes per-month mean surcharge and mean tip
// ratio over the trips with a defined tip ratio. The ratio tip/fare is
// undefined for zero-or-negative fares; such trips contribute to
// neither mean, and a month where every ratio is undefined emits no
// row at all. Within the defined set, missing surcharges are excluded
// from the surcharge mean.
func ComputeCrowdingOut(trips []domain.TripMetrics) []domain.TippingSummary {
	type acc struct {
		surchargeSum  float64
		surchargeN    int
		tipRatioSum   float64
		tipRatioCount int
	}
	byMonth := make(map[string]*acc)

	for _, t := range trips {
		if t.Fare <= 0 {
			continue
		}
		month := t.Month()
		a, ok := byMonth[month]
		if !ok {
			a = &acc{}
			byMonth[month] = a
		}
		a.tipRatioSum += t.Tip / t.Fare
		a.tipRatioCount++
		if t.Surcharge != nil {
			a.surchargeSum += *t.Surcharge
			a.surchargeN++
		}
	}

	summaries := make([]domain.TippingSummary, 0, len(byMonth))
	for month, a := range byMonth {
		s := domain.TippingSummary{
			Month:       month,
			AvgTipRatio: a.tipRatioSum / float64(a.tipRatioCount),
		}
		if a.surchargeN > 0 {
			s.AvgSurcharge = a.surchargeSum / float64(a.surchargeN)
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Month < summaries[j].Month })
	return summaries
}

// runBorderEffect compares border-zone dropoff volume across the two
// comparison years.
func (e *Engine) runBorderEffect(ctx context.Context) error {
	trips, err := e.store.ReadTripMetrics(ctx, store.TableCleanTrips)
	if err != nil {
		return err
	}
	border, err := e.store.ReadZoneSet(ctx, store.TableBorderZones)
	if err != nil {
		return err
	}

	changes := ComputeBorderEffect(trips, border, e.cfg.BaselineYear, e.cfg.ComparisonYear)
	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, []string{
			strconv.Itoa(c.DropoffZone),
			strconv.FormatInt(c.BaselineTrips, 10),
			strconv.FormatInt(c.CurrentTrips, 10),
			store.FormatNullableFloat(c.PercentChange),
		})
	}
	header := []string{"dropoff_loc", "baseline_trips", "current_trips", "percent_change"}
	return e.replace(ctx, store.TableBorderEffect, header, rows)
}

// ComputeBorderEffect counts dropoffs per border zone for each
// comparison year and joins the counts by zone, keeping zones seen in
// either year. Percent change is nil when the baseline year had no
// trips: a missing baseline is undefined, not zero.
func ComputeBorderEffect(trips []domain.TripMetrics, border domain.ZoneSet, baselineYear, currentYear int) []domain.BorderChange {
	baseline := make(map[int]int64)
	current := make(map[int]int64)

	for _, t := range trips {
		if !border.Contains(t.DropoffZone) {
			continue
		}
		switch t.PickupTime.Year() {
		case baselineYear:
			baseline[t.DropoffZone]++
		case currentYear:
			current[t.DropoffZone]++
		}
	}

	seen := make(map[int]struct{})
	for zone := range baseline {
		seen[zone] = struct{}{}
	}
	for zone := range current {
		seen[zone] = struct{}{}
	}

	changes := make([]domain.BorderChange, 0, len(seen))
	for zone := range seen {
		c := domain.BorderChange{
			DropoffZone:   zone,
			BaselineTrips: baseline[zone],
			CurrentTrips:  current[zone],
		}
		if c.BaselineTrips > 0 {
			pct := 100 * float64(c.CurrentTrips-c.BaselineTrips) / float64(c.BaselineTrips)
			c.PercentChange = &pct
		}
		changes = append(changes, c)
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].DropoffZone < changes[j].DropoffZone })
	return changes
}

// runFleetComparison counts first-quarter zone entries per fleet per
// comparison year. It reads the unified table rather than the clean
// one, mirroring the audited reporting behavior that applied no quality
// filtering here.
func (e *Engine) runFleetComparison(ctx context.Context) error {
	trips, err := e.store.ReadTrips(ctx, store.TableUnifiedTrips)
	if err != nil {
		return err
	}
	zone, err := e.store.ReadZoneSet(ctx, store.TableCongestionZone)
	if err != nil {
		return err
	}

	counts := ComputeFleetComparison(trips, zone, e.cfg.BaselineYear, e.cfg.ComparisonYear)
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{
			string(c.TaxiType),
			strconv.Itoa(c.Year),
			strconv.FormatInt(c.Trips, 10),
		})
	}
	header := []string{"taxi_type", "year", "trips"}
	return e.replace(ctx, store.TableQ1FleetComparison, header, rows)
}

// ComputeFleetComparison counts entering trips (pickup outside, dropoff
// inside the zone) in calendar months 1-3 of the two comparison years,
// grouped by (fleet, year).
func ComputeFleetComparison(trips []domain.TripRecord, zone domain.ZoneSet, baselineYear, currentYear int) []domain.FleetQuarterCount {
	type key struct {
		taxiType domain.TaxiType
		year     int
	}
	counts := make(map[key]int64)

	for _, t := range trips {
		if t.PickupTime.IsZero() {
			continue
		}
		year := t.PickupTime.Year()
		if year != baselineYear && year != currentYear {
			continue
		}
		if t.PickupTime.Month() > time.March {
			continue
		}
		if zone.Contains(t.PickupZone) || !zone.Contains(t.DropoffZone) {
			continue
		}
		counts[key{t.TaxiType, year}]++
	}

	out := make([]domain.FleetQuarterCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.FleetQuarterCount{TaxiType: k.taxiType, Year: k.year, Trips: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaxiType != out[j].TaxiType {
			return out[i].TaxiType < out[j].TaxiType
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// runRainImpact compares mean daily trip volume on rainy vs dry days.
func (e *Engine) runRainImpact(ctx context.Context) error {
	trips, err := e.store.ReadTripMetrics(ctx, store.TableCleanTrips)
	if err != nil {
		return err
	}
	days, err := e.weather.DailyPrecipitation(ctx)
	if err != nil {
		return err
	}

	summaries := ComputeRainImpact(trips, days)
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			strconv.FormatBool(s.Rainy),
			store.FormatFloat(s.AvgDailyTrips),
		})
	}
	header := []string{"rainy", "avg_daily_trips"}
	return e.replace(ctx, store.TableRainSummary, header, rows)
}

// ComputeRainImpact joins daily clean-trip counts to the precipitation
// series by pickup date and averages daily volume per rain class. A
// date absent from the weather series counts as dry; missing weather is
// never missing data.
func ComputeRainImpact(trips []domain.TripMetrics, days []domain.DailyPrecipitation) []domain.RainSummary {
	precip := make(map[string]float64, len(days))
	for _, d := range days {
		precip[d.Date] = d.Precipitation
	}

	dailyCounts := make(map[string]int64)
	for _, t := range trips {
		dailyCounts[t.PickupTime.Format("2006-01-02")]++
	}

	var rainySum, drySum int64
	var rainyDays, dryDays int
	for date, count := range dailyCounts {
		if precip[date] > 0 {
			rainySum += count
			rainyDays++
		} else {
			drySum += count
			dryDays++
		}
	}

	var summaries []domain.RainSummary
	if dryDays > 0 {
		summaries = append(summaries, domain.RainSummary{
			Rainy:         false,
			AvgDailyTrips: float64(drySum) / float64(dryDays),
		})
	}
	if rainyDays > 0 {
		summaries = append(summaries, domain.RainSummary{
			Rainy:         true,
			AvgDailyTrips: float64(rainySum) / float64(rainyDays),
		})
	}
	return summaries
}
