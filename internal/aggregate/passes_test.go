package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxipulse/internal/config"
	"taxipulse/internal/store"
	"taxipulse/pkg/contracts/domain"
)

func fptr(v float64) *float64 { return &v }

func metric(pickup string, pickupZone, dropoffZone int) domain.TripMetrics {
	ts, _ := time.Parse(domain.TimestampLayout, pickup)
	rec := domain.TripRecord{
		TaxiType:    domain.TaxiTypeYellow,
		PickupTime:  ts,
		DropoffTime: ts.Add(20 * time.Minute),
		PickupZone:  pickupZone,
		DropoffZone: dropoffZone,
		Distance:    4,
		Fare:        16,
		Tip:         4,
		Total:       22,
	}
	return domain.DeriveMetrics(rec)
}

func TestComputeMonthlyKPIs(t *testing.T) {
	trips := []domain.TripMetrics{
		metric("2025-01-10 08:00:00", 1, 2),
		metric("2025-01-20 09:00:00", 1, 2),
		metric("2025-02-05 10:00:00", 1, 2),
	}
	trips[0].Surcharge = fptr(2.5)

	kpis := ComputeMonthlyKPIs(trips)
	require.Len(t, kpis, 2)

	jan := kpis[0]
	assert.Equal(t, "2025-01", jan.Month)
	assert.Equal(t, int64(2), jan.TotalTrips)
	assert.InDelta(t, 44, jan.TotalRevenue, 1e-9)
	assert.InDelta(t, 2.5, jan.CongestionRevenue, 1e-9)
	assert.InDelta(t, 4, jan.AvgDistance, 1e-9)
	assert.InDelta(t, 20, jan.AvgDurationMinutes, 1e-9)

	// Count consistency: summed monthly counts equal the input size.
	var total int64
	for _, k := range kpis {
		total += k.TotalTrips
	}
	assert.Equal(t, int64(len(trips)), total)
}

func TestComputeZoneCounts(t *testing.T) {
	trips := []domain.TripMetrics{
		metric("2025-01-10 08:00:00", 5, 2),
		metric("2025-01-11 08:00:00", 5, 2),
		metric("2025-01-12 08:00:00", 3, 2),
	}

	counts := ComputeZoneCounts(trips)
	require.Len(t, counts, 2)
	assert.Equal(t, 5, counts[0].PickupZone)
	assert.Equal(t, int64(2), counts[0].TripCount)
	assert.InDelta(t, 44, counts[0].Revenue, 1e-9)
	assert.Equal(t, 3, counts[1].PickupZone)
}

func TestComputeVelocityHeatmap(t *testing.T) {
	zone := domain.NewZoneSet(100)

	inZone := metric("2025-01-06 08:00:00", 100, 2) // Monday 08
	inZoneLater := metric("2025-01-13 08:30:00", 100, 2)
	outside := metric("2025-01-06 08:00:00", 50, 2)
	undefined := metric("2025-01-06 08:00:00", 100, 2)
	undefined.DropoffTime = undefined.PickupTime
	undefined = domain.DeriveMetrics(undefined.TripRecord)

	cells := ComputeVelocityHeatmap(
		[]domain.TripMetrics{inZone, inZoneLater, outside, undefined}, zone)

	require.Len(t, cells, 1)
	assert.Equal(t, int(time.Monday), cells[0].Weekday)
	assert.Equal(t, 8, cells[0].Hour)
	assert.InDelta(t, 12, cells[0].AvgSpeedMPH, 1e-9)
}

func TestComputeCrowdingOut(t *testing.T) {
	withRatio := metric("2025-03-01 10:00:00", 1, 2)
	withRatio.Surcharge = fptr(2.5)

	// Undefined ratio: the whole trip drops out, surcharge included.
	zeroFare := metric("2025-03-02 10:00:00", 1, 2)
	zeroFare.Fare = 0
	zeroFare.Tip = 5
	zeroFare.Surcharge = fptr(7.5)

	noSurcharge := metric("2025-03-03 10:00:00", 1, 2)
	noSurcharge.Surcharge = nil

	// A month with no defined ratio at all emits no row.
	onlyZeroFare := metric("2025-04-01 10:00:00", 1, 2)
	onlyZeroFare.Fare = 0
	onlyZeroFare.Surcharge = fptr(5)

	summaries := ComputeCrowdingOut([]domain.TripMetrics{withRatio, zeroFare, noSurcharge, onlyZeroFare})
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, "2025-03", s.Month)
	assert.InDelta(t, 0.25, s.AvgTipRatio, 1e-9)
	// Within the defined set, only the non-null surcharge contributes.
	assert.InDelta(t, 2.5, s.AvgSurcharge, 1e-9)
}

func TestComputeBorderEffect(t *testing.T) {
	border := domain.NewZoneSet(41, 42)

	var trips []domain.TripMetrics
	add := func(pickup string, dropoff, n int) {
		for i := 0; i < n; i++ {
			trips = append(trips, metric(pickup, 1, dropoff))
		}
	}
	add("2024-05-01 10:00:00", 41, 10)
	add("2025-05-01 10:00:00", 41, 15)
	add("2025-05-01 10:00:00", 42, 5) // no baseline
	add("2024-05-01 10:00:00", 99, 7) // not a border zone

	changes := ComputeBorderEffect(trips, border, 2024, 2025)
	require.Len(t, changes, 2)

	zoneY := changes[0]
	assert.Equal(t, 41, zoneY.DropoffZone)
	require.NotNil(t, zoneY.PercentChange)
	assert.InDelta(t, 50.0, *zoneY.PercentChange, 1e-9)

	// Zero baseline means undefined, not zero.
	zoneX := changes[1]
	assert.Equal(t, 42, zoneX.DropoffZone)
	assert.Equal(t, int64(0), zoneX.BaselineTrips)
	assert.Equal(t, int64(5), zoneX.CurrentTrips)
	assert.Nil(t, zoneX.PercentChange)
}

func TestComputeFleetComparison(t *testing.T) {
	zone := domain.NewZoneSet(100)

	rec := func(taxiType domain.TaxiType, pickup string, pickupZone, dropoffZone int) domain.TripRecord {
		ts, _ := time.Parse(domain.TimestampLayout, pickup)
		return domain.TripRecord{
			TaxiType:    taxiType,
			PickupTime:  ts,
			DropoffTime: ts.Add(10 * time.Minute),
			PickupZone:  pickupZone,
			DropoffZone: dropoffZone,
		}
	}

	trips := []domain.TripRecord{
		rec(domain.TaxiTypeYellow, "2024-02-01 10:00:00", 50, 100),
		rec(domain.TaxiTypeYellow, "2025-03-31 10:00:00", 50, 100),
		rec(domain.TaxiTypeGreen, "2025-01-15 10:00:00", 50, 100),
		rec(domain.TaxiTypeYellow, "2025-04-01 10:00:00", 50, 100), // Q2
		rec(domain.TaxiTypeYellow, "2025-02-01 10:00:00", 100, 100), // inside already
		rec(domain.TaxiTypeYellow, "2023-02-01 10:00:00", 50, 100),  // other year
	}

	counts := ComputeFleetComparison(trips, zone, 2024, 2025)
	require.Len(t, counts, 3)
	assert.Equal(t, domain.FleetQuarterCount{TaxiType: domain.TaxiTypeGreen, Year: 2025, Trips: 1}, counts[0])
	assert.Equal(t, domain.FleetQuarterCount{TaxiType: domain.TaxiTypeYellow, Year: 2024, Trips: 1}, counts[1])
	assert.Equal(t, domain.FleetQuarterCount{TaxiType: domain.TaxiTypeYellow, Year: 2025, Trips: 1}, counts[2])
}

func TestComputeRainImpact(t *testing.T) {
	days := []domain.DailyPrecipitation{
		{Date: "2025-01-01", Precipitation: 5.2},
		{Date: "2025-01-02", Precipitation: 0},
	}

	var trips []domain.TripMetrics
	add := func(day string, n int) {
		for i := 0; i < n; i++ {
			trips = append(trips, metric(day+" 10:00:00", 1, 2))
		}
	}
	add("2025-01-01", 30) // rainy
	add("2025-01-02", 10) // explicit zero precipitation
	add("2025-01-03", 20) // missing from the series

	summaries := ComputeRainImpact(trips, days)
	require.Len(t, summaries, 2)

	// Zero precipitation and missing weather both classify as dry.
	dry := summaries[0]
	assert.False(t, dry.Rainy)
	assert.InDelta(t, 15, dry.AvgDailyTrips, 1e-9)

	rainy := summaries[1]
	assert.True(t, rainy.Rainy)
	assert.InDelta(t, 30, rainy.AvgDailyTrips, 1e-9)
}

type fakeWeather struct {
	days []domain.DailyPrecipitation
}

func (f *fakeWeather) DailyPrecipitation(ctx context.Context) ([]domain.DailyPrecipitation, error) {
	return f.days, nil
}

func TestRunAllMaterializesEveryTable(t *testing.T) {
	st := store.New(t.TempDir(), nil)
	ctx := context.Background()

	clean := []domain.TripMetrics{
		metric("2024-02-01 10:00:00", 50, 100),
		metric("2025-02-01 10:00:00", 50, 41),
	}
	require.NoError(t, st.ReplaceTripMetrics(ctx, store.TableCleanTrips, clean))
	require.NoError(t, st.ReplaceTripMetrics(ctx, store.TableLeakageTrips, clean[1:]))

	unified := make([]domain.TripRecord, 0, len(clean))
	for _, m := range clean {
		unified = append(unified, m.TripRecord)
	}
	require.NoError(t, st.ReplaceTrips(ctx, store.TableUnifiedTrips, unified))
	require.NoError(t, st.ReplaceZoneSet(ctx, store.TableCongestionZone, domain.NewZoneSet(100)))
	require.NoError(t, st.ReplaceZoneSet(ctx, store.TableBorderZones, domain.NewZoneSet(41)))

	engine := New(st, config.Default().Pipeline, &fakeWeather{}, nil, nil)
	require.NoError(t, engine.RunAll(ctx))

	for _, table := range []string{
		store.TableMonthlyKPIs,
		store.TableZoneTripCounts,
		store.TableMonthlyLeakage,
		store.TableVelocityHeatmap,
		store.TableCrowdingOut,
		store.TableBorderEffect,
		store.TableQ1FleetComparison,
		store.TableRainSummary,
	} {
		assert.True(t, st.Exists(table), "table %s should exist", table)
	}
}

func TestRunAllSurfacesMissingInput(t *testing.T) {
	st := store.New(t.TempDir(), nil)

	engine := New(st, config.Default().Pipeline, &fakeWeather{}, nil, nil)
	err := engine.RunAll(context.Background())
	assert.Error(t, err)
}
