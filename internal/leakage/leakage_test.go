package leakage

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

func metric(pickup string, pickupZone, dropoffZone int, surcharge *float64) domain.TripMetrics {
	ts, _ := time.Parse(domain.TimestampLayout, pickup)
	return domain.TripMetrics{
		TripRecord: domain.TripRecord{
			TaxiType:    domain.TaxiTypeYellow,
			PickupTime:  ts,
			DropoffTime: ts.Add(15 * time.Minute),
			PickupZone:  pickupZone,
			DropoffZone: dropoffZone,
			Distance:    2,
			Fare:        10,
			Total:       12,
			Surcharge:   surcharge,
		},
		DurationMinutes: 15,
		AvgSpeedMPH:     8,
	}
}

func fptr(v float64) *float64 { return &v }

func TestEnteringTrips(t *testing.T) {
	zone := domain.NewZoneSet(100, 101)

	trips := []domain.TripMetrics{
		metric("2025-01-01 10:00:00", 50, 100, nil),  // entering
		metric("2025-01-01 10:00:00", 100, 101, nil), // already inside
		metric("2025-01-01 10:00:00", 50, 60, nil),   // never enters
		metric("2025-01-01 10:00:00", 100, 50, nil),  // leaving
		metric("2023-06-01 10:00:00", 50, 100, nil),  // before the policy
	}

	entering := EnteringTrips(trips, zone, 2024)
	require.Len(t, entering, 1)
	assert.Equal(t, 50, entering[0].PickupZone)
}

func TestTopLeakagePickups(t *testing.T) {
	var leaks []domain.TripMetrics
	add := func(zone, n int) {
		for i := 0; i < n; i++ {
			leaks = append(leaks, metric("2025-01-01 10:00:00", zone, 100, nil))
		}
	}
	add(7, 5)
	add(13, 2)
	add(4, 5)
	add(9, 1)

	top := TopLeakagePickups(leaks, 3)
	require.Len(t, top, 3)

	// Equal counts break ties on the lower zone ID.
	assert.Equal(t, domain.LeakagePickup{PickupZone: 4, LeakageCount: 5}, top[0])
	assert.Equal(t, domain.LeakagePickup{PickupZone: 7, LeakageCount: 5}, top[1])
	assert.Equal(t, domain.LeakagePickup{PickupZone: 13, LeakageCount: 2}, top[2])
}

func TestRunAudit(t *testing.T) {
	st := store.New(t.TempDir(), nil)
	ctx := context.Background()

	clean := []domain.TripMetrics{
		metric("2025-01-01 10:00:00", 50, 100, fptr(2.5)), // compliant
		metric("2025-01-02 10:00:00", 50, 100, nil),       // leakage: null
		metric("2025-01-03 10:00:00", 51, 100, fptr(0)),   // leakage: zero
		metric("2025-01-04 10:00:00", 51, 100, fptr(-1)),  // leakage: negative
		metric("2025-01-05 10:00:00", 100, 101, fptr(2.5)), // inside, not entering
	}
	require.NoError(t, st.ReplaceTripMetrics(ctx, store.TableCleanTrips, clean))
	require.NoError(t, st.ReplaceZoneSet(ctx, store.TableCongestionZone, domain.NewZoneSet(100, 101)))

	a := New(st, config.Default().Pipeline, nil)
	stats, err := a.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalEntering)
	assert.Equal(t, int64(1), stats.CompliantTrips)

	leaks, err := st.ReadTripMetrics(ctx, store.TableLeakageTrips)
	require.NoError(t, err)
	require.Len(t, leaks, 3)
	for _, l := range leaks {
		assert.False(t, l.HasSurcharge())
	}

	_, topRows, err := st.Read(ctx, store.TableTopLeakagePickups)
	require.NoError(t, err)
	require.Len(t, topRows, 2)
	assert.Equal(t, []string{"51", "2"}, topRows[0])
	assert.Equal(t, []string{"50", "1"}, topRows[1])
}

func TestRunRequiresUpstreamTables(t *testing.T) {
	st := store.New(t.TempDir(), nil)

	a := New(st, config.Default().Pipeline, nil)
	_, err := a.Run(context.Background())
	assert.Error(t, err)
}
