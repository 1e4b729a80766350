package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ts(s string) time.Time {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDeriveMetrics(t *testing.T) {
	tests := []struct {
		name         string
		pickup       string
		dropoff      string
		distance     float64
		wantDuration float64
		wantSpeed    float64
	}{
		{
			name:         "half hour at city speed",
			pickup:       "2025-03-01 10:00:00",
			dropoff:      "2025-03-01 10:30:00",
			distance:     6,
			wantDuration: 30,
			wantSpeed:    12,
		},
		{
			name:         "one hour exactly",
			pickup:       "2025-03-01 08:00:00",
			dropoff:      "2025-03-01 09:00:00",
			distance:     20,
			wantDuration: 60,
			wantSpeed:    20,
		},
		{
			name:         "zero duration yields zero speed",
			pickup:       "2025-03-01 10:00:00",
			dropoff:      "2025-03-01 10:00:00",
			distance:     5,
			wantDuration: 0,
			wantSpeed:    0,
		},
		{
			name:         "negative duration yields zero speed",
			pickup:       "2025-03-01 10:30:00",
			dropoff:      "2025-03-01 10:00:00",
			distance:     5,
			wantDuration: -30,
			wantSpeed:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DeriveMetrics(TripRecord{
				PickupTime:  ts(tt.pickup),
				DropoffTime: ts(tt.dropoff),
				Distance:    tt.distance,
			})
			assert.InDelta(t, tt.wantDuration, m.DurationMinutes, 1e-9)
			assert.InDelta(t, tt.wantSpeed, m.AvgSpeedMPH, 1e-9)
		})
	}
}

func TestHasDefinedSpeed(t *testing.T) {
	defined := DeriveMetrics(TripRecord{
		PickupTime:  ts("2025-01-01 10:00:00"),
		DropoffTime: ts("2025-01-01 10:10:00"),
		Distance:    2,
	})
	assert.True(t, defined.HasDefinedSpeed())

	undefined := DeriveMetrics(TripRecord{
		PickupTime:  ts("2025-01-01 10:00:00"),
		DropoffTime: ts("2025-01-01 10:00:00"),
		Distance:    2,
	})
	assert.False(t, undefined.HasDefinedSpeed())
}

func TestHasValidTimes(t *testing.T) {
	valid := TripRecord{PickupTime: ts("2025-01-01 10:00:00"), DropoffTime: ts("2025-01-01 10:05:00")}
	assert.True(t, valid.HasValidTimes())

	missingDropoff := TripRecord{PickupTime: ts("2025-01-01 10:00:00")}
	assert.False(t, missingDropoff.HasValidTimes())

	var empty TripRecord
	assert.False(t, empty.HasValidTimes())
}

func TestHasSurcharge(t *testing.T) {
	positive := 2.5
	zero := 0.0
	negative := -1.0

	assert.True(t, (&TripRecord{Surcharge: &positive}).HasSurcharge())
	assert.False(t, (&TripRecord{Surcharge: &zero}).HasSurcharge())
	assert.False(t, (&TripRecord{Surcharge: &negative}).HasSurcharge())
	assert.False(t, (&TripRecord{}).HasSurcharge())
}

func TestMonth(t *testing.T) {
	m := TripMetrics{TripRecord: TripRecord{PickupTime: ts("2025-12-31 23:59:59")}}
	assert.Equal(t, "2025-12", m.Month())
}

func TestBlend(t *testing.T) {
	early := ImputedStats{Trips: 100, AvgFare: 10}
	late := ImputedStats{Trips: 200, AvgFare: 20}

	blended := Blend(early, late, 0.3, 0.7)

	assert.InDelta(t, 170, blended.Trips, 1e-9)
	assert.InDelta(t, 17.0, blended.AvgFare, 1e-9)
}
