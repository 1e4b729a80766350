package domain

import (
	"time"
)

// TaxiType identifies the source fleet a trip record came from.
// The two fleets publish different raw schemas; after unification the
// type survives only as this tag.
type TaxiType string

const (
	TaxiTypeYellow TaxiType = "Yellow"
	TaxiTypeGreen  TaxiType = "Green"
)

// TimestampLayout is the wire format for pickup/dropoff timestamps in
// raw source files and in every persisted trip table.
const TimestampLayout = "2006-01-02 15:04:05"

// TripRecord is the canonical trip record after schema unification.
// A zero PickupTime or DropoffTime means the source value was absent or
// unparseable; unification passes such rows through untouched, the
// ghost-trip filter decides what happens to them. Dropoff is not
// required to be after pickup: implausible orderings are data the
// filter classifies, not load errors.
type TripRecord struct {
	TaxiType    TaxiType  `json:"taxi_type" csv:"taxi_type"`
	PickupTime  time.Time `json:"pickup_time" csv:"pickup_time"`
	DropoffTime time.Time `json:"dropoff_time" csv:"dropoff_time"`
	PickupZone  int       `json:"pickup_loc" csv:"pickup_loc"`
	DropoffZone int       `json:"dropoff_loc" csv:"dropoff_loc"`
	Distance    float64   `json:"trip_distance" csv:"trip_distance"`
	Fare        float64   `json:"fare" csv:"fare"`
	Tip         float64   `json:"tip_amount" csv:"tip_amount"`
	Total       float64   `json:"total_amount" csv:"total_amount"`
	Surcharge   *float64  `json:"congestion_surcharge" csv:"congestion_surcharge"`
}

// HasValidTimes reports whether both timestamps parsed from the source.
func (t *TripRecord) HasValidTimes() bool {
	return !t.PickupTime.IsZero() && !t.DropoffTime.IsZero()
}

// HasSurcharge reports whether the trip carries a positive congestion
// surcharge. A nil surcharge counts as not charged.
func (t *TripRecord) HasSurcharge() bool {
	return t.Surcharge != nil && *t.Surcharge > 0
}

// TripMetrics extends TripRecord with metrics derived once at the
// ghost-filter stage. Both the clean and audit tables persist these
// columns; downstream aggregation never recomputes them.
type TripMetrics struct {
	TripRecord
	DurationMinutes float64 `json:"duration_minutes" csv:"duration_minutes"`
	AvgSpeedMPH     float64 `json:"avg_speed_mph" csv:"avg_speed_mph"`
}

// DeriveMetrics computes duration and average speed for a trip.
// Speed is zero (undefined) when the duration is not positive.
func DeriveMetrics(rec TripRecord) TripMetrics {
	seconds := rec.DropoffTime.Sub(rec.PickupTime).Seconds()
	m := TripMetrics{
		TripRecord:      rec,
		DurationMinutes: seconds / 60,
	}
	if seconds > 0 {
		m.AvgSpeedMPH = rec.Distance / (seconds / 3600)
	}
	return m
}

// HasDefinedSpeed reports whether the persisted average speed is a real
// measurement. Zero-or-negative durations make speed undefined; those
// trips are excluded from speed means but still counted elsewhere.
func (m *TripMetrics) HasDefinedSpeed() bool {
	return m.DurationMinutes > 0
}

// Month returns the calendar-month grouping key (YYYY-MM) of the pickup.
func (m *TripMetrics) Month() string {
	return m.PickupTime.Format("2006-01")
}
