package domain

// Aggregate row types. Each struct is one row of a persisted output
// table; the csv tags are the public column contract with the Dashboard
// and must stay stable across pipeline versions. Nullable metrics use
// pointers and serialize to empty cells, never to zero.

// MonthlyKPI summarizes clean trips for one calendar month.
type MonthlyKPI struct {
	Month              string  `json:"month" csv:"month"`
	TotalTrips         int64   `json:"total_trips" csv:"total_trips"`
	TotalRevenue       float64 `json:"total_revenue" csv:"total_revenue"`
	CongestionRevenue  float64 `json:"congestion_revenue" csv:"congestion_revenue"`
	AvgDistance        float64 `json:"avg_distance" csv:"avg_distance"`
	AvgDurationMinutes float64 `json:"avg_duration_minutes" csv:"avg_duration_minutes"`
}

// ZoneTripCount is the per-pickup-zone volume row, sorted descending by
// trip count for top-N consumption.
type ZoneTripCount struct {
	PickupZone int     `json:"pickup_loc" csv:"pickup_loc"`
	TripCount  int64   `json:"trip_count" csv:"trip_count"`
	Revenue    float64 `json:"revenue" csv:"revenue"`
}

// MonthlyLeakage summarizes uncharged zone entries for one month.
type MonthlyLeakage struct {
	Month          string  `json:"month" csv:"month"`
	LeakageTrips   int64   `json:"leakage_trips" csv:"leakage_trips"`
	LeakageRevenue float64 `json:"leakage_revenue" csv:"leakage_revenue"`
}

// ComplianceStats is the single-row surcharge compliance summary over
// the entering-trip set.
type ComplianceStats struct {
	TotalEntering  int64 `json:"total_entering" csv:"total_entering"`
	CompliantTrips int64 `json:"compliant_trips" csv:"compliant_trips"`
}

// LeakagePickup ranks an origin zone by uncharged entering trips.
type LeakagePickup struct {
	PickupZone   int   `json:"pickup_loc" csv:"pickup_loc"`
	LeakageCount int64 `json:"leakage_count" csv:"leakage_count"`
}

// HeatmapCell is the mean in-zone speed for one (weekday, hour) slot.
// Weekday follows time.Weekday numbering, Sunday = 0.
type HeatmapCell struct {
	Weekday     int     `json:"weekday" csv:"weekday"`
	Hour        int     `json:"hour" csv:"hour"`
	AvgSpeedMPH float64 `json:"avg_speed_mph" csv:"avg_speed_mph"`
}

// TippingSummary is the monthly surcharge-vs-tipping comparison row.
// Only trips with a defined tip ratio (fare > 0) contribute.
type TippingSummary struct {
	Month        string  `json:"month" csv:"month"`
	AvgSurcharge float64 `json:"avg_surcharge" csv:"avg_surcharge"`
	AvgTipRatio  float64 `json:"avg_tip_ratio" csv:"avg_tip_ratio"`
}

// BorderChange compares dropoff volume in one border zone across the
// two comparison years. PercentChange is nil when the baseline year had
// no trips: a missing baseline is undefined, not zero.
type BorderChange struct {
	DropoffZone   int      `json:"dropoff_loc" csv:"dropoff_loc"`
	BaselineTrips int64    `json:"baseline_trips" csv:"baseline_trips"`
	CurrentTrips  int64    `json:"current_trips" csv:"current_trips"`
	PercentChange *float64 `json:"percent_change" csv:"percent_change"`
}

// FleetQuarterCount counts first-quarter zone entries for one fleet in
// one comparison year.
type FleetQuarterCount struct {
	TaxiType TaxiType `json:"taxi_type" csv:"taxi_type"`
	Year     int      `json:"year" csv:"year"`
	Trips    int64    `json:"trips" csv:"trips"`
}

// RainSummary is the mean daily trip count for rainy vs dry days.
type RainSummary struct {
	Rainy         bool    `json:"rainy" csv:"rainy"`
	AvgDailyTrips float64 `json:"avg_daily_trips" csv:"avg_daily_trips"`
}

// ImputedStats is the synthetic month-level statistics row produced by
// the December imputer. Values are a weighted blend of the two
// reference Decembers, so even the trip count is fractional.
type ImputedStats struct {
	Trips        float64 `json:"trips" csv:"trips"`
	AvgDistance  float64 `json:"avg_distance" csv:"avg_distance"`
	AvgFare      float64 `json:"avg_fare" csv:"avg_fare"`
	AvgTotal     float64 `json:"avg_total" csv:"avg_total"`
	AvgSurcharge float64 `json:"avg_surcharge" csv:"avg_surcharge"`
}

// Blend returns the linear blend a*wa + b*wb of two reference stats
// rows, field by field.
func Blend(a, b ImputedStats, wa, wb float64) ImputedStats {
	return ImputedStats{
		Trips:        a.Trips*wa + b.Trips*wb,
		AvgDistance:  a.AvgDistance*wa + b.AvgDistance*wb,
		AvgFare:      a.AvgFare*wa + b.AvgFare*wb,
		AvgTotal:     a.AvgTotal*wa + b.AvgTotal*wb,
		AvgSurcharge: a.AvgSurcharge*wa + b.AvgSurcharge*wb,
	}
}

// DailyPrecipitation is one day of the cached weather series.
type DailyPrecipitation struct {
	Date          string  `json:"trip_date" csv:"trip_date"`
	Precipitation float64 `json:"precipitation" csv:"precipitation"`
}
