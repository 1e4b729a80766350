package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"taxipulse/internal/errors"
	"taxipulse/pkg/contracts/domain"
)

// Column layouts of the trip-level tables. Order is part of the public
// contract.
var (
	tripHeader = []string{
		"taxi_type", "pickup_time", "dropoff_time", "pickup_loc", "dropoff_loc",
		"trip_distance", "fare", "tip_amount", "total_amount", "congestion_surcharge",
	}
	tripMetricsHeader = append(append([]string{}, tripHeader...),
		"duration_minutes", "avg_speed_mph")
	zoneHeader = []string{"location_id"}
)

// FormatFloat renders a float with the shortest representation that
// round-trips exactly. Numeric cells must survive a write/read cycle
// unchanged for the pipeline to be idempotent.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatNullableFloat renders a nullable float; nil becomes an empty
// cell, never zero.
func FormatNullableFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatFloat(*v)
}

// FormatTime renders a timestamp in the table layout; the zero time
// becomes an empty cell.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.TimestampLayout)
}

// ParseTime parses a table timestamp cell; an empty cell yields the
// zero time.
func ParseTime(cell string) time.Time {
	if cell == "" {
		return time.Time{}
	}
	t, err := time.Parse(domain.TimestampLayout, cell)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeTrip(t domain.TripRecord) []string {
	return []string{
		string(t.TaxiType),
		FormatTime(t.PickupTime),
		FormatTime(t.DropoffTime),
		strconv.Itoa(t.PickupZone),
		strconv.Itoa(t.DropoffZone),
		FormatFloat(t.Distance),
		FormatFloat(t.Fare),
		FormatFloat(t.Tip),
		FormatFloat(t.Total),
		FormatNullableFloat(t.Surcharge),
	}
}

func decodeTrip(row []string) (domain.TripRecord, error) {
	if len(row) < len(tripHeader) {
		return domain.TripRecord{}, fmt.Errorf("trip row has %d cells, want at least %d", len(row), len(tripHeader))
	}

	pickupZone, _ := strconv.Atoi(row[3])
	dropoffZone, _ := strconv.Atoi(row[4])
	distance, _ := strconv.ParseFloat(row[5], 64)
	fare, _ := strconv.ParseFloat(row[6], 64)
	tip, _ := strconv.ParseFloat(row[7], 64)
	total, _ := strconv.ParseFloat(row[8], 64)

	var surcharge *float64
	if row[9] != "" {
		v, err := strconv.ParseFloat(row[9], 64)
		if err == nil {
			surcharge = &v
		}
	}

	return domain.TripRecord{
		TaxiType:    domain.TaxiType(row[0]),
		PickupTime:  ParseTime(row[1]),
		DropoffTime: ParseTime(row[2]),
		PickupZone:  pickupZone,
		DropoffZone: dropoffZone,
		Distance:    distance,
		Fare:        fare,
		Tip:         tip,
		Total:       total,
		Surcharge:   surcharge,
	}, nil
}

// ReplaceTrips replaces a trip-level table (unified schema, no derived
// metrics).
func (s *Store) ReplaceTrips(ctx context.Context, name string, trips []domain.TripRecord) error {
	rows := make([][]string, 0, len(trips))
	for _, t := range trips {
		rows = append(rows, encodeTrip(t))
	}
	return s.Replace(ctx, name, tripHeader, rows)
}

// ReadTrips loads a trip-level table.
func (s *Store) ReadTrips(ctx context.Context, name string) ([]domain.TripRecord, error) {
	_, rows, err := s.Read(ctx, name)
	if err != nil {
		return nil, err
	}

	trips := make([]domain.TripRecord, 0, len(rows))
	for i, row := range rows {
		trip, err := decodeTrip(row)
		if err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("table %s row %d", name, i), err)
		}
		trips = append(trips, trip)
	}
	return trips, nil
}

// ReplaceTripMetrics replaces a trip table that carries the derived
// duration and speed columns (clean trips, audit log, leakage trips).
func (s *Store) ReplaceTripMetrics(ctx context.Context, name string, trips []domain.TripMetrics) error {
	rows := make([][]string, 0, len(trips))
	for _, t := range trips {
		row := append(encodeTrip(t.TripRecord),
			FormatFloat(t.DurationMinutes),
			FormatFloat(t.AvgSpeedMPH))
		rows = append(rows, row)
	}
	return s.Replace(ctx, name, tripMetricsHeader, rows)
}

// ReadTripMetrics loads a trip table with derived metric columns.
func (s *Store) ReadTripMetrics(ctx context.Context, name string) ([]domain.TripMetrics, error) {
	_, rows, err := s.Read(ctx, name)
	if err != nil {
		return nil, err
	}

	trips := make([]domain.TripMetrics, 0, len(rows))
	for i, row := range rows {
		if len(row) < len(tripMetricsHeader) {
			return nil, errors.NewParsingError(
				fmt.Sprintf("table %s row %d has %d cells, want %d", name, i, len(row), len(tripMetricsHeader)), nil)
		}
		trip, err := decodeTrip(row)
		if err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("table %s row %d", name, i), err)
		}
		duration, _ := strconv.ParseFloat(row[len(tripHeader)], 64)
		speed, _ := strconv.ParseFloat(row[len(tripHeader)+1], 64)
		trips = append(trips, domain.TripMetrics{
			TripRecord:      trip,
			DurationMinutes: duration,
			AvgSpeedMPH:     speed,
		})
	}
	return trips, nil
}

// ReplaceZoneSet replaces a zone reference table with the set members
// in ascending ID order.
func (s *Store) ReplaceZoneSet(ctx context.Context, name string, zones domain.ZoneSet) error {
	ids := zones.IDs()
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{strconv.Itoa(id)})
	}
	return s.Replace(ctx, name, zoneHeader, rows)
}

// ReadZoneSet loads a zone reference table.
func (s *Store) ReadZoneSet(ctx context.Context, name string) (domain.ZoneSet, error) {
	_, rows, err := s.Read(ctx, name)
	if err != nil {
		return nil, err
	}

	zones := make(domain.ZoneSet, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("table %s row %d: bad zone id %q", name, i, row[0]), err)
		}
		zones[id] = struct{}{}
	}
	return zones, nil
}
