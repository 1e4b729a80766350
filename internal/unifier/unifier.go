// Package unifier loads the per-month raw trip files of both fleets
// and merges them into the single unified trip table. The two fleets
// publish different column names for the same concepts; unification
// maps both onto one schema and tags each row with its source fleet.
// No rows are dropped here: malformed values pass through as zero
// values for the downstream filter to classify.
package unifier

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"taxipulse/internal/errors"
	"taxipulse/internal/files"
	"taxipulse/internal/store"
	"taxipulse/pkg/contracts/domain"
)

// Per-fleet source column names for the pickup/dropoff timestamps.
// Everything else shares names across fleets.
var timestampColumns = map[domain.TaxiType][2]string{
	domain.TaxiTypeYellow: {"tpep_pickup_datetime", "tpep_dropoff_datetime"},
	domain.TaxiTypeGreen:  {"lpep_pickup_datetime", "lpep_dropoff_datetime"},
}

// Unifier merges raw trip files into the unified table.
type Unifier struct {
	discovery *files.Discovery
	store     *store.Store
	logger    *slog.Logger
}

// New creates a unifier reading from discovery and writing through the
// table store.
func New(discovery *files.Discovery, st *store.Store, logger *slog.Logger) *Unifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Unifier{discovery: discovery, store: st, logger: logger}
}

// Run loads every discovered raw file of both fleets and replaces the
// unified trip table. It returns the number of unified rows. At least
// one raw file must exist; an empty raw directory means the fetch stage
// has not run.
func (u *Unifier) Run(ctx context.Context) (int, error) {
	var unified []domain.TripRecord
	fileCount := 0

	for _, taxiType := range []domain.TaxiType{domain.TaxiTypeYellow, domain.TaxiTypeGreen} {
		fleet := strings.ToLower(string(taxiType))
		tripFiles, err := u.discovery.FindTripFiles(fleet)
		if err != nil {
			return 0, errors.NewStorageError(fmt.Sprintf("failed to discover %s trip files", fleet), err)
		}

		for _, f := range tripFiles {
			trips, err := ReadRawTripFile(f.Path, taxiType)
			if err != nil {
				return 0, err
			}
			unified = append(unified, trips...)
			fileCount++

			u.logger.InfoContext(ctx, "loaded raw trip file",
				slog.String("file", f.Name),
				slog.String("taxi_type", string(taxiType)),
				slog.Int("rows", len(trips)))
		}
	}

	if fileCount == 0 {
		return 0, errors.NewMissingDependencyError("raw trip files", nil)
	}

	if err := u.store.ReplaceTrips(ctx, store.TableUnifiedTrips, unified); err != nil {
		return 0, err
	}

	u.logger.InfoContext(ctx, "unified trip table replaced",
		slog.Int("files", fileCount),
		slog.Int("rows", len(unified)))

	return len(unified), nil
}

// ReadRawTripFile parses one raw per-month trip file into unified
// records. Column positions come from the header row, so extra source
// columns and reorderings are harmless. Unparseable timestamps yield
// the zero time and unparseable numerics yield zero; a blank surcharge
// stays nil to distinguish "not charged" from "charged nothing".
func ReadRawTripFile(path string, taxiType domain.TaxiType) ([]domain.TripRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(fmt.Sprintf("failed to open raw file %s", path), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("failed to read header of %s", path), err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	tsCols := timestampColumns[taxiType]
	required := []string{tsCols[0], tsCols[1], "pulocationid", "dolocationid",
		"trip_distance", "fare_amount", "tip_amount", "total_amount"}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, errors.NewParsingError(
				fmt.Sprintf("raw file %s is missing column %s", path, name), nil)
		}
	}
	surchargeIdx, hasSurcharge := col["congestion_surcharge"]

	cell := func(row []string, name string) string {
		idx := col[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var trips []domain.TripRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("failed to read row of %s", path), err)
		}

		rec := domain.TripRecord{
			TaxiType:    taxiType,
			PickupTime:  parseTimestamp(cell(row, tsCols[0])),
			DropoffTime: parseTimestamp(cell(row, tsCols[1])),
			PickupZone:  parseInt(cell(row, "pulocationid")),
			DropoffZone: parseInt(cell(row, "dolocationid")),
			Distance:    parseFloat(cell(row, "trip_distance")),
			Fare:        parseFloat(cell(row, "fare_amount")),
			Tip:         parseFloat(cell(row, "tip_amount")),
			Total:       parseFloat(cell(row, "total_amount")),
		}
		if hasSurcharge && surchargeIdx < len(row) {
			if raw := strings.TrimSpace(row[surchargeIdx]); raw != "" {
				if v, err := strconv.ParseFloat(raw, 64); err == nil {
					rec.Surcharge = &v
				}
			}
		}
		trips = append(trips, rec)
	}

	return trips, nil
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(domain.TimestampLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseInt(raw string) int {
	v, _ := strconv.Atoi(raw)
	return v
}

func parseFloat(raw string) float64 {
	v, _ := strconv.ParseFloat(raw, 64)
	return v
}
