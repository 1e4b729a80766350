// Package zones derives the congestion-zone geography from the TLC
// zone lookup table. The congestion zone is the target borough minus a
// fixed list of excluded neighborhoods; the border zones are the rest
// of the borough. The two sets partition the borough and are persisted
// as reference tables for the leakage and aggregation stages.
package zones

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"taxipulse/internal/config"
	"taxipulse/internal/errors"
	"taxipulse/internal/store"
	"taxipulse/pkg/contracts/domain"
)

// Deriver builds and persists the congestion and border zone sets.
type Deriver struct {
	store      *store.Store
	lookupPath string
	cfg        config.PipelineConfig
	logger     *slog.Logger
}

// New creates a deriver reading the lookup table at lookupPath.
func New(st *store.Store, lookupPath string, cfg config.PipelineConfig, logger *slog.Logger) *Deriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deriver{store: st, lookupPath: lookupPath, cfg: cfg, logger: logger}
}

// Run loads the zone lookup, derives both sets, and replaces their
// tables. It returns (congestion, border).
func (d *Deriver) Run(ctx context.Context) (domain.ZoneSet, domain.ZoneSet, error) {
	lookup, err := LoadLookup(d.lookupPath)
	if err != nil {
		return nil, nil, err
	}

	congestion, border := Derive(lookup, d.cfg.TargetBorough, d.cfg.ExcludedZoneNames)
	if len(congestion) == 0 {
		return nil, nil, errors.NewValidationError(
			fmt.Sprintf("no congestion zones derived for borough %s", d.cfg.TargetBorough))
	}

	if err := d.store.ReplaceZoneSet(ctx, store.TableCongestionZone, congestion); err != nil {
		return nil, nil, err
	}
	if err := d.store.ReplaceZoneSet(ctx, store.TableBorderZones, border); err != nil {
		return nil, nil, err
	}

	d.logger.InfoContext(ctx, "zone sets derived",
		slog.String("borough", d.cfg.TargetBorough),
		slog.Int("congestion_zones", len(congestion)),
		slog.Int("border_zones", len(border)))

	return congestion, border, nil
}

// Derive splits the target borough's zones into the congestion set and
// the border set. A zone is excluded from the congestion set, and so
// lands in the border set, when its name contains any of the excluded
// neighborhood names as a substring. The two sets are disjoint and
// together cover the borough exactly.
func Derive(lookup []domain.ZoneLookup, borough string, excludedNames []string) (congestion, border domain.ZoneSet) {
	congestion = make(domain.ZoneSet)
	border = make(domain.ZoneSet)

	for _, z := range lookup {
		if z.Borough != borough {
			continue
		}
		if zoneExcluded(z.Zone, excludedNames) {
			border[z.LocationID] = struct{}{}
		} else {
			congestion[z.LocationID] = struct{}{}
		}
	}

	return congestion, border
}

func zoneExcluded(zoneName string, excludedNames []string) bool {
	for _, name := range excludedNames {
		if strings.Contains(zoneName, name) {
			return true
		}
	}
	return false
}

// LoadLookup parses the TLC zone lookup CSV. Columns resolve by header
// name, so the trailing service_zone column and any reordering are
// ignored.
func LoadLookup(path string) ([]domain.ZoneLookup, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewMissingDependencyError("zone lookup table", err)
		}
		return nil, errors.NewStorageError(fmt.Sprintf("failed to open zone lookup %s", path), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("failed to parse zone lookup %s", path), err)
	}
	if len(records) < 2 {
		return nil, errors.NewParsingError("zone lookup has no data rows", nil)
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"locationid", "borough", "zone"} {
		if _, ok := col[name]; !ok {
			return nil, errors.NewParsingError(
				fmt.Sprintf("zone lookup is missing column %s", name), nil)
		}
	}

	// Only the required columns must be present in every row; a ragged
	// row may still drop the trailing service_zone column.
	minCells := 0
	for _, name := range []string{"locationid", "borough", "zone"} {
		if idx := col[name]; idx+1 > minCells {
			minCells = idx + 1
		}
	}

	lookup := make([]domain.ZoneLookup, 0, len(records)-1)
	for i, row := range records[1:] {
		if len(row) < minCells {
			return nil, errors.NewParsingError(
				fmt.Sprintf("zone lookup row %d has %d cells, want %d", i+1, len(row), minCells), nil)
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[col["locationid"]]))
		if err != nil {
			return nil, errors.NewParsingError(
				fmt.Sprintf("zone lookup row %d: bad location id %q", i+1, row[col["locationid"]]), err)
		}
		lookup = append(lookup, domain.ZoneLookup{
			LocationID: id,
			Borough:    strings.TrimSpace(row[col["borough"]]),
			Zone:       strings.TrimSpace(row[col["zone"]]),
		})
	}

	return lookup, nil
}
