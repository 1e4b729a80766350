// Package exporter writes the aggregate output tables into a single
// analyst workbook, one sheet per table. The workbook is a convenience
// artifact; the CSV tables remain the authoritative contract.
package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"taxipulse/internal/errors"
	"taxipulse/internal/store"
)

// WorkbookName is the exported workbook file name.
const WorkbookName = "taxi_analytics.xlsx"

// Tables lists the tables included in the workbook. Trip-level tables
// are omitted: they run to millions of rows and belong in CSV.
var Tables = []string{
	store.TableMonthlyKPIs,
	store.TableZoneTripCounts,
	store.TableMonthlyLeakage,
	store.TableComplianceStats,
	store.TableTopLeakagePickups,
	store.TableVelocityHeatmap,
	store.TableCrowdingOut,
	store.TableBorderEffect,
	store.TableQ1FleetComparison,
	store.TableRainSummary,
	store.TableImputedDecember,
}

// Exporter renders persisted tables into an xlsx workbook.
type Exporter struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates a workbook exporter.
func New(st *store.Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: st, logger: logger}
}

// Export writes the workbook to destPath. Tables not yet persisted are
// skipped; the December statistics table in particular only exists when
// the imputer ran.
func (e *Exporter) Export(ctx context.Context, destPath string) error {
	wb := excelize.NewFile()
	defer wb.Close()

	sheets := 0
	for _, name := range Tables {
		if !e.store.Exists(name) {
			continue
		}
		header, rows, err := e.store.Read(ctx, name)
		if err != nil {
			return err
		}
		if err := writeSheet(wb, name, header, rows); err != nil {
			return err
		}
		sheets++
	}

	if sheets == 0 {
		return errors.NewMissingDependencyError("aggregate tables for export", nil)
	}

	// The default sheet excelize creates is replaced by the first table.
	if err := wb.DeleteSheet("Sheet1"); err != nil {
		return errors.NewStorageError("failed to drop default sheet", err)
	}

	if err := wb.SaveAs(destPath); err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to save workbook %s", destPath), err)
	}

	e.logger.InfoContext(ctx, "workbook exported",
		slog.String("path", destPath),
		slog.Int("sheets", sheets))

	return nil
}

func writeSheet(wb *excelize.File, name string, header []string, rows [][]string) error {
	if _, err := wb.NewSheet(name); err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to create sheet %s", name), err)
	}

	if err := setRow(wb, name, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(wb, name, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(wb *excelize.File, sheet string, rowNum int, cells []string) error {
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return errors.NewStorageError("failed to compute cell coordinates", err)
	}
	if err := wb.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to write row %d of sheet %s", rowNum, sheet), err)
	}
	return nil
}
