package exporter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"taxipulse/internal/errors"
	"taxipulse/internal/store"
)

func TestExportWritesOneSheetPerTable(t *testing.T) {
	st := store.New(t.TempDir(), nil)
	ctx := context.Background()

	require.NoError(t, st.Replace(ctx, store.TableMonthlyKPIs,
		[]string{"month", "total_trips"},
		[][]string{{"2025-01", "100"}}))
	require.NoError(t, st.Replace(ctx, store.TableRainSummary,
		[]string{"rainy", "avg_daily_trips"},
		[][]string{{"false", "15"}, {"true", "30"}}))

	dest := filepath.Join(t.TempDir(), WorkbookName)
	require.NoError(t, New(st, nil).Export(ctx, dest))

	wb, err := excelize.OpenFile(dest)
	require.NoError(t, err)
	defer wb.Close()

	sheets := wb.GetSheetList()
	assert.ElementsMatch(t, []string{store.TableMonthlyKPIs, store.TableRainSummary}, sheets)

	rows, err := wb.GetRows(store.TableRainSummary)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"rainy", "avg_daily_trips"}, rows[0])
	assert.Equal(t, []string{"true", "30"}, rows[2])
}

func TestExportSkipsAbsentTables(t *testing.T) {
	st := store.New(t.TempDir(), nil)
	ctx := context.Background()

	require.NoError(t, st.Replace(ctx, store.TableComplianceStats,
		[]string{"total_entering", "compliant_trips"},
		[][]string{{"10", "7"}}))

	dest := filepath.Join(t.TempDir(), WorkbookName)
	require.NoError(t, New(st, nil).Export(ctx, dest))

	wb, err := excelize.OpenFile(dest)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{store.TableComplianceStats}, wb.GetSheetList())
}

func TestExportFailsWithNothingToExport(t *testing.T) {
	st := store.New(t.TempDir(), nil)

	err := New(st, nil).Export(context.Background(), filepath.Join(t.TempDir(), WorkbookName))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeMissingDependency))
}
