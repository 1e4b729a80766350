package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
}

func TestFindTripFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "yellow_tripdata_2025-02.csv")
	touch(t, dir, "yellow_tripdata_2025-01.csv")
	touch(t, dir, "green_tripdata_2025-01.csv")
	touch(t, dir, "taxi_zone_lookup.csv")

	d := NewDiscovery(dir)

	yellow, err := d.FindTripFiles("yellow")
	require.NoError(t, err)
	require.Len(t, yellow, 2)
	// Name order doubles as month order.
	assert.Equal(t, "yellow_tripdata_2025-01.csv", yellow[0].Name)
	assert.Equal(t, "yellow_tripdata_2025-02.csv", yellow[1].Name)

	green, err := d.FindTripFiles("green")
	require.NoError(t, err)
	assert.Len(t, green, 1)
}

func TestFindTripFilesEmptyDir(t *testing.T) {
	d := NewDiscovery(t.TempDir())

	found, err := d.FindTripFiles("yellow")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestHasFileForPeriod(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "yellow_tripdata_2025-12.csv")

	d := NewDiscovery(dir)

	found, err := d.HasFileForPeriod("2025-12")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = d.HasFileForPeriod("2025-11")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHasFileForPeriodMissingDir(t *testing.T) {
	d := NewDiscovery(filepath.Join(t.TempDir(), "absent"))

	found, err := d.HasFileForPeriod("2025-12")
	require.NoError(t, err)
	assert.False(t, found)
}
