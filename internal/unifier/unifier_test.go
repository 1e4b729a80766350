package unifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxipulse/internal/errors"
	"taxipulse/internal/files"
	"taxipulse/internal/store"
	"taxipulse/pkg/contracts/domain"
)

const yellowCSV = `VendorID,tpep_pickup_datetime,tpep_dropoff_datetime,passenger_count,trip_distance,PULocationID,DOLocationID,fare_amount,tip_amount,total_amount,congestion_surcharge
1,2025-01-15 08:30:00,2025-01-15 08:52:00,1,3.2,161,230,18.5,3.7,24.95,2.5
2,2025-01-15 09:00:00,2025-01-15 09:10:00,2,1.1,100,161,7.0,1.0,8.0,
1,not-a-timestamp,2025-01-15 10:00:00,1,2.0,50,60,10.0,0,10.0,0
`

const greenCSV = `VendorID,lpep_pickup_datetime,lpep_dropoff_datetime,trip_distance,PULocationID,DOLocationID,fare_amount,tip_amount,total_amount,congestion_surcharge
2,2025-02-01 12:00:00,2025-02-01 12:20:00,4.0,74,75,15.0,2.0,17.0,0
`

func writeRawFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadRawTripFileYellow(t *testing.T) {
	dir := t.TempDir()
	path := writeRawFile(t, dir, "yellow_tripdata_2025-01.csv", yellowCSV)

	trips, err := ReadRawTripFile(path, domain.TaxiTypeYellow)
	require.NoError(t, err)
	require.Len(t, trips, 3)

	first := trips[0]
	assert.Equal(t, domain.TaxiTypeYellow, first.TaxiType)
	assert.Equal(t, 161, first.PickupZone)
	assert.Equal(t, 230, first.DropoffZone)
	assert.InDelta(t, 3.2, first.Distance, 1e-9)
	assert.InDelta(t, 24.95, first.Total, 1e-9)
	require.NotNil(t, first.Surcharge)
	assert.InDelta(t, 2.5, *first.Surcharge, 1e-9)

	// Blank surcharge cell stays nil.
	assert.Nil(t, trips[1].Surcharge)

	// Unparseable timestamp passes through as the zero time.
	assert.True(t, trips[2].PickupTime.IsZero())
	assert.False(t, trips[2].DropoffTime.IsZero())
}

func TestReadRawTripFileGreen(t *testing.T) {
	dir := t.TempDir()
	path := writeRawFile(t, dir, "green_tripdata_2025-02.csv", greenCSV)

	trips, err := ReadRawTripFile(path, domain.TaxiTypeGreen)
	require.NoError(t, err)
	require.Len(t, trips, 1)

	assert.Equal(t, domain.TaxiTypeGreen, trips[0].TaxiType)
	assert.Equal(t, 74, trips[0].PickupZone)
	require.NotNil(t, trips[0].Surcharge)
	assert.Zero(t, *trips[0].Surcharge)
}

func TestReadRawTripFileMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeRawFile(t, dir, "yellow_tripdata_2025-01.csv",
		"tpep_pickup_datetime,PULocationID\n2025-01-01 00:00:00,5\n")

	_, err := ReadRawTripFile(path, domain.TaxiTypeYellow)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeParsing))
}

func TestRunUnifiesBothFleets(t *testing.T) {
	rawDir := t.TempDir()
	writeRawFile(t, rawDir, "yellow_tripdata_2025-01.csv", yellowCSV)
	writeRawFile(t, rawDir, "green_tripdata_2025-02.csv", greenCSV)

	st := store.New(t.TempDir(), nil)
	u := New(files.NewDiscovery(rawDir), st, nil)

	count, err := u.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	trips, err := st.ReadTrips(context.Background(), store.TableUnifiedTrips)
	require.NoError(t, err)
	require.Len(t, trips, 4)

	byType := map[domain.TaxiType]int{}
	for _, trip := range trips {
		byType[trip.TaxiType]++
	}
	assert.Equal(t, 3, byType[domain.TaxiTypeYellow])
	assert.Equal(t, 1, byType[domain.TaxiTypeGreen])
}

func TestRunReplacesPriorTable(t *testing.T) {
	rawDir := t.TempDir()
	writeRawFile(t, rawDir, "green_tripdata_2025-02.csv", greenCSV)

	st := store.New(t.TempDir(), nil)
	u := New(files.NewDiscovery(rawDir), st, nil)

	_, err := u.Run(context.Background())
	require.NoError(t, err)
	_, err = u.Run(context.Background())
	require.NoError(t, err)

	trips, err := st.ReadTrips(context.Background(), store.TableUnifiedTrips)
	require.NoError(t, err)
	assert.Len(t, trips, 1)
}

func TestRunFailsWithoutRawFiles(t *testing.T) {
	st := store.New(t.TempDir(), nil)
	u := New(files.NewDiscovery(t.TempDir()), st, nil)

	_, err := u.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeMissingDependency))
}
