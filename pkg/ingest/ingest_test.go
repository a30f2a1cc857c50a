package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Port Name,State,Port Code,Border,Date,Measure,Value,Latitude,Longitude,Point
Otay Mesa,California,2506,US-Mexico Border,Jan 2024,Trucks,81217,32.55,-117.05,POINT (-117.05 32.55)
Sweetgrass,Montana,3310,US-Canada Border,Feb 2024,Buses,,48.99,-111.96,POINT (-111.96 48.99)
Nowhere,Alaska,oops,US-Canada Border,not-a-date,Trucks,12.0,,,
`

func TestLoadConvertsColumns(t *testing.T) {
	res, err := Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)
	assert.Zero(t, res.Skipped)

	first := res.Entries[0]
	assert.Equal(t, "Otay Mesa", first.PortName)
	assert.Equal(t, "California", first.State)
	require.NotNil(t, first.PortCode)
	assert.Equal(t, int64(2506), *first.PortCode)
	assert.Equal(t, "2024-01-01", first.Date, "Mmm YYYY dates are normalized")
	require.NotNil(t, first.Value)
	assert.Equal(t, int64(81217), *first.Value)
	require.NotNil(t, first.Latitude)
	assert.InDelta(t, 32.55, *first.Latitude, 1e-9)

	// Blank value becomes NULL, not zero.
	second := res.Entries[1]
	assert.Nil(t, second.Value)
	assert.Equal(t, "2024-02-01", second.Date)

	// Unconvertible cells degrade to NULL; float spellings of integers pass.
	third := res.Entries[2]
	assert.Nil(t, third.PortCode)
	assert.Empty(t, third.Date, "unparseable date becomes NULL")
	require.NotNil(t, third.Value)
	assert.Equal(t, int64(12), *third.Value)
	assert.Nil(t, third.Latitude)
}

func TestLoadMissingColumns(t *testing.T) {
	csv := "Port Name,State\nOtay Mesa,California\n"
	_, err := Load(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
	assert.Contains(t, err.Error(), "Date")
}

func TestLoadFractionalNumericCells(t *testing.T) {
	csv := "Port Name,State,Port Code,Border,Date,Measure,Value,Latitude,Longitude,Point\n" +
		"Eastport,Idaho,3302,US-Canada Border,Mar 2024,Trucks,12.5,48.99,-116.18,POINT (-116.18 48.99)\n"
	res, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Nil(t, res.Entries[0].Value, "fractional counts coerce to NULL, not a truncated integer")
}

func TestLoadSkipsShortRecords(t *testing.T) {
	csv := sampleCSV + "\"lonely field\"\n"
	res, err := Load(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, res.Entries, 3)
	assert.Equal(t, 1, res.Skipped)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("does-not-exist.csv")
	assert.Error(t, err)
}
