package timeseries

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bessim/core/model"
)

func TestReadLoad(t *testing.T) {
	in := "timestamp,load_kw\n2024-01-01T01:00:00Z,12\n2024-01-01T00:00:00Z,8\n2024-01-01T02:00:00Z,\n"
	tab, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, KindLoad, tab.Kind)
	assert.Equal(t, "load_kw", tab.Column)
	require.Len(t, tab.Series, 2)
	assert.Equal(t, 8.0, tab.Series[0].Value, "rows are sorted by timestamp")
	assert.Equal(t, 12.0, tab.Series[1].Value)
	assert.Nil(t, tab.Temperatures)
}

func TestReadPricesPerMWh(t *testing.T) {
	in := "timestamp,price_EUR_per_MWh\n2024-01-01 00:00:00,50\n2024-01-01 01:00:00,120.5\n"
	tab, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, KindPrice, tab.Kind)
	assert.Equal(t, model.PerMWh, tab.Unit)
	assert.InDelta(t, 0.05, tab.Series[0].Value, 1e-12)
	assert.InDelta(t, 0.1205, tab.Series[1].Value, 1e-12)
	assert.Equal(t, time.UTC, tab.Series[0].Timestamp.Location())
}

func TestReadPricesPerKWhAndLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	in := "datetime,price_per_kwh\n2024-01-01 00:00,0.1\n"
	tab, err := Read(strings.NewReader(in), Options{Location: loc})
	require.NoError(t, err)
	assert.Equal(t, model.PerKWh, tab.Unit)
	assert.Equal(t, 0.1, tab.Series[0].Value)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Unix(), tab.Series[0].Timestamp.Unix())
}

func TestReadTemperatures(t *testing.T) {
	in := "timestamp,value,temperature_c\n2024-01-01T00:00:00Z,5,25\n2024-01-01T00:15:00Z,6,-5.5\n"
	tab, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{25, -5.5}, tab.Temperatures)
}

func TestReadSkipsMissingTemperature(t *testing.T) {
	in := "timestamp,value,temperature_c\n" +
		"2024-01-01T00:00:00Z,5,25\n" +
		"2024-01-01T00:15:00Z,6,\n" +
		"2024-01-01T00:30:00Z,7,20\n"
	tab, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 7}, tab.Series.Values())
	assert.Equal(t, []float64{25, 20}, tab.Temperatures)

	_, err = Read(strings.NewReader("timestamp,value,temperature_c\n2024-01-01T00:00:00Z,5,hot\n"), Options{})
	assert.ErrorContains(t, err, "temperature_c")
}

func TestReadForcedColumn(t *testing.T) {
	in := "timestamp,site_a,site_b\n2024-01-01T00:00:00Z,1,2\n"
	tab, err := Read(strings.NewReader(in), Options{Column: "site_b"})
	require.NoError(t, err)
	assert.Equal(t, "site_b", tab.Column)
	assert.Equal(t, 2.0, tab.Series[0].Value)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader(""), Options{})
	assert.ErrorIs(t, err, model.ErrEmptySeries)

	_, err = Read(strings.NewReader("timestamp,foo\n2024-01-01T00:00:00Z,1\n"), Options{})
	assert.ErrorIs(t, err, ErrNoValueColumn)

	_, err = Read(strings.NewReader("when,load_kw\n"), Options{})
	assert.ErrorContains(t, err, "timestamp")

	_, err = Read(strings.NewReader("timestamp,load_kw\n"), Options{})
	assert.ErrorIs(t, err, model.ErrEmptySeries)

	_, err = Read(strings.NewReader("timestamp,load_kw\nyesterday,1\n"), Options{})
	assert.ErrorContains(t, err, "line 2")

	_, err = Read(strings.NewReader("timestamp,load_kw\n2024-01-01T00:00:00Z,abc\n"), Options{})
	assert.ErrorContains(t, err, "load_kw")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "load.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,load_kw\n2024-01-01T00:00:00Z,3\n"), 0o644))
	tab, err := Load(path, Options{})
	require.NoError(t, err)
	assert.Len(t, tab.Series, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	assert.Error(t, err)
}
