package export

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bessim/core/dispatch"
	"github.com/kilianp07/bessim/core/model"
	"github.com/kilianp07/bessim/core/revenue"
	"github.com/kilianp07/bessim/core/sizing"
)

func readCSV(t *testing.T, b *bytes.Buffer) [][]string {
	t.Helper()
	rows, err := csv.NewReader(b).ReadAll()
	require.NoError(t, err)
	return rows
}

func simulate(t *testing.T) *dispatch.SimulationResult {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var s model.Series
	for i, v := range []float64{8, 12, 15, 6} {
		s = append(s, model.Sample{Timestamp: start.Add(time.Duration(i) * time.Hour), Value: v})
	}
	cfg := model.NewBatteryFromPower(10, 5)
	res, err := dispatch.Simulate(s, cfg, dispatch.PeakShaving{LimitKW: 10})
	require.NoError(t, err)
	return res
}

func TestWriteTraceCSV(t *testing.T) {
	res := simulate(t)
	var buf bytes.Buffer
	require.NoError(t, WriteTraceCSV(&buf, res.Steps))
	rows := readCSV(t, &buf)
	require.Len(t, rows, len(res.Steps)+1)
	assert.Equal(t, "index", rows[0][0])
	assert.Equal(t, "soc_end_kwh", rows[0][10])
	assert.Equal(t, "2024-01-01T01:00:00Z", rows[2][1])
	assert.Equal(t, "discharging", rows[2][4])
	assert.Equal(t, "10", rows[2][3])
}

func TestWriteSpreadCSV(t *testing.T) {
	days := []revenue.SpreadDay{{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Max: 0.3, Min: 0.1, Spread: 0.2, Revenue: 2}}
	var buf bytes.Buffer
	require.NoError(t, WriteSpreadCSV(&buf, days))
	rows := readCSV(t, &buf)
	assert.Equal(t, []string{"2024-01-02", "0.3", "0.1", "0.2", "2"}, rows[1])
}

func TestWriteThresholdCSV_NaNAsEmpty(t *testing.T) {
	days := []revenue.ThresholdDay{{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), BuySamples: 2, BuyAvg: 0.05, SellAvg: math.NaN()}}
	var buf bytes.Buffer
	require.NoError(t, WriteThresholdCSV(&buf, days))
	rows := readCSV(t, &buf)
	assert.Equal(t, "0.05", rows[1][4])
	assert.Equal(t, "", rows[1][5])
}

func TestWriteOptimalAndSizingCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOptimalCSV(&buf, []dispatch.OptimalStep{{Timestamp: time.Unix(0, 0).UTC(), PricePerKWh: 0.1, ChargeKW: 5}}))
	rows := readCSV(t, &buf)
	assert.Equal(t, []string{"1970-01-01T00:00:00Z", "0.1", "5", "0", "0"}, rows[1])

	buf.Reset()
	evals := []sizing.Evaluation{{Candidate: sizing.Candidate{PowerKW: 2, CapacityKWh: 4}, PaybackYears: math.Inf(1)}}
	require.NoError(t, WriteSizingCSV(&buf, evals))
	rows = readCSV(t, &buf)
	assert.Equal(t, "2", rows[1][0])
	assert.Equal(t, "false", rows[1][2])
	assert.Equal(t, "+Inf", rows[1][5])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]float64{"total": 4.5}))
	assert.JSONEq(t, `{"total":4.5}`, buf.String())
}

func TestWriteChartHTML(t *testing.T) {
	res := simulate(t)
	var buf bytes.Buffer
	require.NoError(t, WriteChartHTML(&buf, "Peak shaving", res))
	html := buf.String()
	assert.True(t, strings.Contains(html, "echarts"))
	assert.Contains(t, html, "Peak shaving")
	assert.Contains(t, html, "SoC (kWh)")

	assert.Error(t, WriteChartHTML(&buf, "x", nil))
}
