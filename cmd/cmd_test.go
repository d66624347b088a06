package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bessim/core/model"
	"github.com/kilianp07/bessim/core/runlog"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func setup(t *testing.T) (dir, cfg string) {
	t.Helper()
	dir = t.TempDir()
	cfg = writeTemp(t, dir, "config.yaml", fmt.Sprintf(`
battery:
  nominal_energy_kwh: 10
  power_kw: 5
simulation:
  limit_kw: 10
revenue:
  buy_threshold_per_mwh: 50
  sell_threshold_per_mwh: 100
store:
  backend: jsonl
  path: %s
log:
  level: error
`, filepath.Join(dir, "runs.jsonl")))
	return dir, cfg
}

const loadCSV = `timestamp,load_kw
2024-03-01T00:00:00Z,8
2024-03-01T01:00:00Z,9
2024-03-01T02:00:00Z,14
2024-03-01T03:00:00Z,12
2024-03-01T04:00:00Z,7
2024-03-01T05:00:00Z,6
`

const priceCSV = `timestamp,price_EUR_per_MWh
2024-03-01 00:00:00,30
2024-03-01 01:00:00,40
2024-03-01 02:00:00,150
2024-03-01 03:00:00,200
`

func TestSimulateAndList(t *testing.T) {
	dir, cfg := setup(t)
	input := writeTemp(t, dir, "load.csv", loadCSV)
	trace := filepath.Join(dir, "trace.csv")
	chart := filepath.Join(dir, "chart.html")

	out, err := execute(t, "simulate", "-c", cfg, "--input", input, "--out", trace, "--chart", chart)
	require.NoError(t, err, out)
	assert.Contains(t, out, "peak        14.000 -> 10.000 kW")
	assert.FileExists(t, trace)
	assert.FileExists(t, chart)

	rows, err := os.ReadFile(trace)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(rows)), "\n"), 7)

	out, err = execute(t, "runs", "ls", "-c", cfg, "--json")
	require.NoError(t, err)
	var recs []runlog.RunRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, runlog.KindSimulate, recs[0].Kind)
	assert.Equal(t, "peak_shaving", recs[0].Policy)

	out, err = execute(t, "runs", "ls", "-c", cfg, "--kind", "sizing")
	require.NoError(t, err)
	assert.Equal(t, "no runs\n", out)
}

func TestSimulateJSON(t *testing.T) {
	dir, cfg := setup(t)
	input := writeTemp(t, dir, "load.csv", loadCSV)

	out, err := execute(t, "simulate", "-c", cfg, "-i", input, "--json")
	require.NoError(t, err)
	var run struct {
		ID     string `json:"id"`
		Result struct {
			PeakAfter float64   `json:"peak_after"`
			SoCTrace  []float64 `json:"soc_trace"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.NotEmpty(t, run.ID)
	assert.InDelta(t, 10, run.Result.PeakAfter, 1e-9)
	assert.Len(t, run.Result.SoCTrace, 6)
}

func TestSimulateRequiresInput(t *testing.T) {
	_, cfg := setup(t)
	_, err := execute(t, "simulate", "-c", cfg)
	assert.Error(t, err)
}

func TestSimulateUnknownPolicy(t *testing.T) {
	dir, cfg := setup(t)
	input := writeTemp(t, dir, "load.csv", loadCSV)
	_, err := execute(t, "simulate", "-c", cfg, "-i", input, "--policy", "bogus")
	assert.ErrorContains(t, err, "unknown policy")
}

func TestSimulateSingleSampleIsInputError(t *testing.T) {
	dir, cfg := setup(t)
	input := writeTemp(t, dir, "one.csv", "timestamp,load_kw\n2024-03-01T00:00:00Z,8\n")
	_, err := execute(t, "simulate", "-c", cfg, "-i", input)
	require.ErrorIs(t, err, model.ErrInsufficientData)
	assert.True(t, strings.HasPrefix(describe(err), "invalid simulation parameters: "))
}

func TestBounds(t *testing.T) {
	_, cfg := setup(t)
	out, err := execute(t, "bounds", "-c", cfg, "--soc", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "max_charge_kw     5.000 (base 5.000, factor 1.000)")
	assert.Contains(t, out, "max_discharge_kw  5.000")
}

func TestRevenueAndOptimal(t *testing.T) {
	dir, cfg := setup(t)
	input := writeTemp(t, dir, "prices.csv", priceCSV)
	days := filepath.Join(dir, "days.csv")

	out, err := execute(t, "revenue", "-c", cfg, "-i", input, "--out", days)
	require.NoError(t, err)
	assert.Contains(t, out, "threshold revenue:")
	assert.FileExists(t, days)

	out, err = execute(t, "optimal", "-c", cfg, "-i", input)
	require.NoError(t, err)
	assert.Contains(t, out, "optimal revenue:")
	assert.Contains(t, out, "2024-03-01")

	out, err = execute(t, "runs", "ls", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "revenue")
	assert.Contains(t, out, "optimal")
}

func TestRevenueOnLoadFails(t *testing.T) {
	dir, cfg := setup(t)
	input := writeTemp(t, dir, "load.csv", loadCSV)
	_, err := execute(t, "revenue", "-c", cfg, "-i", input, "--mode", "spread")
	assert.ErrorContains(t, err, "needs prices")
}

func TestRunsInvalidSince(t *testing.T) {
	_, cfg := setup(t)
	_, err := execute(t, "runs", "ls", "-c", cfg, "--since", "yesterday")
	assert.ErrorContains(t, err, "--since")
}

func TestLoadConfigFallback(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := loadConfig(missing, false)
	require.NoError(t, err)
	assert.Equal(t, "peak_shaving", cfg.Simulation.Policy)

	_, err = loadConfig(missing, true)
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "invalid simulation parameters: empty series", describe(model.ErrEmptySeries))
	assert.Equal(t, "error: boom", describe(fmt.Errorf("boom")))
}
