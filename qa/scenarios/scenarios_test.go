package scenarios

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/bessim/core/model"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenarios found")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestParseError(t *testing.T) {
	cases := map[string]error{
		"invalid_config":    model.ErrInvalidConfig,
		"empty_series":      model.ErrEmptySeries,
		"insufficient_data": model.ErrInsufficientData,
		"irregular_series":  model.ErrIrregularSeries,
		"other":             nil,
	}
	for s, want := range cases {
		if got := parseError(s); !errors.Is(got, want) || (want == nil && got != nil) {
			t.Errorf("%s: got %v, want %v", s, got, want)
		}
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	tmp, err := os.CreateTemp(t.TempDir(), "bad*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.WriteString(":"); err != nil {
		t.Fatal(err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmp.Name()); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestSeriesShapes(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := SeriesDef{Start: start, IntervalMinutes: 360, Samples: 4, Shape: "daily", Base: 1, Amplitude: 1}.ToModel()
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 2, 1, 0}
	for i, smp := range s {
		if d := smp.Value - want[i]; d > 1e-9 || d < -1e-9 {
			t.Errorf("sample %d: got %v, want %v", i, smp.Value, want[i])
		}
	}
	if !s[3].Timestamp.Equal(start.Add(18 * time.Hour)) {
		t.Errorf("unexpected timestamp %v", s[3].Timestamp)
	}

	if _, err := (SeriesDef{Samples: 2, Shape: "square"}).ToModel(); err == nil {
		t.Error("expected unknown shape error")
	}
	if _, err := (SeriesDef{Values: []float64{1}, Spikes: []SpikeDef{{Index: 3}}}).ToModel(); err == nil {
		t.Error("expected spike range error")
	}
}

func TestDerateDefEnabled(t *testing.T) {
	if (DerateDef{}).ToModel().Enabled {
		t.Error("empty derate must be disabled")
	}
	d := DerateDef{TempCharge: []SegmentDef{{From: -20, To: 60, Factor: 0.8}}}.ToModel()
	if !d.Enabled || len(d.TempCharge) != 1 || d.TempCharge[0].Factor != 0.8 {
		t.Errorf("unexpected derate %+v", d)
	}
}

func TestBatteryDefOptionalFields(t *testing.T) {
	cfg := BatteryDef{CapacityKWh: 10, PowerKW: 5}.ToModel()
	if cfg.InitialSoC != 0.5 || cfg.MaxSoC != 1 || cfg.RoundTripEfficiency != 1 {
		t.Errorf("defaults not kept: %+v", cfg)
	}
	zero := 0.0
	cfg = BatteryDef{CapacityKWh: 10, PowerKW: 5, InitialSoC: &zero}.ToModel()
	if cfg.InitialSoC != 0 {
		t.Errorf("explicit empty start rewritten to %v", cfg.InitialSoC)
	}
}
