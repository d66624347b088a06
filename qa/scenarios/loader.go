package scenarios

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/bessim/core/model"
)

// BatteryDef describes the battery. Omitted efficiency, initial and maximum
// SoC keep the NewBatteryFromPower defaults.
type BatteryDef struct {
	CapacityKWh float64   `yaml:"capacity_kwh"`
	PowerKW     float64   `yaml:"power_kw"`
	Efficiency  *float64  `yaml:"efficiency"`
	InitialSoC  *float64  `yaml:"initial_soc"`
	MinSoC      float64   `yaml:"min_soc"`
	MaxSoC      *float64  `yaml:"max_soc"`
	Derate      DerateDef `yaml:"derate"`
}

type SegmentDef struct {
	From   float64 `yaml:"from"`
	To     float64 `yaml:"to"`
	Factor float64 `yaml:"factor"`
}

type DerateDef struct {
	SoCCharge     []SegmentDef `yaml:"soc_charge"`
	SoCDischarge  []SegmentDef `yaml:"soc_discharge"`
	TempCharge    []SegmentDef `yaml:"temp_charge"`
	TempDischarge []SegmentDef `yaml:"temp_discharge"`
}

func table(segs []SegmentDef) model.DerateTable {
	if len(segs) == 0 {
		return nil
	}
	t := make(model.DerateTable, len(segs))
	for i, s := range segs {
		t[i] = model.DerateSegment{From: s.From, To: s.To, Factor: s.Factor}
	}
	return t
}

func (d DerateDef) ToModel() model.DerateConfig {
	return model.DerateConfig{
		Enabled:       len(d.SoCCharge)+len(d.SoCDischarge)+len(d.TempCharge)+len(d.TempDischarge) > 0,
		SoCCharge:     table(d.SoCCharge),
		SoCDischarge:  table(d.SoCDischarge),
		TempCharge:    table(d.TempCharge),
		TempDischarge: table(d.TempDischarge),
	}
}

func (b BatteryDef) ToModel() model.BatteryConfig {
	cfg := model.NewBatteryFromPower(b.CapacityKWh, b.PowerKW)
	cfg.MinSoC = b.MinSoC
	if b.Efficiency != nil {
		cfg.RoundTripEfficiency = *b.Efficiency
	}
	if b.MaxSoC != nil {
		cfg.MaxSoC = *b.MaxSoC
	}
	cfg.InitialSoC = model.ClampSoC(cfg.InitialSoC, cfg.MinSoC, cfg.MaxSoC)
	if b.InitialSoC != nil {
		cfg.InitialSoC = *b.InitialSoC
	}
	cfg.Derate = b.Derate.ToModel()
	return cfg
}

// SeriesDef generates the input series. Values, when given, are used as is;
// otherwise the shape is "flat" (Base) or "daily" (Base plus a 24 h sine of
// Amplitude). Spikes override single samples.
type SeriesDef struct {
	Start           time.Time  `yaml:"start"`
	IntervalMinutes float64    `yaml:"interval_minutes"`
	Samples         int        `yaml:"samples"`
	Shape           string     `yaml:"shape"`
	Base            float64    `yaml:"base"`
	Amplitude       float64    `yaml:"amplitude"`
	Values          []float64  `yaml:"values"`
	Spikes          []SpikeDef `yaml:"spikes"`
	Temperatures    []float64  `yaml:"temperatures"`
}

type SpikeDef struct {
	Index int     `yaml:"index"`
	Value float64 `yaml:"value"`
}

func (s SeriesDef) ToModel() (model.Series, error) {
	step := time.Duration(s.IntervalMinutes * float64(time.Minute))
	n := s.Samples
	if len(s.Values) > 0 {
		n = len(s.Values)
	}
	out := make(model.Series, n)
	for i := range out {
		ts := s.Start.Add(time.Duration(i) * step)
		var v float64
		switch {
		case len(s.Values) > 0:
			v = s.Values[i]
		case s.Shape == "daily":
			h := ts.Sub(s.Start).Hours()
			v = s.Base + s.Amplitude*math.Sin(2*math.Pi*h/24)
		case s.Shape == "flat" || s.Shape == "":
			v = s.Base
		default:
			return nil, fmt.Errorf("unknown shape %q", s.Shape)
		}
		out[i] = model.Sample{Timestamp: ts, Value: v}
	}
	for _, sp := range s.Spikes {
		if sp.Index < 0 || sp.Index >= n {
			return nil, fmt.Errorf("spike index %d out of range", sp.Index)
		}
		out[sp.Index].Value = sp.Value
	}
	return out, nil
}

// PolicyDef selects the dispatch policy. Prices are per kWh.
type PolicyDef struct {
	Name          string  `yaml:"name"`
	LimitKW       float64 `yaml:"limit_kw"`
	LimitQuantile float64 `yaml:"limit_quantile"`
	Greedy        bool    `yaml:"greedy"`
	BuyBelow      float64 `yaml:"buy_below"`
	SellAbove     float64 `yaml:"sell_above"`
}

// Expected lists the checks of a scenario. Nil bounds are not checked.
type Expected struct {
	Error          string   `yaml:"error,omitempty"`
	PeakReduced    bool     `yaml:"peak_reduced"`
	MaxPeakAfterKW *float64 `yaml:"max_peak_after_kw"`
	MinCycles      *float64 `yaml:"min_cycles"`
	MaxCycles      *float64 `yaml:"max_cycles"`
	MinCashflow    *float64 `yaml:"min_cashflow"`
}

type Scenario struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Battery     BatteryDef `yaml:"battery"`
	Series      SeriesDef  `yaml:"series"`
	Policy      PolicyDef  `yaml:"policy"`
	Expected    Expected   `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func parseError(name string) error {
	switch name {
	case "invalid_config":
		return model.ErrInvalidConfig
	case "empty_series":
		return model.ErrEmptySeries
	case "insufficient_data":
		return model.ErrInsufficientData
	case "irregular_series":
		return model.ErrIrregularSeries
	default:
		return nil
	}
}
