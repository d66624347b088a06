package scenarios

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/bessim/core/bounds"
	"github.com/kilianp07/bessim/core/dispatch"
	coremetrics "github.com/kilianp07/bessim/core/metrics"
	"github.com/kilianp07/bessim/core/model"
	"github.com/kilianp07/bessim/infra/metrics"
)

const eps = 1e-9

func (p PolicyDef) build(series model.Series) (dispatch.Policy, error) {
	switch p.Name {
	case "peak_shaving", "":
		limit := p.LimitKW
		if limit == 0 {
			q := p.LimitQuantile
			if q == 0 {
				q = 0.95
			}
			limits, err := dispatch.MonthlyLimits(series, q)
			if err != nil {
				return nil, err
			}
			if len(limits) != 1 {
				return nil, fmt.Errorf("quantile limit needs a single month, got %d", len(limits))
			}
			for _, l := range limits {
				limit = l
			}
		}
		return dispatch.PeakShaving{LimitKW: limit, Greedy: p.Greedy}, nil
	case "monthly_peak_shaving":
		limits, err := dispatch.MonthlyLimits(series, p.LimitQuantile)
		if err != nil {
			return nil, err
		}
		return dispatch.MonthlyPeakShaving{Limits: limits, Greedy: p.Greedy}, nil
	case "arbitrage":
		return dispatch.ThresholdArbitrage{BuyBelow: p.BuyBelow, SellAbove: p.SellAbove}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q", p.Name)
	}
}

// RunScenario simulates sc twice, checks the invariants every run must
// hold and the scenario's expectations, and records the run in a private
// Prometheus registry.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	series, err := sc.Series.ToModel()
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	cfg := sc.Battery.ToModel()
	var opts []dispatch.Option
	if sc.Series.Temperatures != nil {
		opts = append(opts, dispatch.WithTemperatures(sc.Series.Temperatures))
	}
	if len(series) == 1 && sc.Expected.Error == "" {
		opts = append(opts, dispatch.WithInterval(sc.Series.IntervalMinutes/60))
	}

	run := func() (*dispatch.SimulationResult, error) {
		policy, err := sc.Policy.build(series)
		if err != nil {
			return nil, err
		}
		return dispatch.Simulate(series, cfg, policy, opts...)
	}

	start := time.Now()
	res, err := run()
	if sc.Expected.Error != "" {
		want := parseError(sc.Expected.Error)
		if want == nil {
			t.Fatalf("unknown expected error %q", sc.Expected.Error)
		}
		if !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
		return
	}
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	again, err := run()
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(res, again) {
		t.Errorf("scenario %s is not deterministic", sc.Name)
	}

	checkInvariants(t, cfg, res)
	checkExpected(t, sc, res)

	if err := sink.RecordRun(coremetrics.RunEvent{
		RunID:            sc.Name,
		Policy:           res.Policy,
		Samples:          len(series),
		PeakBefore:       res.PeakBefore,
		PeakAfter:        res.PeakAfter,
		EquivalentCycles: res.EquivalentCycles,
		Cashflow:         res.Cashflow,
		Duration:         time.Since(start),
		Time:             start,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := testutil.CollectAndCount(reg, "bess_simulation_runs_total"); got != 1 {
		t.Errorf("expected one run series, got %d", got)
	}
}

func checkInvariants(t *testing.T, cfg model.BatteryConfig, res *dispatch.SimulationResult) {
	t.Helper()
	floor, ceil := cfg.FloorKWh(), cfg.CeilingKWh()
	for _, st := range res.Steps {
		if st.SoCEndKWh < floor-eps || st.SoCEndKWh > ceil+eps {
			t.Fatalf("step %d: SoC %.6f outside [%.3f, %.3f]", st.Index, st.SoCEndKWh, floor, ceil)
		}
		limit := bounds.PowerBounds{MaxChargeKW: st.MaxChargeKW, MaxDischargeKW: st.MaxDischargeKW}
		var dir bounds.Direction
		switch st.Action {
		case dispatch.Charging:
			dir = bounds.Charge
		case dispatch.Discharging:
			dir = bounds.Discharge
		default:
			if st.AppliedKW != 0 {
				t.Fatalf("step %d: idle with %.3f kW", st.Index, st.AppliedKW)
			}
			continue
		}
		if st.AppliedKW > limit.For(dir)+eps {
			t.Fatalf("step %d: %.3f kW above bound %.3f", st.Index, st.AppliedKW, limit.For(dir))
		}
	}
	if res.Policy != "arbitrage" && res.PeakAfter > res.PeakBefore+eps {
		t.Errorf("peak grew from %.3f to %.3f", res.PeakBefore, res.PeakAfter)
	}
}

func checkExpected(t *testing.T, sc *Scenario, res *dispatch.SimulationResult) {
	t.Helper()
	exp := sc.Expected
	if exp.PeakReduced && !(res.PeakAfter < res.PeakBefore) {
		t.Errorf("peak not reduced: %.3f -> %.3f", res.PeakBefore, res.PeakAfter)
	}
	if exp.MaxPeakAfterKW != nil && res.PeakAfter > *exp.MaxPeakAfterKW+eps {
		t.Errorf("peak after %.4f above %.4f", res.PeakAfter, *exp.MaxPeakAfterKW)
	}
	if exp.MinCycles != nil && res.EquivalentCycles < *exp.MinCycles-eps {
		t.Errorf("cycles %.4f below %.4f", res.EquivalentCycles, *exp.MinCycles)
	}
	if exp.MaxCycles != nil && res.EquivalentCycles > *exp.MaxCycles+eps {
		t.Errorf("cycles %.4f above %.4f", res.EquivalentCycles, *exp.MaxCycles)
	}
	if exp.MinCashflow != nil && res.Cashflow < *exp.MinCashflow-eps {
		t.Errorf("cashflow %.4f below %.4f", res.Cashflow, *exp.MinCashflow)
	}
}
