// Package dispatch steps a battery through a load or price series under a
// dispatch policy and records the resulting trace.
package dispatch

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/bessim/core/bounds"
	"github.com/kilianp07/bessim/core/model"
)

// SimulationResult holds the output trace of a run. ClippedSeries, SoCTrace
// and Steps have the length of the input series.
type SimulationResult struct {
	Policy              string       `json:"policy"`
	ClippedSeries       model.Series `json:"clipped_series"`
	SoCTrace            []float64    `json:"soc_trace"`
	Steps               []StepRecord `json:"steps"`
	PeakBefore          float64      `json:"peak_before"`
	PeakAfter           float64      `json:"peak_after"`
	IntervalHours       float64      `json:"interval_hours"`
	EnergyChargedKWh    float64      `json:"energy_charged_kwh"`
	EnergyDischargedKWh float64      `json:"energy_discharged_kwh"`
	EquivalentCycles    float64      `json:"equivalent_cycles"`
	Cashflow            float64      `json:"cashflow"`
}

// Summary returns the scalar KPIs of the run keyed by name.
func (r *SimulationResult) Summary() map[string]float64 {
	return map[string]float64{
		"peak_before":           r.PeakBefore,
		"peak_after":            r.PeakAfter,
		"interval_hours":        r.IntervalHours,
		"energy_charged_kwh":    r.EnergyChargedKWh,
		"energy_discharged_kwh": r.EnergyDischargedKWh,
		"equivalent_cycles":     r.EquivalentCycles,
		"cashflow":              r.Cashflow,
	}
}

// Simulate runs policy over series with a fresh state built from cfg.
//
// Efficiency losses are taken entirely at discharge: charging stores
// charge×Δt, discharging delivers discharge×Δt and removes discharge×Δt/η.
// The SoC never leaves [MinSoC, MaxSoC]×NominalEnergyKWh.
func Simulate(series model.Series, cfg model.BatteryConfig, policy Policy, opts ...Option) (*SimulationResult, error) {
	if len(series) == 0 {
		return nil, model.ErrEmptySeries
	}
	if policy == nil {
		return nil, fmt.Errorf("%w: no dispatch policy", model.ErrInvalidConfig)
	}
	o := newOptions(opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := o.checkLengths(len(series)); err != nil {
		return nil, err
	}
	dt, err := o.resolveInterval(series)
	if err != nil {
		return nil, err
	}
	priced := false
	if pp, ok := policy.(PricedPolicy); ok {
		priced = pp.Priced()
	}

	n := len(series)
	res := &SimulationResult{
		Policy:        policy.Name(),
		ClippedSeries: make(model.Series, n),
		SoCTrace:      make([]float64, n),
		Steps:         make([]StepRecord, n),
		IntervalHours: dt,
	}
	st := NewState(cfg)
	var removed float64
	for i, smp := range series {
		op := bounds.AtSoC(st.SoCKWh / cfg.NominalEnergyKWh)
		if o.temps != nil {
			op.TemperatureC = &o.temps[i]
		}
		b, err := bounds.ComputePowerBounds(cfg, op)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		step := Step{
			Index:         i,
			Timestamp:     smp.Timestamp,
			Value:         smp.Value,
			SoCKWh:        st.SoCKWh,
			AvailableKWh:  st.AvailableKWh(),
			RoomKWh:       st.RoomKWh(),
			Bounds:        b,
			IntervalHours: dt,
		}
		req := policy.Decide(step)
		applied := st.apply(req, b, dt)

		var flow float64
		switch applied.Action {
		case Charging:
			res.EnergyChargedKWh += applied.PowerKW * dt
			flow = -applied.PowerKW * dt
		case Discharging:
			res.EnergyDischargedKWh += applied.PowerKW * dt
			removed += applied.PowerKW * dt / cfg.RoundTripEfficiency
			flow = applied.PowerKW * dt
		}
		switch {
		case priced:
			flow *= smp.Value
		case o.prices != nil:
			flow *= o.prices[i]
		default:
			flow = 0
		}
		res.Cashflow += flow

		out := policy.Output(smp.Value, applied)
		res.ClippedSeries[i] = model.Sample{Timestamp: smp.Timestamp, Value: out}
		res.SoCTrace[i] = st.SoCKWh
		res.Steps[i] = StepRecord{
			Index:          i,
			Timestamp:      smp.Timestamp,
			Input:          smp.Value,
			Output:         out,
			Action:         applied.Action,
			RequestedKW:    req.PowerKW,
			AppliedKW:      applied.PowerKW,
			MaxChargeKW:    b.MaxChargeKW,
			MaxDischargeKW: b.MaxDischargeKW,
			SoCStartKWh:    step.SoCKWh,
			SoCEndKWh:      st.SoCKWh,
			Cashflow:       flow,
		}
	}
	res.PeakBefore = floats.Max(series.Values())
	res.PeakAfter = floats.Max(res.ClippedSeries.Values())
	res.EquivalentCycles = removed / cfg.NominalEnergyKWh

	o.log.Debugw("simulation complete", map[string]any{
		"policy":            res.Policy,
		"samples":           n,
		"interval_hours":    dt,
		"peak_before":       res.PeakBefore,
		"peak_after":        res.PeakAfter,
		"equivalent_cycles": res.EquivalentCycles,
	})
	return res, nil
}
