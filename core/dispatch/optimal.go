package dispatch

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/bessim/core/model"
)

// ErrInfeasible indicates the LP solver found no feasible schedule.
var ErrInfeasible = errors.New("lp infeasible")

// OptimalStep is the planned operation of one interval.
type OptimalStep struct {
	Timestamp   time.Time `json:"timestamp"`
	PricePerKWh float64   `json:"price_per_kwh"`
	ChargeKW    float64   `json:"charge_kw"`
	DischargeKW float64   `json:"discharge_kw"`
	SoCKWh      float64   `json:"soc_kwh"`
}

// OptimalDay aggregates the plan of one calendar day.
type OptimalDay struct {
	Date          time.Time `json:"date"`
	ChargedKWh    float64   `json:"charged_kwh"`
	DischargedKWh float64   `json:"discharged_kwh"`
	Revenue       float64   `json:"revenue"`
}

// OptimalResult is the perfect-foresight arbitrage schedule.
type OptimalResult struct {
	IntervalHours float64       `json:"interval_hours"`
	Steps         []OptimalStep `json:"steps"`
	Days          []OptimalDay  `json:"days"`
	Total         float64       `json:"total"`
}

// solveLP minimises cᵀx subject to Gx <= h and returns x. Variables are
// free in the general form; callers add -x <= 0 rows where needed.
func solveLP(c []float64, g *mat.Dense, h []float64) ([]float64, error) {
	cStd, aStd, bStd := lp.Convert(c, g, h, nil, nil)
	_, sol, err := lp.Simplex(cStd, aStd, bStd, 1e-7, nil)
	if err != nil {
		return nil, err
	}
	n := len(c)
	x := make([]float64, n)
	for i := range x {
		x[i] = sol[i] - sol[n+i]
	}
	return x, nil
}

// throughputPenalty is added to every kWh moved so that the solver does not
// pick schedules that charge and discharge in the same interval.
const throughputPenalty = 1e-5

// lpSolve points to the function used to solve the LP. It can be overridden in
// tests to simulate solver failures.
var lpSolve = solveLP

// OptimalArbitrage computes, day by day, the charge and discharge schedule
// that maximises Σ p·(d−c)·Δt with perfect foresight of prices. Prices
// must be in currency/kWh. Nominal power bounds are used and the SoC at
// the end of a day carries over into the next one.
func OptimalArbitrage(prices model.Series, cfg model.BatteryConfig, opts ...Option) (*OptimalResult, error) {
	if len(prices) == 0 {
		return nil, model.ErrEmptySeries
	}
	o := newOptions(opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dt, err := o.resolveInterval(prices)
	if err != nil {
		return nil, err
	}

	res := &OptimalResult{IntervalHours: dt, Steps: make([]OptimalStep, 0, len(prices))}
	soc := cfg.InitialSoC * cfg.NominalEnergyKWh
	for _, day := range prices.Days() {
		charge, discharge, err := solveDay(day.Samples.Values(), cfg, soc, dt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", day.Date.Format(time.DateOnly), err)
		}
		od := OptimalDay{Date: day.Date}
		for t, smp := range day.Samples {
			soc += charge[t]*dt - discharge[t]*dt/cfg.RoundTripEfficiency
			soc = math.Min(cfg.CeilingKWh(), math.Max(cfg.FloorKWh(), soc))
			od.ChargedKWh += charge[t] * dt
			od.DischargedKWh += discharge[t] * dt
			od.Revenue += smp.Value * (discharge[t] - charge[t]) * dt
			res.Steps = append(res.Steps, OptimalStep{
				Timestamp:   smp.Timestamp,
				PricePerKWh: smp.Value,
				ChargeKW:    charge[t],
				DischargeKW: discharge[t],
				SoCKWh:      soc,
			})
		}
		res.Days = append(res.Days, od)
		res.Total += od.Revenue
	}
	o.log.Debugw("optimal arbitrage solved", map[string]any{
		"days":  len(res.Days),
		"total": res.Total,
	})
	return res, nil
}

// solveDay builds the LP of one day. Variables are [c_0..c_T-1, d_0..d_T-1].
func solveDay(p []float64, cfg model.BatteryConfig, soc0, dt float64) ([]float64, []float64, error) {
	T := len(p)
	n := 2 * T
	eta := cfg.RoundTripEfficiency
	maxC, maxD := cfg.ChargePowerKW(), cfg.DischargePowerKW()

	c := make([]float64, n)
	for t, price := range p {
		c[t] = (price + throughputPenalty) * dt
		c[T+t] = (throughputPenalty - price) * dt
	}

	rows := 6 * T
	g := mat.NewDense(rows, n, nil)
	h := make([]float64, rows)
	r := 0
	for i := 0; i < n; i++ {
		g.Set(r, i, 1)
		if i < T {
			h[r] = maxC
		} else {
			h[r] = maxD
		}
		r++
		g.Set(r, i, -1)
		r++
	}
	// cumulative SoC stays below the ceiling and above the floor
	for k := 0; k < T; k++ {
		for t := 0; t <= k; t++ {
			g.Set(r, t, dt)
			g.Set(r, T+t, -dt/eta)
			g.Set(r+1, t, -dt)
			g.Set(r+1, T+t, dt/eta)
		}
		h[r] = math.Max(0, cfg.CeilingKWh()-soc0)
		h[r+1] = math.Max(0, soc0-cfg.FloorKWh())
		r += 2
	}

	x, err := lpSolve(c, g, h)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInfeasible, err)
	}
	if len(x) != n {
		return nil, nil, fmt.Errorf("%w: solver returned %d values for %d variables", ErrInfeasible, len(x), n)
	}
	charge := make([]float64, T)
	discharge := make([]float64, T)
	for t := 0; t < T; t++ {
		charge[t] = math.Min(maxC, math.Max(0, x[t]))
		discharge[t] = math.Min(maxD, math.Max(0, x[T+t]))
	}
	return charge, discharge, nil
}
