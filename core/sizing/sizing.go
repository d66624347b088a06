// Package sizing searches a grid of battery power and capacity ratings for
// the most profitable peak shaving installation.
package sizing

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/bessim/core/model"
)

// ErrNoFeasibleSize is returned when no candidate reduces every monthly peak.
var ErrNoFeasibleSize = errors.New("no feasible battery size")

// Grid spans the candidate ratings. Bounds are inclusive.
type Grid struct {
	PowerMinKW      float64 `json:"power_min_kw"`
	PowerMaxKW      float64 `json:"power_max_kw"`
	PowerStepKW     float64 `json:"power_step_kw"`
	CapacityMinKWh  float64 `json:"capacity_min_kwh"`
	CapacityMaxKWh  float64 `json:"capacity_max_kwh"`
	CapacityStepKWh float64 `json:"capacity_step_kwh"`
}

// Validate checks the grid bounds.
func (g Grid) Validate() error {
	if !(g.PowerMinKW > 0) || g.PowerMaxKW < g.PowerMinKW || !(g.PowerStepKW > 0) {
		return fmt.Errorf("%w: power grid [%v, %v] step %v", model.ErrInvalidConfig, g.PowerMinKW, g.PowerMaxKW, g.PowerStepKW)
	}
	if !(g.CapacityMinKWh > 0) || g.CapacityMaxKWh < g.CapacityMinKWh || !(g.CapacityStepKWh > 0) {
		return fmt.Errorf("%w: capacity grid [%v, %v] step %v", model.ErrInvalidConfig, g.CapacityMinKWh, g.CapacityMaxKWh, g.CapacityStepKWh)
	}
	return nil
}

func steps(lo, hi, step float64) []float64 {
	n := int(math.Floor((hi-lo)/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Candidate is one power/capacity pair.
type Candidate struct {
	PowerKW     float64 `json:"power_kw"`
	CapacityKWh float64 `json:"capacity_kwh"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("%gkW/%gkWh", c.PowerKW, c.CapacityKWh)
}

// Candidates enumerates the grid in power-major order and drops pairs whose
// power exceeds capacity × maxCRate. It returns the kept candidates and the
// number skipped.
func (g Grid) Candidates(maxCRate float64) ([]Candidate, int) {
	var out []Candidate
	skipped := 0
	for _, p := range steps(g.PowerMinKW, g.PowerMaxKW, g.PowerStepKW) {
		for _, q := range steps(g.CapacityMinKWh, g.CapacityMaxKWh, g.CapacityStepKWh) {
			if p > q*maxCRate {
				skipped++
				continue
			}
			out = append(out, Candidate{PowerKW: p, CapacityKWh: q})
		}
	}
	return out, skipped
}

// Economics holds the cost model of a candidate.
type Economics struct {
	CostPerKW              float64 `json:"cost_per_kw"`
	CostPerKWh             float64 `json:"cost_per_kwh"`
	DemandChargePerKWMonth float64 `json:"demand_charge_per_kw_month"`
	LifetimeYears          float64 `json:"lifetime_years"`
	// MaxInvestment skips candidates above this budget when > 0.
	MaxInvestment float64 `json:"max_investment"`
}

// SetDefaults applies 800/kW, 400/kWh, 15/kW/month and 20 years.
func (e *Economics) SetDefaults() {
	if e.CostPerKW == 0 {
		e.CostPerKW = 800
	}
	if e.CostPerKWh == 0 {
		e.CostPerKWh = 400
	}
	if e.DemandChargePerKWMonth == 0 {
		e.DemandChargePerKWMonth = 15
	}
	if e.LifetimeYears == 0 {
		e.LifetimeYears = 20
	}
}

// Investment is the capital cost of c.
func (e Economics) Investment(c Candidate) float64 {
	return c.PowerKW*e.CostPerKW + c.CapacityKWh*e.CostPerKWh
}

// MonthResult is the peak shaving outcome of one calendar month.
type MonthResult struct {
	Year       int        `json:"year"`
	Month      time.Month `json:"month"`
	LimitKW    float64    `json:"limit_kw"`
	PeakBefore float64    `json:"peak_before"`
	PeakAfter  float64    `json:"peak_after"`
	Reduction  float64    `json:"reduction"`
}

// Evaluation is the outcome of one candidate.
type Evaluation struct {
	Candidate
	Feasible         bool          `json:"feasible"`
	Investment       float64       `json:"investment"`
	AnnualSavings    float64       `json:"annual_savings"`
	PaybackYears     float64       `json:"payback_years"`
	ROIPercent       float64       `json:"roi_percent"`
	EquivalentCycles float64       `json:"equivalent_cycles"`
	Months           []MonthResult `json:"months"`
}

// MarshalJSON writes an infinite payback as null.
func (e Evaluation) MarshalJSON() ([]byte, error) {
	type alias Evaluation
	var payback *float64
	if !math.IsInf(e.PaybackYears, 0) && !math.IsNaN(e.PaybackYears) {
		payback = &e.PaybackYears
	}
	return json.Marshal(struct {
		alias
		PaybackYears *float64 `json:"payback_years"`
	}{alias: alias(e), PaybackYears: payback})
}

// Progress is published after every evaluated candidate.
type Progress struct {
	Done      int       `json:"done"`
	Total     int       `json:"total"`
	Candidate Candidate `json:"candidate"`
	Feasible  bool      `json:"feasible"`
}

// Result summarises a sweep. Feasible is sorted by power then capacity.
type Result struct {
	Evaluated int          `json:"evaluated"`
	Skipped   int          `json:"skipped"`
	Feasible  []Evaluation `json:"feasible"`
	Best      Evaluation   `json:"best"`
}
