package dispatch

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/bessim/core/bounds"
	"github.com/kilianp07/bessim/core/model"
)

// Step is what a policy sees before deciding: the current sample, the
// battery headroom and the power bounds evaluated at the current SoC.
type Step struct {
	Index         int
	Timestamp     time.Time
	Value         float64
	SoCKWh        float64
	AvailableKWh  float64
	RoomKWh       float64
	Bounds        bounds.PowerBounds
	IntervalHours float64
}

// Request is the action and power magnitude a policy asks for.
type Request struct {
	Action  Action
	PowerKW float64
}

// Applied is the action actually taken after clamping.
type Applied struct {
	Action  Action
	PowerKW float64
}

// Policy decides the action of every step and maps the input value to the
// output trace once the action has been clamped.
type Policy interface {
	Name() string
	Decide(Step) Request
	Output(value float64, applied Applied) float64
}

// PricedPolicy is implemented by policies whose input series is a price.
// The simulator then books a cashflow for every step.
type PricedPolicy interface {
	Priced() bool
}

// PeakShaving discharges above LimitKW and recharges below it.
//
// Unless Greedy is set, the discharge is capped at l-LimitKW and the charge
// at LimitKW-l so that the battery never pushes the load across the limit.
type PeakShaving struct {
	LimitKW float64
	Greedy  bool
}

func (p PeakShaving) Name() string { return "peak_shaving" }

func (p PeakShaving) Decide(s Step) Request {
	l := s.Value
	switch {
	case l > p.LimitKW && s.AvailableKWh > 0:
		kw := math.Min(s.Bounds.MaxDischargeKW, s.AvailableKWh/s.IntervalHours)
		if !p.Greedy {
			kw = math.Min(kw, l-p.LimitKW)
		}
		return Request{Action: Discharging, PowerKW: kw}
	case l < p.LimitKW && s.RoomKWh > 0:
		kw := math.Min(s.Bounds.MaxChargeKW, s.RoomKWh/s.IntervalHours)
		if !p.Greedy {
			kw = math.Min(kw, p.LimitKW-l)
		}
		return Request{Action: Charging, PowerKW: kw}
	default:
		return Request{Action: Idle}
	}
}

func (p PeakShaving) Output(l float64, a Applied) float64 {
	switch a.Action {
	case Discharging:
		return l - a.PowerKW
	case Charging:
		return l + a.PowerKW
	default:
		return l
	}
}

// MonthlyPeakShaving applies peak shaving with one limit per calendar
// month. Months without a limit stay idle.
type MonthlyPeakShaving struct {
	Limits map[time.Month]float64
	Greedy bool
}

func (p MonthlyPeakShaving) Name() string { return "monthly_peak_shaving" }

func (p MonthlyPeakShaving) Decide(s Step) Request {
	limit, ok := p.Limits[s.Timestamp.Month()]
	if !ok {
		return Request{Action: Idle}
	}
	return PeakShaving{LimitKW: limit, Greedy: p.Greedy}.Decide(s)
}

func (p MonthlyPeakShaving) Output(l float64, a Applied) float64 {
	return PeakShaving{}.Output(l, a)
}

// MonthlyLimits returns the q-quantile of the load for every calendar month
// present in series. Samples of the same month in different years are pooled.
func MonthlyLimits(series model.Series, q float64) (map[time.Month]float64, error) {
	if len(series) == 0 {
		return nil, model.ErrEmptySeries
	}
	if q < 0 || q > 1 || math.IsNaN(q) {
		return nil, fmt.Errorf("%w: quantile must be in [0,1], got %v", model.ErrInvalidConfig, q)
	}
	byMonth := make(map[time.Month][]float64)
	for _, s := range series {
		m := s.Timestamp.Month()
		byMonth[m] = append(byMonth[m], s.Value)
	}
	out := make(map[time.Month]float64, len(byMonth))
	for m, vals := range byMonth {
		sort.Float64s(vals)
		out[m] = stat.Quantile(q, stat.LinInterp, vals, nil)
	}
	return out, nil
}

// ThresholdArbitrage charges at full power while the price is at or below
// BuyBelow and discharges at full power while it is at or above SellAbove.
// The output trace is the battery's net grid power, charging positive.
type ThresholdArbitrage struct {
	BuyBelow  float64
	SellAbove float64
}

func (p ThresholdArbitrage) Name() string { return "arbitrage" }

func (p ThresholdArbitrage) Priced() bool { return true }

func (p ThresholdArbitrage) Decide(s Step) Request {
	switch {
	case s.Value <= p.BuyBelow && s.RoomKWh > 0:
		return Request{Action: Charging, PowerKW: s.Bounds.MaxChargeKW}
	case s.Value >= p.SellAbove && s.AvailableKWh > 0:
		return Request{Action: Discharging, PowerKW: s.Bounds.MaxDischargeKW}
	default:
		return Request{Action: Idle}
	}
}

func (p ThresholdArbitrage) Output(_ float64, a Applied) float64 {
	switch a.Action {
	case Charging:
		return a.PowerKW
	case Discharging:
		return -a.PowerKW
	default:
		return 0
	}
}
