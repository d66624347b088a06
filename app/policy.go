package app

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/bessim/config"
	"github.com/kilianp07/bessim/core/dispatch"
	"github.com/kilianp07/bessim/core/model"
)

// BuildPolicy returns the dispatch policy selected in the simulation section.
// A zero peak shaving limit is replaced by the configured quantile of the
// load.
func BuildPolicy(sim config.SimulationConfig, series model.Series) (dispatch.Policy, error) {
	switch sim.Policy {
	case config.PolicyPeakShaving:
		limit := sim.LimitKW
		if limit == 0 {
			var err error
			if limit, err = QuantileLimit(series, sim.LimitQuantile); err != nil {
				return nil, err
			}
		}
		return dispatch.PeakShaving{LimitKW: limit, Greedy: sim.Greedy}, nil
	case config.PolicyMonthlyPeakShaving:
		limits, err := dispatch.MonthlyLimits(series, sim.LimitQuantile)
		if err != nil {
			return nil, err
		}
		return dispatch.MonthlyPeakShaving{Limits: limits, Greedy: sim.Greedy}, nil
	case config.PolicyArbitrage:
		return dispatch.ThresholdArbitrage{
			BuyBelow:  model.PerMWh.ToKWh(sim.BuyBelowPerMWh),
			SellAbove: model.PerMWh.ToKWh(sim.SellAbovePerMWh),
		}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q", sim.Policy)
	}
}

// QuantileLimit is the q-quantile of the series values.
func QuantileLimit(series model.Series, q float64) (float64, error) {
	if len(series) == 0 {
		return 0, model.ErrEmptySeries
	}
	vals := series.Values()
	sort.Float64s(vals)
	return stat.Quantile(q, stat.LinInterp, vals, nil), nil
}
