package sizing

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/bessim/core/dispatch"
	"github.com/kilianp07/bessim/core/logger"
	"github.com/kilianp07/bessim/core/model"
	"github.com/kilianp07/bessim/core/monitoring"
	"github.com/kilianp07/bessim/internal/eventbus"
)

// DefaultQuantile is the load quantile used as monthly shaving limit.
const DefaultQuantile = 0.95

// Options tunes a sweep.
type Options struct {
	// Battery is the template of every candidate: C-rates bound the power
	// per kWh, efficiency, SoC window and derating are copied as is. Nil
	// selects a lossless 1C battery over the full window starting half full.
	Battery   *model.BatteryConfig
	Economics Economics
	Quantile  float64
	Workers   int
	// Interval overrides the sampling interval derived from the load.
	IntervalHours float64
	Progress      *eventbus.TypedBus[Progress]
	Logger        logger.Logger
}

func (o *Options) setDefaults() {
	o.Economics.SetDefaults()
	if o.Quantile == 0 {
		o.Quantile = DefaultQuantile
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	tmpl := model.NewBatteryFromPower(1, 1)
	if o.Battery != nil {
		tmpl = *o.Battery
	}
	// Rates only bound the candidates; a template without them allows 1C.
	if tmpl.ChargeCRate == 0 {
		tmpl.ChargeCRate = 1
	}
	if tmpl.DischargeCRate == 0 {
		tmpl.DischargeCRate = 1
	}
	o.Battery = &tmpl
	if o.Logger == nil {
		o.Logger = logger.NopLogger{}
	}
}

type monthBlock struct {
	year   int
	month  time.Month
	series model.Series
}

func splitMonths(s model.Series) []monthBlock {
	var out []monthBlock
	for _, smp := range s {
		y, m, _ := smp.Timestamp.Date()
		if n := len(out); n == 0 || out[n-1].year != y || out[n-1].month != m {
			out = append(out, monthBlock{year: y, month: m})
		}
		out[len(out)-1].series = append(out[len(out)-1].series, smp)
	}
	return out
}

// Sweep evaluates every grid candidate against the load profile. Each
// calendar month is shaved independently at its own quantile limit,
// starting from the template's initial SoC. A candidate is feasible when it
// lowers every monthly peak; the best one maximises ROI.
func Sweep(ctx context.Context, load model.Series, grid Grid, opts Options) (*Result, error) {
	if len(load) == 0 {
		return nil, model.ErrEmptySeries
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	opts.setDefaults()
	load = load.Sorted()

	dt := opts.IntervalHours
	if dt == 0 {
		var err error
		if dt, err = load.Interval(model.DefaultIntervalTolerance); err != nil {
			return nil, err
		}
	}
	limits, err := dispatch.MonthlyLimits(load, opts.Quantile)
	if err != nil {
		return nil, err
	}
	months := splitMonths(load)

	maxRate := math.Min(opts.Battery.ChargeCRate, opts.Battery.DischargeCRate)
	cands, skipped := grid.Candidates(maxRate)
	opts.Logger.Infof("sizing sweep: %d candidates, %d skipped by C-rate, %d workers", len(cands), skipped, opts.Workers)

	evals := make([]Evaluation, len(cands))
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, c := range cands {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("candidate %s: %w", c, monitoring.Recovered(r, map[string]string{"candidate": c.String()}))
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			ev, err := evaluate(c, months, limits, dt, opts)
			if err != nil {
				monitoring.CaptureException(err, map[string]string{"candidate": c.String()})
				return fmt.Errorf("candidate %s: %w", c, err)
			}
			evals[i] = ev
			n := done.Add(1)
			if opts.Progress != nil {
				opts.Progress.Publish(Progress{Done: int(n), Total: len(cands), Candidate: c, Feasible: ev.Feasible})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Evaluated: len(cands), Skipped: skipped}
	for _, ev := range evals {
		if ev.Feasible {
			res.Feasible = append(res.Feasible, ev)
		}
	}
	if len(res.Feasible) == 0 {
		return res, ErrNoFeasibleSize
	}
	sort.SliceStable(res.Feasible, func(a, b int) bool {
		fa, fb := res.Feasible[a], res.Feasible[b]
		if fa.PowerKW != fb.PowerKW {
			return fa.PowerKW < fb.PowerKW
		}
		return fa.CapacityKWh < fb.CapacityKWh
	})
	res.Best = res.Feasible[0]
	for _, ev := range res.Feasible[1:] {
		if ev.ROIPercent > res.Best.ROIPercent {
			res.Best = ev
		}
	}
	opts.Logger.Infof("sizing sweep: %d feasible, best %s roi=%.1f%%", len(res.Feasible), res.Best.Candidate, res.Best.ROIPercent)
	return res, nil
}

func evaluate(c Candidate, months []monthBlock, limits map[time.Month]float64, dt float64, opts Options) (Evaluation, error) {
	ev := Evaluation{Candidate: c, Investment: opts.Economics.Investment(c)}
	if opts.Economics.MaxInvestment > 0 && ev.Investment > opts.Economics.MaxInvestment {
		return ev, nil
	}
	cfg := *opts.Battery
	cfg.NominalEnergyKWh = c.CapacityKWh
	cfg.ChargeCRate = c.PowerKW / c.CapacityKWh
	cfg.DischargeCRate = c.PowerKW / c.CapacityKWh

	ev.Feasible = true
	for _, mb := range months {
		limit := limits[mb.month]
		res, err := dispatch.Simulate(mb.series, cfg, dispatch.PeakShaving{LimitKW: limit}, dispatch.WithInterval(dt))
		if err != nil {
			return ev, err
		}
		mr := MonthResult{
			Year:       mb.year,
			Month:      mb.month,
			LimitKW:    limit,
			PeakBefore: res.PeakBefore,
			PeakAfter:  res.PeakAfter,
			Reduction:  res.PeakBefore - res.PeakAfter,
		}
		if !(mr.Reduction > 1e-9) {
			ev.Feasible = false
		}
		ev.Months = append(ev.Months, mr)
		ev.AnnualSavings += mr.Reduction * opts.Economics.DemandChargePerKWMonth
		ev.EquivalentCycles += res.EquivalentCycles
	}
	ev.PaybackYears = math.Inf(1)
	if ev.AnnualSavings > 0 {
		ev.PaybackYears = ev.Investment / ev.AnnualSavings
	}
	if ev.Investment > 0 {
		ev.ROIPercent = (ev.AnnualSavings*opts.Economics.LifetimeYears - ev.Investment) / ev.Investment * 100
	}
	return ev, nil
}
