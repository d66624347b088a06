package metrics

import (
	"strconv"

	coremetrics "github.com/kilianp07/bessim/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records simulation runs in Prometheus metrics.
type PromSink struct {
	runs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	peakBefore *prometheus.GaugeVec
	peakAfter  *prometheus.GaugeVec
	cycles     *prometheus.GaugeVec
	cashflow   *prometheus.GaugeVec
	revenue    *prometheus.GaugeVec
	sizingDone prometheus.Gauge
	sizingAll  prometheus.Gauge
	feasible   *prometheus.CounterVec
}

// NewPromSink registers run metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bess_simulation_runs_total",
		Help: "Total number of dispatch simulations",
	}, []string{"policy"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bess_simulation_duration_seconds",
		Help:    "Wall clock time of a dispatch simulation",
		Buckets: prometheus.DefBuckets,
	}, []string{"policy"})); err != nil {
		return nil, err
	}
	if s.peakBefore, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bess_peak_before_kw",
		Help: "Peak of the input series of the last run",
	}, []string{"policy"})); err != nil {
		return nil, err
	}
	if s.peakAfter, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bess_peak_after_kw",
		Help: "Peak of the clipped series of the last run",
	}, []string{"policy"})); err != nil {
		return nil, err
	}
	if s.cycles, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bess_equivalent_cycles",
		Help: "Equivalent full cycles of the last run",
	}, []string{"policy"})); err != nil {
		return nil, err
	}
	if s.cashflow, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bess_cashflow",
		Help: "Cashflow of the last priced run",
	}, []string{"policy"})); err != nil {
		return nil, err
	}
	if s.revenue, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bess_revenue_total",
		Help: "Total of the last revenue evaluation",
	}, []string{"mode"})); err != nil {
		return nil, err
	}
	if s.sizingDone, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bess_sizing_candidates_done",
		Help: "Sizing candidates evaluated so far",
	})); err != nil {
		return nil, err
	}
	if s.sizingAll, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bess_sizing_candidates_total",
		Help: "Sizing candidates in the current sweep",
	})); err != nil {
		return nil, err
	}
	if s.feasible, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bess_sizing_evaluations_total",
		Help: "Sizing evaluations by feasibility",
	}, []string{"feasible"})); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when one with the same
// descriptor exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun updates the run counters and last-run gauges.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Policy).Inc()
	s.duration.WithLabelValues(ev.Policy).Observe(ev.Duration.Seconds())
	s.peakBefore.WithLabelValues(ev.Policy).Set(ev.PeakBefore)
	s.peakAfter.WithLabelValues(ev.Policy).Set(ev.PeakAfter)
	s.cycles.WithLabelValues(ev.Policy).Set(ev.EquivalentCycles)
	s.cashflow.WithLabelValues(ev.Policy).Set(ev.Cashflow)
	return nil
}

// RecordRevenue sets the revenue gauge for the evaluation mode.
func (s *PromSink) RecordRevenue(ev coremetrics.RevenueEvent) error {
	s.revenue.WithLabelValues(ev.Mode).Set(ev.Total)
	return nil
}

// RecordSizing tracks sweep progress.
func (s *PromSink) RecordSizing(ev coremetrics.SizingEvent) error {
	s.sizingDone.Set(float64(ev.Done))
	s.sizingAll.Set(float64(ev.Total))
	s.feasible.WithLabelValues(strconv.FormatBool(ev.Feasible)).Inc()
	return nil
}
