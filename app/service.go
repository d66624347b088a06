package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/bessim/config"
	"github.com/kilianp07/bessim/core/bounds"
	"github.com/kilianp07/bessim/core/dispatch"
	coremetrics "github.com/kilianp07/bessim/core/metrics"
	"github.com/kilianp07/bessim/core/model"
	coremon "github.com/kilianp07/bessim/core/monitoring"
	"github.com/kilianp07/bessim/core/revenue"
	"github.com/kilianp07/bessim/core/runlog"
	"github.com/kilianp07/bessim/core/sizing"
	"github.com/kilianp07/bessim/infra/logger"
	"github.com/kilianp07/bessim/infra/metrics"
	infmon "github.com/kilianp07/bessim/infra/monitoring"
	"github.com/kilianp07/bessim/infra/timeseries"
	"github.com/kilianp07/bessim/internal/eventbus"
)

// ErrSeriesKind reports a load series given where prices are expected.
var ErrSeriesKind = errors.New("wrong series kind")

// Service wires the simulation core to the configured sinks, run store and
// error reporting. Every command of the CLI goes through one Service.
type Service struct {
	cfg   *config.Config
	log   logger.Logger
	sink  coremetrics.MetricsSink
	store runlog.Store
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	mon, err := infmon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := runlog.Open(cfg.Store)
	if err != nil {
		_ = closeSink(sink)
		return nil, fmt.Errorf("run store: %w", err)
	}
	return NewWithDeps(cfg, sink, store), nil
}

// NewWithDeps creates a Service with explicit sink and store.
func NewWithDeps(cfg *config.Config, sink coremetrics.MetricsSink, store runlog.Store) *Service {
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	if store == nil {
		store = runlog.NopStore{}
	}
	return &Service{cfg: cfg, log: logger.New("service"), sink: sink, store: store}
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config { return s.cfg }

// Input is a parsed time series together with its origin.
type Input struct {
	Name         string
	Kind         timeseries.Kind
	Series       model.Series
	Temperatures []float64
}

// LoadInput reads a CSV file using the configured timezone.
func (s *Service) LoadInput(path, column string) (Input, error) {
	loc, err := s.cfg.Simulation.Location()
	if err != nil {
		return Input{}, err
	}
	tab, err := timeseries.Load(path, timeseries.Options{Location: loc, Column: column})
	if err != nil {
		return Input{}, err
	}
	s.log.Debugf("loaded %d %s samples from %s (%s)", len(tab.Series), tab.Kind, path, tab.Column)
	return Input{Name: path, Kind: tab.Kind, Series: tab.Series, Temperatures: tab.Temperatures}, nil
}

// BoundsReport is the outcome of Bounds.
type BoundsReport struct {
	Base            bounds.PowerBounds `json:"base"`
	Bounds          bounds.PowerBounds `json:"bounds"`
	ChargeFactor    float64            `json:"charge_factor"`
	DischargeFactor float64            `json:"discharge_factor"`
}

// Bounds evaluates the power limits of the configured battery at op.
func (s *Service) Bounds(op bounds.OperatingPoint) (*BoundsReport, error) {
	b, err := s.cfg.Battery.Model()
	if err != nil {
		return nil, err
	}
	base, err := bounds.Base(b)
	if err != nil {
		return nil, err
	}
	fc, fd := 1.0, 1.0
	if b.Derate.Enabled {
		if fc, fd, err = bounds.Factors(b.Derate, op); err != nil {
			return nil, err
		}
	}
	pb, err := bounds.ComputePowerBounds(b, op)
	if err != nil {
		return nil, err
	}
	return &BoundsReport{Base: base, Bounds: pb, ChargeFactor: fc, DischargeFactor: fd}, nil
}

func (s *Service) dispatchOptions(in Input) []dispatch.Option {
	opts := []dispatch.Option{
		dispatch.WithTolerance(s.cfg.Simulation.Tolerance),
		dispatch.WithLogger(logger.New("dispatch")),
	}
	if dt := s.cfg.Simulation.IntervalHours(); dt > 0 {
		opts = append(opts, dispatch.WithInterval(dt))
	}
	if in.Temperatures != nil {
		opts = append(opts, dispatch.WithTemperatures(in.Temperatures))
	}
	return opts
}

// SimulationRun is a recorded dispatch simulation.
type SimulationRun struct {
	ID     string                     `json:"id"`
	Result *dispatch.SimulationResult `json:"result"`
}

// Simulate runs the configured policy over the input and records the run.
func (s *Service) Simulate(ctx context.Context, in Input) (*SimulationRun, error) {
	run, err := s.simulate(ctx, in)
	return run, s.report("simulate", err)
}

func (s *Service) simulate(ctx context.Context, in Input) (*SimulationRun, error) {
	b, err := s.cfg.Battery.Model()
	if err != nil {
		return nil, err
	}
	if s.cfg.Simulation.Policy == config.PolicyArbitrage && in.Kind != timeseries.KindPrice {
		return nil, fmt.Errorf("%w: policy %s needs prices, %s has %s", ErrSeriesKind, config.PolicyArbitrage, in.Name, in.Kind)
	}
	policy, err := BuildPolicy(s.cfg.Simulation, in.Series)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := dispatch.Simulate(in.Series, b, policy, s.dispatchOptions(in)...)
	if err != nil {
		return nil, err
	}
	run := &SimulationRun{ID: uuid.NewString(), Result: res}
	s.log.Infof("run %s: %s over %d samples, peak %.3f -> %.3f kW", run.ID, res.Policy, len(in.Series), res.PeakBefore, res.PeakAfter)

	s.emit("run", s.sink.RecordRun(coremetrics.RunEvent{
		RunID:               run.ID,
		Policy:              res.Policy,
		Input:               in.Name,
		Samples:             len(in.Series),
		IntervalHours:       res.IntervalHours,
		PeakBefore:          res.PeakBefore,
		PeakAfter:           res.PeakAfter,
		EnergyChargedKWh:    res.EnergyChargedKWh,
		EnergyDischargedKWh: res.EnergyDischargedKWh,
		EquivalentCycles:    res.EquivalentCycles,
		Cashflow:            res.Cashflow,
		Duration:            time.Since(start),
		Time:                start,
	}))
	if rec, ok := s.sink.(coremetrics.SoCTraceRecorder); ok {
		s.emit("soc_trace", rec.RecordSoCTrace(run.ID, socPoints(res.Steps)))
	}
	r := runlog.NewRecord(runlog.KindSimulate, res.Policy, in.Name, b, res.Summary())
	r.ID = run.ID
	s.append(ctx, r)
	return run, nil
}

func socPoints(steps []dispatch.StepRecord) []coremetrics.SoCPoint {
	pts := make([]coremetrics.SoCPoint, len(steps))
	for i, st := range steps {
		pts[i] = coremetrics.SoCPoint{
			Time:     st.Timestamp,
			SoCKWh:   st.SoCEndKWh,
			OutputKW: st.Output,
			Action:   st.Action.String(),
		}
	}
	return pts
}

// Revenue evaluates the arbitrage revenue of the configured battery. An
// empty mode selects the configured one.
func (s *Service) Revenue(ctx context.Context, in Input, mode string) (*revenue.Evaluation, error) {
	ev, err := s.revenue(ctx, in, mode)
	return ev, s.report("revenue", err)
}

func (s *Service) revenue(ctx context.Context, in Input, mode string) (*revenue.Evaluation, error) {
	if mode == "" {
		mode = s.cfg.Revenue.Mode
	}
	m, err := revenue.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	b, err := s.cfg.Battery.Model()
	if err != nil {
		return nil, err
	}
	if m != revenue.ModeTheoretical && in.Kind != timeseries.KindPrice {
		return nil, fmt.Errorf("%w: revenue mode %s needs prices, %s has %s", ErrSeriesKind, m, in.Name, in.Kind)
	}
	settings := s.cfg.Revenue.Settings()
	if m == revenue.ModeTheoretical && !(settings.CyclesPerDay > 0) {
		return nil, fmt.Errorf("%w: theoretical revenue needs cycles_per_day > 0", model.ErrInvalidConfig)
	}
	ev, err := revenue.Evaluate(m, in.Series, s.cfg.Revenue.Params(b), settings)
	if err != nil {
		return nil, err
	}
	days := len(ev.Spread) + len(ev.Threshold)
	if m == revenue.ModeTheoretical {
		days = settings.Days
	}
	id := uuid.NewString()
	s.log.Infof("revenue %s (%s): %.2f over %d days", id, m, ev.Total, days)
	s.recordRevenue(ctx, id, string(m), in.Name, b, ev.Total, days)
	return ev, nil
}

func (s *Service) recordRevenue(ctx context.Context, id, mode, input string, b model.BatteryConfig, total float64, days int) {
	if rec, ok := s.sink.(coremetrics.RevenueRecorder); ok {
		s.emit("revenue", rec.RecordRevenue(coremetrics.RevenueEvent{
			RunID: id,
			Mode:  mode,
			Total: total,
			Days:  days,
			Time:  time.Now(),
		}))
	}
	kind := runlog.KindRevenue
	if mode == ModeOptimal {
		kind = runlog.KindOptimal
	}
	r := runlog.NewRecord(kind, mode, input, b, map[string]float64{"total": total, "days": float64(days)})
	r.ID = id
	s.append(ctx, r)
}

// ModeOptimal labels LP results in sinks and the run store.
const ModeOptimal = "optimal"

// Optimal solves the perfect-foresight arbitrage schedule of the input.
func (s *Service) Optimal(ctx context.Context, in Input) (*dispatch.OptimalResult, error) {
	res, err := s.optimal(ctx, in)
	return res, s.report("optimal", err)
}

func (s *Service) optimal(ctx context.Context, in Input) (*dispatch.OptimalResult, error) {
	b, err := s.cfg.Battery.Model()
	if err != nil {
		return nil, err
	}
	if in.Kind != timeseries.KindPrice {
		return nil, fmt.Errorf("%w: optimal arbitrage needs prices, %s has %s", ErrSeriesKind, in.Name, in.Kind)
	}
	in.Temperatures = nil
	res, err := dispatch.OptimalArbitrage(in.Series, b, s.dispatchOptions(in)...)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	s.log.Infof("optimal %s: %.2f over %d days", id, res.Total, len(res.Days))
	s.recordRevenue(ctx, id, ModeOptimal, in.Name, b, res.Total, len(res.Days))
	return res, nil
}

// Sizing sweeps the configured grid over the load and records the best
// candidate. Progress is forwarded to sinks that record sizing events.
func (s *Service) Sizing(ctx context.Context, in Input) (*sizing.Result, error) {
	res, err := s.sizing(ctx, in)
	if errors.Is(err, sizing.ErrNoFeasibleSize) {
		return nil, err
	}
	return res, s.report("sizing", err)
}

func (s *Service) sizing(ctx context.Context, in Input) (*sizing.Result, error) {
	sc := s.cfg.Sizing
	if err := sc.Grid.Validate(); err != nil {
		return nil, err
	}
	bus := eventbus.NewTyped[sizing.Progress]()
	sub := bus.SubscribeBuffered(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		rec, ok := s.sink.(coremetrics.SizingRecorder)
		for p := range sub {
			if !ok {
				continue
			}
			s.emit("sizing", rec.RecordSizing(coremetrics.SizingEvent{
				Done:        p.Done,
				Total:       p.Total,
				PowerKW:     p.Candidate.PowerKW,
				CapacityKWh: p.Candidate.CapacityKWh,
				Feasible:    p.Feasible,
				Time:        time.Now(),
			}))
		}
	}()

	tmpl := s.cfg.Battery.Template()
	res, err := sizing.Sweep(ctx, in.Series, sc.Grid, sizing.Options{
		Battery:       &tmpl,
		Economics:     sc.Economics,
		Quantile:      sc.Quantile,
		Workers:       sc.Workers,
		IntervalHours: s.cfg.Simulation.IntervalHours(),
		Progress:      bus,
		Logger:        logger.New("sizing"),
	})
	bus.Close()
	<-done
	if n := bus.Dropped(); n > 0 {
		s.log.Warnf("%d sizing progress events dropped", n)
	}
	if err != nil {
		return nil, err
	}

	best := res.Best
	s.log.Infof("sizing: %d evaluated, %d feasible, best %s (ROI %.1f%%)", res.Evaluated, len(res.Feasible), best.Candidate, best.ROIPercent)
	battery := model.NewBatteryFromPower(best.CapacityKWh, best.PowerKW)
	s.append(ctx, runlog.NewRecord(runlog.KindSizing, config.PolicyMonthlyPeakShaving, in.Name, battery, map[string]float64{
		"power_kw":       best.PowerKW,
		"capacity_kwh":   best.CapacityKWh,
		"investment":     best.Investment,
		"annual_savings": best.AnnualSavings,
		"payback_years":  best.PaybackYears,
		"roi_percent":    best.ROIPercent,
		"evaluated":      float64(res.Evaluated),
		"feasible":       float64(len(res.Feasible)),
	}))
	return res, nil
}

// Runs queries the run store.
func (s *Service) Runs(ctx context.Context, q runlog.RunQuery) ([]runlog.RunRecord, error) {
	return s.store.Query(ctx, q)
}

// StartMetricsServer serves /metrics on metrics.listen until ctx is done.
// It returns immediately when no address is configured.
func (s *Service) StartMetricsServer(ctx context.Context) error {
	if s.cfg.Metrics.Listen == "" {
		return nil
	}
	return metrics.StartPromServer(ctx, s.cfg.Metrics.Listen)
}

// Close releases the sinks and the store and flushes pending error reports.
func (s *Service) Close() error {
	err := errors.Join(closeSink(s.sink), s.store.Close())
	coremon.Flush(2 * time.Second)
	return err
}

func closeSink(sink coremetrics.MetricsSink) error {
	if c, ok := sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// report forwards unexpected failures to monitoring. Input errors are the
// caller's to fix and are not reported.
func (s *Service) report(op string, err error) error {
	if err != nil && !model.IsInputError(err) && !errors.Is(err, ErrSeriesKind) && !errors.Is(err, context.Canceled) {
		coremon.CaptureException(err, map[string]string{"command": op})
	}
	return err
}

// emit logs a sink failure without failing the run.
func (s *Service) emit(what string, err error) {
	if err != nil {
		s.log.Warnf("record %s: %v", what, err)
	}
}

func (s *Service) append(ctx context.Context, r runlog.RunRecord) {
	if err := s.store.Append(ctx, r); err != nil {
		s.log.Warnf("run store: %v", err)
		coremon.CaptureException(err, map[string]string{"module": "runlog"})
	}
}
