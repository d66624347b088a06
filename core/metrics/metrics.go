package metrics

import "time"

// RunEvent summarises one dispatch simulation.
type RunEvent struct {
	RunID               string
	Policy              string
	Input               string
	Samples             int
	IntervalHours       float64
	PeakBefore          float64
	PeakAfter           float64
	EnergyChargedKWh    float64
	EnergyDischargedKWh float64
	EquivalentCycles    float64
	Cashflow            float64
	Duration            time.Duration
	Time                time.Time
}

// MetricsSink records simulation runs for observability purposes.
type MetricsSink interface {
	RecordRun(ev RunEvent) error
}

// SoCPoint is one step of a state-of-charge trace.
type SoCPoint struct {
	Time     time.Time
	SoCKWh   float64
	OutputKW float64
	Action   string
}

// SoCTraceRecorder records the per-step trace of a run.
type SoCTraceRecorder interface {
	RecordSoCTrace(runID string, points []SoCPoint) error
}

// RevenueEvent summarises a revenue evaluation.
type RevenueEvent struct {
	RunID string
	Mode  string
	Total float64
	Days  int
	Time  time.Time
}

// RevenueRecorder records revenue evaluations.
type RevenueRecorder interface {
	RecordRevenue(ev RevenueEvent) error
}

// SizingEvent reports progress of a sizing sweep.
type SizingEvent struct {
	Done        int
	Total       int
	PowerKW     float64
	CapacityKWh float64
	Feasible    bool
	Time        time.Time
}

// SizingRecorder records sizing sweep progress.
type SizingRecorder interface {
	RecordSizing(ev SizingEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error                { return nil }
func (NopSink) RecordSoCTrace(string, []SoCPoint) error { return nil }
func (NopSink) RecordRevenue(RevenueEvent) error        { return nil }
func (NopSink) RecordSizing(SizingEvent) error          { return nil }
