package metrics

import (
	"errors"
	"io"
)

// MultiSink fans events out to several sinks. Every sink is called even
// when an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the run summary to all sinks.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRun(ev))
	}
	return errors.Join(errs...)
}

// RecordSoCTrace forwards the trace to sinks that support it.
func (m *MultiSink) RecordSoCTrace(runID string, points []SoCPoint) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(SoCTraceRecorder); ok {
			errs = append(errs, rec.RecordSoCTrace(runID, points))
		}
	}
	return errors.Join(errs...)
}

// RecordRevenue forwards revenue events to sinks that support them.
func (m *MultiSink) RecordRevenue(ev RevenueEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(RevenueRecorder); ok {
			errs = append(errs, rec.RecordRevenue(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordSizing forwards sizing progress to sinks that support it.
func (m *MultiSink) RecordSizing(ev SizingEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(SizingRecorder); ok {
			errs = append(errs, rec.RecordSizing(ev))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
