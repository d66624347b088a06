package metrics

import (
	"time"

	coremetrics "github.com/kilianp07/bessim/core/metrics"
	"github.com/kilianp07/bessim/infra/mqtt"
)

// MQTTSink publishes run, revenue and sizing events as JSON documents.
// Topics are relative to the publisher's prefix:
//
//	runs/<policy>
//	revenue/<mode>
//	sizing/progress
type MQTTSink struct {
	pub mqtt.Publisher
}

// NewMQTTSink wraps a connected publisher.
func NewMQTTSink(pub mqtt.Publisher) *MQTTSink {
	return &MQTTSink{pub: pub}
}

type runMessage struct {
	RunID               string    `json:"run_id"`
	Policy              string    `json:"policy"`
	Input               string    `json:"input,omitempty"`
	Samples             int       `json:"samples"`
	IntervalHours       float64   `json:"interval_h"`
	PeakBefore          float64   `json:"peak_before_kw"`
	PeakAfter           float64   `json:"peak_after_kw"`
	EnergyChargedKWh    float64   `json:"charged_kwh"`
	EnergyDischargedKWh float64   `json:"discharged_kwh"`
	EquivalentCycles    float64   `json:"cycles"`
	Cashflow            float64   `json:"cashflow"`
	DurationMS          int64     `json:"duration_ms"`
	Time                time.Time `json:"time"`
}

// RecordRun publishes the run summary.
func (s *MQTTSink) RecordRun(ev coremetrics.RunEvent) error {
	_, err := s.pub.Publish("runs/"+ev.Policy, runMessage{
		RunID:               ev.RunID,
		Policy:              ev.Policy,
		Input:               ev.Input,
		Samples:             ev.Samples,
		IntervalHours:       round3(ev.IntervalHours),
		PeakBefore:          round3(ev.PeakBefore),
		PeakAfter:           round3(ev.PeakAfter),
		EnergyChargedKWh:    round3(ev.EnergyChargedKWh),
		EnergyDischargedKWh: round3(ev.EnergyDischargedKWh),
		EquivalentCycles:    round3(ev.EquivalentCycles),
		Cashflow:            round3(ev.Cashflow),
		DurationMS:          ev.Duration.Milliseconds(),
		Time:                ev.Time,
	})
	return err
}

// RecordRevenue publishes the revenue total.
func (s *MQTTSink) RecordRevenue(ev coremetrics.RevenueEvent) error {
	_, err := s.pub.Publish("revenue/"+ev.Mode, map[string]any{
		"run_id": ev.RunID,
		"mode":   ev.Mode,
		"total":  round3(ev.Total),
		"days":   ev.Days,
		"time":   ev.Time,
	})
	return err
}

// RecordSizing publishes sweep progress.
func (s *MQTTSink) RecordSizing(ev coremetrics.SizingEvent) error {
	_, err := s.pub.Publish("sizing/progress", map[string]any{
		"done":         ev.Done,
		"total":        ev.Total,
		"power_kw":     ev.PowerKW,
		"capacity_kwh": ev.CapacityKWh,
		"feasible":     ev.Feasible,
		"time":         ev.Time,
	})
	return err
}

// Close disconnects the publisher.
func (s *MQTTSink) Close() error {
	s.pub.Disconnect()
	return nil
}
