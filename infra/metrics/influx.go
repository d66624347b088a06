package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/bessim/core/metrics"
	"github.com/kilianp07/bessim/infra/logger"
)

// InfluxConfig holds the connection settings of the InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// TracePoints disables SoC trace export when false.
	TracePoints bool `json:"trace_points"`
}

// InfluxSink writes run summaries and SoC traces to an InfluxDB instance
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	traces   bool
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
		traces:   cfg.TracePoints,
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes one bess_run point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, runPoint(ev))
}

func runPoint(ev coremetrics.RunEvent) *write.Point {
	return write.NewPointWithMeasurement("bess_run").
		AddTag("run_id", ev.RunID).
		AddTag("policy", ev.Policy).
		AddField("samples", ev.Samples).
		AddField("interval_h", round3(ev.IntervalHours)).
		AddField("peak_before_kw", round3(ev.PeakBefore)).
		AddField("peak_after_kw", round3(ev.PeakAfter)).
		AddField("charged_kwh", round3(ev.EnergyChargedKWh)).
		AddField("discharged_kwh", round3(ev.EnergyDischargedKWh)).
		AddField("cycles", round3(ev.EquivalentCycles)).
		AddField("cashflow", round3(ev.Cashflow)).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
}

// RecordSoCTrace writes one bess_soc point per step when trace export is
// enabled.
func (s *InfluxSink) RecordSoCTrace(runID string, points []coremetrics.SoCPoint) error {
	if !s.traces || len(points) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	batch := make([]*write.Point, len(points))
	for i, pt := range points {
		batch[i] = write.NewPointWithMeasurement("bess_soc").
			AddTag("run_id", runID).
			AddTag("action", pt.Action).
			AddField("soc_kwh", round3(pt.SoCKWh)).
			AddField("output_kw", round3(pt.OutputKW)).
			SetTime(pt.Time)
	}
	return s.writeAPI.WritePoint(ctx, batch...)
}

// RecordRevenue writes a bess_revenue point.
func (s *InfluxSink) RecordRevenue(ev coremetrics.RevenueEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("bess_revenue").
		AddTag("run_id", ev.RunID).
		AddTag("mode", ev.Mode).
		AddField("total", round3(ev.Total)).
		AddField("days", ev.Days).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSizing writes a bess_sizing point for an evaluated candidate.
func (s *InfluxSink) RecordSizing(ev coremetrics.SizingEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("bess_sizing").
		AddField("power_kw", round3(ev.PowerKW)).
		AddField("capacity_kwh", round3(ev.CapacityKWh)).
		AddField("feasible", ev.Feasible).
		AddField("done", ev.Done).
		AddField("total", ev.Total).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
