package dispatch

import (
	"fmt"

	"github.com/kilianp07/bessim/core/logger"
	"github.com/kilianp07/bessim/core/model"
)

// Option configures a simulation or optimisation run.
type Option func(*options)

type options struct {
	interval  float64
	tolerance float64
	temps     []float64
	prices    []float64
	log       logger.Logger
}

func newOptions(opts []Option) options {
	o := options{tolerance: model.DefaultIntervalTolerance, log: logger.NopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithInterval fixes the sampling interval in hours instead of deriving it
// from the timestamps. It is required for single-sample series.
func WithInterval(hours float64) Option {
	return func(o *options) { o.interval = hours }
}

// WithTolerance sets the relative tolerance used to accept the sampling
// interval of the series.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tolerance = tol }
}

// WithTemperatures provides one cell temperature per sample for derating.
func WithTemperatures(tempsC []float64) Option {
	return func(o *options) { o.temps = tempsC }
}

// WithPrices provides one price per sample (currency/kWh) so that a load
// based policy also books a cashflow.
func WithPrices(pricesPerKWh []float64) Option {
	return func(o *options) { o.prices = pricesPerKWh }
}

// WithLogger sets the logger used for run summaries.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// resolveInterval returns the explicit interval or derives it from series.
func (o options) resolveInterval(series model.Series) (float64, error) {
	if o.interval != 0 {
		if !(o.interval > 0) {
			return 0, fmt.Errorf("%w: interval must be > 0, got %v", model.ErrInvalidConfig, o.interval)
		}
		return o.interval, nil
	}
	return series.Interval(o.tolerance)
}

func (o options) checkLengths(n int) error {
	if o.temps != nil && len(o.temps) != n {
		return fmt.Errorf("%w: %d temperatures for %d samples", model.ErrInvalidConfig, len(o.temps), n)
	}
	if o.prices != nil && len(o.prices) != n {
		return fmt.Errorf("%w: %d prices for %d samples", model.ErrInvalidConfig, len(o.prices), n)
	}
	return nil
}
