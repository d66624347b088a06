package model

import "errors"

var (
	// ErrInvalidConfig reports a battery configuration that cannot be simulated:
	// non-positive capacity, negative C-rates or incomplete derate tables.
	ErrInvalidConfig = errors.New("invalid battery config")
	// ErrEmptySeries is returned when a simulation is given no samples.
	ErrEmptySeries = errors.New("empty series")
	// ErrInsufficientData is returned when fewer than two samples are
	// available to derive a sampling interval.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrIrregularSeries reports timestamps that are not strictly increasing
	// or not evenly spaced within tolerance.
	ErrIrregularSeries = errors.New("irregular series")
)

// IsInputError reports whether err belongs to the simulation input taxonomy,
// i.e. something the caller should surface as invalid parameters.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrEmptySeries) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrIrregularSeries)
}
