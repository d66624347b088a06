package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Sample is one timestamped value of a load (kW) or price series.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is a time-ordered sequence of samples.
type Series []Sample

// DefaultIntervalTolerance is the relative deviation allowed between the
// first sampling step and every later one.
const DefaultIntervalTolerance = 0.01

// Values returns the sample values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, smp := range s {
		out[i] = smp.Value
	}
	return out
}

// Interval derives the fixed sampling step in hours. Timestamps must be
// strictly increasing and every step must stay within tol (relative) of
// the first one.
func (s Series) Interval(tol float64) (float64, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: need at least two samples to derive the interval, got %d", ErrInsufficientData, len(s))
	}
	first := s[1].Timestamp.Sub(s[0].Timestamp)
	if first <= 0 {
		return 0, fmt.Errorf("%w: timestamps not increasing at index 1", ErrIrregularSeries)
	}
	for i := 2; i < len(s); i++ {
		step := s[i].Timestamp.Sub(s[i-1].Timestamp)
		if step <= 0 {
			return 0, fmt.Errorf("%w: timestamps not increasing at index %d", ErrIrregularSeries, i)
		}
		if math.Abs(float64(step-first)) > tol*float64(first) {
			return 0, fmt.Errorf("%w: step %s at index %d differs from %s", ErrIrregularSeries, step, i, first)
		}
	}
	return first.Hours(), nil
}

// MedianInterval returns the median step in hours. Unlike Interval it
// tolerates gaps and duplicate timestamps.
func (s Series) MedianInterval() (float64, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: need at least two samples, got %d", ErrInsufficientData, len(s))
	}
	diffs := make([]float64, len(s)-1)
	for i := 1; i < len(s); i++ {
		diffs[i-1] = s[i].Timestamp.Sub(s[i-1].Timestamp).Hours()
	}
	sort.Float64s(diffs)
	n := len(diffs)
	if n%2 == 1 {
		return diffs[n/2], nil
	}
	return (diffs[n/2-1] + diffs[n/2]) / 2, nil
}

// Day is the subset of a series falling on one calendar date.
type Day struct {
	Date    time.Time
	Samples Series
}

// Days groups samples by calendar date, using each timestamp's own location.
// Days are returned in chronological order; samples keep their input order.
func (s Series) Days() []Day {
	idx := make(map[time.Time]int)
	var days []Day
	for _, smp := range s {
		y, m, d := smp.Timestamp.Date()
		key := time.Date(y, m, d, 0, 0, 0, 0, smp.Timestamp.Location())
		i, ok := idx[key]
		if !ok {
			i = len(days)
			idx[key] = i
			days = append(days, Day{Date: key})
		}
		days[i].Samples = append(days[i].Samples, smp)
	}
	sort.SliceStable(days, func(a, b int) bool { return days[a].Date.Before(days[b].Date) })
	return days
}

// Sorted returns a copy ordered by timestamp.
func (s Series) Sorted() Series {
	out := make(Series, len(s))
	copy(out, s)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Timestamp.Before(out[b].Timestamp) })
	return out
}
