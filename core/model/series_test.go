package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func regular(n int, step time.Duration, f func(i int) float64) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = Sample{Timestamp: t0.Add(time.Duration(i) * step), Value: f(i)}
	}
	return s
}

func TestSeriesInterval(t *testing.T) {
	s := regular(8, 15*time.Minute, func(int) float64 { return 1 })
	dt, err := s.Interval(DefaultIntervalTolerance)
	require.NoError(t, err)
	assert.Equal(t, 0.25, dt)
}

func TestSeriesIntervalErrors(t *testing.T) {
	_, err := Series{{Timestamp: t0}}.Interval(0.01)
	assert.ErrorIs(t, err, ErrInsufficientData)

	back := Series{{Timestamp: t0}, {Timestamp: t0.Add(-time.Minute)}}
	_, err = back.Interval(0.01)
	assert.ErrorIs(t, err, ErrIrregularSeries)

	gap := regular(4, time.Hour, func(int) float64 { return 0 })
	gap[3].Timestamp = gap[3].Timestamp.Add(time.Hour)
	_, err = gap.Interval(0.01)
	if !errors.Is(err, ErrIrregularSeries) {
		t.Fatalf("expected ErrIrregularSeries got %v", err)
	}
}

func TestSeriesMedianIntervalToleratesGaps(t *testing.T) {
	s := regular(6, 15*time.Minute, func(int) float64 { return 0 })
	s[5].Timestamp = s[5].Timestamp.Add(2 * time.Hour)
	dt, err := s.MedianInterval()
	require.NoError(t, err)
	assert.Equal(t, 0.25, dt)

	even := Series{{Timestamp: t0}, {Timestamp: t0.Add(time.Hour)}, {Timestamp: t0.Add(3 * time.Hour)}}
	dt, err = even.MedianInterval()
	require.NoError(t, err)
	assert.Equal(t, 1.5, dt)

	_, err = Series{}.MedianInterval()
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSeriesDays(t *testing.T) {
	s := regular(48, time.Hour, func(i int) float64 { return float64(i) })
	days := s.Days()
	require.Len(t, days, 2)
	assert.Len(t, days[0].Samples, 24)
	assert.Equal(t, 24.0, days[1].Samples[0].Value)
	assert.True(t, days[0].Date.Before(days[1].Date))
}

func TestNormalizePrices(t *testing.T) {
	s := Series{{Timestamp: t0, Value: 85}, {Timestamp: t0.Add(time.Hour), Value: 120}}
	n := NormalizePrices(s, PerMWh)
	assert.InDelta(t, 0.085, n[0].Value, 1e-12)
	assert.InDelta(t, 0.12, n[1].Value, 1e-12)
	assert.Equal(t, 85.0, s[0].Value, "input must not be mutated")

	u, err := ParsePriceUnit("EUR_per_MWh")
	assert.Error(t, err)
	u, err = ParsePriceUnit("MWh")
	require.NoError(t, err)
	assert.Equal(t, PerMWh, u)
}
