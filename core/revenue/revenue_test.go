package revenue

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bessim/core/model"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func hourly(start time.Time, vals ...float64) model.Series {
	s := make(model.Series, len(vals))
	for i, v := range vals {
		s[i] = model.Sample{Timestamp: start.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return s
}

func TestTheoreticalRevenue(t *testing.T) {
	got := TheoreticalRevenue(100, 0.9, 0.85, 0.05, 1.5, 365)
	assert.InDelta(t, 100*0.9*0.05*1.5*365*0.85, got, 1e-9)
	assert.Equal(t, 0.0, TheoreticalRevenue(100, 1, 1, 0.05, 0, 365))
}

func TestDailyCyclesPowerCap(t *testing.T) {
	for _, p := range []float64{0, 1, 50, 1e6} {
		if got := DailyCyclesPowerCap(0, p); got != 0 {
			t.Fatalf("P=%v: expected 0 got %v", p, got)
		}
	}
	assert.Equal(t, 0.0, DailyCyclesPowerCap(-5, 10))
	assert.InDelta(t, 6.0, DailyCyclesPowerCap(100, 50), 1e-12)
	assert.InDelta(t, 1.0, CyclesPerDay(100, 50, 1), 1e-12)
	assert.InDelta(t, 0.6, CyclesPerDay(100, 5, 2), 1e-12)
}

func TestSpreadBasedRevenue(t *testing.T) {
	prices := append(hourly(day0, 0.10, 0.30, 0.20), hourly(day0.Add(24*time.Hour), 0.05, 0.05, 0.25)...)
	p := Params{EnergyKWh: 100, DepthOfDischarge: 0.8, PowerKW: 50, RoundTripEfficiency: 0.9, CyclesCapPerDay: 1}
	total, days := SpreadBasedRevenue(prices, p)
	require.Len(t, days, 2)
	assert.InDelta(t, 0.20, days[0].Spread, 1e-12)
	assert.InDelta(t, 80*0.20*0.9, days[0].Revenue, 1e-9)
	assert.InDelta(t, 80*0.20*0.9, days[1].Revenue, 1e-9)
	assert.InDelta(t, 2*80*0.20*0.9, total, 1e-9)
	assert.True(t, days[0].Date.Equal(day0))
}

func TestSpreadBasedRevenueZeroCycles(t *testing.T) {
	prices := hourly(day0, 0.1, 0.5)
	total, days := SpreadBasedRevenue(prices, Params{EnergyKWh: 0, PowerKW: 10})
	assert.Equal(t, 0.0, total)
	assert.Empty(t, days)

	total, days = SpreadBasedRevenue(prices, Params{EnergyKWh: 10, PowerKW: 0})
	assert.Equal(t, 0.0, total)
	assert.Empty(t, days)
}

func TestExplicitZeroCycleCap(t *testing.T) {
	prices := hourly(day0, 0.1, 0.5)
	p := NewParams(100, 50)
	p.CyclesCapPerDay = 0

	total, days := SpreadBasedRevenue(prices, p)
	assert.Equal(t, 0.0, total)
	assert.Empty(t, days)

	total, tdays, err := ThresholdBasedRevenue(prices, p, 0.2, 0.4)
	require.NoError(t, err)
	assert.Equal(t, 0.0, total)
	assert.Empty(t, tdays)

	ev, err := Evaluate(ModeTheoretical, nil, p, Settings{DeltaPricePerKWh: 0.1, CyclesPerDay: 0, Days: 365})
	require.NoError(t, err)
	assert.Equal(t, 0.0, ev.Total)
}

func TestExplicitZeroDepthOfDischarge(t *testing.T) {
	prices := hourly(day0, 0.1, 0.5)
	p := NewParams(100, 50)
	p.DepthOfDischarge = 0

	total, days := SpreadBasedRevenue(prices, p)
	assert.Equal(t, 0.0, total)
	require.Len(t, days, 1)
	assert.Equal(t, 0.0, days[0].Revenue)

	total, _, err := ThresholdBasedRevenue(prices, p, 0.2, 0.4)
	require.NoError(t, err)
	assert.Equal(t, 0.0, total)
}

func TestThresholdBasedRevenueSingleSample(t *testing.T) {
	_, _, err := ThresholdBasedRevenue(hourly(day0, 0.1), Params{EnergyKWh: 10, PowerKW: 5}, 0.05, 0.2)
	if !errors.Is(err, model.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData got %v", err)
	}
	_, _, err = ThresholdBasedRevenue(nil, Params{EnergyKWh: 10, PowerKW: 5}, 0.05, 0.2)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestThresholdBasedRevenue(t *testing.T) {
	// day 1: two buy hours, three sell hours. day 2: no sell hours.
	prices := append(
		hourly(day0, 0.02, 0.04, 0.10, 0.30, 0.32, 0.34),
		hourly(day0.Add(24*time.Hour), 0.01, 0.10, 0.10)...,
	)
	p := Params{EnergyKWh: 20, DepthOfDischarge: 1, PowerKW: 5, RoundTripEfficiency: 0.9, CyclesCapPerDay: 1}
	total, days, err := ThresholdBasedRevenue(prices, p, 0.05, 0.30)
	require.NoError(t, err)
	require.Len(t, days, 2)

	d := days[0]
	assert.Equal(t, 2, d.BuySamples)
	assert.Equal(t, 3, d.SellSamples)
	// buy 2h×5kW=10, sell min(15, 20)=15
	assert.InDelta(t, 10.0, d.TradeKWh, 1e-12)
	assert.InDelta(t, 0.03, d.BuyAvg, 1e-12)
	assert.InDelta(t, 0.32, d.SellAvg, 1e-12)
	assert.InDelta(t, 10*0.29*0.9, d.Revenue, 1e-9)

	assert.Equal(t, 0.0, days[1].Revenue)
	assert.True(t, math.IsNaN(days[1].BuyAvg))
	assert.True(t, math.IsNaN(days[1].SellAvg))
	assert.InDelta(t, d.Revenue, total, 1e-12)
}

func TestThresholdBasedRevenueCappedByUsableEnergy(t *testing.T) {
	prices := hourly(day0, 0.01, 0.01, 0.01, 0.5, 0.5, 0.5)
	p := Params{EnergyKWh: 10, DepthOfDischarge: 0.5, PowerKW: 10, RoundTripEfficiency: 1, CyclesCapPerDay: 1}
	_, days, err := ThresholdBasedRevenue(prices, p, 0.05, 0.4)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, days[0].TradeKWh, 1e-12)
}

func TestThresholdBasedRevenueMedianInterval(t *testing.T) {
	// 15-minute data with one gap: the median step stays 0.25 h.
	s := model.Series{}
	for i, v := range []float64{0.01, 0.01, 0.5, 0.5} {
		s = append(s, model.Sample{Timestamp: day0.Add(time.Duration(i) * 15 * time.Minute), Value: v})
	}
	s = append(s, model.Sample{Timestamp: day0.Add(3 * time.Hour), Value: 0.2})
	p := NewParams(100, 4)
	_, days, err := ThresholdBasedRevenue(s, p, 0.05, 0.4)
	require.NoError(t, err)
	assert.InDelta(t, 2*0.25*4, days[0].TradeKWh, 1e-12)
}

func TestThresholdDayJSONWritesNaNAsNull(t *testing.T) {
	b, err := json.Marshal(ThresholdDay{Date: day0, BuyAvg: math.NaN(), SellAvg: 0.3})
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Nil(t, m["buy_avg"])
	assert.Equal(t, 0.3, m["sell_avg"])
}

func TestEvaluate(t *testing.T) {
	prices := hourly(day0, 0.02, 0.40)
	p := NewParams(10, 10)

	ev, err := Evaluate(ModeTheoretical, nil, p, Settings{DeltaPricePerKWh: 0.1, CyclesPerDay: 1, Days: DefaultDays})
	require.NoError(t, err)
	assert.InDelta(t, 10*0.1*365, ev.Total, 1e-9)

	ev, err = Evaluate(ModeSpread, prices, p, Settings{})
	require.NoError(t, err)
	assert.InDelta(t, 10*0.38, ev.Total, 1e-9)
	assert.Len(t, ev.Spread, 1)

	ev, err = Evaluate(ModeThreshold, prices, p, Settings{BuyBelowPerKWh: 0.05, SellAbovePerKWh: 0.3})
	require.NoError(t, err)
	assert.InDelta(t, 10*0.38, ev.Total, 1e-9)

	ev, err = Evaluate(ModeThreshold, nil, p, Settings{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, ev.Total)

	_, err = Evaluate(Mode("bogus"), prices, p, Settings{})
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Spread")
	require.NoError(t, err)
	assert.Equal(t, ModeSpread, m)
	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeThreshold, m)
	_, err = ParseMode("x")
	assert.Error(t, err)
}

func TestParamsFromBattery(t *testing.T) {
	b := model.NewBatteryFromPower(10, 3)
	b.RoundTripEfficiency = 0.9
	p := ParamsFromBattery(b, 0, 2)
	assert.Equal(t, 10.0, p.EnergyKWh)
	assert.InDelta(t, 3.0, p.PowerKW, 1e-12)
	assert.Equal(t, 0.0, p.DepthOfDischarge)
	assert.Equal(t, 0.9, p.RoundTripEfficiency)
	assert.Equal(t, 2.0, p.CyclesCapPerDay)
}
