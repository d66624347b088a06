// Package revenue estimates arbitrage revenue of a battery, either from an
// analytical model or from a day-ahead/intraday price series.
//
// All prices are in currency/kWh. Efficiency losses are applied once per
// traded kWh, consistent with the dispatch simulator.
package revenue

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/bessim/core/model"
)

// DefaultDays is the theoretical horizon used when a config gives none.
const DefaultDays = 365

// Params describes the battery for revenue estimation.
type Params struct {
	EnergyKWh           float64 `json:"energy_kwh"`
	DepthOfDischarge    float64 `json:"depth_of_discharge"`
	PowerKW             float64 `json:"power_kw"`
	RoundTripEfficiency float64 `json:"round_trip_efficiency"`
	CyclesCapPerDay     float64 `json:"cycles_cap_per_day"`
}

// NewParams returns params for a battery used over its full depth, without
// losses and with one cycle per day at most.
func NewParams(eKWh, pKW float64) Params {
	return Params{
		EnergyKWh:           eKWh,
		DepthOfDischarge:    1,
		PowerKW:             pKW,
		RoundTripEfficiency: 1,
		CyclesCapPerDay:     1,
	}
}

// UsableKWh is the energy available per cycle.
func (p Params) UsableKWh() float64 { return p.EnergyKWh * p.DepthOfDischarge }

// CyclesPerDay is the achievable number of cycles per day.
func (p Params) CyclesPerDay() float64 {
	return CyclesPerDay(p.EnergyKWh, p.PowerKW, p.CyclesCapPerDay)
}

// ParamsFromBattery derives revenue params from a battery config, using the
// discharge power rating.
func ParamsFromBattery(cfg model.BatteryConfig, dod, cyclesCap float64) Params {
	return Params{
		EnergyKWh:           cfg.NominalEnergyKWh,
		DepthOfDischarge:    dod,
		PowerKW:             cfg.DischargePowerKW(),
		RoundTripEfficiency: cfg.RoundTripEfficiency,
		CyclesCapPerDay:     cyclesCap,
	}
}

// TheoreticalRevenue is E·DoD × Δp × cycles/day × days × η.
func TheoreticalRevenue(eKWh, dod, etaRT, deltaPrice, cyclesPerDay float64, days int) float64 {
	return eKWh * dod * deltaPrice * cyclesPerDay * float64(days) * etaRT
}

// DailyCyclesPowerCap bounds the cycles per day a power rating allows.
// It is 12·P/E, or 0 for a battery without energy.
func DailyCyclesPowerCap(eKWh, pKW float64) float64 {
	if eKWh <= 0 {
		return 0
	}
	return 12.0 * (pKW / eKWh)
}

// CyclesPerDay combines an external cycle cap with the power cap.
func CyclesPerDay(eKWh, pKW, capPerDay float64) float64 {
	return math.Min(capPerDay, DailyCyclesPowerCap(eKWh, pKW))
}

// SpreadDay is the per-day breakdown of SpreadBasedRevenue.
type SpreadDay struct {
	Date    time.Time `json:"date"`
	Max     float64   `json:"daily_max"`
	Min     float64   `json:"daily_min"`
	Spread  float64   `json:"spread"`
	Revenue float64   `json:"revenue"`
}

// SpreadBasedRevenue is the upper bound obtained by cycling the usable
// energy across each day's high-low spread.
func SpreadBasedRevenue(prices model.Series, p Params) (float64, []SpreadDay) {
	cycles := p.CyclesPerDay()
	if cycles <= 0 {
		return 0, nil
	}
	var total float64
	var out []SpreadDay
	for _, day := range prices.Days() {
		vals := day.Samples.Values()
		d := SpreadDay{Date: day.Date, Max: floats.Max(vals), Min: floats.Min(vals)}
		d.Spread = d.Max - d.Min
		d.Revenue = p.UsableKWh() * cycles * d.Spread * p.RoundTripEfficiency
		total += d.Revenue
		out = append(out, d)
	}
	return total, out
}

// ThresholdDay is the per-day breakdown of ThresholdBasedRevenue. The mean
// prices are NaN when the day has no trade.
type ThresholdDay struct {
	Date        time.Time `json:"date"`
	BuySamples  int       `json:"buy_samples"`
	SellSamples int       `json:"sell_samples"`
	TradeKWh    float64   `json:"trade_kwh"`
	BuyAvg      float64   `json:"buy_avg"`
	SellAvg     float64   `json:"sell_avg"`
	Revenue     float64   `json:"revenue"`
}

// MarshalJSON writes NaN averages as null.
func (d ThresholdDay) MarshalJSON() ([]byte, error) {
	type alias ThresholdDay
	return json.Marshal(struct {
		alias
		BuyAvg  *float64 `json:"buy_avg"`
		SellAvg *float64 `json:"sell_avg"`
	}{alias: alias(d), BuyAvg: finite(d.BuyAvg), SellAvg: finite(d.SellAvg)})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ThresholdBasedRevenue charges whenever the price is at or below buy and
// discharges whenever it is at or above sell. The traded energy per day is
// limited by the time spent in each band at full power and by the usable
// energy × cycles/day; revenue uses the mean buy and sell prices of the day.
//
// The sampling interval is the median step of the series, so at least two
// samples are required.
func ThresholdBasedRevenue(prices model.Series, p Params, buy, sell float64) (float64, []ThresholdDay, error) {
	if len(prices) < 2 {
		return 0, nil, fmt.Errorf("%w: threshold revenue needs at least two prices, got %d", model.ErrInsufficientData, len(prices))
	}
	cycles := p.CyclesPerDay()
	if cycles <= 0 {
		return 0, nil, nil
	}
	dt, err := prices.Sorted().MedianInterval()
	if err != nil {
		return 0, nil, err
	}

	dayCap := p.UsableKWh() * cycles
	var total float64
	var out []ThresholdDay
	for _, day := range prices.Days() {
		var buys, sells []float64
		for _, s := range day.Samples {
			if s.Value <= buy {
				buys = append(buys, s.Value)
			}
			if s.Value >= sell {
				sells = append(sells, s.Value)
			}
		}
		eBuy := math.Min(float64(len(buys))*dt*p.PowerKW, dayCap)
		eSell := math.Min(float64(len(sells))*dt*p.PowerKW, dayCap)
		d := ThresholdDay{
			Date:        day.Date,
			BuySamples:  len(buys),
			SellSamples: len(sells),
			TradeKWh:    math.Min(eBuy, eSell),
			BuyAvg:      math.NaN(),
			SellAvg:     math.NaN(),
		}
		if d.TradeKWh > 0 && len(buys) > 0 && len(sells) > 0 {
			d.BuyAvg = stat.Mean(buys, nil)
			d.SellAvg = stat.Mean(sells, nil)
			d.Revenue = d.TradeKWh * math.Max(0, d.SellAvg-d.BuyAvg) * p.RoundTripEfficiency
		}
		total += d.Revenue
		out = append(out, d)
	}
	return total, out, nil
}
