package config

import (
	"fmt"
	"time"
	// Embedded zone database for hosts without /usr/share/zoneinfo.
	_ "time/tzdata"
)

// Policy names accepted by simulation.policy.
const (
	PolicyPeakShaving        = "peak_shaving"
	PolicyMonthlyPeakShaving = "monthly_peak_shaving"
	PolicyArbitrage          = "arbitrage"
)

// SimulationConfig configures the dispatch simulator.
type SimulationConfig struct {
	Policy string `json:"policy"`
	// LimitKW is the peak-shaving limit. When zero the LimitQuantile of the
	// load is used instead.
	LimitKW       float64 `json:"limit_kw"`
	LimitQuantile float64 `json:"limit_quantile"`
	Greedy        bool    `json:"greedy"`
	// Arbitrage thresholds, quoted per MWh like market data.
	BuyBelowPerMWh  float64 `json:"buy_below_per_mwh"`
	SellAbovePerMWh float64 `json:"sell_above_per_mwh"`
	// IntervalMinutes overrides the sampling interval derived from the data.
	IntervalMinutes float64 `json:"interval_minutes"`
	Tolerance       float64 `json:"tolerance"`
	// Timezone applies to timestamps without an offset and to day grouping.
	Timezone string `json:"timezone"`
}

// SetDefaults applies the peak shaving policy at the 95th percentile.
func (c *SimulationConfig) SetDefaults() {
	if c.Policy == "" {
		c.Policy = PolicyPeakShaving
	}
	if c.LimitQuantile == 0 {
		c.LimitQuantile = 0.95
	}
	if c.Tolerance == 0 {
		c.Tolerance = 0.01
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

// Validate checks the policy name and numeric ranges.
func (c SimulationConfig) Validate() error {
	switch c.Policy {
	case PolicyPeakShaving, PolicyMonthlyPeakShaving, PolicyArbitrage:
	default:
		return fmt.Errorf("unknown policy %q", c.Policy)
	}
	if c.LimitKW < 0 {
		return fmt.Errorf("limit_kw must be >= 0")
	}
	if c.LimitQuantile <= 0 || c.LimitQuantile > 1 {
		return fmt.Errorf("limit_quantile must be in (0,1]")
	}
	if c.IntervalMinutes < 0 || c.Tolerance < 0 {
		return fmt.Errorf("interval_minutes and tolerance must be >= 0")
	}
	if c.Policy == PolicyArbitrage && c.BuyBelowPerMWh >= c.SellAbovePerMWh {
		return fmt.Errorf("buy_below_per_mwh (%g) must be below sell_above_per_mwh (%g)", c.BuyBelowPerMWh, c.SellAbovePerMWh)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c SimulationConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// IntervalHours converts IntervalMinutes; zero means derive from the data.
func (c SimulationConfig) IntervalHours() float64 {
	return c.IntervalMinutes / 60
}
