package config

import (
	"fmt"

	"github.com/kilianp07/bessim/core/model"
	"github.com/kilianp07/bessim/core/revenue"
)

// RevenueConfig configures the arbitrage revenue evaluation. Prices and
// thresholds are quoted per MWh and converted to per kWh.
type RevenueConfig struct {
	Mode             string   `json:"mode"`
	DepthOfDischarge *float64 `json:"depth_of_discharge"`
	CyclesCapPerDay  *float64 `json:"cycles_cap_per_day"`
	// Theoretical mode inputs.
	DeltaPricePerMWh float64 `json:"delta_price_per_mwh"`
	CyclesPerDay     float64 `json:"cycles_per_day"`
	Days             int     `json:"days"`
	// Threshold mode inputs.
	BuyThresholdPerMWh  float64 `json:"buy_threshold_per_mwh"`
	SellThresholdPerMWh float64 `json:"sell_threshold_per_mwh"`
}

// SetDefaults selects the threshold mode over one year, with the full depth
// of discharge and one cycle per day when those keys are omitted.
func (c *RevenueConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = string(revenue.ModeThreshold)
	}
	if c.DepthOfDischarge == nil {
		c.DepthOfDischarge = ptr(1)
	}
	if c.CyclesCapPerDay == nil {
		c.CyclesCapPerDay = ptr(1)
	}
	if c.Days == 0 {
		c.Days = revenue.DefaultDays
	}
}

// Validate checks the mode and ranges.
func (c RevenueConfig) Validate() error {
	mode, err := revenue.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	if dod := value(c.DepthOfDischarge); dod < 0 || dod > 1 {
		return fmt.Errorf("depth_of_discharge must be in [0,1]")
	}
	if value(c.CyclesCapPerDay) < 0 || c.CyclesPerDay < 0 || c.Days < 0 {
		return fmt.Errorf("cycles and days must be >= 0")
	}
	if mode == revenue.ModeTheoretical && !(c.CyclesPerDay > 0) {
		return fmt.Errorf("cycles_per_day must be > 0 in theoretical mode")
	}
	if c.BuyThresholdPerMWh > c.SellThresholdPerMWh {
		return fmt.Errorf("buy_threshold_per_mwh (%g) must not exceed sell_threshold_per_mwh (%g)", c.BuyThresholdPerMWh, c.SellThresholdPerMWh)
	}
	return nil
}

// Settings returns the evaluator settings in currency per kWh.
func (c RevenueConfig) Settings() revenue.Settings {
	return revenue.Settings{
		DeltaPricePerKWh: model.PerMWh.ToKWh(c.DeltaPricePerMWh),
		CyclesPerDay:     c.CyclesPerDay,
		Days:             c.Days,
		BuyBelowPerKWh:   model.PerMWh.ToKWh(c.BuyThresholdPerMWh),
		SellAbovePerKWh:  model.PerMWh.ToKWh(c.SellThresholdPerMWh),
	}
}

// Params combines the battery with the revenue section.
func (c RevenueConfig) Params(b model.BatteryConfig) revenue.Params {
	c.SetDefaults()
	return revenue.ParamsFromBattery(b, *c.DepthOfDischarge, *c.CyclesCapPerDay)
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
