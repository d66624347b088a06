package model

import (
	"fmt"
	"math"
)

// BatteryConfig is the immutable description of a battery for one
// simulation run. Units: energy in kWh, C-rates in 1/h, fractions in [0,1].
type BatteryConfig struct {
	NominalEnergyKWh    float64      `json:"nominal_energy_kwh"`
	ChargeCRate         float64      `json:"charge_c_rate"`
	DischargeCRate      float64      `json:"discharge_c_rate"`
	RoundTripEfficiency float64      `json:"round_trip_efficiency"`
	InitialSoC          float64      `json:"initial_soc"`
	MinSoC              float64      `json:"min_soc"`
	MaxSoC              float64      `json:"max_soc"`
	Derate              DerateConfig `json:"derate"`
}

// Defaults applied by NewBatteryFromPower and by the config layer. The core
// packages use a BatteryConfig as given.
const (
	DefaultEfficiency = 1.0
	DefaultInitialSoC = 0.5
	DefaultMaxSoC     = 1.0
)

// NewBatteryFromPower returns a lossless battery with the full SoC window,
// starting half full, whose charge and discharge C-rates are derived from a
// power rating.
func NewBatteryFromPower(capacityKWh, powerKW float64) BatteryConfig {
	rate := 0.0
	if capacityKWh > 0 {
		rate = powerKW / capacityKWh
	}
	return BatteryConfig{
		NominalEnergyKWh:    capacityKWh,
		ChargeCRate:         rate,
		DischargeCRate:      rate,
		RoundTripEfficiency: DefaultEfficiency,
		InitialSoC:          DefaultInitialSoC,
		MaxSoC:              DefaultMaxSoC,
	}
}

// ClampSoC moves soc into [minSoC, maxSoC].
func ClampSoC(soc, minSoC, maxSoC float64) float64 {
	return math.Min(math.Max(soc, minSoC), maxSoC)
}

// Validate checks the config. All failures wrap ErrInvalidConfig.
func (c BatteryConfig) Validate() error {
	if !(c.NominalEnergyKWh > 0) {
		return fmt.Errorf("%w: nominal energy must be > 0, got %.4g", ErrInvalidConfig, c.NominalEnergyKWh)
	}
	if !(c.ChargeCRate > 0) || !(c.DischargeCRate > 0) {
		return fmt.Errorf("%w: C-rates must be > 0, got charge %.4g discharge %.4g", ErrInvalidConfig, c.ChargeCRate, c.DischargeCRate)
	}
	if !(c.RoundTripEfficiency > 0) || c.RoundTripEfficiency > 1 {
		return fmt.Errorf("%w: round-trip efficiency must be in (0,1], got %.4g", ErrInvalidConfig, c.RoundTripEfficiency)
	}
	if c.MinSoC < 0 || c.MaxSoC > 1 || c.MinSoC > c.MaxSoC {
		return fmt.Errorf("%w: SoC window must satisfy 0<=min<=max<=1, got [%.4g, %.4g]", ErrInvalidConfig, c.MinSoC, c.MaxSoC)
	}
	if c.InitialSoC < c.MinSoC || c.InitialSoC > c.MaxSoC || math.IsNaN(c.InitialSoC) {
		return fmt.Errorf("%w: initial SoC %.4g outside window [%.4g, %.4g]", ErrInvalidConfig, c.InitialSoC, c.MinSoC, c.MaxSoC)
	}
	if c.Derate.Enabled {
		if err := c.Derate.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ChargePowerKW is the nameplate charge power.
func (c BatteryConfig) ChargePowerKW() float64 { return c.ChargeCRate * c.NominalEnergyKWh }

// DischargePowerKW is the nameplate discharge power.
func (c BatteryConfig) DischargePowerKW() float64 { return c.DischargeCRate * c.NominalEnergyKWh }

// FloorKWh is the lowest dispatchable stored energy.
func (c BatteryConfig) FloorKWh() float64 { return c.MinSoC * c.NominalEnergyKWh }

// CeilingKWh is the highest dispatchable stored energy.
func (c BatteryConfig) CeilingKWh() float64 { return c.MaxSoC * c.NominalEnergyKWh }
