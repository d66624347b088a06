package config

import (
	"fmt"

	"github.com/kilianp07/bessim/core/model"
)

// BatteryConfig is the battery section. power_kw, when set, fixes both
// C-rates to power_kw / nominal_energy_kwh. Omitted optional fields take the
// model defaults; an explicit zero is kept.
type BatteryConfig struct {
	NominalEnergyKWh    float64            `json:"nominal_energy_kwh"`
	PowerKW             float64            `json:"power_kw"`
	ChargeCRate         float64            `json:"charge_c_rate"`
	DischargeCRate      float64            `json:"discharge_c_rate"`
	RoundTripEfficiency *float64           `json:"round_trip_efficiency"`
	InitialSoC          *float64           `json:"initial_soc"`
	MinSoC              float64            `json:"min_soc"`
	MaxSoC              *float64           `json:"max_soc"`
	Derate              model.DerateConfig `json:"derate"`
}

func ptr(v float64) *float64 { return &v }

// SetDefaults derives C-rates from PowerKW and fills omitted fields: lossless
// efficiency, the full SoC window and a half-full start clamped into it.
func (c *BatteryConfig) SetDefaults() {
	if c.PowerKW > 0 && c.NominalEnergyKWh > 0 {
		rate := c.PowerKW / c.NominalEnergyKWh
		c.ChargeCRate = rate
		c.DischargeCRate = rate
	}
	if c.RoundTripEfficiency == nil {
		c.RoundTripEfficiency = ptr(model.DefaultEfficiency)
	}
	if c.MaxSoC == nil {
		c.MaxSoC = ptr(model.DefaultMaxSoC)
	}
	if c.InitialSoC == nil {
		c.InitialSoC = ptr(model.ClampSoC(model.DefaultInitialSoC, c.MinSoC, *c.MaxSoC))
	}
}

// Configured reports whether a battery was given at all.
func (c BatteryConfig) Configured() bool {
	return c.NominalEnergyKWh != 0 || c.PowerKW != 0 || c.ChargeCRate != 0 || c.DischargeCRate != 0
}

// Template returns the section as a model config with defaults applied and
// without validation. The sizing sweep uses it for rates, efficiency, SoC
// window and derating of every candidate.
func (c BatteryConfig) Template() model.BatteryConfig {
	c.SetDefaults()
	return model.BatteryConfig{
		NominalEnergyKWh:    c.NominalEnergyKWh,
		ChargeCRate:         c.ChargeCRate,
		DischargeCRate:      c.DischargeCRate,
		RoundTripEfficiency: *c.RoundTripEfficiency,
		InitialSoC:          *c.InitialSoC,
		MinSoC:              c.MinSoC,
		MaxSoC:              *c.MaxSoC,
		Derate:              c.Derate,
	}
}

// Model returns the validated battery.
func (c BatteryConfig) Model() (model.BatteryConfig, error) {
	if !c.Configured() {
		return model.BatteryConfig{}, fmt.Errorf("%w: no battery configured", model.ErrInvalidConfig)
	}
	if c.PowerKW < 0 {
		return model.BatteryConfig{}, fmt.Errorf("%w: power_kw must be >= 0", model.ErrInvalidConfig)
	}
	b := c.Template()
	if err := b.Validate(); err != nil {
		return model.BatteryConfig{}, err
	}
	return b, nil
}
