package config

import (
	"fmt"

	"github.com/kilianp07/bessim/core/sizing"
)

// SizingConfig configures the sizing sweep.
type SizingConfig struct {
	Grid      sizing.Grid      `json:"grid"`
	Economics sizing.Economics `json:"economics"`
	Quantile  float64          `json:"quantile"`
	Workers   int              `json:"workers"`
}

// SetDefaults uses 0.5 steps and the 95th percentile.
func (c *SizingConfig) SetDefaults() {
	if c.Grid.PowerStepKW == 0 {
		c.Grid.PowerStepKW = 0.5
	}
	if c.Grid.CapacityStepKWh == 0 {
		c.Grid.CapacityStepKWh = 0.5
	}
	if c.Quantile == 0 {
		c.Quantile = sizing.DefaultQuantile
	}
	c.Economics.SetDefaults()
}

// Validate checks the quantile, and the grid when bounds are set.
func (c SizingConfig) Validate() error {
	if c.Quantile <= 0 || c.Quantile > 1 {
		return fmt.Errorf("quantile must be in (0,1]")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}
	if c.Grid.PowerMaxKW != 0 || c.Grid.CapacityMaxKWh != 0 {
		return c.Grid.Validate()
	}
	return nil
}
