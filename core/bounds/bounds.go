// Package bounds turns a battery configuration and its current operating
// point into instantaneous charge and discharge power limits.
package bounds

import (
	"fmt"
	"math"
	"strings"

	"github.com/kilianp07/bessim/core/model"
)

// Direction selects which bound a power request is checked against.
type Direction int

const (
	Idle Direction = iota
	Charge
	Discharge
)

func (d Direction) String() string {
	switch d {
	case Charge:
		return "charge"
	case Discharge:
		return "discharge"
	default:
		return "idle"
	}
}

// ParseDirection accepts "charge" or "discharge" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "charge":
		return Charge, nil
	case "discharge":
		return Discharge, nil
	case "idle", "":
		return Idle, nil
	default:
		return Idle, fmt.Errorf("direction must be charge or discharge, got %q", s)
	}
}

// OperatingPoint carries the optional conditions used for derating. A nil
// field skips the corresponding tables.
type OperatingPoint struct {
	SoC          *float64
	TemperatureC *float64
}

// At is a shorthand for an operating point with both values set.
func At(soc, tempC float64) OperatingPoint {
	return OperatingPoint{SoC: &soc, TemperatureC: &tempC}
}

// AtSoC is a shorthand for an operating point with only the SoC set.
func AtSoC(soc float64) OperatingPoint {
	return OperatingPoint{SoC: &soc}
}

// PowerBounds are the instantaneous power limits in kW.
type PowerBounds struct {
	MaxChargeKW    float64 `json:"max_charge_kw"`
	MaxDischargeKW float64 `json:"max_discharge_kw"`
}

// For returns the bound of the given direction. Idle has no headroom.
func (b PowerBounds) For(d Direction) float64 {
	switch d {
	case Charge:
		return b.MaxChargeKW
	case Discharge:
		return b.MaxDischargeKW
	default:
		return 0
	}
}

// Base returns the nameplate bounds rate × energy without derating.
func Base(cfg model.BatteryConfig) (PowerBounds, error) {
	if !(cfg.NominalEnergyKWh > 0) {
		return PowerBounds{}, fmt.Errorf("%w: nominal energy must be > 0, got %.4g", model.ErrInvalidConfig, cfg.NominalEnergyKWh)
	}
	if cfg.ChargeCRate < 0 || cfg.DischargeCRate < 0 {
		return PowerBounds{}, fmt.Errorf("%w: C-rates must not be negative", model.ErrInvalidConfig)
	}
	return PowerBounds{
		MaxChargeKW:    cfg.ChargeCRate * cfg.NominalEnergyKWh,
		MaxDischargeKW: cfg.DischargeCRate * cfg.NominalEnergyKWh,
	}, nil
}

// Factors returns the composed charge and discharge derate factors at op.
// Dimensions compose multiplicatively; disabled derating yields (1, 1).
func Factors(d model.DerateConfig, op OperatingPoint) (float64, float64, error) {
	charge, discharge := 1.0, 1.0
	if !d.Enabled {
		return charge, discharge, nil
	}
	apply := func(x *float64, tbl model.DerateTable, f *float64, name string) error {
		if x == nil {
			return nil
		}
		v, err := tbl.Lookup(*x)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*f *= v
		return nil
	}
	if err := apply(op.SoC, d.SoCCharge, &charge, "soc_charge"); err != nil {
		return 0, 0, err
	}
	if err := apply(op.SoC, d.SoCDischarge, &discharge, "soc_discharge"); err != nil {
		return 0, 0, err
	}
	if err := apply(op.TemperatureC, d.TempCharge, &charge, "temp_charge"); err != nil {
		return 0, 0, err
	}
	if err := apply(op.TemperatureC, d.TempDischarge, &discharge, "temp_discharge"); err != nil {
		return 0, 0, err
	}
	return charge, discharge, nil
}

// ComputePowerBounds returns the power limits of cfg at op.
func ComputePowerBounds(cfg model.BatteryConfig, op OperatingPoint) (PowerBounds, error) {
	b, err := Base(cfg)
	if err != nil {
		return PowerBounds{}, err
	}
	fc, fd, err := Factors(cfg.Derate, op)
	if err != nil {
		return PowerBounds{}, err
	}
	if fc != 1 {
		b.MaxChargeKW = math.Max(0, b.MaxChargeKW*fc)
	}
	if fd != 1 {
		b.MaxDischargeKW = math.Max(0, b.MaxDischargeKW*fd)
	}
	return b, nil
}

// ApplyBounds clamps a request to the bound of direction. A discharge request
// may carry either sign and is clamped by magnitude; a negative charge
// request yields 0. The result never exceeds the bound.
func ApplyBounds(requestedKW float64, b PowerBounds, d Direction) float64 {
	limit := b.For(d)
	if limit <= 0 {
		return 0
	}
	if d == Discharge {
		requestedKW = math.Abs(requestedKW)
	}
	return math.Max(0, math.Min(requestedKW, limit))
}
