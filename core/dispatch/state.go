package dispatch

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kilianp07/bessim/core/bounds"
	"github.com/kilianp07/bessim/core/model"
)

// Action is the transient per-step state of the battery.
type Action int

const (
	Idle Action = iota
	Charging
	Discharging
)

func (a Action) String() string {
	switch a {
	case Charging:
		return "charging"
	case Discharging:
		return "discharging"
	default:
		return "idle"
	}
}

// MarshalText renders the action by name in JSON and CSV exports.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses an action name.
func (a *Action) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "charging":
		*a = Charging
	case "discharging":
		*a = Discharging
	case "idle", "":
		*a = Idle
	default:
		return fmt.Errorf("unknown action %q", string(b))
	}
	return nil
}

// State is the mutable battery state of a single run. It is created from
// the config at the start of every run and never shared between runs.
type State struct {
	SoCKWh float64
	Index  int

	floor float64
	ceil  float64
	eta   float64
}

// NewState returns the initial state of cfg. cfg must already carry its
// defaults.
func NewState(cfg model.BatteryConfig) *State {
	return &State{
		SoCKWh: cfg.InitialSoC * cfg.NominalEnergyKWh,
		floor:  cfg.FloorKWh(),
		ceil:   cfg.CeilingKWh(),
		eta:    cfg.RoundTripEfficiency,
	}
}

// AvailableKWh is the energy that can still be delivered to the grid, after
// the round-trip loss is taken.
func (s *State) AvailableKWh() float64 {
	return math.Max(0, s.SoCKWh-s.floor) * s.eta
}

// RoomKWh is the energy that can still be stored.
func (s *State) RoomKWh() float64 {
	return math.Max(0, s.ceil-s.SoCKWh)
}

// apply clamps req to the power bounds and the energy window, updates the
// SoC and advances the step index.
func (s *State) apply(req Request, b bounds.PowerBounds, dt float64) Applied {
	defer func() { s.Index++ }()
	switch req.Action {
	case Charging:
		kw := math.Min(bounds.ApplyBounds(req.PowerKW, b, bounds.Charge), s.RoomKWh()/dt)
		if kw <= 0 {
			return Applied{}
		}
		s.SoCKWh = math.Min(s.ceil, s.SoCKWh+kw*dt)
		return Applied{Action: Charging, PowerKW: kw}
	case Discharging:
		kw := math.Min(bounds.ApplyBounds(req.PowerKW, b, bounds.Discharge), s.AvailableKWh()/dt)
		if kw <= 0 {
			return Applied{}
		}
		s.SoCKWh = math.Max(s.floor, s.SoCKWh-kw*dt/s.eta)
		return Applied{Action: Discharging, PowerKW: kw}
	default:
		return Applied{}
	}
}

// StepRecord is one line of the dispatch ledger.
type StepRecord struct {
	Index          int       `json:"index"`
	Timestamp      time.Time `json:"timestamp"`
	Input          float64   `json:"input"`
	Output         float64   `json:"output"`
	Action         Action    `json:"action"`
	RequestedKW    float64   `json:"requested_kw"`
	AppliedKW      float64   `json:"applied_kw"`
	MaxChargeKW    float64   `json:"max_charge_kw"`
	MaxDischargeKW float64   `json:"max_discharge_kw"`
	SoCStartKWh    float64   `json:"soc_start_kwh"`
	SoCEndKWh      float64   `json:"soc_end_kwh"`
	Cashflow       float64   `json:"cashflow"`
}
