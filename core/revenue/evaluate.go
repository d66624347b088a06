package revenue

import (
	"fmt"
	"strings"

	"github.com/kilianp07/bessim/core/model"
)

// Mode selects the revenue model.
type Mode string

const (
	ModeTheoretical Mode = "theoretical"
	ModeSpread      Mode = "spread"
	ModeThreshold   Mode = "threshold"
)

// ParseMode accepts the mode names case-insensitively. An empty string
// selects the threshold model.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeThreshold, nil
	case ModeTheoretical, ModeSpread, ModeThreshold:
		return m, nil
	default:
		return "", fmt.Errorf("unknown revenue mode %q", s)
	}
}

// Settings carries the mode specific inputs. Thresholds are per kWh.
type Settings struct {
	DeltaPricePerKWh float64
	CyclesPerDay     float64
	Days             int
	BuyBelowPerKWh   float64
	SellAbovePerKWh  float64
}

// Evaluation is the outcome of Evaluate. Only the breakdown of the selected
// mode is populated.
type Evaluation struct {
	Mode      Mode           `json:"mode"`
	Total     float64        `json:"total"`
	Spread    []SpreadDay    `json:"spread,omitempty"`
	Threshold []ThresholdDay `json:"threshold,omitempty"`
}

// Evaluate runs the selected revenue model. The theoretical model ignores
// prices and returns the revenue over Settings.Days. Price based models
// return 0 for an empty series.
func Evaluate(mode Mode, prices model.Series, p Params, s Settings) (*Evaluation, error) {
	ev := &Evaluation{Mode: mode}
	switch mode {
	case ModeTheoretical:
		cycles := CyclesPerDay(p.EnergyKWh, p.PowerKW, s.CyclesPerDay)
		ev.Total = TheoreticalRevenue(p.EnergyKWh, p.DepthOfDischarge, p.RoundTripEfficiency, s.DeltaPricePerKWh, cycles, s.Days)
	case ModeSpread:
		if len(prices) == 0 {
			return ev, nil
		}
		ev.Total, ev.Spread = SpreadBasedRevenue(prices, p)
	case ModeThreshold:
		if len(prices) == 0 {
			return ev, nil
		}
		total, days, err := ThresholdBasedRevenue(prices, p, s.BuyBelowPerKWh, s.SellAbovePerKWh)
		if err != nil {
			return nil, err
		}
		ev.Total, ev.Threshold = total, days
	default:
		return nil, fmt.Errorf("unknown revenue mode %q", mode)
	}
	return ev, nil
}
