package model

import (
	"fmt"
	"strings"
)

// PriceUnit identifies the energy unit a price is quoted against.
type PriceUnit int

const (
	// PerKWh is currency per kWh, the unit used internally.
	PerKWh PriceUnit = iota
	// PerMWh is currency per MWh, divided by 1000 on normalisation.
	PerMWh
)

func (u PriceUnit) String() string {
	switch u {
	case PerKWh:
		return "per_kwh"
	case PerMWh:
		return "per_mwh"
	default:
		return "unknown"
	}
}

// ParsePriceUnit accepts "kwh", "per_kwh", "mwh" or "per_mwh" (any case).
func ParsePriceUnit(s string) (PriceUnit, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "per_") {
	case "", "kwh":
		return PerKWh, nil
	case "mwh":
		return PerMWh, nil
	default:
		return PerKWh, fmt.Errorf("unknown price unit %q", s)
	}
}

// ToKWh converts a single price quoted in u to currency per kWh.
func (u PriceUnit) ToKWh(price float64) float64 {
	if u == PerMWh {
		return price / 1000
	}
	return price
}

// NormalizePrices returns a copy of prices expressed per kWh.
func NormalizePrices(prices Series, unit PriceUnit) Series {
	out := make(Series, len(prices))
	for i, p := range prices {
		out[i] = Sample{Timestamp: p.Timestamp, Value: unit.ToKWh(p.Value)}
	}
	return out
}
