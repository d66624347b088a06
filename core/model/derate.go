package model

import (
	"fmt"
	"math"
)

// DerateSegment applies Factor to a power bound while the operating value
// lies in [From, To).
type DerateSegment struct {
	From   float64 `json:"from"`
	To     float64 `json:"to"`
	Factor float64 `json:"factor"`
}

// DerateTable is an ordered, non-overlapping list of segments.
type DerateTable []DerateSegment

// Validate checks segment ordering and factors.
func (t DerateTable) Validate() error {
	for i, s := range t {
		if !(s.From < s.To) {
			return fmt.Errorf("%w: segment %d has from %.4g >= to %.4g", ErrInvalidConfig, i, s.From, s.To)
		}
		if s.Factor < 0 || math.IsNaN(s.Factor) {
			return fmt.Errorf("%w: segment %d has negative factor %.4g", ErrInvalidConfig, i, s.Factor)
		}
		if i > 0 && s.From < t[i-1].To {
			return fmt.Errorf("%w: segment %d overlaps segment %d", ErrInvalidConfig, i, i-1)
		}
	}
	return nil
}

// Lookup returns the factor of the segment containing x. The segment with
// the highest upper bound is closed at its end so that a full battery
// (SoC 1.0) still matches a table ending at 1.0. An empty table yields 1.
// Values outside every segment are a configuration error.
func (t DerateTable) Lookup(x float64) (float64, error) {
	if len(t) == 0 {
		return 1, nil
	}
	top := 0
	for i, s := range t {
		if s.From <= x && x < s.To {
			return s.Factor, nil
		}
		if s.To > t[top].To {
			top = i
		}
	}
	if x == t[top].To {
		return t[top].Factor, nil
	}
	return 0, fmt.Errorf("%w: value %.4g outside derate table [%.4g, %.4g]", ErrInvalidConfig, x, t.min(), t[top].To)
}

func (t DerateTable) min() float64 {
	lo := math.Inf(1)
	for _, s := range t {
		lo = math.Min(lo, s.From)
	}
	return lo
}

// DerateConfig groups the derating tables of a battery. Tables are only
// consulted when Enabled is set.
type DerateConfig struct {
	Enabled       bool        `json:"enabled"`
	SoCCharge     DerateTable `json:"soc_charge"`
	SoCDischarge  DerateTable `json:"soc_discharge"`
	TempCharge    DerateTable `json:"temp_charge"`
	TempDischarge DerateTable `json:"temp_discharge"`
}

// Validate checks every table.
func (d DerateConfig) Validate() error {
	tables := []struct {
		name  string
		table DerateTable
	}{
		{"soc_charge", d.SoCCharge},
		{"soc_discharge", d.SoCDischarge},
		{"temp_charge", d.TempCharge},
		{"temp_discharge", d.TempDischarge},
	}
	for _, tb := range tables {
		if err := tb.table.Validate(); err != nil {
			return fmt.Errorf("%s: %w", tb.name, err)
		}
	}
	return nil
}
