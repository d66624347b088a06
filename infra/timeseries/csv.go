// Package timeseries loads load and price series from CSV files.
package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/bessim/core/model"
)

// Kind tells whether a file holds power or prices.
type Kind int

const (
	KindLoad Kind = iota
	KindPrice
)

func (k Kind) String() string {
	if k == KindPrice {
		return "price"
	}
	return "load"
}

// ErrNoValueColumn is returned when the header has no recognised value column.
var ErrNoValueColumn = errors.New("no value column")

// Accepted value columns, matched case-insensitively.
var valueColumns = map[string]struct {
	kind Kind
	unit model.PriceUnit
}{
	"load_kw":           {KindLoad, model.PerKWh},
	"value":             {KindLoad, model.PerKWh},
	"price_per_kwh":     {KindPrice, model.PerKWh},
	"price_eur_per_kwh": {KindPrice, model.PerKWh},
	"price_per_mwh":     {KindPrice, model.PerMWh},
	"price_eur_per_mwh": {KindPrice, model.PerMWh},
}

var timestampColumns = []string{"timestamp", "time", "datetime"}

const temperatureColumn = "temperature_c"

var layouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// Table is a parsed file. Prices are always normalised to currency per kWh.
type Table struct {
	Series model.Series
	Kind   Kind
	Column string
	// Unit is the unit found in the file before normalisation.
	Unit model.PriceUnit
	// Temperatures is set when the file has a temperature_c column; it is
	// aligned with Series.
	Temperatures []float64
}

// Options control parsing.
type Options struct {
	// Location is used for timestamps without a zone. Defaults to UTC.
	Location *time.Location
	// Column forces the value column instead of auto-detection.
	Column string
}

// Load reads a CSV file from disk.
func Load(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	t, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

type row struct {
	ts   time.Time
	v    float64
	temp float64
}

// Read parses CSV with a header row. Rows with an empty value cell, or an
// empty temperature cell when the file has a temperature column, are
// skipped; rows are returned ordered by timestamp.
func Read(r io.Reader, opts Options) (*Table, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	rdr := csv.NewReader(r)
	rdr.TrimLeadingSpace = true
	rdr.FieldsPerRecord = -1
	header, err := rdr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", model.ErrEmptySeries)
		}
		return nil, err
	}
	tsIdx, valIdx, tempIdx := -1, -1, -1
	t := &Table{}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if tsIdx < 0 && contains(timestampColumns, name) {
			tsIdx = i
		}
		if name == temperatureColumn {
			tempIdx = i
		}
		if opts.Column != "" && !strings.EqualFold(opts.Column, name) {
			continue
		}
		if vc, ok := valueColumns[name]; ok && valIdx < 0 {
			valIdx, t.Kind, t.Unit, t.Column = i, vc.kind, vc.unit, name
		} else if opts.Column != "" && valIdx < 0 {
			valIdx, t.Kind, t.Column = i, KindLoad, name
		}
	}
	if tsIdx < 0 {
		return nil, fmt.Errorf("no timestamp column in header %v", header)
	}
	if valIdx < 0 {
		return nil, fmt.Errorf("%w in header %v", ErrNoValueColumn, header)
	}

	var rows []row
	for line := 2; ; line++ {
		rec, err := rdr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if blank(rec, valIdx) || blank(rec, tsIdx) || (tempIdx >= 0 && blank(rec, tempIdx)) {
			continue
		}
		ts, err := parseTime(rec[tsIdx], loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[valIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, t.Column, err)
		}
		rw := row{ts: ts, v: t.Unit.ToKWh(v)}
		if tempIdx >= 0 {
			if rw.temp, err = strconv.ParseFloat(strings.TrimSpace(rec[tempIdx]), 64); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, temperatureColumn, err)
			}
		}
		rows = append(rows, rw)
	}
	if len(rows) == 0 {
		return nil, model.ErrEmptySeries
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].ts.Before(rows[b].ts) })

	t.Series = make(model.Series, len(rows))
	if tempIdx >= 0 {
		t.Temperatures = make([]float64, len(rows))
	}
	for i, rw := range rows {
		t.Series[i] = model.Sample{Timestamp: rw.ts, Value: rw.v}
		if t.Temperatures != nil {
			t.Temperatures[i] = rw.temp
		}
	}
	return t, nil
}

func blank(rec []string, i int) bool {
	return i >= len(rec) || strings.TrimSpace(rec[i]) == ""
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
