// Package export writes simulation, revenue and sizing results as CSV,
// JSON or a standalone HTML chart.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/kilianp07/bessim/core/dispatch"
	"github.com/kilianp07/bessim/core/revenue"
	"github.com/kilianp07/bessim/core/sizing"
)

const dateLayout = "2006-01-02"

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteTraceCSV writes the per-step ledger of a simulation.
func WriteTraceCSV(w io.Writer, steps []dispatch.StepRecord) error {
	header := []string{"index", "timestamp", "input", "output", "action", "requested_kw", "applied_kw",
		"max_charge_kw", "max_discharge_kw", "soc_start_kwh", "soc_end_kwh", "cashflow"}
	return writeCSV(w, header, len(steps), func(i int) []string {
		s := steps[i]
		return []string{
			strconv.Itoa(s.Index),
			s.Timestamp.Format(time.RFC3339),
			ff(s.Input), ff(s.Output),
			s.Action.String(),
			ff(s.RequestedKW), ff(s.AppliedKW),
			ff(s.MaxChargeKW), ff(s.MaxDischargeKW),
			ff(s.SoCStartKWh), ff(s.SoCEndKWh),
			ff(s.Cashflow),
		}
	})
}

// WriteSpreadCSV writes the daily breakdown of the spread revenue model.
func WriteSpreadCSV(w io.Writer, days []revenue.SpreadDay) error {
	header := []string{"date", "daily_max", "daily_min", "spread", "revenue"}
	return writeCSV(w, header, len(days), func(i int) []string {
		d := days[i]
		return []string{d.Date.Format(dateLayout), ff(d.Max), ff(d.Min), ff(d.Spread), ff(d.Revenue)}
	})
}

// WriteThresholdCSV writes the daily breakdown of the threshold revenue
// model. Empty averages are written as empty cells.
func WriteThresholdCSV(w io.Writer, days []revenue.ThresholdDay) error {
	header := []string{"date", "buy_samples", "sell_samples", "trade_kwh", "buy_avg", "sell_avg", "revenue"}
	return writeCSV(w, header, len(days), func(i int) []string {
		d := days[i]
		return []string{
			d.Date.Format(dateLayout),
			strconv.Itoa(d.BuySamples), strconv.Itoa(d.SellSamples),
			ff(d.TradeKWh), ff(d.BuyAvg), ff(d.SellAvg), ff(d.Revenue),
		}
	})
}

// WriteOptimalCSV writes the LP schedule step by step.
func WriteOptimalCSV(w io.Writer, steps []dispatch.OptimalStep) error {
	header := []string{"timestamp", "price_per_kwh", "charge_kw", "discharge_kw", "soc_kwh"}
	return writeCSV(w, header, len(steps), func(i int) []string {
		s := steps[i]
		return []string{s.Timestamp.Format(time.RFC3339), ff(s.PricePerKWh), ff(s.ChargeKW), ff(s.DischargeKW), ff(s.SoCKWh)}
	})
}

// WriteSizingCSV writes one row per evaluated candidate.
func WriteSizingCSV(w io.Writer, evals []sizing.Evaluation) error {
	header := []string{"power_kw", "capacity_kwh", "feasible", "investment", "annual_savings",
		"payback_years", "roi_percent", "equivalent_cycles"}
	return writeCSV(w, header, len(evals), func(i int) []string {
		e := evals[i]
		return []string{
			ff(e.PowerKW), ff(e.CapacityKWh),
			strconv.FormatBool(e.Feasible),
			ff(e.Investment), ff(e.AnnualSavings), ff(e.PaybackYears),
			ff(e.ROIPercent), ff(e.EquivalentCycles),
		}
	})
}

func writeCSV(w io.Writer, header []string, n int, row func(int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ff(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
