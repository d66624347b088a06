package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bessim/app"
	"github.com/kilianp07/bessim/pkg/export"
)

func newSimulateCmd(load configLoader) *cobra.Command {
	var (
		input, column, policy string
		out, chart            string
		asJSON                bool
	)
	c := &cobra.Command{
		Use:   "simulate",
		Short: "Run a dispatch simulation over a load or price series",
		Args:  cobra.NoArgs,
	}
	c.Flags().StringVarP(&input, "input", "i", "", "CSV input file")
	c.Flags().StringVar(&column, "column", "", "value column (auto-detected when empty)")
	c.Flags().StringVarP(&policy, "policy", "p", "", "peak_shaving, monthly_peak_shaving or arbitrage")
	c.Flags().StringVarP(&out, "out", "o", "", "write the step ledger as CSV")
	c.Flags().StringVar(&chart, "chart", "", "write an HTML chart")
	c.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	_ = c.MarkFlagRequired("input")

	c.RunE = func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, load, func(ctx context.Context, svc *app.Service) error {
			if policy != "" {
				svc.Config().Simulation.Policy = policy
				if err := svc.Config().Simulation.Validate(); err != nil {
					return err
				}
			}
			in, err := svc.LoadInput(input, column)
			if err != nil {
				return err
			}
			run, err := svc.Simulate(ctx, in)
			if err != nil {
				return err
			}
			if out != "" {
				if err := writeFile(out, func(w io.Writer) error { return export.WriteTraceCSV(w, run.Result.Steps) }); err != nil {
					return err
				}
			}
			if chart != "" {
				title := fmt.Sprintf("%s: %s", run.Result.Policy, input)
				if err := writeFile(chart, func(w io.Writer) error { return export.WriteChartHTML(w, title, run.Result) }); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			if asJSON {
				return export.WriteJSON(w, run)
			}
			res := run.Result
			fmt.Fprintf(w, "run %s (%s, %d samples, %.4g h)\n", run.ID, res.Policy, len(res.Steps), res.IntervalHours)
			fmt.Fprintf(w, "peak        %.3f -> %.3f kW\n", res.PeakBefore, res.PeakAfter)
			fmt.Fprintf(w, "charged     %.3f kWh\n", res.EnergyChargedKWh)
			fmt.Fprintf(w, "discharged  %.3f kWh\n", res.EnergyDischargedKWh)
			fmt.Fprintf(w, "cycles      %.3f\n", res.EquivalentCycles)
			if res.Cashflow != 0 {
				fmt.Fprintf(w, "cashflow    %.2f\n", res.Cashflow)
			}
			return nil
		})
	}
	return c
}
