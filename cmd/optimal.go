package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bessim/app"
	"github.com/kilianp07/bessim/pkg/export"
)

func newOptimalCmd(load configLoader) *cobra.Command {
	var (
		input, column, out string
		asJSON             bool
	)
	c := &cobra.Command{
		Use:   "optimal",
		Short: "Solve the perfect-foresight arbitrage upper bound",
		Args:  cobra.NoArgs,
	}
	c.Flags().StringVarP(&input, "input", "i", "", "CSV price file")
	c.Flags().StringVar(&column, "column", "", "price column (auto-detected when empty)")
	c.Flags().StringVarP(&out, "out", "o", "", "write the schedule as CSV")
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = c.MarkFlagRequired("input")

	c.RunE = func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, load, func(ctx context.Context, svc *app.Service) error {
			in, err := svc.LoadInput(input, column)
			if err != nil {
				return err
			}
			res, err := svc.Optimal(ctx, in)
			if err != nil {
				return err
			}
			if out != "" {
				if err := writeFile(out, func(w io.Writer) error { return export.WriteOptimalCSV(w, res.Steps) }); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			if asJSON {
				return export.WriteJSON(w, res)
			}
			fmt.Fprintf(w, "optimal revenue: %.2f over %d days\n", res.Total, len(res.Days))
			for _, d := range res.Days {
				fmt.Fprintf(w, "  %s  %8.2f  (%.1f kWh in, %.1f kWh out)\n", d.Date.Format("2006-01-02"), d.Revenue, d.ChargedKWh, d.DischargedKWh)
			}
			return nil
		})
	}
	return c
}
