package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bessim/app"
	"github.com/kilianp07/bessim/core/revenue"
	"github.com/kilianp07/bessim/pkg/export"
)

func newRevenueCmd(load configLoader) *cobra.Command {
	var (
		input, column, mode, out string
		asJSON                   bool
	)
	c := &cobra.Command{
		Use:   "revenue",
		Short: "Estimate arbitrage revenue from a price series",
		Args:  cobra.NoArgs,
	}
	c.Flags().StringVarP(&input, "input", "i", "", "CSV price file (not needed for the theoretical mode)")
	c.Flags().StringVar(&column, "column", "", "price column (auto-detected when empty)")
	c.Flags().StringVarP(&mode, "mode", "m", "", "theoretical, spread or threshold (default from config)")
	c.Flags().StringVarP(&out, "out", "o", "", "write the daily breakdown as CSV")
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	c.RunE = func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, load, func(ctx context.Context, svc *app.Service) error {
			var in app.Input
			if input != "" {
				var err error
				if in, err = svc.LoadInput(input, column); err != nil {
					return err
				}
			}
			ev, err := svc.Revenue(ctx, in, mode)
			if err != nil {
				return err
			}
			if out != "" {
				err := writeFile(out, func(w io.Writer) error {
					switch ev.Mode {
					case revenue.ModeSpread:
						return export.WriteSpreadCSV(w, ev.Spread)
					case revenue.ModeThreshold:
						return export.WriteThresholdCSV(w, ev.Threshold)
					default:
						return fmt.Errorf("mode %s has no daily breakdown", ev.Mode)
					}
				})
				if err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			if asJSON {
				return export.WriteJSON(w, ev)
			}
			fmt.Fprintf(w, "%s revenue: %.2f\n", ev.Mode, ev.Total)
			if n := len(ev.Spread) + len(ev.Threshold); n > 0 {
				fmt.Fprintf(w, "days: %d\n", n)
			}
			return nil
		})
	}
	return c
}
