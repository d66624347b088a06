package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bessim/app"
	"github.com/kilianp07/bessim/core/bounds"
	"github.com/kilianp07/bessim/pkg/export"
)

func newBoundsCmd(load configLoader) *cobra.Command {
	var (
		soc, temp float64
		asJSON    bool
	)
	c := &cobra.Command{
		Use:   "bounds",
		Short: "Print the power bounds of the configured battery",
		Args:  cobra.NoArgs,
	}
	c.Flags().Float64Var(&soc, "soc", 0, "state of charge as a fraction of nominal energy")
	c.Flags().Float64Var(&temp, "temp", 0, "cell temperature in °C")
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	c.RunE = func(cmd *cobra.Command, _ []string) error {
		var op bounds.OperatingPoint
		if cmd.Flags().Changed("soc") {
			op.SoC = &soc
		}
		if cmd.Flags().Changed("temp") {
			op.TemperatureC = &temp
		}
		return withService(cmd, load, func(_ context.Context, svc *app.Service) error {
			rep, err := svc.Bounds(op)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return export.WriteJSON(out, rep)
			}
			fmt.Fprintf(out, "max_charge_kw     %.3f (base %.3f, factor %.3f)\n", rep.Bounds.MaxChargeKW, rep.Base.MaxChargeKW, rep.ChargeFactor)
			fmt.Fprintf(out, "max_discharge_kw  %.3f (base %.3f, factor %.3f)\n", rep.Bounds.MaxDischargeKW, rep.Base.MaxDischargeKW, rep.DischargeFactor)
			return nil
		})
	}
	return c
}
