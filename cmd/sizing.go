package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bessim/app"
	"github.com/kilianp07/bessim/infra/logger"
	"github.com/kilianp07/bessim/pkg/export"
)

func newSizingCmd(load configLoader) *cobra.Command {
	var (
		input, column, out string
		asJSON             bool
	)
	c := &cobra.Command{
		Use:   "sizing",
		Short: "Sweep battery power and capacity for monthly peak shaving",
		Args:  cobra.NoArgs,
	}
	c.Flags().StringVarP(&input, "input", "i", "", "CSV load file")
	c.Flags().StringVar(&column, "column", "", "load column (auto-detected when empty)")
	c.Flags().StringVarP(&out, "out", "o", "", "write feasible candidates as CSV")
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = c.MarkFlagRequired("input")

	c.RunE = func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, load, func(ctx context.Context, svc *app.Service) error {
			in, err := svc.LoadInput(input, column)
			if err != nil {
				return err
			}

			srvCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				if err := svc.StartMetricsServer(srvCtx); err != nil {
					logger.New("sizing-command").Errorf("metrics server: %v", err)
				}
			}()

			res, err := svc.Sizing(ctx, in)
			if err != nil {
				return err
			}
			if out != "" {
				if err := writeFile(out, func(w io.Writer) error { return export.WriteSizingCSV(w, res.Feasible) }); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			if asJSON {
				return export.WriteJSON(w, res)
			}
			b := res.Best
			fmt.Fprintf(w, "evaluated %d candidates (%d skipped), %d feasible\n", res.Evaluated, res.Skipped, len(res.Feasible))
			fmt.Fprintf(w, "best        %s\n", b.Candidate)
			fmt.Fprintf(w, "investment  %.0f\n", b.Investment)
			fmt.Fprintf(w, "savings     %.0f per year\n", b.AnnualSavings)
			fmt.Fprintf(w, "payback     %.1f years\n", b.PaybackYears)
			fmt.Fprintf(w, "roi         %.1f %%\n", b.ROIPercent)
			return nil
		})
	}
	return c
}
