package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bessim/app"
	"github.com/kilianp07/bessim/core/runlog"
	"github.com/kilianp07/bessim/pkg/export"
)

func newRunsCmd(load configLoader) *cobra.Command {
	runs := &cobra.Command{
		Use:   "runs",
		Short: "Run store related commands",
	}
	runs.AddCommand(newRunsLsCmd(load))
	return runs
}

func newRunsLsCmd(load configLoader) *cobra.Command {
	var (
		policy, kind, since string
		limit               int
		asJSON              bool
	)
	c := &cobra.Command{
		Use:   "ls",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
	}
	c.Flags().StringVar(&policy, "policy", "", "filter by policy or revenue mode")
	c.Flags().StringVar(&kind, "kind", "", "filter by kind: simulate, revenue, optimal or sizing")
	c.Flags().StringVar(&since, "since", "", "only runs at or after this RFC3339 time")
	c.Flags().IntVar(&limit, "limit", 0, "keep only the most recent N runs")
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	c.RunE = func(cmd *cobra.Command, _ []string) error {
		q := runlog.RunQuery{Policy: policy, Kind: kind, Limit: limit}
		if since != "" {
			t, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return fmt.Errorf("--since: %w", err)
			}
			q.Start = t
		}
		return withService(cmd, load, func(ctx context.Context, svc *app.Service) error {
			recs, err := svc.Runs(ctx, q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return export.WriteJSON(out, recs)
			}
			if len(recs) == 0 {
				fmt.Fprintln(out, "no runs")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tKIND\tPOLICY\tINPUT\tSUMMARY")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Timestamp.Format(time.RFC3339), r.Kind, r.Policy, r.Input, summary(r.Summary))
			}
			return tw.Flush()
		})
	}
	return c
}

func summary(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.4g", k, m[k])
	}
	return strings.Join(parts, " ")
}
