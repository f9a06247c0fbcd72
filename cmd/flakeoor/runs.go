package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ethpandaops/flakeoor/pkg/analytics"
	"github.com/ethpandaops/flakeoor/pkg/config"
	"github.com/ethpandaops/flakeoor/pkg/store"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the most recent test runs",
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10,
		"Maximum number of runs to list")
}

func runRuns(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(
		ctx context.Context, _ *config.Config, st store.Store,
	) error {
		runs, err := analytics.New(log, st).RecentRuns(ctx, runsLimit)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No test runs recorded yet.")

			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tBRANCH\tTOTAL\tPASSED\tFAILED\tSKIPPED\tFLAKY\tPASS RATE\tDURATION")

		for i := range runs {
			r := &runs[i]
			fmt.Fprintf(w, "%.8s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%.1f%%\t%s\n",
				r.RunID,
				r.StartedAt.UTC().Format("2006-01-02 15:04"),
				r.Branch,
				r.TotalTests, r.Passed, r.Failed, r.Skipped, r.Flaky,
				r.PassRate,
				(time.Duration(r.DurationMs) * time.Millisecond).
					Round(100*time.Millisecond))
		}

		return w.Flush()
	})
}
