package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ethpandaops/flakeoor/pkg/analytics"
	"github.com/ethpandaops/flakeoor/pkg/config"
	"github.com/ethpandaops/flakeoor/pkg/store"
	"github.com/spf13/cobra"
)

var flakyLimit int

var flakyCmd = &cobra.Command{
	Use:   "flaky",
	Short: "List the flakiest tests across all recorded runs",
	RunE:  runFlaky,
}

func init() {
	rootCmd.AddCommand(flakyCmd)
	flakyCmd.Flags().IntVar(&flakyLimit, "limit", 10,
		"Maximum number of tests to list")
}

func runFlaky(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(
		ctx context.Context, _ *config.Config, st store.Store,
	) error {
		tests, err := analytics.New(log, st).FlakyTests(ctx, flakyLimit)
		if err != nil {
			return fmt.Errorf("listing flaky tests: %w", err)
		}

		if len(tests) == 0 {
			fmt.Println("No flaky tests recorded yet.")

			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FLAKINESS\tRUNS\tFAILS\tTEST\tFILE")

		for i := range tests {
			t := &tests[i]
			fmt.Fprintf(w, "%.1f%%\t%d\t%d\t%s\t%s\n",
				t.FlakinessScore, t.TotalRuns, t.FailCount, t.Name, t.File)
		}

		return w.Flush()
	})
}
