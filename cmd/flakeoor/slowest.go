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

var slowestLimit int

var slowestCmd = &cobra.Command{
	Use:   "slowest",
	Short: "List the slowest tests by average duration",
	RunE:  runSlowest,
}

func init() {
	rootCmd.AddCommand(slowestCmd)
	slowestCmd.Flags().IntVar(&slowestLimit, "limit", 10,
		"Maximum number of tests to list")
}

func runSlowest(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(
		ctx context.Context, _ *config.Config, st store.Store,
	) error {
		tests, err := analytics.New(log, st).SlowestTests(ctx, slowestLimit)
		if err != nil {
			return fmt.Errorf("listing slowest tests: %w", err)
		}

		if len(tests) == 0 {
			fmt.Println("No test history recorded yet.")

			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "AVG\tMIN\tMAX\tRUNS\tTEST\tFILE")

		for i := range tests {
			t := &tests[i]
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				time.Duration(t.AvgDurationMs)*time.Millisecond,
				time.Duration(t.MinDurationMs)*time.Millisecond,
				time.Duration(t.MaxDurationMs)*time.Millisecond,
				t.TotalRuns, t.Name, t.File)
		}

		return w.Flush()
	})
}
