package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ethpandaops/flakeoor/pkg/analytics"
	"github.com/ethpandaops/flakeoor/pkg/config"
	"github.com/ethpandaops/flakeoor/pkg/store"
	"github.com/spf13/cobra"
)

var failuresRunID string

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List failed tests for a run (latest by default)",
	RunE:  runFailures,
}

func init() {
	rootCmd.AddCommand(failuresCmd)
	failuresCmd.Flags().StringVar(&failuresRunID, "run", "",
		"Run identifier (default: most recent run)")
}

func runFailures(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(
		ctx context.Context, _ *config.Config, st store.Store,
	) error {
		queries := analytics.New(log, st)

		runID := failuresRunID
		if runID == "" {
			runs, err := queries.RecentRuns(ctx, 1)
			if err != nil {
				return fmt.Errorf("finding latest run: %w", err)
			}

			if len(runs) == 0 {
				fmt.Println("No test runs recorded yet.")

				return nil
			}

			runID = runs[0].RunID
		}

		failures, err := queries.FailuresForRun(ctx, runID)
		if err != nil {
			return fmt.Errorf("listing failures: %w", err)
		}

		if len(failures) == 0 {
			fmt.Printf("No failures recorded for run %s.\n", runID)

			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STATUS\tTEST\tFILE\tERROR")

		for i := range failures {
			f := &failures[i]
			errLine, _, _ := strings.Cut(f.ErrorMessage, "\n")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				f.Status, f.Name, f.File, errLine)
		}

		return w.Flush()
	})
}
