package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/flakeoor/pkg/analytics"
	"github.com/ethpandaops/flakeoor/pkg/config"
	"github.com/ethpandaops/flakeoor/pkg/store"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print overall statistics across all recorded runs",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(
		ctx context.Context, _ *config.Config, st store.Store,
	) error {
		stats, err := analytics.New(log, st).OverallStats(ctx)
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		if stats.TotalRuns == 0 {
			fmt.Println("No test runs recorded yet.")

			return nil
		}

		fmt.Printf("Runs recorded:       %d\n", stats.TotalRuns)
		fmt.Printf("Tests executed:      %d\n", stats.TotalTests)
		fmt.Printf("Average pass rate:   %.1f%%\n", stats.AvgPassRate)
		fmt.Printf("Average run length:  %s\n",
			(time.Duration(stats.AvgDurationMs) * time.Millisecond).
				Round(100*time.Millisecond))

		return nil
	})
}
