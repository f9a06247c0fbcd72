package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethpandaops/flakeoor/pkg/analytics"
	"github.com/ethpandaops/flakeoor/pkg/config"
	"github.com/ethpandaops/flakeoor/pkg/dashboard"
	"github.com/ethpandaops/flakeoor/pkg/store"
	"github.com/spf13/cobra"
)

var dashboardOutput string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the analytics history to an HTML dashboard",
	Long:  `Queries the recorded run history and writes a single self-contained HTML dashboard file.`,
	RunE:  runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().StringVar(&dashboardOutput, "output", "",
		"Output file path (default: from config)")
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(
		ctx context.Context, cfg *config.Config, st store.Store,
	) error {
		queries := analytics.New(log, st)

		data, err := queries.FetchDashboardData(ctx, analytics.Limits{
			Runs:  cfg.Dashboard.RunLimit,
			Tests: cfg.Dashboard.TestLimit,
		})
		if err != nil {
			return fmt.Errorf("fetching dashboard data: %w", err)
		}

		html, err := dashboard.Render(data, time.Now())
		if err != nil {
			return fmt.Errorf("rendering dashboard: %w", err)
		}

		output := dashboardOutput
		if output == "" {
			output = cfg.Dashboard.OutputPath
		}

		if dir := filepath.Dir(output); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
		}

		if err := os.WriteFile(output, html, 0o644); err != nil {
			return fmt.Errorf("writing dashboard file: %w", err)
		}

		log.WithField("output", output).Info("Dashboard generated")

		return nil
	})
}
