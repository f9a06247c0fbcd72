package analytics

import (
	"context"

	"github.com/ethpandaops/flakeoor/pkg/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Analytics is the read side of the store: it translates "top-N by metric"
// questions into store queries. It holds no state of its own.
type Analytics struct {
	log logrus.FieldLogger
	st  store.Store
}

// New creates an Analytics reader over the given store.
func New(log logrus.FieldLogger, st store.Store) *Analytics {
	return &Analytics{
		log: log.WithField("component", "analytics"),
		st:  st,
	}
}

// Limits bounds the list sizes fetched for the dashboard.
type Limits struct {
	Runs  int
	Tests int
}

// DashboardData is everything the dashboard renderer needs, fetched once.
type DashboardData struct {
	Stats          *store.RunStats
	RecentRuns     []store.TestRun
	FlakyTests     []store.TestHistory
	SlowestTests   []store.TestHistory
	MostFailing    []store.TestHistory
	LatestFailures []store.TestResult
}

// RecentRuns returns the N most recent runs, newest first.
func (a *Analytics) RecentRuns(
	ctx context.Context, limit int,
) ([]store.TestRun, error) {
	return a.st.ListRecentRuns(ctx, limit)
}

// FlakyTests returns the top-N tests by flakiness score.
func (a *Analytics) FlakyTests(
	ctx context.Context, limit int,
) ([]store.TestHistory, error) {
	return a.st.ListFlakyTests(ctx, limit)
}

// SlowestTests returns the top-N tests by average duration.
func (a *Analytics) SlowestTests(
	ctx context.Context, limit int,
) ([]store.TestHistory, error) {
	return a.st.ListSlowestTests(ctx, limit)
}

// MostFailingTests returns the top-N tests by failure count.
func (a *Analytics) MostFailingTests(
	ctx context.Context, limit int,
) ([]store.TestHistory, error) {
	return a.st.ListMostFailingTests(ctx, limit)
}

// FailuresForRun returns the failed results of one run.
func (a *Analytics) FailuresForRun(
	ctx context.Context, runID string,
) ([]store.TestResult, error) {
	return a.st.ListFailedResults(ctx, runID)
}

// OverallStats returns the aggregate row across all runs.
func (a *Analytics) OverallStats(
	ctx context.Context,
) (*store.RunStats, error) {
	return a.st.OverallStats(ctx)
}

// FetchDashboardData gathers all dashboard inputs. The independent queries
// run concurrently; the latest run's failures are fetched afterwards since
// they depend on the recent-runs result.
func (a *Analytics) FetchDashboardData(
	ctx context.Context, limits Limits,
) (*DashboardData, error) {
	data := &DashboardData{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := a.st.OverallStats(gctx)
		if err != nil {
			return err
		}

		data.Stats = stats

		return nil
	})

	g.Go(func() error {
		runs, err := a.st.ListRecentRuns(gctx, limits.Runs)
		if err != nil {
			return err
		}

		data.RecentRuns = runs

		return nil
	})

	g.Go(func() error {
		tests, err := a.st.ListFlakyTests(gctx, limits.Tests)
		if err != nil {
			return err
		}

		data.FlakyTests = tests

		return nil
	})

	g.Go(func() error {
		tests, err := a.st.ListSlowestTests(gctx, limits.Tests)
		if err != nil {
			return err
		}

		data.SlowestTests = tests

		return nil
	})

	g.Go(func() error {
		tests, err := a.st.ListMostFailingTests(gctx, limits.Tests)
		if err != nil {
			return err
		}

		data.MostFailing = tests

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(data.RecentRuns) > 0 {
		failures, err := a.st.ListFailedResults(
			ctx, data.RecentRuns[0].RunID,
		)
		if err != nil {
			return nil, err
		}

		data.LatestFailures = failures
	}

	return data, nil
}
