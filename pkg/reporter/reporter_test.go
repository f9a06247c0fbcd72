package reporter_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/flakeoor/pkg/config"
	"github.com/ethpandaops/flakeoor/pkg/reporter"
	"github.com/ethpandaops/flakeoor/pkg/store"
)

func setupStore(t *testing.T) store.Store {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{
			Path: filepath.Join(t.TempDir(), "flakeoor.db"),
		},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := store.NewStore(log, cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func newTestReporter(
	t *testing.T, st store.Store,
) (*reporter.Reporter, *bytes.Buffer, *logtest.Hook) {
	t.Helper()

	log, hook := logtest.NewNullLogger()

	var out bytes.Buffer

	r := reporter.NewReporter(log, st, &reporter.Config{
		LogsDir: filepath.Join(t.TempDir(), "logs"),
		Environment: &config.Environment{
			Branch:      "main",
			Commit:      "abc1234",
			Environment: "ci",
			Trigger:     "push",
		},
		Browsers: []string{"chromium"},
		Out:      &out,
	})

	return r, &out, hook
}

func flatSuite(n int) *reporter.Suite {
	suite := &reporter.Suite{Title: "root"}

	for i := 0; i < n; i++ {
		suite.Tests = append(suite.Tests, &reporter.TestCase{
			ID:    fmt.Sprintf("test-%d", i),
			Title: fmt.Sprintf("test %d", i),
			File:  "specs/smoke.spec.ts",
		})
	}

	return suite
}

func TestSuite_CountTestsNested(t *testing.T) {
	suite := &reporter.Suite{
		Title: "root",
		Tests: []*reporter.TestCase{{ID: "a"}},
		Suites: []*reporter.Suite{
			{
				Title: "checkout",
				Tests: []*reporter.TestCase{{ID: "b"}, {ID: "c"}},
				Suites: []*reporter.Suite{
					{Title: "guest", Tests: []*reporter.TestCase{{ID: "d"}}},
				},
			},
			{Title: "empty"},
		},
	}

	assert.Equal(t, 4, suite.CountTests())

	var nilSuite *reporter.Suite
	assert.Equal(t, 0, nilSuite.CountTests())
}

func TestReporter_FullRunLifecycle(t *testing.T) {
	st := setupStore(t)
	r, out, _ := newTestReporter(t, st)
	ctx := context.Background()

	suite := flatSuite(4)
	require.NoError(t, r.OnRunBegin(ctx, suite))

	runID := r.RunID()
	require.NotEmpty(t, runID)

	// 3 passed, 1 failed, no retries.
	for i := 0; i < 3; i++ {
		r.OnTestEnd(ctx, suite.Tests[i], &reporter.Outcome{
			Status:   store.StatusPassed,
			Duration: 120 * time.Millisecond,
		})
	}

	r.OnTestEnd(ctx, suite.Tests[3], &reporter.Outcome{
		Status:       store.StatusFailed,
		Duration:     300 * time.Millisecond,
		ErrorMessage: "expected basket to be empty\n  at specs/smoke.spec.ts:42",
	})

	require.NoError(t, r.OnRunEnd(ctx))

	run, err := st.GetRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, 4, run.TotalTests)
	assert.Equal(t, 3, run.Passed)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 0, run.Flaky)
	assert.InDelta(t, 75.0, run.PassRate, 0.001)
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, "main", run.Branch)
	assert.Equal(t, "ci", run.Environment)

	hist, err := st.GetHistory(ctx, "test-3")
	require.NoError(t, err)
	require.NotNil(t, hist)
	assert.Equal(t, 1, hist.TotalRuns)
	assert.Equal(t, 1, hist.FailCount)
	assert.InDelta(t, 100.0, hist.FlakinessScore, 0.001)

	// Summary block lists the failed test with the first line of its
	// error only.
	assert.Contains(t, out.String(), "test 3")
	assert.Contains(t, out.String(), "expected basket to be empty")
	assert.NotContains(t, out.String(), "at specs/smoke.spec.ts:42")
	assert.Contains(t, out.String(), "75.0%")
}

func TestReporter_FlakyAcrossTwoRuns(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	tc := &reporter.TestCase{
		ID:    "login-test",
		Title: "login works",
		File:  "specs/login.spec.ts",
	}

	suite := &reporter.Suite{Tests: []*reporter.TestCase{tc}}

	// Run A: outright failure.
	runA, _, _ := newTestReporter(t, st)
	require.NoError(t, runA.OnRunBegin(ctx, suite))
	runA.OnTestEnd(ctx, tc, &reporter.Outcome{
		Status:   store.StatusFailed,
		Duration: 100 * time.Millisecond,
	})
	require.NoError(t, runA.OnRunEnd(ctx))

	// Run B: passed on retry, i.e. flaky. A finalized reporter is
	// discarded; the new run gets a new instance.
	runB, _, _ := newTestReporter(t, st)
	require.NoError(t, runB.OnRunBegin(ctx, suite))
	runB.OnTestEnd(ctx, tc, &reporter.Outcome{
		Status:   store.StatusPassed,
		Duration: 100 * time.Millisecond,
		Retries:  1,
	})
	require.NoError(t, runB.OnRunEnd(ctx))

	assert.NotEqual(t, runA.RunID(), runB.RunID())

	hist, err := st.GetHistory(ctx, "login-test")
	require.NoError(t, err)
	require.NotNil(t, hist)

	assert.Equal(t, 2, hist.TotalRuns)
	assert.Equal(t, 1, hist.PassCount)
	assert.Equal(t, 1, hist.FailCount)
	assert.Equal(t, 1, hist.FlakyCount)
	assert.InDelta(t, 50.0, hist.FlakinessScore, 0.001)

	runRowB, err := st.GetRun(ctx, runB.RunID())
	require.NoError(t, err)
	assert.Equal(t, 1, runRowB.Flaky)
}

// failingStore wraps a real store but rejects every result write.
type failingStore struct {
	store.Store
}

func (f *failingStore) InsertResult(
	_ context.Context, _ *store.TestResult,
) error {
	return &store.StorageError{
		Op:  "inserting result",
		Err: fmt.Errorf("disk full"),
	}
}

func TestReporter_StorageFailureDoesNotAbortRun(t *testing.T) {
	st := &failingStore{Store: setupStore(t)}
	r, _, hook := newTestReporter(t, st)
	ctx := context.Background()

	suite := flatSuite(3)
	require.NoError(t, r.OnRunBegin(ctx, suite))

	for _, tc := range suite.Tests {
		r.OnTestEnd(ctx, tc, &reporter.Outcome{
			Status:   store.StatusPassed,
			Duration: 50 * time.Millisecond,
		})
	}

	require.NoError(t, r.OnRunEnd(ctx))

	// The failure is logged once for the whole run, not once per test.
	var errorEntries int

	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			errorEntries++
		}
	}

	assert.Equal(t, 1, errorEntries)

	// The run row itself was finalized despite the result failures.
	run, err := st.Store.GetRun(ctx, r.RunID())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 3, run.Passed)
}

func TestReporter_LifecycleGuards(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	r, _, _ := newTestReporter(t, st)

	require.Error(t, r.OnRunEnd(ctx), "end before begin")

	require.NoError(t, r.OnRunBegin(ctx, flatSuite(1)))
	require.Error(t, r.OnRunBegin(ctx, flatSuite(1)), "double begin")

	require.NoError(t, r.OnRunEnd(ctx))
	require.Error(t, r.OnRunEnd(ctx), "double end")
}

func TestReporter_WritesNDJSONRunLog(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	logsDir := filepath.Join(t.TempDir(), "logs")
	log, _ := logtest.NewNullLogger()

	var out bytes.Buffer

	r := reporter.NewReporter(log, st, &reporter.Config{
		LogsDir:     logsDir,
		Environment: &config.Environment{Environment: "local", Trigger: "manual"},
		Out:         &out,
	})

	suite := flatSuite(1)
	require.NoError(t, r.OnRunBegin(ctx, suite))
	r.OnTestEnd(ctx, suite.Tests[0], &reporter.Outcome{
		Status:   store.StatusPassed,
		Duration: 10 * time.Millisecond,
	})
	require.NoError(t, r.OnRunEnd(ctx))

	data, err := os.ReadFile(
		filepath.Join(logsDir, r.RunID()+".ndjson"))
	require.NoError(t, err)

	assert.Contains(t, string(data), `"run started"`)
	assert.Contains(t, string(data), `"run finished"`)

	entries, err := st.ListLogs(ctx, r.RunID())
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
