package reporter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ethpandaops/flakeoor/pkg/config"
	"github.com/ethpandaops/flakeoor/pkg/store"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Reporter lifecycle states. A reporter moves NotStarted → InProgress →
// Finalized exactly once; a new run needs a new Reporter.
type runState int

const (
	stateNotStarted runState = iota
	stateInProgress
	stateFinalized
)

// Config contains reporter settings.
type Config struct {
	// LogsDir is the directory for per-run NDJSON log files.
	LogsDir string

	// Environment metadata recorded on the run row.
	Environment *config.Environment

	// Browsers and Tags describe the run as configured by the caller.
	Browsers []string
	Tags     []string

	// Out receives the console status lines. Defaults to os.Stdout.
	Out io.Writer
}

// Reporter observes a single test-run lifecycle and drives the store.
// OnTestEnd is safe to call from concurrent test workers.
type Reporter struct {
	log logrus.FieldLogger
	st  store.Store
	cfg *Config
	out io.Writer

	mu        sync.Mutex
	state     runState
	runID     string
	startedAt time.Time
	results   []store.TestResult

	// Storage failures during OnTestEnd are logged once per run to
	// avoid flooding the output across hundreds of tests.
	writeFailureLogged bool

	runLog *RunLogger
}

// NewReporter creates a reporter for one upcoming run.
func NewReporter(
	log logrus.FieldLogger,
	st store.Store,
	cfg *Config,
) *Reporter {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	return &Reporter{
		log: log.WithField("component", "reporter"),
		st:  st,
		cfg: cfg,
		out: out,
	}
}

// RunID returns the identifier generated for this run. Empty before
// OnRunBegin has been called.
func (r *Reporter) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.runID
}

// OnRunBegin records the start of the run: generates a fresh run id,
// counts the suite tree, captures environment metadata and inserts the
// run row with all counters zeroed.
func (r *Reporter) OnRunBegin(ctx context.Context, suite *Suite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateNotStarted {
		return fmt.Errorf("reporter already started")
	}

	r.runID = uuid.NewString()
	r.startedAt = time.Now()
	r.state = stateInProgress

	env := r.cfg.Environment
	if env == nil {
		env = config.CaptureEnvironment()
	}

	run := &store.TestRun{
		RunID:       r.runID,
		StartedAt:   r.startedAt,
		TotalTests:  suite.CountTests(),
		Branch:      env.Branch,
		Commit:      env.Commit,
		Environment: env.Environment,
		Trigger:     env.Trigger,
		Tags:        strings.Join(r.cfg.Tags, ","),
		Browsers:    strings.Join(r.cfg.Browsers, ","),
	}

	if err := r.st.InsertRun(ctx, run); err != nil {
		// Degrade to "no analytics for this run" rather than failing
		// the test framework's lifecycle hook.
		r.log.WithError(err).WithField("run_id", r.runID).
			Error("Failed to record run start, analytics for this run will be incomplete")

		return nil
	}

	if rl, err := NewRunLogger(r.log, r.st, r.cfg.LogsDir, r.runID); err != nil {
		r.log.WithError(err).Warn("Run log file unavailable")
	} else {
		r.runLog = rl
		rl.Log(ctx, store.LevelInfo, "", "run started", map[string]any{
			"total_tests": run.TotalTests,
			"branch":      run.Branch,
			"commit":      run.Commit,
		})
	}

	fmt.Fprintf(r.out, "Running %d tests (run %s)\n",
		run.TotalTests, shortID(r.runID))

	return nil
}

// OnTestEnd records one finished test case: persists the result, folds it
// into the rolling history and prints a one-line status. Storage errors
// are swallowed after being logged once for the whole run.
func (r *Reporter) OnTestEnd(
	ctx context.Context, tc *TestCase, outcome *Outcome,
) {
	r.mu.Lock()

	if r.state != stateInProgress {
		r.mu.Unlock()
		r.log.Warn("OnTestEnd called outside of an active run")

		return
	}

	result := store.TestResult{
		RunID:          r.runID,
		TestID:         tc.ID,
		Name:           tc.Title,
		File:           tc.File,
		Tags:           strings.Join(tc.Tags, ","),
		Suite:          tc.Suite,
		Browser:        tc.Browser,
		Status:         outcome.Status,
		Retries:        outcome.Retries,
		Duration:       outcome.Duration.Milliseconds(),
		ErrorMessage:   outcome.ErrorMessage,
		ErrorStack:     outcome.ErrorStack,
		ScreenshotPath: outcome.ScreenshotPath,
		VideoPath:      outcome.VideoPath,
		TracePath:      outcome.TracePath,
		CreatedAt:      time.Now(),
	}

	r.results = append(r.results, result)

	// Console writes share r.out with the summary; keep them under the
	// same lock since workers call OnTestEnd concurrently.
	fmt.Fprintln(r.out, statusLine(tc, outcome))
	r.mu.Unlock()

	// The store serializes its own writes; no lock needed here.
	if err := r.st.InsertResult(ctx, &result); err != nil {
		r.reportWriteFailure(ctx, err, tc.ID)
	} else if err := r.st.UpsertHistory(ctx, &result); err != nil {
		r.reportWriteFailure(ctx, err, tc.ID)
	}
}

// OnRunEnd finalizes the run: computes the aggregate counts from the
// results collected in memory, writes the final snapshot, prints the
// summary block and checkpoints the store so another process can read it.
func (r *Reporter) OnRunEnd(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateInProgress {
		return fmt.Errorf("reporter is not in progress")
	}

	r.state = stateFinalized

	finishedAt := time.Now()

	var passed, failed, skipped, flaky int

	for i := range r.results {
		res := &r.results[i]

		switch res.Status {
		case store.StatusPassed:
			passed++

			if res.Retries > 0 {
				flaky++
			}
		case store.StatusFailed, store.StatusTimedOut, store.StatusInterrupted:
			failed++
		case store.StatusSkipped:
			skipped++
		}
	}

	total := len(r.results)

	var passRate float64
	if total > 0 {
		passRate = float64(passed) / float64(total) * 100
	}

	snapshot := &store.RunSnapshot{
		FinishedAt: &finishedAt,
		TotalTests: total,
		Passed:     passed,
		Failed:     failed,
		Skipped:    skipped,
		Flaky:      flaky,
		PassRate:   passRate,
		DurationMs: finishedAt.Sub(r.startedAt).Milliseconds(),
	}

	if err := r.st.UpdateRun(ctx, r.runID, snapshot); err != nil {
		r.log.WithError(err).WithField("run_id", r.runID).
			Error("Failed to record run summary")
	}

	r.printSummary(snapshot)

	if r.runLog != nil {
		r.runLog.Log(ctx, store.LevelInfo, "", "run finished", map[string]any{
			"passed":    passed,
			"failed":    failed,
			"skipped":   skipped,
			"flaky":     flaky,
			"pass_rate": passRate,
		})

		if err := r.runLog.Close(); err != nil {
			r.log.WithError(err).Warn("Failed to close run log file")
		}
	}

	// Flush to disk so a dashboard invocation in another process sees
	// the finalized run.
	if err := r.st.Checkpoint(ctx); err != nil {
		r.log.WithError(err).Warn("Failed to checkpoint analytics database")
	}

	return nil
}

// reportWriteFailure logs a storage failure once per run, then degrades to
// a run-log entry per affected test.
func (r *Reporter) reportWriteFailure(
	ctx context.Context, err error, testID string,
) {
	r.mu.Lock()
	first := !r.writeFailureLogged
	r.writeFailureLogged = true
	r.mu.Unlock()

	if first {
		r.log.WithError(err).WithField("run_id", r.runID).
			Error("Failed to persist test result, analytics for this run will be incomplete")
	}

	if r.runLog != nil {
		r.runLog.Log(ctx, store.LevelError, testID,
			"result write failed", map[string]any{"error": err.Error()})
	}
}

// printSummary writes the end-of-run block: counts, pass rate, failed
// tests with the first line of their error, and flaky tests with retries.
func (r *Reporter) printSummary(snap *store.RunSnapshot) {
	fmt.Fprintf(r.out, "\n%s Passed:  %d\n",
		color.GreenString("✓"), snap.Passed)
	fmt.Fprintf(r.out, "%s Failed:  %d\n",
		color.RedString("✗"), snap.Failed)
	fmt.Fprintf(r.out, "%s Skipped: %d\n",
		color.YellowString("○"), snap.Skipped)
	fmt.Fprintf(r.out, "%s Flaky:   %d\n",
		color.MagentaString("⚑"), snap.Flaky)
	fmt.Fprintf(r.out, "Pass rate: %.1f%% in %s\n",
		snap.PassRate, time.Duration(snap.DurationMs)*time.Millisecond)

	var failedLines, flakyLines []string

	for i := range r.results {
		res := &r.results[i]

		switch res.Status {
		case store.StatusFailed, store.StatusTimedOut, store.StatusInterrupted:
			failedLines = append(failedLines, fmt.Sprintf("  %s %s: %s",
				color.RedString("✗"), res.Name, firstLine(res.ErrorMessage)))
		case store.StatusPassed:
			if res.Retries > 0 {
				flakyLines = append(flakyLines, fmt.Sprintf("  %s %s (%d retries)",
					color.MagentaString("⚑"), res.Name, res.Retries))
			}
		}
	}

	if len(failedLines) > 0 {
		fmt.Fprintf(r.out, "\nFailed tests:\n%s\n",
			strings.Join(failedLines, "\n"))
	}

	if len(flakyLines) > 0 {
		fmt.Fprintf(r.out, "\nFlaky tests:\n%s\n",
			strings.Join(flakyLines, "\n"))
	}
}

// statusLine renders the colorized one-line console status for a test.
func statusLine(tc *TestCase, outcome *Outcome) string {
	var symbol string

	switch outcome.Status {
	case store.StatusPassed:
		if outcome.Retries > 0 {
			symbol = color.MagentaString("⚑")
		} else {
			symbol = color.GreenString("✓")
		}
	case store.StatusSkipped:
		symbol = color.YellowString("○")
	default:
		symbol = color.RedString("✗")
	}

	return fmt.Sprintf("%s %s (%s)", symbol, tc.Title,
		outcome.Duration.Round(time.Millisecond))
}

// firstLine returns the first line of a potentially multi-line message.
func firstLine(s string) string {
	if s == "" {
		return "(no error message)"
	}

	line, _, _ := strings.Cut(s, "\n")

	return line
}

// shortID abbreviates a run id for console output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}
