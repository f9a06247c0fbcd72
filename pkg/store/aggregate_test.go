package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(status string, durationMs int64, retries int) *TestResult {
	return &TestResult{
		TestID:   "checkout-test",
		Name:     "checkout completes",
		File:     "specs/checkout.spec.ts",
		Status:   status,
		Duration: durationMs,
		Retries:  retries,
	}
}

func TestNextHistory_SeedsFromFirstResult(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		result    *TestResult
		wantPass  int
		wantFail  int
		wantSkip  int
		wantFlaky int
		wantScore float64
	}{
		{
			name:     "first pass",
			result:   result(StatusPassed, 120, 0),
			wantPass: 1,
		},
		{
			name:      "first fail scores 100",
			result:    result(StatusFailed, 120, 0),
			wantFail:  1,
			wantScore: 100,
		},
		{
			name:     "first skip",
			result:   result(StatusSkipped, 0, 0),
			wantSkip: 1,
		},
		{
			name:      "pass after retry is flaky",
			result:    result(StatusPassed, 120, 2),
			wantPass:  1,
			wantFlaky: 1,
		},
		{
			name:   "timeout counts only total runs",
			result: result(StatusTimedOut, 120, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := nextHistory(nil, tt.result, now)

			assert.Equal(t, 1, h.TotalRuns)
			assert.Equal(t, tt.wantPass, h.PassCount)
			assert.Equal(t, tt.wantFail, h.FailCount)
			assert.Equal(t, tt.wantSkip, h.SkipCount)
			assert.Equal(t, tt.wantFlaky, h.FlakyCount)
			assert.InDelta(t, tt.wantScore, h.FlakinessScore, 0.001)
			assert.Equal(t, tt.result.Status, h.LastStatus)
			assert.Equal(t, now, h.FirstRunAt)
			assert.Equal(t, now, h.LastRunAt)
		})
	}
}

func TestNextHistory_IncrementalMean(t *testing.T) {
	now := time.Now()

	h := nextHistory(nil, result(StatusPassed, 100, 0), now)
	h = nextHistory(h, result(StatusPassed, 200, 0), now)
	h = nextHistory(h, result(StatusPassed, 600, 0), now)

	assert.Equal(t, 3, h.TotalRuns)
	assert.InDelta(t, 300.0, h.AvgDurationMs, 0.001)
}

func TestNextHistory_MinMax(t *testing.T) {
	now := time.Now()

	h := nextHistory(nil, result(StatusPassed, 300, 0), now)
	h = nextHistory(h, result(StatusPassed, 100, 0), now)
	h = nextHistory(h, result(StatusPassed, 500, 0), now)
	h = nextHistory(h, result(StatusPassed, 250, 0), now)

	assert.Equal(t, int64(100), h.MinDurationMs)
	assert.Equal(t, int64(500), h.MaxDurationMs)
}

func TestNextHistory_ZeroMinSentinel(t *testing.T) {
	now := time.Now()

	// A zero-duration first result leaves min at the uninitialized
	// sentinel, so the next non-zero duration takes over. Historical
	// behavior, kept for compatibility.
	h := nextHistory(nil, result(StatusPassed, 0, 0), now)
	require.Equal(t, int64(0), h.MinDurationMs)

	h = nextHistory(h, result(StatusPassed, 400, 0), now)
	assert.Equal(t, int64(400), h.MinDurationMs)
	assert.Equal(t, int64(400), h.MaxDurationMs)
}

func TestNextHistory_LastFailureCarriesForward(t *testing.T) {
	failTime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	passTime := failTime.Add(time.Hour)

	h := nextHistory(nil, result(StatusFailed, 100, 0), failTime)
	require.NotNil(t, h.LastFailureAt)
	require.Equal(t, failTime, *h.LastFailureAt)

	h = nextHistory(h, result(StatusPassed, 100, 0), passTime)

	assert.Equal(t, failTime, *h.LastFailureAt,
		"a pass must not move the last-failure timestamp")
	assert.Equal(t, passTime, h.LastRunAt)
	assert.Equal(t, StatusPassed, h.LastStatus)
}

func TestNextHistory_FlakinessAcrossRuns(t *testing.T) {
	now := time.Now()

	// Run A: failed outright. Run B: passed after one retry.
	h := nextHistory(nil, result(StatusFailed, 100, 0), now)
	h = nextHistory(h, result(StatusPassed, 100, 1), now)

	assert.Equal(t, 2, h.TotalRuns)
	assert.Equal(t, 1, h.PassCount)
	assert.Equal(t, 1, h.FailCount)
	assert.Equal(t, 1, h.FlakyCount)
	assert.InDelta(t, 50.0, h.FlakinessScore, 0.001)
}

func TestNextHistory_ScoreStaysInRange(t *testing.T) {
	now := time.Now()

	statuses := []string{
		StatusFailed, StatusFailed, StatusPassed, StatusSkipped,
		StatusTimedOut, StatusFailed, StatusPassed,
	}

	var h *TestHistory
	for _, status := range statuses {
		h = nextHistory(h, result(status, 100, 0), now)

		assert.GreaterOrEqual(t, h.FlakinessScore, 0.0)
		assert.LessOrEqual(t, h.FlakinessScore, 100.0)
	}

	assert.Equal(t, len(statuses), h.TotalRuns)
}

func TestNextHistory_DoesNotMutateInput(t *testing.T) {
	now := time.Now()

	prev := nextHistory(nil, result(StatusPassed, 100, 0), now)
	snapshot := *prev

	_ = nextHistory(prev, result(StatusFailed, 200, 0), now)

	assert.Equal(t, snapshot, *prev)
}
