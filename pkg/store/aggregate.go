package store

import "time"

// nextHistory computes the rolling TestHistory snapshot that follows prev
// after observing result r. A nil prev seeds a fresh history from the
// single result. The input is never mutated.
//
// Known quirk carried over from the original schema: MinDurationMs uses
// zero as the "uninitialized" sentinel, so a genuine zero-millisecond
// duration on the first run is indistinguishable from no data.
func nextHistory(prev *TestHistory, r *TestResult, now time.Time) *TestHistory {
	isPass := r.Status == StatusPassed
	isFail := r.Status == StatusFailed
	isSkip := r.Status == StatusSkipped

	// A test that failed at least once but passed on retry within the
	// same run is flaky. A test failing on every retry is only a failure.
	isFlaky := r.Retries > 0 && isPass

	if prev == nil {
		h := &TestHistory{
			TestID:        r.TestID,
			Name:          r.Name,
			File:          r.File,
			TotalRuns:     1,
			AvgDurationMs: float64(r.Duration),
			MinDurationMs: r.Duration,
			MaxDurationMs: r.Duration,
			LastStatus:    r.Status,
			FirstRunAt:    now,
			LastRunAt:     now,
		}

		if isPass {
			h.PassCount = 1
		}

		if isFail {
			h.FailCount = 1
			h.FlakinessScore = 100
			h.LastFailureAt = &now
		}

		if isSkip {
			h.SkipCount = 1
		}

		if isFlaky {
			h.FlakyCount = 1
		}

		return h
	}

	next := *prev
	next.TotalRuns = prev.TotalRuns + 1
	next.Name = r.Name
	next.File = r.File

	if isPass {
		next.PassCount++
	}

	if isFail {
		next.FailCount++
		next.LastFailureAt = &now
	}

	if isSkip {
		next.SkipCount++
	}

	if isFlaky {
		next.FlakyCount++
	}

	// Incremental mean keeps O(1) space per test.
	next.AvgDurationMs = (prev.AvgDurationMs*float64(prev.TotalRuns) +
		float64(r.Duration)) / float64(next.TotalRuns)

	if r.Duration < prev.MinDurationMs || prev.MinDurationMs == 0 {
		next.MinDurationMs = r.Duration
	}

	if r.Duration > prev.MaxDurationMs {
		next.MaxDurationMs = r.Duration
	}

	next.FlakinessScore = float64(next.FailCount) /
		float64(next.TotalRuns) * 100

	next.LastStatus = r.Status
	next.LastRunAt = now

	return &next
}
