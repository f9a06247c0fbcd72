package dashboard_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/flakeoor/pkg/analytics"
	"github.com/ethpandaops/flakeoor/pkg/dashboard"
	"github.com/ethpandaops/flakeoor/pkg/store"
)

var renderedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func sampleRun(id string, startedAt time.Time, passRate float64) store.TestRun {
	return store.TestRun{
		RunID:      id,
		StartedAt:  startedAt,
		TotalTests: 10,
		Passed:     int(passRate / 10),
		PassRate:   passRate,
		DurationMs: 60000,
		Branch:     "main",
	}
}

func sampleData() *analytics.DashboardData {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)

	return &analytics.DashboardData{
		Stats: &store.RunStats{
			TotalRuns:     3,
			TotalTests:    30,
			AvgPassRate:   85.0,
			AvgDurationMs: 60000,
		},
		RecentRuns: []store.TestRun{
			sampleRun("run-c", base.Add(2*time.Hour), 90),
			sampleRun("run-b", base.Add(time.Hour), 80),
			sampleRun("run-a", base, 85),
		},
		FlakyTests: []store.TestHistory{
			{TestID: "t1", Name: "login works", File: "specs/login.spec.ts",
				TotalRuns: 5, FlakinessScore: 20},
		},
		SlowestTests: []store.TestHistory{
			{TestID: "t2", Name: "checkout", File: "specs/checkout.spec.ts",
				TotalRuns: 5, AvgDurationMs: 4500},
		},
		MostFailing: []store.TestHistory{
			{TestID: "t3", Name: "search", File: "specs/search.spec.ts",
				TotalRuns: 5, FailCount: 3},
		},
		LatestFailures: []store.TestResult{
			{TestID: "t3", Name: "search", File: "specs/search.spec.ts",
				Status: store.StatusFailed, ErrorMessage: "timeout waiting for results"},
		},
	}
}

func TestRender_EmptyState(t *testing.T) {
	tests := []struct {
		name string
		data *analytics.DashboardData
	}{
		{name: "nil data", data: nil},
		{name: "nil stats", data: &analytics.DashboardData{}},
		{
			name: "zero runs",
			data: &analytics.DashboardData{Stats: &store.RunStats{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := dashboard.Render(tt.data, renderedAt)
			require.NoError(t, err)

			out := string(html)
			assert.Contains(t, out, "No runs recorded yet")
			assert.NotContains(t, out, "Flakiest tests")
			assert.NotContains(t, out, "Slowest tests")
			assert.NotContains(t, out, "Failures in latest run")
		})
	}
}

func TestRender_OmitsEmptySections(t *testing.T) {
	data := sampleData()
	data.FlakyTests = nil
	data.SlowestTests = nil
	data.MostFailing = nil
	data.LatestFailures = nil

	html, err := dashboard.Render(data, renderedAt)
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "Recent runs")
	assert.NotContains(t, out, "Flakiest tests")
	assert.NotContains(t, out, "Slowest tests")
	assert.NotContains(t, out, "Most failing tests")
	assert.NotContains(t, out, "Failures in latest run")
}

func TestRender_AllSections(t *testing.T) {
	html, err := dashboard.Render(sampleData(), renderedAt)
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "Recent runs")
	assert.Contains(t, out, "Flakiest tests")
	assert.Contains(t, out, "Slowest tests")
	assert.Contains(t, out, "Most failing tests")
	assert.Contains(t, out, "Failures in latest run")
	assert.Contains(t, out, "20.0%")
	assert.Contains(t, out, "timeout waiting for results")
	assert.Contains(t, out, "<svg")
}

func TestRender_EscapesUserText(t *testing.T) {
	data := sampleData()
	data.LatestFailures[0].Name = `<script>alert("pwned")</script>`
	data.LatestFailures[0].ErrorMessage = `expected "a" & got 'b'`

	html, err := dashboard.Render(data, renderedAt)
	require.NoError(t, err)

	out := string(html)
	assert.NotContains(t, out, `<script>alert`)
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, `& got`)
}

func TestRender_Deterministic(t *testing.T) {
	first, err := dashboard.Render(sampleData(), renderedAt)
	require.NoError(t, err)

	second, err := dashboard.Render(sampleData(), renderedAt)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRender_TrendChartsOldestToNewest(t *testing.T) {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)

	data := sampleData()
	// Newest first, as the store returns them. Oldest run has pass
	// rate 0, newest has 100: the polyline must ascend left to right,
	// meaning its first point has the largest y coordinate.
	data.RecentRuns = []store.TestRun{
		sampleRun("run-new", base.Add(time.Hour), 100),
		sampleRun("run-old", base, 0),
	}

	html, err := dashboard.Render(data, renderedAt)
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, `points="24.0,136.0 576.0,24.0"`)
}
