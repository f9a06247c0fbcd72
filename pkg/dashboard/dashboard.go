// Package dashboard renders the analytics history into a single
// self-contained HTML document. Rendering is a pure function of its input:
// identical data produces identical output apart from the generated-at
// stamp. User-supplied text (test names, error messages) goes through
// html/template's contextual escaping.
package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/ethpandaops/flakeoor/pkg/analytics"
)

// trendWindow is the number of recent runs shown in the trend charts.
const trendWindow = 10

// Render produces the dashboard HTML for the given data.
func Render(data *analytics.DashboardData, generatedAt time.Time) ([]byte, error) {
	view := buildView(data, generatedAt)

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("rendering dashboard: %w", err)
	}

	return buf.Bytes(), nil
}

type pageView struct {
	GeneratedAt string
	Empty       bool

	TotalRuns   int64
	TotalTests  int64
	AvgPassRate string
	AvgDuration string

	PassRateChart template.HTML
	DurationChart template.HTML

	RecentRuns []runRow
	Failures   []failureRow
	Flaky      []historyRow
	Slowest    []historyRow
	Failing    []historyRow
}

type runRow struct {
	RunID      string
	StartedAt  string
	Branch     string
	Total      int
	Passed     int
	Failed     int
	Skipped    int
	Flaky      int
	PassRate   string
	Duration   string
	Incomplete bool
}

type failureRow struct {
	Name    string
	File    string
	Browser string
	Error   string
}

type historyRow struct {
	Name      string
	File      string
	TotalRuns int
	Metric    string
}

func buildView(data *analytics.DashboardData, generatedAt time.Time) *pageView {
	view := &pageView{
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
	}

	if data == nil || data.Stats == nil || data.Stats.TotalRuns == 0 {
		view.Empty = true

		return view
	}

	view.TotalRuns = data.Stats.TotalRuns
	view.TotalTests = data.Stats.TotalTests
	view.AvgPassRate = fmt.Sprintf("%.1f%%", data.Stats.AvgPassRate)
	view.AvgDuration = formatMs(int64(data.Stats.AvgDurationMs))

	trendRuns := data.RecentRuns
	if len(trendRuns) > trendWindow {
		trendRuns = trendRuns[:trendWindow]
	}

	view.PassRateChart = passRateChart(trendRuns)
	view.DurationChart = durationChart(trendRuns)

	for i := range data.RecentRuns {
		run := &data.RecentRuns[i]

		view.RecentRuns = append(view.RecentRuns, runRow{
			RunID:      shorten(run.RunID),
			StartedAt:  run.StartedAt.UTC().Format("2006-01-02 15:04"),
			Branch:     run.Branch,
			Total:      run.TotalTests,
			Passed:     run.Passed,
			Failed:     run.Failed,
			Skipped:    run.Skipped,
			Flaky:      run.Flaky,
			PassRate:   fmt.Sprintf("%.1f%%", run.PassRate),
			Duration:   formatMs(run.DurationMs),
			Incomplete: run.FinishedAt == nil,
		})
	}

	for i := range data.LatestFailures {
		f := &data.LatestFailures[i]

		view.Failures = append(view.Failures, failureRow{
			Name:    f.Name,
			File:    f.File,
			Browser: f.Browser,
			Error:   f.ErrorMessage,
		})
	}

	for i := range data.FlakyTests {
		h := &data.FlakyTests[i]

		view.Flaky = append(view.Flaky, historyRow{
			Name:      h.Name,
			File:      h.File,
			TotalRuns: h.TotalRuns,
			Metric:    fmt.Sprintf("%.1f%%", h.FlakinessScore),
		})
	}

	for i := range data.SlowestTests {
		h := &data.SlowestTests[i]

		view.Slowest = append(view.Slowest, historyRow{
			Name:      h.Name,
			File:      h.File,
			TotalRuns: h.TotalRuns,
			Metric:    formatMs(int64(h.AvgDurationMs)),
		})
	}

	for i := range data.MostFailing {
		h := &data.MostFailing[i]

		view.Failing = append(view.Failing, historyRow{
			Name:      h.Name,
			File:      h.File,
			TotalRuns: h.TotalRuns,
			Metric:    fmt.Sprintf("%d failures", h.FailCount),
		})
	}

	return view
}

func formatMs(ms int64) string {
	d := time.Duration(ms) * time.Millisecond

	if d < time.Second {
		return fmt.Sprintf("%dms", ms)
	}

	return d.Round(100 * time.Millisecond).String()
}

func shorten(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Test Analytics Dashboard</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem; color: #222; }
h1 { margin-bottom: 0; }
.generated { color: #888; font-size: 0.85rem; margin-bottom: 2rem; }
.cards { display: flex; gap: 1rem; margin-bottom: 2rem; flex-wrap: wrap; }
.card { border: 1px solid #ddd; border-radius: 8px; padding: 1rem 1.5rem; min-width: 10rem; }
.card .value { font-size: 1.6rem; font-weight: 600; }
.card .label { color: #888; font-size: 0.85rem; }
table { border-collapse: collapse; width: 100%; margin-bottom: 2rem; }
th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #eee; font-size: 0.9rem; }
th { color: #666; font-weight: 600; }
.empty { border: 1px dashed #ccc; border-radius: 8px; padding: 3rem; text-align: center; color: #888; font-size: 1.1rem; }
.fail { color: #c0392b; }
.charts { display: flex; gap: 2rem; flex-wrap: wrap; margin-bottom: 2rem; }
.incomplete { color: #888; font-style: italic; }
</style>
</head>
<body>
<h1>Test Analytics Dashboard</h1>
<p class="generated">Generated at {{.GeneratedAt}}</p>
{{if .Empty}}
<div class="empty">No runs recorded yet. Run your test suite with the analytics reporter enabled to populate this dashboard.</div>
{{else}}
<div class="cards">
<div class="card"><div class="value">{{.TotalRuns}}</div><div class="label">Runs recorded</div></div>
<div class="card"><div class="value">{{.TotalTests}}</div><div class="label">Tests executed</div></div>
<div class="card"><div class="value">{{.AvgPassRate}}</div><div class="label">Average pass rate</div></div>
<div class="card"><div class="value">{{.AvgDuration}}</div><div class="label">Average run duration</div></div>
</div>
<div class="charts">
<div><h2>Pass rate trend</h2>{{.PassRateChart}}</div>
<div><h2>Duration trend</h2>{{.DurationChart}}</div>
</div>
<h2>Recent runs</h2>
<table>
<tr><th>Run</th><th>Started</th><th>Branch</th><th>Total</th><th>Passed</th><th>Failed</th><th>Skipped</th><th>Flaky</th><th>Pass rate</th><th>Duration</th></tr>
{{range .RecentRuns}}
<tr{{if .Incomplete}} class="incomplete"{{end}}><td>{{.RunID}}</td><td>{{.StartedAt}}</td><td>{{.Branch}}</td><td>{{.Total}}</td><td>{{.Passed}}</td><td class="fail">{{.Failed}}</td><td>{{.Skipped}}</td><td>{{.Flaky}}</td><td>{{.PassRate}}</td><td>{{.Duration}}</td></tr>
{{end}}
</table>
{{if .Failures}}
<h2>Failures in latest run</h2>
<table>
<tr><th>Test</th><th>File</th><th>Browser</th><th>Error</th></tr>
{{range .Failures}}
<tr><td>{{.Name}}</td><td>{{.File}}</td><td>{{.Browser}}</td><td class="fail">{{.Error}}</td></tr>
{{end}}
</table>
{{end}}
{{if .Flaky}}
<h2>Flakiest tests</h2>
<table>
<tr><th>Test</th><th>File</th><th>Runs</th><th>Flakiness</th></tr>
{{range .Flaky}}
<tr><td>{{.Name}}</td><td>{{.File}}</td><td>{{.TotalRuns}}</td><td>{{.Metric}}</td></tr>
{{end}}
</table>
{{end}}
{{if .Slowest}}
<h2>Slowest tests</h2>
<table>
<tr><th>Test</th><th>File</th><th>Runs</th><th>Avg duration</th></tr>
{{range .Slowest}}
<tr><td>{{.Name}}</td><td>{{.File}}</td><td>{{.TotalRuns}}</td><td>{{.Metric}}</td></tr>
{{end}}
</table>
{{end}}
{{if .Failing}}
<h2>Most failing tests</h2>
<table>
<tr><th>Test</th><th>File</th><th>Runs</th><th>Failures</th></tr>
{{range .Failing}}
<tr><td>{{.Name}}</td><td>{{.File}}</td><td>{{.TotalRuns}}</td><td>{{.Metric}}</td></tr>
{{end}}
</table>
{{end}}
{{end}}
</body>
</html>
`))
