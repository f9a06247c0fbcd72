package dashboard

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/ethpandaops/flakeoor/pkg/store"
)

const (
	chartWidth   = 600
	chartHeight  = 160
	chartPadding = 24
)

// trendValues extracts a per-run metric from the most recent runs,
// reordered oldest-to-newest so the chart reads left to right.
func trendValues(runs []store.TestRun, metric func(*store.TestRun) float64) []float64 {
	values := make([]float64, 0, len(runs))

	// Recent runs arrive newest-first.
	for i := len(runs) - 1; i >= 0; i-- {
		values = append(values, metric(&runs[i]))
	}

	return values
}

// passRateChart renders the pass-rate trend over the given runs.
func passRateChart(runs []store.TestRun) template.HTML {
	values := trendValues(runs, func(r *store.TestRun) float64 {
		return r.PassRate
	})

	return lineChart(values, 0, 100, "%.0f%%")
}

// durationChart renders the run-duration trend over the given runs.
func durationChart(runs []store.TestRun) template.HTML {
	values := trendValues(runs, func(r *store.TestRun) float64 {
		return float64(r.DurationMs) / 1000
	})

	maxVal := 1.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}

	return lineChart(values, 0, maxVal, "%.1fs")
}

// lineChart builds a self-contained inline SVG polyline for the values.
// The output is constructed purely from numbers, so it is safe to mark as
// trusted HTML.
func lineChart(values []float64, minVal, maxVal float64, labelFormat string) template.HTML {
	if len(values) == 0 {
		return ""
	}

	innerW := float64(chartWidth - 2*chartPadding)
	innerH := float64(chartHeight - 2*chartPadding)

	span := maxVal - minVal
	if span <= 0 {
		span = 1
	}

	points := make([]string, 0, len(values))

	for i, v := range values {
		x := float64(chartPadding)
		if len(values) > 1 {
			x += innerW * float64(i) / float64(len(values)-1)
		} else {
			x += innerW / 2
		}

		y := float64(chartPadding) + innerH*(1-(v-minVal)/span)

		points = append(points, fmt.Sprintf("%.1f,%.1f", x, y))
	}

	var b strings.Builder

	fmt.Fprintf(&b,
		`<svg viewBox="0 0 %d %d" width="%d" height="%d" role="img">`,
		chartWidth, chartHeight, chartWidth, chartHeight)
	fmt.Fprintf(&b,
		`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#ccc"/>`,
		chartPadding, chartHeight-chartPadding,
		chartWidth-chartPadding, chartHeight-chartPadding)
	fmt.Fprintf(&b,
		`<text x="2" y="%d" font-size="10">`+labelFormat+`</text>`,
		chartPadding, maxVal)
	fmt.Fprintf(&b,
		`<text x="2" y="%d" font-size="10">`+labelFormat+`</text>`,
		chartHeight-chartPadding, minVal)
	fmt.Fprintf(&b,
		`<polyline fill="none" stroke="#2d7ff9" stroke-width="2" points="%s"/>`,
		strings.Join(points, " "))

	for _, p := range points {
		xy := strings.Split(p, ",")
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="3" fill="#2d7ff9"/>`,
			xy[0], xy[1])
	}

	b.WriteString(`</svg>`)

	return template.HTML(b.String())
}
