package report

import (
	"bytes"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const chartSize = 400

// Slice palette, cycled when there are more than five owners.
var ownerPalette = []drawing.Color{
	drawing.ColorFromHex("FF6384"),
	drawing.ColorFromHex("36A2EB"),
	drawing.ColorFromHex("FFCE56"),
	drawing.ColorFromHex("FF5733"),
	drawing.ColorFromHex("C70039"),
}

var wonColor = drawing.ColorFromHex("4CAF50")
var lostColor = drawing.ColorFromHex("F44336")

// DoughnutChartPNG renders the ownership doughnut: one slice per owner with
// at least one closed-won deal.
func DoughnutChartPNG(wins *WinCounts) ([]byte, error) {
	owners := wins.Owners()
	if len(owners) == 0 {
		return nil, fmt.Errorf("no closed-won owners to chart")
	}
	values := make([]chart.Value, 0, len(owners))
	for i, owner := range owners {
		values = append(values, chart.Value{
			Label: owner,
			Value: float64(wins.Count(owner)),
			Style: chart.Style{FillColor: ownerPalette[i%len(ownerPalette)]},
		})
	}
	c := chart.DonutChart{
		Width:  chartSize,
		Height: chartSize,
		Values: values,
	}
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering doughnut chart: %w", err)
	}
	return buf.Bytes(), nil
}

// StackedBarChartPNG renders one bar per owner with won (green) and lost
// (red) segments, in first-seen owner order. Owners with no closed deals are
// skipped; the global totals entry is never a bar.
func StackedBarChartPNG(stages *OwnerStageCounts) ([]byte, error) {
	var bars []chart.StackedBar
	for _, owner := range stages.Owners() {
		counts := stages.Counts(owner)
		var values []chart.Value
		if counts.ClosedWon > 0 {
			values = append(values, chart.Value{
				Label: "won",
				Value: float64(counts.ClosedWon),
				Style: chart.Style{FillColor: wonColor},
			})
		}
		if counts.ClosedLost > 0 {
			values = append(values, chart.Value{
				Label: "lost",
				Value: float64(counts.ClosedLost),
				Style: chart.Style{FillColor: lostColor},
			})
		}
		if len(values) == 0 {
			continue
		}
		bars = append(bars, chart.StackedBar{Name: owner, Values: values})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no closed deals to chart")
	}
	c := chart.StackedBarChart{
		Width:  chartSize,
		Height: chartSize,
		Bars:   bars,
	}
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering stacked bar chart: %w", err)
	}
	return buf.Bytes(), nil
}
