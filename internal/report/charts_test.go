package report

import (
	"bytes"
	"image/png"
	"testing"

	"oppreport/internal/integrations/devrev"
)

func TestDoughnutChartPNG(t *testing.T) {
	aggs := Aggregate([]devrev.Opportunity{
		opp("Alice", StageClosedWon),
		opp("Bob", StageClosedWon),
		opp("Alice", StageClosedWon),
	})

	data, err := DoughnutChartPNG(aggs.Wins)
	if err != nil {
		t.Fatalf("DoughnutChartPNG failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a valid PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != chartSize || bounds.Dy() != chartSize {
		t.Fatalf("unexpected dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestDoughnutChartPNGNoWinners(t *testing.T) {
	aggs := Aggregate([]devrev.Opportunity{
		opp("Alice", StageClosedLost),
	})
	if _, err := DoughnutChartPNG(aggs.Wins); err == nil {
		t.Fatal("expected error with no closed-won owners")
	}
}

func TestDoughnutChartPNGDeterministic(t *testing.T) {
	aggs := Aggregate([]devrev.Opportunity{
		opp("Alice", StageClosedWon),
		opp("Bob", StageClosedWon),
	})

	first, err := DoughnutChartPNG(aggs.Wins)
	if err != nil {
		t.Fatalf("first render failed: %v", err)
	}
	second, err := DoughnutChartPNG(aggs.Wins)
	if err != nil {
		t.Fatalf("second render failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("same input produced different chart bytes")
	}
}

func TestStackedBarChartPNG(t *testing.T) {
	aggs := Aggregate([]devrev.Opportunity{
		opp("Alice", StageClosedWon),
		opp("Alice", StageClosedLost),
		opp("Bob", StageClosedLost),
	})

	data, err := StackedBarChartPNG(aggs.Stages)
	if err != nil {
		t.Fatalf("StackedBarChartPNG failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != chartSize || img.Bounds().Dy() != chartSize {
		t.Fatalf("unexpected dimensions: %v", img.Bounds())
	}
}

func TestStackedBarChartPNGSkipsZeroCountOwners(t *testing.T) {
	aggs := Aggregate([]devrev.Opportunity{
		opp("Alice", StageClosedWon),
		opp("Bob", "negotiation"),
	})

	// Bob has no closed deals; the chart should still render from Alice's bar
	// alone.
	if _, err := StackedBarChartPNG(aggs.Stages); err != nil {
		t.Fatalf("StackedBarChartPNG failed: %v", err)
	}
}

func TestStackedBarChartPNGNoClosedDeals(t *testing.T) {
	aggs := Aggregate([]devrev.Opportunity{
		opp("Alice", "negotiation"),
	})
	if _, err := StackedBarChartPNG(aggs.Stages); err == nil {
		t.Fatal("expected error with no closed deals")
	}
}
