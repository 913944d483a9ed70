package report

import (
	"bytes"
	"strings"
	"testing"

	"oppreport/internal/integrations/devrev"
)

// fixedMeasure gives every character a fixed width so wrapping behavior is
// predictable without a font.
func fixedMeasure(text string, heading bool) float64 {
	return float64(len(text)) * 10
}

func TestLayoutReportSingleShortPage(t *testing.T) {
	lines := []Line{
		{Text: "First line"},
		{Text: "Second line"},
	}
	pages := layoutReport(lines, 0, fixedMeasure)
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if len(pages[0].Texts) != 2 {
		t.Fatalf("expected 2 placed lines, got %d", len(pages[0].Texts))
	}
	if pages[0].Texts[0].Y != contentTop {
		t.Fatalf("first line y = %v, want %v", pages[0].Texts[0].Y, contentTop)
	}
}

func TestLayoutReportTextStaysWithinBounds(t *testing.T) {
	var lines []Line
	for i := 0; i < 200; i++ {
		lines = append(lines, Line{Text: "line of report body text"})
	}
	pages := layoutReport(lines, 0, fixedMeasure)
	if len(pages) < 2 {
		t.Fatalf("expected multiple pages, got %d", len(pages))
	}
	for _, page := range pages {
		for _, placed := range page.Texts {
			if placed.Y < contentTop {
				t.Fatalf("page %d: text above content area at y=%v", page.Number, placed.Y)
			}
			if placed.Y+lineSpacing > bottomLimit {
				t.Fatalf("page %d: text below bottom limit at y=%v", page.Number, placed.Y)
			}
		}
	}
}

func TestLayoutReportPageNumbersSequential(t *testing.T) {
	var lines []Line
	for i := 0; i < 150; i++ {
		lines = append(lines, Line{Text: "body"})
	}
	pages := layoutReport(lines, 2, fixedMeasure)
	for i, page := range pages {
		if page.Number != i+1 {
			t.Fatalf("page %d has number %d", i, page.Number)
		}
	}
}

func TestLayoutReportBlankLineHalfAdvance(t *testing.T) {
	lines := []Line{
		{Text: "first"},
		{Text: ""},
		{Text: "second"},
	}
	pages := layoutReport(lines, 0, fixedMeasure)
	texts := pages[0].Texts
	if len(texts) != 2 {
		t.Fatalf("expected 2 placed lines, got %d", len(texts))
	}
	gap := texts[1].Y - texts[0].Y
	if gap != lineSpacing+lineSpacing/2 {
		t.Fatalf("blank line gap = %v, want %v", gap, lineSpacing+lineSpacing/2)
	}
}

func TestLayoutReportImagePaginates(t *testing.T) {
	// Fill the page far enough that the chart cannot fit below the text.
	var lines []Line
	for i := 0; i < 40; i++ {
		lines = append(lines, Line{Text: "filler"})
	}
	pages := layoutReport(lines, 1, fixedMeasure)
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	last := pages[len(pages)-1]
	if len(last.Images) != 1 {
		t.Fatalf("expected image on last page, got %d", len(last.Images))
	}
	img := last.Images[0]
	if img.Y != contentTop {
		t.Fatalf("image should start fresh page at content top, y=%v", img.Y)
	}
	if img.Y+chartDrawHeight > bottomLimit {
		t.Fatalf("image overflows bottom limit: y=%v", img.Y)
	}
}

func TestLayoutReportImagesKeepOrder(t *testing.T) {
	pages := layoutReport(nil, 2, fixedMeasure)
	var got []int
	for _, page := range pages {
		for _, img := range page.Images {
			got = append(got, img.Index)
		}
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("unexpected image order: %v", got)
	}
}

func TestWrapWordsRespectsWidth(t *testing.T) {
	text := "alpha beta gamma delta epsilon"
	wrapped := wrapWords(text, false, 120, fixedMeasure)
	if len(wrapped) < 2 {
		t.Fatalf("expected wrapping, got %v", wrapped)
	}
	for _, line := range wrapped {
		if fixedMeasure(line, false) > 120 {
			t.Fatalf("wrapped line too wide: %q", line)
		}
	}
	if strings.Join(wrapped, " ") != text {
		t.Fatalf("words lost in wrapping: %v", wrapped)
	}
}

func TestWrapWordsKeepsOverlongWordWhole(t *testing.T) {
	wrapped := wrapWords("supercalifragilistic", false, 50, fixedMeasure)
	if len(wrapped) != 1 || wrapped[0] != "supercalifragilistic" {
		t.Fatalf("overlong word split: %v", wrapped)
	}
}

func TestBuildPDFProducesDocument(t *testing.T) {
	summary := "## Revenue Summary\n\nTotal revenue was $120k across 3 deals.\n\n## Conclusion\nStrong quarter."
	data, err := BuildPDF(summary, nil, nil)
	if err != nil {
		t.Fatalf("BuildPDF failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output does not start with PDF header: %q", data[:8])
	}
}

func TestBuildPDFWithCharts(t *testing.T) {
	aggs := Aggregate([]devrev.Opportunity{
		opp("Alice", StageClosedWon),
		opp("Bob", StageClosedWon),
		opp("Bob", StageClosedLost),
	})
	doughnut, err := DoughnutChartPNG(aggs.Wins)
	if err != nil {
		t.Fatalf("doughnut render failed: %v", err)
	}
	bar, err := StackedBarChartPNG(aggs.Stages)
	if err != nil {
		t.Fatalf("bar render failed: %v", err)
	}

	data, err := BuildPDF("Closed-won report body.", doughnut, bar)
	if err != nil {
		t.Fatalf("BuildPDF failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
}

func TestBuildPDFEmptySummary(t *testing.T) {
	data, err := BuildPDF("", nil, nil)
	if err != nil {
		t.Fatalf("BuildPDF failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
}
