package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Page geometry in points. Content starts 100pt from the page top, leaving
// room for the running header; the bottom margin bounds both text and
// charts.
const (
	pageWidth   = 600.0
	pageHeight  = 800.0
	pageMargin  = 50.0
	contentTop  = 100.0
	bottomLimit = pageHeight - pageMargin

	bodyFontSize   = 12.0
	headerFontSize = 14.0
	footerFontSize = 10.0
	lineSpacing    = 14.0

	chartDrawWidth  = 400.0
	chartDrawHeight = 200.0
	chartOffsetX    = 75.0

	headerText = "Business Opportunities Report"
	headerY    = 20.0
	footerY    = 780.0
)

// Measurer reports the rendered width of text at body size, in bold when
// heading is set. Injected so layout stays a pure function.
type Measurer func(text string, heading bool) float64

type placedText struct {
	Text    string
	Heading bool
	Y       float64
}

type placedImage struct {
	Index int
	Y     float64
}

type pageLayout struct {
	Number int
	Texts  []placedText
	Images []placedImage
}

// layoutReport flows the body lines and imageCount trailing images onto
// pages. A blank source line advances half a line height without forcing a
// break; everything else breaks to a fresh page when it would cross the
// bottom margin.
func layoutReport(lines []Line, imageCount int, measure Measurer) []pageLayout {
	var pages []pageLayout
	y := contentTop
	newPage := func() {
		pages = append(pages, pageLayout{Number: len(pages) + 1})
		y = contentTop
	}
	newPage()

	maxWidth := pageWidth - 2*pageMargin
	for _, line := range lines {
		if strings.TrimSpace(line.Text) == "" {
			y += lineSpacing / 2
			continue
		}
		for _, wrapped := range wrapWords(line.Text, line.Heading, maxWidth, measure) {
			if y+lineSpacing > bottomLimit {
				newPage()
			}
			page := &pages[len(pages)-1]
			page.Texts = append(page.Texts, placedText{Text: wrapped, Heading: line.Heading, Y: y})
			y += lineSpacing
		}
	}

	for i := 0; i < imageCount; i++ {
		if y+chartDrawHeight > bottomLimit {
			newPage()
		}
		page := &pages[len(pages)-1]
		page.Images = append(page.Images, placedImage{Index: i, Y: y})
		y += chartDrawHeight
	}
	return pages
}

// wrapWords greedily packs words up to maxWidth, never splitting a word.
func wrapWords(text string, heading bool, maxWidth float64, measure Measurer) []string {
	var lines []string
	current := ""
	for _, word := range strings.Split(text, " ") {
		test := word
		if current != "" {
			test = current + " " + word
		}
		if measure(test, heading) <= maxWidth {
			current = test
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// BuildPDF renders the summary and up to two chart PNGs into the final
// multi-page document. Nil chart slices are simply omitted.
func BuildPDF(summary string, doughnutPNG, barPNG []byte) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	measure := func(text string, heading bool) float64 {
		setBodyFont(pdf, heading)
		return pdf.GetStringWidth(tr(text))
	}

	var images [][]byte
	for _, img := range [][]byte{doughnutPNG, barPNG} {
		if len(img) > 0 {
			images = append(images, img)
		}
	}
	imgOpts := fpdf.ImageOptions{ImageType: "PNG"}
	for i, img := range images {
		pdf.RegisterImageOptionsReader(chartName(i), imgOpts, bytes.NewReader(img))
	}

	for _, page := range layoutReport(PrepareLines(summary), len(images), measure) {
		pdf.AddPage()
		stampHeaderFooter(pdf, page.Number)
		for _, t := range page.Texts {
			setBodyFont(pdf, t.Heading)
			pdf.Text(pageMargin, t.Y, tr(t.Text))
		}
		for _, img := range page.Images {
			pdf.ImageOptions(chartName(img.Index), chartOffsetX, img.Y, chartDrawWidth, chartDrawHeight, false, imgOpts, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("serializing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func setBodyFont(pdf *fpdf.Fpdf, heading bool) {
	if heading {
		pdf.SetFont("Helvetica", "B", bodyFontSize)
	} else {
		pdf.SetFont("Helvetica", "", bodyFontSize)
	}
}

func stampHeaderFooter(pdf *fpdf.Fpdf, pageNumber int) {
	pdf.SetFont("Helvetica", "B", headerFontSize)
	pdf.Text(pageMargin, headerY, headerText)

	footer := fmt.Sprintf("Page %d", pageNumber)
	pdf.SetFont("Helvetica", "", footerFontSize)
	pdf.Text((pageWidth-pdf.GetStringWidth(footer))/2, footerY, footer)
}

func chartName(i int) string {
	return fmt.Sprintf("chart-%d", i)
}
