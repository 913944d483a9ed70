package report

import (
	"regexp"
	"strings"
)

var (
	headingMarkRe = regexp.MustCompile(`#+\s?`)
	boldStarRe    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicStarRe  = regexp.MustCompile(`\*(.*?)\*`)
	boldUnderRe   = regexp.MustCompile(`__([^_]+)__`)
	italicUnderRe = regexp.MustCompile(`_(.*?)_`)
	inlineCodeRe  = regexp.MustCompile("`([^`]+)`")
	listDashRe    = regexp.MustCompile(`^(?:-\s+)+`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

// Clean strips markdown decoration from LLM output so the PDF body reads as
// plain text. Idempotent: Clean(Clean(x)) == Clean(x). Blank runs collapse
// after the per-line pass, since a line that cleans to empty (a bare marker)
// can create a new run.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}
	text = blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

func cleanLine(line string) string {
	line = headingMarkRe.ReplaceAllString(line, "")
	line = boldStarRe.ReplaceAllString(line, "$1")
	line = italicStarRe.ReplaceAllString(line, "$1")
	line = boldUnderRe.ReplaceAllString(line, "$1")
	line = italicUnderRe.ReplaceAllString(line, "$1")
	line = inlineCodeRe.ReplaceAllString(line, "$1")
	line = listDashRe.ReplaceAllString(line, "")
	return strings.TrimRight(line, " \t")
}

// Line is one source line of the report body. Heading lines render bold.
type Line struct {
	Text    string
	Heading bool
}

// PrepareLines splits the raw summary into render lines. Heading detection
// runs before cleaning, since cleaning removes the markers it keys on.
func PrepareLines(summary string) []Line {
	text := strings.ReplaceAll(summary, "\r\n", "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for _, r := range raw {
		lines = append(lines, Line{
			Text:    cleanLine(r),
			Heading: strings.HasPrefix(strings.TrimSpace(r), "##"),
		})
	}
	return lines
}
