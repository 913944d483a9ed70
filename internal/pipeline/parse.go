package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"oppreport/internal/event"
)

var timeframeTokenRe = regexp.MustCompile(`^\d+[dh]$`)
var daysRe = regexp.MustCompile(`(\d+)d`)
var hoursRe = regexp.MustCompile(`(\d+)h`)

// TimeWindow is the requested lookback. TotalHours may legitimately be zero
// after parsing (e.g. "0h"); the pipeline's >0 guard rejects it separately.
type TimeWindow struct {
	Days       int
	Hours      int
	TotalHours int
}

// Label renders the window for the summary prompt: "2 days", "5 hours".
func (w TimeWindow) Label() string {
	if w.TotalHours >= 24 {
		return fmt.Sprintf("%d days", w.TotalHours/24)
	}
	return fmt.Sprintf("%d hours", w.TotalHours)
}

// Request is the parsed command: where to deliver, how far to look back, and
// an optional trailing style token.
type Request struct {
	Channel string
	Window  TimeWindow
	Style   string
}

// ParseCommand splits the free-text command argument into channel, time
// window and optional style token, falling back to defaults for whatever is
// omitted. Grammar: [channel] [Nd] [Nh] [style], with at most two timeframe
// tokens concatenated before extraction.
func ParseCommand(raw string, defaults event.Defaults) (Request, error) {
	tokens := strings.Fields(raw)
	req := Request{Channel: defaults.Channel}

	i := 0
	if len(tokens) > 0 && !timeframeTokenRe.MatchString(tokens[0]) {
		req.Channel = tokens[0]
		i = 1
	}

	spec := ""
	for taken := 0; i < len(tokens) && taken < 2 && timeframeTokenRe.MatchString(tokens[i]); taken++ {
		spec += tokens[i]
		i++
	}
	if spec == "" {
		spec = defaults.Timeframe
	}
	if i < len(tokens) {
		req.Style = tokens[i]
	}

	window, err := ParseTimeWindow(spec)
	if err != nil {
		return Request{}, err
	}
	req.Window = window
	return req, nil
}

// ParseTimeWindow extracts day and hour counts from a timeframe string such
// as "24h", "2d" or "1d2h".
func ParseTimeWindow(spec string) (TimeWindow, error) {
	dayMatch := daysRe.FindStringSubmatch(spec)
	hourMatch := hoursRe.FindStringSubmatch(spec)
	if dayMatch == nil && hourMatch == nil {
		return TimeWindow{}, fmt.Errorf("%w: invalid time format %q, use [Nd][Nh] (e.g. 1d 2h, 24h, 2d)", ErrInvalidInput, spec)
	}

	var w TimeWindow
	if dayMatch != nil {
		w.Days, _ = strconv.Atoi(dayMatch[1])
	}
	if hourMatch != nil {
		w.Hours, _ = strconv.Atoi(hourMatch[1])
	}
	w.TotalHours = w.Days*24 + w.Hours
	return w, nil
}
