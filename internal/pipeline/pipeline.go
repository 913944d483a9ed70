// Package pipeline composes one report run: parse the command, fetch and
// filter opportunities, summarize and aggregate, render, deliver.
package pipeline

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"oppreport/internal/config"
	"oppreport/internal/event"
	"oppreport/internal/integrations/devrev"
	"oppreport/internal/integrations/llm"
	slackx "oppreport/internal/integrations/slack"
	"oppreport/internal/report"
	"oppreport/internal/storage/sqlite"
)

// Error taxonomy. Recoverable classes resolve to a status message on the
// triggering thread; the rest propagate to the invoking harness.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrUpstreamFetch  = errors.New("upstream fetch failed")
	ErrLLMRequest     = errors.New("llm request failed")
	ErrEmptyResultSet = errors.New("no opportunities in window")
	ErrDelivery       = errors.New("delivery failed")
)

// Collaborator contracts, satisfied by the integration packages and by test
// fakes.

type OpportunitySource interface {
	FetchOpportunities(timeframeHours int, now time.Time) ([]devrev.Opportunity, error)
}

type Summarizer interface {
	Summarize(opps []devrev.Opportunity, windowLabel string) (string, error)
}

type Chat interface {
	ResolveChannelID(name string) (string, error)
	JoinChannel(channelID string) error
	UploadReport(channelID string, pdf []byte) (slackx.DeliveryResult, error)
	PostText(channelID, text string) (slackx.DeliveryResult, error)
}

type Progress interface {
	Notify(text string)
}

// RunResult is the terminal state of one event's processing, recorded to the
// run-history store.
type RunResult struct {
	Channel   string
	Window    TimeWindow
	Records   int
	Delivered bool
	Outcome   string
	Err       error
}

type Runner struct {
	Config     config.Config
	DB         *sql.DB
	HTTPClient *http.Client
}

// ProcessBatch handles events strictly sequentially. Recoverable per-event
// failures are reported to the event's thread and do not stop the batch;
// anything else aborts with an error for the harness to retry.
func (r *Runner) ProcessBatch(events []event.Event) error {
	for i, ev := range events {
		if err := r.ProcessEvent(ev); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

// ProcessEvent builds per-event collaborator clients from the event's
// credentials and runs the pipeline once.
func (r *Runner) ProcessEvent(ev event.Event) error {
	started := time.Now()

	creds, credErr := event.ResolveCredentials(ev, r.Config)
	// The DevRev client doubles as the progress channel, so build it even
	// when credential resolution fails (creds come back zero then).
	endpoint := creds.Endpoint
	if endpoint == "" {
		endpoint = r.Config.DevRevEndpoint
	}
	dr := devrev.NewClient(endpoint, creds.DevRevToken, r.HTTPClient)
	prog := &devrev.ProgressNotifier{
		Client:        dr,
		ObjectID:      ev.Payload.SourceID,
		ExpiryMinutes: r.Config.ProgressExpiryMinutes,
	}

	var res RunResult
	if credErr != nil {
		res = RunResult{Outcome: "invalid_input", Err: fmt.Errorf("%w: %v", ErrInvalidInput, credErr)}
	} else {
		chat := slackx.NewClient(creds.SlackToken, r.HTTPClient)
		summarizer := &llm.Client{
			Provider:   r.Config.LLMProvider,
			Model:      r.Config.LLMModel,
			APIKey:     creds.LLMKey,
			HTTPClient: r.HTTPClient,
		}
		defaults := event.ResolveDefaults(ev, r.Config)
		res = r.runEvent(ev.Payload.Parameters, defaults, dr, summarizer, chat, prog, time.Now)
	}

	r.recordRun(started, res)

	if res.Err == nil {
		log.Printf("report delivered channel=%s window=%dh records=%d", res.Channel, res.Window.TotalHours, res.Records)
		return nil
	}
	if recoverable(res.Err) {
		log.Printf("report run ended outcome=%s err=%v", res.Outcome, res.Err)
		prog.Notify(res.Err.Error())
		return nil
	}
	log.Printf("report run failed outcome=%s channel=%s window=%dh err=%v", res.Outcome, res.Channel, res.Window.TotalHours, res.Err)
	return res.Err
}

// runEvent is the collaborator-agnostic core, exercised directly by tests.
func (r *Runner) runEvent(params string, defaults event.Defaults, src OpportunitySource, sum Summarizer, chat Chat, prog Progress, now func() time.Time) RunResult {
	req, err := ParseCommand(params, defaults)
	if err != nil {
		return RunResult{Outcome: "invalid_input", Err: err}
	}
	res := RunResult{Channel: req.Channel, Window: req.Window}

	if req.Channel == "" {
		res.Outcome = "invalid_input"
		res.Err = fmt.Errorf("%w: no target channel given and no default configured", ErrInvalidInput)
		return res
	}
	if req.Window.TotalHours <= 0 {
		res.Outcome = "invalid_input"
		res.Err = fmt.Errorf("%w: invalid timeframe, lookback must be greater than zero", ErrInvalidInput)
		return res
	}

	// Resolve the channel before spending an LLM call on a bad target.
	prog.Notify("Connecting with Slack...")
	channelID, err := chat.ResolveChannelID(req.Channel)
	if err != nil {
		if errors.Is(err, slackx.ErrChannelNotFound) {
			res.Outcome = "channel_not_found"
			res.Err = fmt.Errorf("%w: the channel %s does not exist or is not accessible", slackx.ErrChannelNotFound, req.Channel)
			return res
		}
		res.Outcome = "delivery_error"
		res.Err = fmt.Errorf("%w: %v", ErrDelivery, err)
		return res
	}

	opps, err := src.FetchOpportunities(req.Window.TotalHours, now())
	if err != nil {
		res.Outcome = "fetch_error"
		res.Err = fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
		return res
	}
	res.Records = len(opps)
	if len(opps) == 0 {
		res.Outcome = "empty"
		res.Err = fmt.Errorf("%w: no opportunities found in the last %d hours", ErrEmptyResultSet, req.Window.TotalHours)
		return res
	}

	// The aggregates are pure record math with no LLM dependency, so they
	// run alongside the summary call.
	prog.Notify("Generating summary...")
	aggCh := make(chan report.Aggregates, 1)
	go func() {
		aggCh <- report.Aggregate(opps)
	}()
	summary, err := sum.Summarize(opps, req.Window.Label())
	if err != nil {
		res.Outcome = "llm_error"
		res.Err = fmt.Errorf("%w: %v", ErrLLMRequest, err)
		return res
	}
	aggs := <-aggCh

	artifact, textFallback := r.renderArtifact(summary, aggs, prog)

	if err := chat.JoinChannel(channelID); err != nil {
		res.Outcome = "delivery_error"
		res.Err = fmt.Errorf("%w: %v", ErrDelivery, err)
		return res
	}

	var delivery slackx.DeliveryResult
	if textFallback != "" {
		delivery, err = chat.PostText(channelID, textFallback)
	} else {
		delivery, err = chat.UploadReport(channelID, artifact)
	}
	if err != nil {
		res.Outcome = "delivery_error"
		res.Err = fmt.Errorf("%w: %v", ErrDelivery, err)
		return res
	}
	if !delivery.OK {
		res.Outcome = "delivery_rejected"
		res.Err = fmt.Errorf("%w: %s", ErrDelivery, delivery.Error)
		return res
	}

	res.Delivered = true
	res.Outcome = "delivered"
	prog.Notify(fmt.Sprintf("Report delivered to #%s.", req.Channel))
	return res
}

// renderArtifact produces the PDF, or the cleaned text when configured for
// text delivery or when rendering fails. Chart failures degrade to a PDF
// without the affected chart.
func (r *Runner) renderArtifact(summary string, aggs report.Aggregates, prog Progress) (pdf []byte, textFallback string) {
	cleaned := report.Clean(summary)
	if r.Config.DeliveryMode == "text" {
		return nil, cleaned
	}

	prog.Notify("Generating PDF...")
	doughnut, err := report.DoughnutChartPNG(aggs.Wins)
	if err != nil {
		log.Printf("doughnut chart skipped: %v", err)
	}
	bar, err := report.StackedBarChartPNG(aggs.Stages)
	if err != nil {
		log.Printf("stacked bar chart skipped: %v", err)
	}

	artifact, err := report.BuildPDF(summary, doughnut, bar)
	if err != nil {
		log.Printf("pdf render failed, delivering text instead: %v", err)
		return nil, cleaned
	}
	return artifact, ""
}

func (r *Runner) recordRun(started time.Time, res RunResult) {
	if r.DB == nil {
		return
	}
	rec := sqlite.RunRecord{
		Channel:        res.Channel,
		TimeframeHours: res.Window.TotalHours,
		Opportunities:  res.Records,
		Outcome:        res.Outcome,
		Delivered:      res.Delivered,
		StartedAt:      started,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if _, err := sqlite.RecordRun(r.DB, rec); err != nil {
		log.Printf("run history insert failed: %v", err)
	}
}

func recoverable(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyResultSet) ||
		errors.Is(err, ErrDelivery) ||
		errors.Is(err, slackx.ErrChannelNotFound)
}
