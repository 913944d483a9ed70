package schedule

import (
	"testing"

	"oppreport/internal/config"
	"oppreport/internal/event"
	"oppreport/internal/pipeline"
)

func TestStartReportSchedulerDisabledWithoutSpec(t *testing.T) {
	cfg := config.Config{}
	if StartReportScheduler(cfg, &pipeline.Runner{Config: cfg}) {
		t.Fatal("expected scheduler disabled with empty schedule")
	}
}

func TestStartReportSchedulerRejectsInvalidSpec(t *testing.T) {
	cfg := config.Config{ReportSchedule: "not a cron line"}
	if StartReportScheduler(cfg, &pipeline.Runner{Config: cfg}) {
		t.Fatal("expected scheduler disabled with invalid schedule")
	}
}

func TestStartReportSchedulerAcceptsFiveFieldSpec(t *testing.T) {
	// A far-future schedule keeps the loop asleep for the test's lifetime.
	cfg := config.Config{ReportSchedule: "0 9 1 1 *"}
	if !StartReportScheduler(cfg, &pipeline.Runner{Config: cfg}) {
		t.Fatal("expected scheduler to accept a valid 5-field spec")
	}
}

func TestSyntheticEventUsesConfigDefaults(t *testing.T) {
	cfg := config.Config{
		DevRevEndpoint:      "https://cfg.devrev.test",
		ServiceAccountToken: "sat",
		SlackAPIToken:       "slack",
		LLMProvider:         "anthropic",
		AnthropicAPIKey:     "ak",
		DefaultSlackChannel: "general",
		DefaultTimeframe:    "24h",
	}

	ev := SyntheticEvent(cfg)
	if ev.Payload.Parameters != "" {
		t.Fatalf("synthetic event should carry an empty command, got %q", ev.Payload.Parameters)
	}
	if ev.Payload.SourceID != "" {
		t.Fatal("synthetic event should have no source work item")
	}

	creds, err := event.ResolveCredentials(ev, cfg)
	if err != nil {
		t.Fatalf("config credentials should satisfy resolution: %v", err)
	}
	if creds.DevRevToken != "sat" || creds.SlackToken != "slack" || creds.LLMKey != "ak" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
	if creds.Endpoint != "https://cfg.devrev.test" {
		t.Fatalf("unexpected endpoint: %q", creds.Endpoint)
	}

	defaults := event.ResolveDefaults(ev, cfg)
	if defaults.Channel != "general" || defaults.Timeframe != "24h" {
		t.Fatalf("unexpected defaults: %+v", defaults)
	}
}
