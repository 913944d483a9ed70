// Package schedule runs reports on a cron schedule in addition to on-demand
// events.
package schedule

import (
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"oppreport/internal/config"
	"oppreport/internal/event"
	"oppreport/internal/pipeline"
)

// StartReportScheduler starts a cron loop that generates a report for the
// configured default channel and timeframe. Returns false when scheduling is
// disabled or the expression does not parse.
// The schedule is a standard 5-field cron expression (minute hour day-of-month
// month day-of-week), e.g. "0 9 * * 1-5" for weekday mornings.
func StartReportScheduler(cfg config.Config, runner *pipeline.Runner) bool {
	spec := strings.TrimSpace(cfg.ReportSchedule)
	if spec == "" {
		log.Println("Scheduled reports disabled (report_schedule not set)")
		return false
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		log.Printf("Invalid report_schedule '%s': %v — scheduled reports disabled", spec, err)
		return false
	}
	log.Printf("Scheduled reports enabled (cron: %s) channel=%s timeframe=%s", spec, cfg.DefaultSlackChannel, cfg.DefaultTimeframe)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			log.Printf("Next scheduled report at %s (in %s)", next.Format("Mon Jan 2 15:04"), next.Sub(now).Round(time.Minute))

			time.Sleep(next.Sub(now))

			if err := runner.ProcessEvent(SyntheticEvent(cfg)); err != nil {
				log.Printf("Scheduled report error: %v", err)
			}
		}
	}()
	return true
}

// SyntheticEvent builds an event equivalent to an empty command: credentials
// come from config and the channel and timeframe fall back to the configured
// defaults. It carries no source work item, so progress comments are skipped.
func SyntheticEvent(cfg config.Config) event.Event {
	return event.Event{
		ExecutionMetadata: event.ExecutionMetadata{DevRevEndpoint: cfg.DevRevEndpoint},
	}
}
