package app

import (
	"log"
	"os"
	"time"

	"oppreport/internal/config"
	"oppreport/internal/event"
	"oppreport/internal/httpx"
	"oppreport/internal/pipeline"
	"oppreport/internal/schedule"
	"oppreport/internal/storage/sqlite"
)

func Main() {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.Configure(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Endpoint=%s Provider=%s Channel=%s Timeframe=%s Mode=%s ExternalHTTPTimeout=%s",
		cfg.DevRevEndpoint,
		cfg.LLMProvider,
		cfg.DefaultSlackChannel,
		cfg.DefaultTimeframe,
		cfg.DeliveryMode,
		appliedHTTPTimeout,
	)

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()

	if recent, err := sqlite.RecentRuns(db, 1); err == nil && len(recent) > 0 {
		log.Printf("Last run: channel=%s outcome=%s at=%s", recent[0].Channel, recent[0].Outcome, recent[0].StartedAt.Format("2006-01-02 15:04"))
	}
	if count, err := sqlite.DeliveredCountSince(db, time.Now().AddDate(0, 0, -7)); err == nil {
		log.Printf("Reports delivered in the last 7 days: %d", count)
	}

	runner := &pipeline.Runner{Config: cfg, DB: db, HTTPClient: httpx.Client()}

	events, err := loadEvents()
	if err != nil {
		log.Fatalf("Failed to read events: %v", err)
	}
	if len(events) > 0 {
		log.Printf("Processing %d event(s)", len(events))
		if err := runner.ProcessBatch(events); err != nil {
			log.Fatalf("Event processing error: %v", err)
		}
		return
	}

	if schedule.StartReportScheduler(cfg, runner) {
		select {}
	}
	log.Println("No events to process")
}

// loadEvents reads the event batch from the file named as the first argument,
// or from stdin when input is piped in.
func loadEvents() ([]event.Event, error) {
	if len(os.Args) > 1 {
		f, err := os.Open(os.Args[1])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return event.DecodeBatch(f)
	}

	stat, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Mode()&os.ModeCharDevice != 0 {
		return nil, nil
	}
	return event.DecodeBatch(os.Stdin)
}
