package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "oppreport-test.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecordAndRecentRuns(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	first := RunRecord{
		Channel:        "general",
		TimeframeHours: 24,
		Opportunities:  3,
		Outcome:        "delivered",
		Delivered:      true,
		StartedAt:      base.Add(-time.Hour),
	}
	if _, err := RecordRun(db, first); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	second := RunRecord{
		Channel:        "sales",
		TimeframeHours: 48,
		Outcome:        "empty",
		Error:          "no opportunities found in the last 48 hours",
		StartedAt:      base,
	}
	if _, err := RecordRun(db, second); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, err := RecentRuns(db, 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	// Most recent first.
	if runs[0].Channel != "sales" || runs[1].Channel != "general" {
		t.Fatalf("unexpected order: %q, %q", runs[0].Channel, runs[1].Channel)
	}
	if runs[0].Outcome != "empty" || runs[0].Error == "" {
		t.Fatalf("unexpected failed run record: %+v", runs[0])
	}
	if !runs[1].Delivered || runs[1].Opportunities != 3 {
		t.Fatalf("unexpected delivered run record: %+v", runs[1])
	}
}

func TestRecentRunsLimit(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 5; i++ {
		rec := RunRecord{
			Channel:   "general",
			Outcome:   "delivered",
			Delivered: true,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if _, err := RecordRun(db, rec); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	runs, err := RecentRuns(db, 3)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
}

func TestDeliveredCountSince(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	records := []RunRecord{
		{Channel: "general", Outcome: "delivered", Delivered: true, StartedAt: base.Add(-2 * time.Hour)},
		{Channel: "general", Outcome: "delivered", Delivered: true, StartedAt: base.Add(-10 * time.Minute)},
		{Channel: "general", Outcome: "empty", StartedAt: base.Add(-5 * time.Minute)},
	}
	for _, rec := range records {
		if _, err := RecordRun(db, rec); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	count, err := DeliveredCountSince(db, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeliveredCountSince failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 delivered run in window, got %d", count)
	}
}
