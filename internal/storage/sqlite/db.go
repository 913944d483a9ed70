// Package sqlite persists report run history.
package sqlite

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS report_runs (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		channel         TEXT DEFAULT '',
		timeframe_hours INTEGER NOT NULL DEFAULT 0,
		opportunities   INTEGER NOT NULL DEFAULT 0,
		outcome         TEXT NOT NULL,
		error           TEXT DEFAULT '',
		delivered       INTEGER NOT NULL DEFAULT 0,
		started_at      DATETIME NOT NULL,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_report_runs_started_at ON report_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_report_runs_channel ON report_runs(channel);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}
	return db, nil
}

type RunRecord struct {
	ID             int64
	Channel        string
	TimeframeHours int
	Opportunities  int
	Outcome        string
	Error          string
	Delivered      bool
	StartedAt      time.Time
	CreatedAt      time.Time
}

func RecordRun(db *sql.DB, rec RunRecord) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO report_runs (channel, timeframe_hours, opportunities, outcome, error, delivered, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Channel, rec.TimeframeHours, rec.Opportunities, rec.Outcome,
		rec.Error, rec.Delivered, rec.StartedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func RecentRuns(db *sql.DB, limit int) ([]RunRecord, error) {
	rows, err := db.Query(
		`SELECT id, channel, timeframe_hours, opportunities, outcome, error, delivered, started_at, created_at
		 FROM report_runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(
			&r.ID, &r.Channel, &r.TimeframeHours, &r.Opportunities,
			&r.Outcome, &r.Error, &r.Delivered, &r.StartedAt, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func DeliveredCountSince(db *sql.DB, since time.Time) (int, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM report_runs WHERE delivered = 1 AND started_at >= ?`,
		since,
	).Scan(&count)
	return count, err
}
