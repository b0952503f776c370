// Package history persists alert decisions to a local SQLite database.
//
// DESIGN: An append-only audit log of what the engine decided and why. It is
// never read back into engine state: each process run starts cold, and the
// table exists so an operator can reconstruct what happened after the fact.
// Persistence failures are reported to the caller, who logs and moves on.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Decision outcomes recorded per alert candidate.
const (
	OutcomeSent       = "sent"
	OutcomeSuppressed = "suppressed"
	OutcomeFailed     = "failed"
)

// Entry is one recorded alert decision.
type Entry struct {
	AlertID string    `json:"alert_id"`
	Kind    string    `json:"kind"`
	Summary string    `json:"summary"`
	Outcome string    `json:"outcome"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS alert_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	summary TEXT NOT NULL,
	outcome TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	at TIMESTAMP NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_alert_history_kind ON alert_history(kind);
CREATE INDEX IF NOT EXISTS idx_alert_history_at ON alert_history(at);
`

// Store is an alert-history database handle.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Append records one alert decision.
func (s *Store) Append(e Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO alert_history (alert_id, kind, summary, outcome, reason, at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.AlertID, e.Kind, e.Summary, e.Outcome, e.Reason, e.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT alert_id, kind, summary, outcome, reason, at
		 FROM alert_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.AlertID, &e.Kind, &e.Summary, &e.Outcome, &e.Reason, &at); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
