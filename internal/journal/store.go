// Package journal persists processed trade events to a local SQLite file so
// an operator can reconstruct what the service did after a restart.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"hedge_sync/internal/core"
)

// EventKind labels the origin of a journaled event.
type EventKind string

const (
	KindEntry       EventKind = "entry"
	KindClosure     EventKind = "closure"
	KindRemoteClose EventKind = "remote_close"
)

// Entry is a single journaled event.
type Entry struct {
	ID         int64
	Kind       EventKind
	BaseID     string
	Action     string
	Quantity   float64
	Price      float64
	Instrument string
	Account    string
	Reason     string
	At         time.Time
}

// Store is an append-only SQLite journal of processed events.
type Store struct {
	db     *sql.DB
	logger core.ILogger
}

const schema = `
CREATE TABLE IF NOT EXISTS trade_events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    kind       TEXT NOT NULL,
    base_id    TEXT NOT NULL,
    action     TEXT NOT NULL,
    quantity   REAL NOT NULL,
    price      REAL NOT NULL,
    instrument TEXT NOT NULL,
    account    TEXT NOT NULL,
    reason     TEXT NOT NULL DEFAULT '',
    at         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trade_events_base_id ON trade_events(base_id);
`

// Open opens (or creates) the journal at path.
func Open(path string, logger core.ILogger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.WithField("component", "journal"),
	}, nil
}

// Append records one event.
func (s *Store) Append(e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO trade_events (kind, base_id, action, quantity, price, instrument, account, reason, at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.Kind), e.BaseID, e.Action, e.Quantity, e.Price, e.Instrument, e.Account, e.Reason, e.At,
	)
	if err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, kind, base_id, action, quantity, price, instrument, account, reason, at
         FROM trade_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.BaseID, &e.Action, &e.Quantity, &e.Price,
			&e.Instrument, &e.Account, &e.Reason, &e.At); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Kind = EventKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
