// Package passlog keeps a history of received replay passes in SQLite so
// captures from different sessions can be compared.
package passlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"sigreplay/host/monitor"
)

// Entry is one stored pass
type Entry struct {
	ID     int64
	Device string
	At     time.Time
	Pass   monitor.Pass
}

// Log is a SQLite-backed pass history
type Log struct {
	db *sql.DB
}

// Open opens or creates the log at path
func Open(path string) (*Log, error) {
	if path == "" {
		path = "passes.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS passes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device TEXT NOT NULL,
		at_unix_nano INTEGER NOT NULL,
		number INTEGER NOT NULL,
		samples BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create passes table: %w", err)
	}
	return &Log{db: db}, nil
}

// Close closes the database
func (l *Log) Close() error {
	return l.db.Close()
}

// Record stores a pass and returns its row id
func (l *Log) Record(ctx context.Context, device string, at time.Time, p monitor.Pass) (int64, error) {
	payload, err := json.Marshal(p.Samples)
	if err != nil {
		return 0, fmt.Errorf("encode samples: %w", err)
	}
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO passes (device, at_unix_nano, number, samples) VALUES (?, ?, ?, ?)`,
		device, at.UnixNano(), p.Number, payload)
	if err != nil {
		return 0, fmt.Errorf("insert pass: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit passes, newest first
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, device, at_unix_nano, number, samples FROM passes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select passes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			at      int64
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.Device, &at, &e.Pass.Number, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal(payload, &e.Pass.Samples); err != nil {
			return nil, fmt.Errorf("decode samples of pass %d: %w", e.ID, err)
		}
		e.At = time.Unix(0, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Matches reports whether two passes replayed the same levels with every
// interval within tolerance microseconds
func Matches(a, b monitor.Pass, tolerance uint32) bool {
	if len(a.Samples) != len(b.Samples) {
		return false
	}
	for i := range a.Samples {
		sa, sb := a.Samples[i], b.Samples[i]
		if sa.Bit != sb.Bit {
			return false
		}
		diff := sa.Interval - sb.Interval
		if sb.Interval > sa.Interval {
			diff = sb.Interval - sa.Interval
		}
		if diff > tolerance {
			return false
		}
	}
	return true
}
