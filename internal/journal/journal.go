// Package journal records the outcome of every sync attempt in an embedded
// SQLite database, so "history" can show what happened and when.
//
// The database runs in WAL mode so the watcher and a foreground command can
// write concurrently.
//
//	j, err := journal.Open("~/.config/sshmenuc/sync.db")
//	if err != nil {
//	    return err
//	}
//	defer j.Close()
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Operations recorded in the journal.
const (
	OpStartupPull  = "startup_pull"
	OpPostSavePush = "post_save_push"
	OpPublish      = "publish"
	OpExport       = "export"
)

// Entry is one journal row.
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	Profile   string    `json:"profile" yaml:"profile"`
	Operation string    `json:"operation" yaml:"operation"`
	State     string    `json:"state" yaml:"state"`
	Status    string    `json:"status,omitempty" yaml:"status,omitempty"`
	Hash      string    `json:"hash,omitempty" yaml:"hash,omitempty"`
	Detail    string    `json:"detail,omitempty" yaml:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Profile string
	Since   time.Time
	Limit   int
}

// Journal is an append-only sync history.
type Journal struct {
	conn *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS sync_events (
	id TEXT PRIMARY KEY,
	profile TEXT NOT NULL,
	operation TEXT NOT NULL,
	state TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT '',
	hash TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '',
	ts TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_events_profile_ts ON sync_events(profile, ts);
CREATE INDEX IF NOT EXISTS idx_sync_events_ts ON sync_events(ts);
`

// tsLayout sorts lexically in time order, unlike RFC3339Nano which trims
// trailing zeros.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open opens or creates the journal at path and ensures its schema.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}
	conn.SetMaxOpenConns(4)
	conn.SetConnMaxLifetime(5 * time.Minute)

	j := &Journal{conn: conn, path: path}
	if _, err := conn.Exec(schema); err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return j, nil
}

// Path returns the database file location.
func (j *Journal) Path() string {
	return j.path
}

// Close checkpoints the WAL and closes the database.
func (j *Journal) Close() error {
	if j.conn == nil {
		return nil
	}
	_, _ = j.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err := j.conn.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	j.conn = nil
	return nil
}

// Record appends e. A missing ID or timestamp is filled in; the stored
// entry is returned.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.Timestamp = e.Timestamp.UTC()

	_, err := j.conn.ExecContext(ctx, `
	INSERT INTO sync_events (id, profile, operation, state, status, hash, detail, ts)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Profile, e.Operation, e.State, e.Status, e.Hash, e.Detail,
		e.Timestamp.Format(tsLayout),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record %s for %s: %w", e.Operation, e.Profile, err)
	}
	return e, nil
}

// List returns matching entries, newest first.
func (j *Journal) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Profile != "" {
		where = append(where, "profile = ?")
		args = append(args, f.Profile)
	}
	if !f.Since.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, f.Since.UTC().Format(tsLayout))
	}

	query := `SELECT id, profile, operation, state, status, hash, detail, ts FROM sync_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ts string
		)
		if err := rows.Scan(&e.ID, &e.Profile, &e.Operation, &e.State, &e.Status, &e.Hash, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		if e.Timestamp, err = time.Parse(tsLayout, ts); err != nil {
			return nil, fmt.Errorf("journal entry %s has bad timestamp %q: %w", e.ID, ts, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than before and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := j.conn.ExecContext(ctx, `DELETE FROM sync_events WHERE ts < ?`, before.UTC().Format(tsLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	return res.RowsAffected()
}
