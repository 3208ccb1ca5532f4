// Package index maintains a SQLite secondary index over the audit log so
// that audit-logs queries with a tail count or sinceMinutes
// window don't require scanning the whole newline-delimited file once it
// grows large. The JSON-lines file (pkg/audit) remains the durable,
// authoritative record; this index is a queryable projection of it and
// can always be rebuilt from the file.
//
// The database opens in WAL mode with a busy timeout so concurrent
// readers never block the single writer.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hearthguard/sentryfw/pkg/firewall/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id            TEXT PRIMARY KEY,
	ts            DATETIME NOT NULL,
	event         TEXT NOT NULL,
	source        TEXT NOT NULL,
	status        TEXT,
	error_code    TEXT,
	error_message TEXT,
	details       TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_entries_ts ON audit_entries(ts);
`

// Index is a SQLite-backed secondary index of audit entries.
type Index struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// applies the schema.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("audit/index: open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit/index: enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit/index: set busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit/index: create schema: %w", err)
	}

	return &Index{db: db}, nil
}

// Close closes the underlying database.
func (ix *Index) Close() error { return ix.db.Close() }

// Insert indexes one audit entry. Safe to call concurrently; SQLite
// serializes writers itself under WAL mode, matching the audit log
// file's own total-order guarantee.
func (ix *Index) Insert(ctx context.Context, e model.AuditEntry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("audit/index: marshal details: %w", err)
	}

	_, err = ix.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO audit_entries
			(id, ts, event, source, status, error_code, error_message, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp, e.Event, e.Source, e.Status, e.ErrorCode, e.ErrorMessage, string(details),
	)
	if err != nil {
		return fmt.Errorf("audit/index: insert: %w", err)
	}
	return nil
}

// Query returns up to tail most recent entries (tail <= 0 returns
// nothing), newest last, optionally restricted to the last sinceMinutes
// minutes (<=0 means no restriction). Mirrors pkg/audit.Tail's contract
// so the audit-logs handler can use either backend interchangeably.
func (ix *Index) Query(ctx context.Context, tail int, sinceMinutes int) ([]model.AuditEntry, error) {
	if tail <= 0 {
		return nil, nil
	}
	q := "SELECT id, ts, event, source, status, error_code, error_message, details FROM audit_entries"
	var args []any
	if sinceMinutes > 0 {
		q += " WHERE ts >= ?"
		args = append(args, time.Now().UTC().Add(-time.Duration(sinceMinutes)*time.Minute))
	}
	q += " ORDER BY ts DESC LIMIT ?"
	args = append(args, tail)

	rows, err := ix.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("audit/index: query: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var details string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Event, &e.Source, &e.Status, &e.ErrorCode, &e.ErrorMessage, &details); err != nil {
			return nil, fmt.Errorf("audit/index: scan: %w", err)
		}
		if details != "" {
			json.Unmarshal([]byte(details), &e.Details)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// newest-last to match pkg/audit.Tail's chronological ordering
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// DeleteOlderThan removes every entry with ts < cutoff and returns the
// number of rows deleted. Used by pkg/audit/retention's age-based prune
// phase.
func (ix *Index) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := ix.db.ExecContext(ctx, "DELETE FROM audit_entries WHERE ts < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit/index: delete older than: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the total number of indexed entries.
func (ix *Index) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("audit/index: count: %w", err)
	}
	return n, nil
}

// DeleteAllButNewest keeps only the newest keep entries by ts and
// deletes the rest, returning the number of rows deleted. Used by
// pkg/audit/retention's count-based prune phase.
func (ix *Index) DeleteAllButNewest(ctx context.Context, keep int64) (int64, error) {
	res, err := ix.db.ExecContext(ctx, `
		DELETE FROM audit_entries WHERE id NOT IN (
			SELECT id FROM audit_entries ORDER BY ts DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("audit/index: delete all but newest: %w", err)
	}
	return res.RowsAffected()
}
