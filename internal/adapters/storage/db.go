// Package storage opens the local SQLite file that backs per-browser client
// state when Redis is not configured.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const pragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

const schema = `
CREATE TABLE IF NOT EXISTS client_state (
	client_id  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (client_id, key)
);
CREATE INDEX IF NOT EXISTS idx_client_state_updated ON client_state(updated_at);
`

// Open opens and pings the database at path.
// PRE: path is a file path or MemoryPath
// POST: caller closes the returned pool
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if path == MemoryPath {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("state db unreachable: %w", err)
	}
	return db, nil
}

// InitDB creates the client_state table. Safe to run on every start.
func InitDB(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create client_state: %w", err)
	}
	return nil
}

// PurgeIdle deletes every client_state row not written since now-idle, the
// sqlite counterpart of the Redis key TTL.
// POST: returns the number of rows removed; idle <= 0 removes nothing
func PurgeIdle(ctx context.Context, db SQLDB, now time.Time, idle time.Duration) (int64, error) {
	if idle <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-idle).UTC().Format(time.RFC3339)
	res, err := db.ExecContext(ctx, `DELETE FROM client_state WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge idle client state: %w", err)
	}
	return res.RowsAffected()
}
