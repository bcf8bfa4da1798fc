package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStateDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, InitDB(db))
	return db
}

func putRow(t *testing.T, db *sql.DB, client, key, updated string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO client_state (client_id, key, value, updated_at) VALUES (?, ?, 'v', ?)`, client, key, updated)
	require.NoError(t, err)
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM client_state`).Scan(&n))
	return n
}

func TestInitDB_RunsOnEveryStart(t *testing.T) {
	db := newStateDB(t)
	putRow(t, db, "c1", "theme", "2026-01-01T00:00:00Z")

	require.NoError(t, InitDB(db))
	assert.Equal(t, 1, countRows(t, db), "re-running the schema must keep existing rows")
}

func TestInitDB_OneRowPerClientKey(t *testing.T) {
	db := newStateDB(t)
	putRow(t, db, "c1", "token", "2026-01-01T00:00:00Z")
	putRow(t, db, "c2", "token", "2026-01-01T00:00:00Z")

	_, err := db.Exec(`INSERT INTO client_state (client_id, key, value, updated_at) VALUES ('c1', 'token', 'again', 'x')`)
	assert.Error(t, err)
}

func TestPurgeIdle(t *testing.T) {
	db := newStateDB(t)
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	putRow(t, db, "stale", "token", "2026-02-01T00:00:00Z")
	putRow(t, db, "stale", "theme", "2026-02-28T23:59:59Z")
	putRow(t, db, "fresh", "token", "2026-03-30T08:00:00Z")

	n, err := PurgeIdle(context.Background(), db, now, 30*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	var client string
	require.NoError(t, db.QueryRow(`SELECT client_id FROM client_state`).Scan(&client))
	assert.Equal(t, "fresh", client)
}

func TestPurgeIdle_ZeroTTLKeepsEverything(t *testing.T) {
	db := newStateDB(t)
	putRow(t, db, "c1", "token", "2000-01-01T00:00:00Z")

	n, err := PurgeIdle(context.Background(), db, time.Now(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, countRows(t, db))
}
