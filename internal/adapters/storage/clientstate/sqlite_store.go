package clientstate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"testinsure/internal/adapters/storage"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore.
// PRE: db is a valid, open database connection whose schema was set up by storage.InitDB
// POST: store is ready for use
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves the values stored for the given keys.
// PRE: clientID is non-empty
// POST: returns only the keys that exist
func (s *SQLiteStore) Get(ctx context.Context, clientID string, keys ...string) (map[string]string, error) {
	if clientID == "" {
		return nil, ErrEmptyClientID
	}
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(keys)+1)
	args = append(args, clientID)
	for _, k := range keys {
		args = append(args, k)
	}
	query := `SELECT key, value FROM client_state WHERE client_id = ? AND key IN (` + placeholders(len(keys)) + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query client state: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan client state: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SetMany upserts all values in one transaction.
// PRE: clientID is non-empty
// POST: either every value is persisted or none is
func (s *SQLiteStore) SetMany(ctx context.Context, clientID string, values map[string]string) error {
	if clientID == "" {
		return ErrEmptyClientID
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin client state tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for k, v := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO client_state (client_id, key, value, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(client_id, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
			clientID, k, v, now,
		); err != nil {
			return fmt.Errorf("write client state %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit client state: %w", err)
	}
	return nil
}

// Delete removes the given keys for a client.
// PRE: clientID is non-empty
// POST: keys are absent; deleting absent keys succeeds
func (s *SQLiteStore) Delete(ctx context.Context, clientID string, keys ...string) error {
	if clientID == "" {
		return ErrEmptyClientID
	}
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, 0, len(keys)+1)
	args = append(args, clientID)
	for _, k := range keys {
		args = append(args, k)
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM client_state WHERE client_id = ? AND key IN (`+placeholders(len(keys))+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete client state: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
