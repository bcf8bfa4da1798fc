package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"
)

// SQLDB is what the client-state stores need from a database handle.
// *sql.DB and *TimedDB both satisfy it.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var (
	_ SQLDB = (*sql.DB)(nil)
	_ SQLDB = (*TimedDB)(nil)
)

// QueryObserver receives the duration of every statement, labelled by kind
// ("select", "insert", "delete", "begin", ...).
type QueryObserver interface {
	ObserveQuery(kind string, d time.Duration)
}

// DefaultSlowQuery is the threshold above which a statement is logged at warn.
const DefaultSlowQuery = 50 * time.Millisecond

// TimedDB times the statements the client-state store issues. Slow ones are
// logged; all of them are reported to the observer.
type TimedDB struct {
	db       *sql.DB
	observer QueryObserver
	slow     time.Duration
}

// NewTimedDB wraps db.
// PRE: observer may be nil; slow <= 0 selects DefaultSlowQuery
func NewTimedDB(db *sql.DB, observer QueryObserver, slow time.Duration) *TimedDB {
	if slow <= 0 {
		slow = DefaultSlowQuery
	}
	return &TimedDB{db: db, observer: observer, slow: slow}
}

// statementKind is the lower-cased leading keyword of query.
func statementKind(query string) string {
	words := strings.Fields(query)
	if len(words) == 0 {
		return "unknown"
	}
	return strings.ToLower(words[0])
}

// since reports one statement; err is logged alongside slow statements only.
func (t *TimedDB) since(kind string, start time.Time, err error) {
	d := time.Since(start)
	if d >= t.slow {
		attrs := []any{"kind", kind, "duration_ms", float64(d.Microseconds()) / 1000}
		if err != nil {
			attrs = append(attrs, "error", err.Error())
		}
		slog.Warn("slow_state_query", attrs...)
	}
	if t.observer != nil {
		t.observer.ObserveQuery(kind, d)
	}
}

func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := t.db.ExecContext(ctx, query, args...)
	t.since(statementKind(query), start, err)
	return res, err
}

func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.since(statementKind(query), start, err)
	return rows, err
}

// BeginTx times only the BEGIN; statements inside the transaction go straight
// to the driver.
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.since("begin", start, err)
	return tx, err
}

// Ping is the readiness check for the sqlite backend.
func (t *TimedDB) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

func (t *TimedDB) Close() error {
	return t.db.Close()
}
