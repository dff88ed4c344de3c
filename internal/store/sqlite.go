// Package store provides SQLite-backed persistence for the GymGate engine.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Querier is the minimal query surface shared by *sql.DB and *sql.Tx,
// so repo methods can run standalone or inside a caller-owned
// transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner is a Querier that can also open transactions. *sql.DB
// satisfies it.
type TxBeginner interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// schemaV1 defines the initial database schema.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL CHECK (kind IN ('earn', 'spend')),
	minutes    REAL NOT NULL CHECK (minutes > 0),
	source     TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_kind ON ledger_entries(kind);
CREATE INDEX IF NOT EXISTS idx_ledger_created ON ledger_entries(created_at);

CREATE TABLE IF NOT EXISTS schedules (
	schedule_id TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	active      INTEGER NOT NULL DEFAULT 1,
	days        TEXT NOT NULL DEFAULT '[]',
	start_time  TEXT NOT NULL,
	end_time    TEXT NOT NULL,
	apps        TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS daily_limits (
	app_id        TEXT PRIMARY KEY,
	limit_minutes REAL NOT NULL DEFAULT 0.0,
	used_minutes  REAL NOT NULL DEFAULT 0.0,
	day_key       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS overrides (
	app_id          TEXT PRIMARY KEY,
	granted_minutes REAL NOT NULL DEFAULT 0.0,
	expires_at      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sync_watermark (
	id               INTEGER PRIMARY KEY CHECK (id = 1),
	last_batch_id    TEXT NOT NULL DEFAULT '',
	last_report_unix INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS applied_usage (
	app_id          TEXT NOT NULL,
	day_key         TEXT NOT NULL,
	applied_minutes REAL NOT NULL DEFAULT 0.0,
	PRIMARY KEY (app_id, day_key)
);
`

// NewDB opens a SQLite database at the given path with recommended pragmas
// and runs the V1 schema migration.
func NewDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Limit connections to 1 for SQLite (WAL allows concurrent reads but single writer).
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(), schemaV1)
	return err
}
