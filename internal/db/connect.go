package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:playcode.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/playcode?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS jigs (
  id TEXT PRIMARY KEY,
  author_id TEXT NOT NULL,
  module_ids_json TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS codes (
  id TEXT PRIMARY KEY,
  idx INTEGER NOT NULL,
  jig_id TEXT NOT NULL,
  display_name TEXT,
  settings_json TEXT NOT NULL,
  created_by TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  expires_at INTEGER NOT NULL,
  status TEXT NOT NULL
);

-- Only one active code may hold a given index; expired rows keep the value
-- for history while freeing it for reuse.
CREATE UNIQUE INDEX IF NOT EXISTS codes_active_idx ON codes(idx) WHERE status='active';
CREATE INDEX IF NOT EXISTS codes_by_author ON codes(created_by, created_at);

CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  code_id TEXT NOT NULL,
  code_idx INTEGER NOT NULL,
  jig_id TEXT NOT NULL,
  players_name TEXT,
  started_at INTEGER NOT NULL,
  finished_at INTEGER NOT NULL,
  summary_json TEXT NOT NULL,
  score_available REAL NOT NULL,
  score_earned REAL NOT NULL,
  nonce TEXT NOT NULL,
  UNIQUE(code_idx, nonce)
);

CREATE INDEX IF NOT EXISTS sessions_by_code ON sessions(code_id, started_at);

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  typ TEXT NOT NULL,                        -- e.g. SessionCompleted
  key TEXT NOT NULL,                        -- natural key: session id
  data TEXT NOT NULL,                       -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS jigs (
  id TEXT PRIMARY KEY,
  author_id TEXT NOT NULL,
  module_ids_json TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS codes (
  id TEXT PRIMARY KEY,
  idx INTEGER NOT NULL,
  jig_id TEXT NOT NULL,
  display_name TEXT,
  settings_json TEXT NOT NULL,
  created_by TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  expires_at BIGINT NOT NULL,
  status TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS codes_active_idx ON codes(idx) WHERE status='active';
CREATE INDEX IF NOT EXISTS codes_by_author ON codes(created_by, created_at);

CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  code_id TEXT NOT NULL,
  code_idx INTEGER NOT NULL,
  jig_id TEXT NOT NULL,
  players_name TEXT,
  started_at BIGINT NOT NULL,
  finished_at BIGINT NOT NULL,
  summary_json TEXT NOT NULL,
  score_available DOUBLE PRECISION NOT NULL,
  score_earned DOUBLE PRECISION NOT NULL,
  nonce TEXT NOT NULL,
  UNIQUE(code_idx, nonce)
);

CREATE INDEX IF NOT EXISTS sessions_by_code ON sessions(code_id, started_at);

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
