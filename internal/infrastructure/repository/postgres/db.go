package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaLockID = int64(2025040101)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the chunks and thread_sessions tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/bot/indexer startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	ordinal INTEGER NOT NULL,
	source TEXT NOT NULL,
	text TEXT NOT NULL,
	domains JSONB NOT NULL DEFAULT '[]'::jsonb,
	embedding JSONB,
	terms JSONB NOT NULL DEFAULT '{}'::jsonb,
	length INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
CREATE INDEX IF NOT EXISTS idx_chunks_domains ON chunks USING GIN (domains);

CREATE TABLE IF NOT EXISTS thread_sessions (
	session_key TEXT PRIMARY KEY,
	thread_key TEXT NOT NULL,
	domain TEXT NOT NULL DEFAULT '',
	original_question TEXT NOT NULL,
	turns JSONB NOT NULL DEFAULT '[]'::jsonb,
	pending_questions JSONB NOT NULL DEFAULT '[]'::jsonb,
	round INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	resolution TEXT NOT NULL DEFAULT '',
	resolved_question TEXT NOT NULL DEFAULT '',
	best_effort BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	last_activity_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_thread_sessions_thread ON thread_sessions(thread_key, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_thread_sessions_idle ON thread_sessions(status, last_activity_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
