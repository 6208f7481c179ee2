package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS memory_entries (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		owner      TEXT NOT NULL,
		agent      TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_memory_agent ON memory_entries(owner, agent, id)`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS memory_fts USING fts5(
		content,
		content=memory_entries,
		content_rowid=id
	)`,

	`CREATE TRIGGER IF NOT EXISTS memory_ai AFTER INSERT ON memory_entries BEGIN
		INSERT INTO memory_fts(rowid, content) VALUES (new.id, new.content);
	END`,

	`CREATE TRIGGER IF NOT EXISTS memory_ad AFTER DELETE ON memory_entries BEGIN
		INSERT INTO memory_fts(memory_fts, rowid, content) VALUES ('delete', old.id, old.content);
	END`,

	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		owner       TEXT NOT NULL,
		agent       TEXT NOT NULL,
		mode        TEXT NOT NULL,
		model       TEXT NOT NULL DEFAULT '',
		text        TEXT NOT NULL DEFAULT '',
		tool_calls  TEXT NOT NULL DEFAULT '[]',
		error       TEXT NOT NULL DEFAULT '',
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_owner ON runs(owner, agent, started_at)`,
}

// migrate creates or updates the database schema to the latest version.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}
	return nil
}
