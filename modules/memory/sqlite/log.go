package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/flemzord/crew/internal/memory"
)

// memoryLog implements memory.Log with FTS5-backed search. Agent names are
// stored lowercased so lookups are case-insensitive.
type memoryLog struct {
	db *sql.DB
}

func (l *memoryLog) Append(ctx context.Context, owner, agent, content string) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO memory_entries (owner, agent, content, created_at) VALUES (?, ?, ?, ?)",
		owner, strings.ToLower(agent), content, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append memory: %w", err)
	}
	return nil
}

func (l *memoryLog) Tail(ctx context.Context, owner, agent string, n int) ([]memory.Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT owner, agent, content, created_at
		FROM memory_entries
		WHERE owner = ? AND agent = ?
		ORDER BY id DESC
		LIMIT ?`,
		owner, strings.ToLower(agent), n,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: tail memory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	// Reverse to chronological order.
	slices.Reverse(entries)
	return entries, nil
}

func (l *memoryLog) Search(ctx context.Context, owner, agent, query string, topK int) ([]memory.Entry, error) {
	if strings.TrimSpace(query) == "" || topK <= 0 {
		return nil, nil
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT e.owner, e.agent, e.content, e.created_at
		FROM memory_fts
		JOIN memory_entries e ON e.id = memory_fts.rowid
		WHERE memory_fts MATCH ? AND e.owner = ? AND e.agent = ?
		ORDER BY rank
		LIMIT ?`,
		ftsPhrase(query), owner, strings.ToLower(agent), topK,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search memory: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// ftsPhrase quotes query as a single FTS5 phrase so operators and
// punctuation in model-supplied text are matched literally.
func ftsPhrase(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}

func scanEntries(rows *sql.Rows) ([]memory.Entry, error) {
	var entries []memory.Entry
	for rows.Next() {
		var (
			e       memory.Entry
			created string
		)
		if err := rows.Scan(&e.Owner, &e.Agent, &e.Content, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan memory: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse created_at %q: %w", created, err)
		}
		e.CreatedAt = t
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan memory rows: %w", err)
	}
	return entries, nil
}
