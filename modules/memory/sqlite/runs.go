package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/crew/internal/memory"
)

// runStore implements memory.RunStore. The tool trace is stored as JSON.
type runStore struct {
	db *sql.DB
}

const runColumns = "id, owner, agent, mode, model, text, tool_calls, error, started_at, finished_at"

// timeLayout is RFC 3339 with a fixed nine-digit fraction, so stored UTC
// timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (s *runStore) Save(ctx context.Context, run memory.Run) error {
	calls, err := json.Marshal(run.ToolCalls)
	if err != nil {
		return fmt.Errorf("sqlite: marshal tool_calls: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO runs ("+runColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.Owner, run.Agent, string(run.Mode), run.Model, run.Text,
		string(calls), run.Err,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save run: %w", err)
	}
	return nil
}

func (s *runStore) Get(ctx context.Context, id string) (memory.Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return memory.Run{}, memory.ErrRunNotFound
	}
	return run, err
}

func (s *runStore) List(ctx context.Context, owner, agent string, limit int) ([]memory.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE owner = ? AND (? = '' OR agent = ? COLLATE NOCASE)
		ORDER BY started_at DESC
		LIMIT ?`,
		owner, agent, agent, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []memory.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list runs rows: %w", err)
	}
	return runs, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (memory.Run, error) {
	var (
		run               memory.Run
		mode, calls       string
		started, finished string
	)
	err := s.Scan(&run.ID, &run.Owner, &run.Agent, &mode, &run.Model, &run.Text,
		&calls, &run.Err, &started, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("sqlite: scan run: %w", err)
	}
	run.Mode = memory.Mode(mode)

	if err := json.Unmarshal([]byte(calls), &run.ToolCalls); err != nil {
		return run, fmt.Errorf("sqlite: unmarshal tool_calls: %w", err)
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return run, fmt.Errorf("sqlite: parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return run, fmt.Errorf("sqlite: parse finished_at: %w", err)
	}
	return run, nil
}
