// Package memory defines the per-agent memory log the memory tools read and
// append to, and the run store that persists loop results, with in-memory
// implementations.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/flemzord/crew/internal/agent"
)

// ErrRunNotFound indicates the requested run does not exist.
var ErrRunNotFound = errors.New("memory: run not found")

// Entry is one line of an agent's memory log.
type Entry struct {
	Owner     string    `json:"owner"`
	Agent     string    `json:"agent"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is an append-only, per-agent memory. Entries are scoped by owner and
// agent name. Implementations must be safe for concurrent use.
type Log interface {
	// Append adds an entry to the agent's log.
	Append(ctx context.Context, owner, agent, content string) error

	// Tail returns up to n of the most recent entries, oldest first.
	Tail(ctx context.Context, owner, agent string, n int) ([]Entry, error)

	// Search returns up to topK entries matching query, most relevant first.
	Search(ctx context.Context, owner, agent, query string, topK int) ([]Entry, error)
}

// Mode names how a run was started.
type Mode string

// Mode values.
const (
	ModeChat      Mode = "chat"
	ModeTask      Mode = "task"
	ModeHeartbeat Mode = "heartbeat"
	ModeDelegate  Mode = "delegate"
)

// Run is the persisted record of one loop invocation.
type Run struct {
	ID         string                 `json:"id"`
	Owner      string                 `json:"owner"`
	Agent      string                 `json:"agent"`
	Mode       Mode                   `json:"mode"`
	Model      string                 `json:"model"`
	Text       string                 `json:"text"`
	ToolCalls  []agent.ToolCallRecord `json:"toolCalls"`
	Err        string                 `json:"error,omitempty"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
}

// Failed reports whether the run ended with an error.
func (r Run) Failed() bool { return r.Err != "" }

// RunStore persists run records. Implementations must be safe for
// concurrent use.
type RunStore interface {
	// Save inserts or replaces a run by ID.
	Save(ctx context.Context, run Run) error

	// Get returns the run with the given ID or ErrRunNotFound.
	Get(ctx context.Context, id string) (Run, error)

	// List returns up to limit runs for an owner's agent, newest first.
	// An empty agent lists every agent of the owner.
	List(ctx context.Context, owner, agent string, limit int) ([]Run, error)
}
