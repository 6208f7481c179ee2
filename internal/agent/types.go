// Package agent implements the tool-use loop: it drives one provider
// session through request, tool execution and feedback until the model
// answers in plain text or the iteration cap is reached.
package agent

import (
	"github.com/flemzord/crew/internal/provider"
	"github.com/flemzord/crew/internal/tool"
)

// StopReason describes why the loop terminated.
type StopReason string

// StopReason constants.
const (
	StopReasonComplete      StopReason = "complete"
	StopReasonMaxIterations StopReason = "max_iterations"
)

// ToolCallRecord is one entry of the append-only tool trace.
type ToolCallRecord struct {
	Tool   string `json:"tool"`
	Args   string `json:"args,omitempty"`
	Result string `json:"result,omitempty"`
}

// Request is the input to one loop invocation. APIKey, Model and the
// derived provider are treated as already resolved.
type Request struct {
	APIKey       string
	Model        string
	SystemPrompt string
	History      []provider.Message
	Tools        []tool.Tool
}

// Result is the terminal value of one loop invocation.
type Result struct {
	Text       string           `json:"text"`
	ToolCalls  []ToolCallRecord `json:"toolCalls"`
	Iterations int              `json:"iterations"`
	Usage      provider.Usage   `json:"usage"`
	StopReason StopReason       `json:"stop_reason"`
}

// EventType identifies the kind of loop event.
type EventType string

// EventType constants.
const (
	EventRoundTrip EventType = "round_trip"
	EventToolStart EventType = "tool_start"
	EventToolEnd   EventType = "tool_end"
	EventDone      EventType = "done"
)

// Event is emitted to an Observer as the loop progresses.
type Event struct {
	Type      EventType       `json:"type"`
	Iteration int             `json:"iteration"`
	Text      string          `json:"text,omitempty"`
	Tool      *ToolCallRecord `json:"tool,omitempty"`
	Result    *Result         `json:"result,omitempty"`
}

// Observer receives loop events synchronously, in order. It must not block
// for long: the loop waits for it.
type Observer func(Event)

func (o Observer) emit(e Event) {
	if o != nil {
		o(e)
	}
}
