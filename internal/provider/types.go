package provider

import "encoding/json"

// Role identifies the sender of a history message.
type Role string

// Role values accepted in seed history.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultMaxTokens bounds the output of a single round-trip when an adapter
// is not configured otherwise.
const DefaultMaxTokens = 4096

// Message is one entry of the caller-supplied conversation history.
// Order is significant and is preserved exactly when sent to the provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolSchema is the model-facing description of a callable tool.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolCall is a single tool invocation requested by the model.
// ID is empty for providers that do not key results by call id (Google).
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`

	// RawArguments is the argument text exactly as the model sent it, set
	// when the adapter had to normalize it into Arguments. Only the trace
	// uses it; dispatch and the wire always use Arguments.
	RawArguments string `json:"-"`
}

// ArgumentText returns the arguments as the model sent them.
func (c ToolCall) ArgumentText() string {
	if c.RawArguments != "" {
		return c.RawArguments
	}
	return string(c.Arguments)
}

// ToolResult pairs a requested call with the string observation fed back
// to the model.
type ToolResult struct {
	Call    ToolCall
	Content string
}

// Usage reports token consumption for one round-trip.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Step is the normalized outcome of one provider round-trip.
type Step struct {
	// Text is the natural-language content of the turn, if any.
	Text string

	// ToolCalls lists requested invocations in provider order.
	ToolCalls []ToolCall

	// Done is set when the turn is final under the provider's own stop
	// semantics. A Done step's ToolCalls must not be executed.
	Done bool

	Usage Usage
}

// Request carries everything an adapter needs to open a session.
type Request struct {
	APIKey       string
	Model        string
	SystemPrompt string
	History      []Message
	Tools        []ToolSchema
}
