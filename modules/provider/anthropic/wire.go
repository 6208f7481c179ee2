package anthropic

import (
	"encoding/json"

	"github.com/flemzord/crew/internal/provider"
)

// Content block types.
const (
	blockText       = "text"
	blockToolUse    = "tool_use"
	blockToolResult = "tool_result"
)

// stopEndTurn is the stop_reason that ends the loop regardless of content.
const stopEndTurn = "end_turn"

type messagesRequest struct {
	Model     string     `json:"model"`
	MaxTokens int        `json:"max_tokens"`
	System    string     `json:"system,omitempty"`
	Messages  []message  `json:"messages"`
	Tools     []toolSpec `json:"tools,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type toolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

var emptySchema = json.RawMessage(`{"type":"object","properties":{}}`)

// toTools converts tool schemas into Anthropic's flat input_schema shape.
func toTools(schemas []provider.ToolSchema) []toolSpec {
	if len(schemas) == 0 {
		return nil
	}
	out := make([]toolSpec, len(schemas))
	for i, s := range schemas {
		schema := s.Parameters
		if len(schema) == 0 {
			schema = emptySchema
		}
		out[i] = toolSpec{Name: s.Name, Description: s.Description, InputSchema: schema}
	}
	return out
}
