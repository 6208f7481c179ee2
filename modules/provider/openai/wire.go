package openai

import (
	"encoding/json"

	"github.com/flemzord/crew/internal/provider"
)

// --- OpenAI API request/response types (unexported, serialization only) ---

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Tools     []chatTool    `json:"tools,omitempty"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatFunctionCall `json:"function"`
}

type chatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// toTools converts tool schemas into OpenAI's nested function shape.
func toTools(schemas []provider.ToolSchema) []chatTool {
	if len(schemas) == 0 {
		return nil
	}
	out := make([]chatTool, len(schemas))
	for i, s := range schemas {
		out[i] = chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		}
	}
	return out
}

// toToolCalls converts wire tool calls into normalized calls. Arguments that
// are empty or not valid JSON are normalized so they can be re-serialized;
// the model's text is kept in RawArguments for the trace.
func toToolCalls(calls []chatToolCall) []provider.ToolCall {
	out := make([]provider.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = provider.ToolCall{
			ID:        c.ID,
			Name:      c.Function.Name,
			Arguments: rawArgs(c.Function.Arguments),
		}
		if string(out[i].Arguments) != c.Function.Arguments {
			out[i].RawArguments = c.Function.Arguments
		}
	}
	return out
}

func rawArgs(s string) json.RawMessage {
	switch {
	case s == "":
		return json.RawMessage(`{}`)
	case json.Valid([]byte(s)):
		return json.RawMessage(s)
	default:
		b, _ := json.Marshal(s)
		return b
	}
}
