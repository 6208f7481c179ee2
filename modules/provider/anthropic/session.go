package anthropic

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/flemzord/crew/internal/provider"
)

// session holds the running Messages API transcript.
type session struct {
	p        *Provider
	key      string
	model    string
	system   string
	tools    []toolSpec
	messages []message
}

// Step issues one Messages request. stop_reason "end_turn" is final even
// when tool_use blocks are present; otherwise the absence of tool_use
// blocks is final.
func (s *session) Step(ctx context.Context) (provider.Step, error) {
	req := messagesRequest{
		Model:     s.model,
		MaxTokens: s.p.config.MaxTokens,
		System:    s.system,
		Messages:  s.messages,
		Tools:     s.tools,
	}

	var resp messagesResponse
	if err := provider.PostJSON(ctx, s.p.client, provider.KindAnthropic, s.p.endpoint(), authHeader(s.key), req, &resp); err != nil {
		return provider.Step{}, err
	}

	var (
		text  []string
		calls []provider.ToolCall
	)
	for _, b := range resp.Content {
		switch b.Type {
		case blockText:
			text = append(text, b.Text)
		case blockToolUse:
			args := b.Input
			if len(args) == 0 || string(args) == "null" {
				args = json.RawMessage(`{}`)
			}
			calls = append(calls, provider.ToolCall{ID: b.ID, Name: b.Name, Arguments: args})
		}
	}

	step := provider.Step{
		Text: strings.Join(text, "\n"),
		Usage: provider.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	if resp.StopReason == stopEndTurn || len(calls) == 0 {
		step.Done = true
		return step, nil
	}

	step.ToolCalls = calls
	s.messages = append(s.messages, message{Role: "assistant", Content: resp.Content})
	return step, nil
}

// Feed appends a single user message carrying one tool_result block per
// result.
func (s *session) Feed(results []provider.ToolResult) {
	if len(results) == 0 {
		return
	}
	blocks := make([]contentBlock, len(results))
	for i, r := range results {
		blocks[i] = contentBlock{
			Type:      blockToolResult,
			ToolUseID: r.Call.ID,
			Content:   r.Content,
		}
	}
	s.messages = append(s.messages, message{Role: "user", Content: blocks})
}
