package openai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/flemzord/crew/internal/provider"
)

// session holds the running Chat Completions transcript.
type session struct {
	p        *Provider
	key      string
	model    string
	tools    []chatTool
	messages []chatMessage
}

// Step issues one chat completion. A message without tool_calls is final.
func (s *session) Step(ctx context.Context) (provider.Step, error) {
	req := chatRequest{
		Model:     s.model,
		Messages:  s.messages,
		Tools:     s.tools,
		MaxTokens: s.p.config.MaxTokens,
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.key)

	var resp chatResponse
	if err := provider.PostJSON(ctx, s.p.client, provider.KindOpenAI, s.p.endpoint(), header, req, &resp); err != nil {
		return provider.Step{}, err
	}
	if len(resp.Choices) == 0 {
		return provider.Step{}, fmt.Errorf("openai: %w: no choices", provider.ErrMalformedResponse)
	}

	msg := resp.Choices[0].Message
	step := provider.Step{
		Text: msg.Content,
		Usage: provider.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	if len(msg.ToolCalls) == 0 {
		step.Done = true
		return step, nil
	}

	step.ToolCalls = toToolCalls(msg.ToolCalls)
	s.messages = append(s.messages, chatMessage{
		Role:      "assistant",
		Content:   msg.Content,
		ToolCalls: msg.ToolCalls,
	})
	return step, nil
}

// Feed appends one tool-role message per result, keyed by call id.
func (s *session) Feed(results []provider.ToolResult) {
	for _, r := range results {
		s.messages = append(s.messages, chatMessage{
			Role:       "tool",
			ToolCallID: r.Call.ID,
			Content:    r.Content,
		})
	}
}
