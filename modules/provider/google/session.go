package google

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flemzord/crew/internal/provider"
)

type session struct {
	p        *Provider
	key      string
	model    string
	system   *content
	tools    []toolDecl
	contents []content
}

// Step issues one generateContent call. A candidate without functionCall
// parts is final.
func (s *session) Step(ctx context.Context) (provider.Step, error) {
	req := generateRequest{
		Contents:          s.contents,
		SystemInstruction: s.system,
		Tools:             s.tools,
		GenerationConfig:  &generationConfig{MaxOutputTokens: s.p.config.MaxTokens},
	}

	var resp generateResponse
	if err := provider.PostJSON(ctx, s.p.client, provider.KindGoogle, s.p.endpoint(s.model, s.key), nil, req, &resp); err != nil {
		return provider.Step{}, err
	}
	if len(resp.Candidates) == 0 {
		reason := "no candidates"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + resp.PromptFeedback.BlockReason
		}
		return provider.Step{}, fmt.Errorf("google: %w: %s", provider.ErrMalformedResponse, reason)
	}

	cand := resp.Candidates[0].Content
	var (
		text  []string
		calls []provider.ToolCall
	)
	for _, pt := range cand.Parts {
		if pt.FunctionCall != nil {
			args := pt.FunctionCall.Args
			if len(args) == 0 || string(args) == "null" {
				args = json.RawMessage(`{}`)
			}
			calls = append(calls, provider.ToolCall{Name: pt.FunctionCall.Name, Arguments: args})
			continue
		}
		if pt.Text != "" {
			text = append(text, pt.Text)
		}
	}

	step := provider.Step{
		Text: strings.Join(text, ""),
		Usage: provider.Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		},
	}
	if len(calls) == 0 {
		step.Done = true
		return step, nil
	}

	step.ToolCalls = calls
	s.contents = append(s.contents, content{Role: roleModel, Parts: cand.Parts})
	return step, nil
}

// Feed appends one user-role entry holding a functionResponse part per
// result, in call order.
func (s *session) Feed(results []provider.ToolResult) {
	if len(results) == 0 {
		return
	}
	parts := make([]part, len(results))
	for i, r := range results {
		parts[i] = part{FunctionResponse: &functionResponse{
			Name:     r.Call.Name,
			Response: responsePayload{Result: r.Content},
		}}
	}
	s.contents = append(s.contents, content{Role: roleUser, Parts: parts})
}
