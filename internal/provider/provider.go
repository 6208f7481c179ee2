// Package provider defines the normalized model-provider contract used by the
// agent loop: a provider Kind derived from the model name, the Adapter/Session
// pair every wire-protocol implementation satisfies, and the Error returned on
// non-success HTTP responses.
package provider

import (
	"context"
	"fmt"
	"strings"
)

// Kind identifies one of the supported model backends.
type Kind string

// Kind values for the supported providers.
const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindGoogle    Kind = "google"
)

// KindForModel derives the provider from a model name by prefix:
// "claude*" is Anthropic, "gemini*" is Google, anything else is OpenAI.
// It is the only place a provider is inferred from a model string.
func KindForModel(model string) Kind {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "claude"):
		return KindAnthropic
	case strings.HasPrefix(m, "gemini"):
		return KindGoogle
	default:
		return KindOpenAI
	}
}

// Adapter translates the normalized conversation into one provider's wire
// protocol. Implementations are stateless and safe for concurrent use; all
// per-invocation state lives in the Session returned by Open.
type Adapter interface {
	// Kind reports which provider this adapter speaks to.
	Kind() Kind

	// Open starts a provider-native transcript seeded with the request's
	// system prompt, history, and tool schemas.
	Open(req Request) Session
}

// Session holds the provider-native transcript of a single loop invocation.
// A Session is owned by one goroutine and is not safe for concurrent use.
type Session interface {
	// Step performs exactly one provider round-trip. When the returned step
	// requests tools, the model's tool-request turn has already been appended
	// to the transcript.
	Step(ctx context.Context) (Step, error)

	// Feed appends the results of the tools requested by the previous step,
	// in the order the provider listed them.
	Feed(results []ToolResult)
}

// Set maps each provider kind to its adapter.
type Set map[Kind]Adapter

// ForModel returns the adapter responsible for the given model name.
func (s Set) ForModel(model string) (Adapter, error) {
	kind := KindForModel(model)
	a, ok := s[kind]
	if !ok || a == nil {
		return nil, fmt.Errorf("%w: %s (model %q)", ErrNoAdapter, kind, model)
	}
	return a, nil
}
