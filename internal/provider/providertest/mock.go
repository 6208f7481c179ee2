// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"errors"
	"sync"

	"github.com/flemzord/crew/internal/provider"
)

// ErrScriptExhausted is returned when a scripted session runs out of steps.
var ErrScriptExhausted = errors.New("providertest: no more scripted steps")

// ScriptedAdapter is a provider.Adapter whose sessions replay pre-configured
// steps in order. When Repeat is set, the last step is replayed forever.
// All methods are safe for concurrent use.
type ScriptedAdapter struct {
	KindValue provider.Kind
	Steps     []provider.Step
	Errs      []error
	Repeat    bool

	mu       sync.Mutex
	Requests []provider.Request
	Calls    int
	Fed      [][]provider.ToolResult
}

// Kind implements provider.Adapter.
func (a *ScriptedAdapter) Kind() provider.Kind {
	if a.KindValue == "" {
		return provider.KindOpenAI
	}
	return a.KindValue
}

// Open implements provider.Adapter.
func (a *ScriptedAdapter) Open(req provider.Request) provider.Session {
	a.mu.Lock()
	a.Requests = append(a.Requests, req)
	a.mu.Unlock()
	return &scriptedSession{adapter: a}
}

// StepCalls returns the number of round-trips issued across all sessions.
func (a *ScriptedAdapter) StepCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Calls
}

// FedResults returns a copy of every Feed batch received, in order.
func (a *ScriptedAdapter) FedResults() [][]provider.ToolResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([][]provider.ToolResult, len(a.Fed))
	copy(out, a.Fed)
	return out
}

type scriptedSession struct {
	adapter *ScriptedAdapter
	next    int
}

func (s *scriptedSession) Step(_ context.Context) (provider.Step, error) {
	a := s.adapter
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Calls++

	idx := s.next
	s.next++
	if idx < len(a.Errs) && a.Errs[idx] != nil {
		return provider.Step{}, a.Errs[idx]
	}
	if idx >= len(a.Steps) {
		if !a.Repeat || len(a.Steps) == 0 {
			return provider.Step{}, ErrScriptExhausted
		}
		idx = len(a.Steps) - 1
	}
	return a.Steps[idx], nil
}

func (s *scriptedSession) Feed(results []provider.ToolResult) {
	a := s.adapter
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := make([]provider.ToolResult, len(results))
	copy(cp, results)
	a.Fed = append(a.Fed, cp)
}

// Interface guards.
var (
	_ provider.Adapter = (*ScriptedAdapter)(nil)
	_ provider.Session = (*scriptedSession)(nil)
)
