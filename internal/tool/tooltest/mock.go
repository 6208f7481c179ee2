// Package tooltest provides test helpers and mocks for the tool package.
package tooltest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/flemzord/crew/internal/tool"
)

// MockTool is a configurable mock implementation of tool.Tool.
type MockTool struct {
	NameFunc        func() string
	DescriptionFunc func() string
	SchemaFunc      func() json.RawMessage
	ExecuteFunc     func(ctx context.Context, args json.RawMessage) (string, error)

	mu    sync.Mutex
	Calls []json.RawMessage
}

// Name implements tool.Tool.
func (m *MockTool) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock-tool"
}

// Description implements tool.Tool.
func (m *MockTool) Description() string {
	if m.DescriptionFunc != nil {
		return m.DescriptionFunc()
	}
	return "a mock tool"
}

// Schema implements tool.Tool.
func (m *MockTool) Schema() json.RawMessage {
	if m.SchemaFunc != nil {
		return m.SchemaFunc()
	}
	return json.RawMessage(`{"type":"object"}`)
}

// Execute implements tool.Tool.
func (m *MockTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, args)
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, args)
	}
	return "ok", nil
}

// ExecuteCalls returns the number of times Execute was invoked.
func (m *MockTool) ExecuteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// SimpleTool creates a tool named name that answers "executed: <name>".
func SimpleTool(name string) *MockTool {
	return &MockTool{
		NameFunc:        func() string { return name },
		DescriptionFunc: func() string { return "simple test tool: " + name },
		ExecuteFunc: func(context.Context, json.RawMessage) (string, error) {
			return "executed: " + name, nil
		},
	}
}

// Factory returns a tool.Factory that always yields t.
func Factory(t tool.Tool) tool.Factory {
	return func(tool.Runtime) tool.Tool { return t }
}

var _ tool.Tool = (*MockTool)(nil)
