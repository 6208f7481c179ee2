// Package tool defines the tool contract the agent loop invokes, the
// registry that resolves tool and skill-pack names into runtime-bound
// instances, and the dispatch that turns every outcome into a string the
// model can read.
package tool

import (
	"context"
	"encoding/json"
)

// Tool is a named, schema-described capability the model may request.
type Tool interface {
	// Name returns the unique identifier the model uses to call the tool.
	Name() string

	// Description returns the natural-language text shown to the model.
	Description() string

	// Schema returns a JSON Schema object describing the arguments.
	Schema() json.RawMessage

	// Execute runs the tool. A returned error is converted into an
	// observation string by Registry.Execute.
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Runtime is the invocation context a tool is bound to at resolution time.
type Runtime struct {
	// Owner is the user the agent belongs to.
	Owner string

	// Agent is the name of the agent running the loop.
	Agent string

	// Depth is the delegation depth of the running loop; zero for a
	// top-level invocation.
	Depth int
}

// Factory builds a fresh tool instance bound to rt. Returning nil means the
// tool is unavailable for that runtime and it is dropped from resolution.
type Factory func(rt Runtime) Tool

// Func is a Tool backed by a closure.
type Func struct {
	ToolName string
	Desc     string
	Params   json.RawMessage
	Fn       func(ctx context.Context, args json.RawMessage) (string, error)
}

// Name implements Tool.
func (f *Func) Name() string { return f.ToolName }

// Description implements Tool.
func (f *Func) Description() string { return f.Desc }

// Schema implements Tool. A nil schema is reported as an empty object schema.
func (f *Func) Schema() json.RawMessage {
	if len(f.Params) == 0 {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return f.Params
}

// Execute implements Tool.
func (f *Func) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	return f.Fn(ctx, args)
}

var _ Tool = (*Func)(nil)
