package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flemzord/crew/internal/security"
)

// Registry maps tool names to factories, skill-pack names to tool-name sets,
// and holds the static tools that are always available for execution.
// It is instance-based (not global) for better testability and safe for
// concurrent use.
type Registry struct {
	mu          sync.RWMutex
	factories   map[string]Factory
	static      map[string]Tool
	skills      map[string][]string
	auditLogger *security.AuditLogger
	logger      *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		static:    make(map[string]Tool),
		skills:    make(map[string][]string),
		logger:    slog.New(slog.DiscardHandler),
	}
}

// SetAuditLogger configures audit logging for tool executions.
func (r *Registry) SetAuditLogger(logger *security.AuditLogger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auditLogger = logger
}

// SetLogger configures the logger used for resolution diagnostics.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds a runtime-bound tool factory under name.
func (r *Registry) Register(name string, f Factory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyToolName
	}
	if f == nil {
		return fmt.Errorf("%w: %s", ErrNilFactory, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exists(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.factories[name] = f
	return nil
}

// RegisterStatic adds a tool that needs no runtime binding. Static tools can
// be executed even when the model calls them without them being resolved.
func (r *Registry) RegisterStatic(t Tool) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return ErrEmptyToolName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exists(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.static[name] = t
	return nil
}

// DefineSkill sets the tool names a skill pack expands to, replacing any
// previous definition of the same pack.
func (r *Registry) DefineSkill(name string, tools []string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(tools) == 0 {
		return ErrEmptySkill
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[name] = slices.Clone(tools)
	return nil
}

// Skills returns a copy of the skill-pack definitions.
func (r *Registry) Skills() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.skills))
	for k, v := range r.skills {
		out[k] = slices.Clone(v)
	}
	return out
}

// Static returns the always-available tools sorted by name.
func (r *Registry) Static() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.static))
	for _, t := range r.static {
		tools = append(tools, t)
	}
	slices.SortFunc(tools, func(a, b Tool) int { return strings.Compare(a.Name(), b.Name()) })
	return tools
}

// Names returns all registered tool names (bound and static) sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories)+len(r.static))
	for name := range r.factories {
		names = append(names, name)
	}
	for name := range r.static {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) exists(name string) bool {
	_, bound := r.factories[name]
	_, static := r.static[name]
	return bound || static
}

// Resolve expands skill packs and binds every named tool to rt. Each tool
// appears at most once. Unknown names are dropped: a mistyped or
// unavailable tool never fails the whole invocation.
func (r *Registry) Resolve(names []string, rt Runtime) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var tools []Tool

	add := func(name string) {
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}

		if f, ok := r.factories[name]; ok {
			if t := f(rt); t != nil {
				tools = append(tools, t)
			}
			return
		}
		if t, ok := r.static[name]; ok {
			tools = append(tools, t)
			return
		}
		r.logger.Debug("dropping unknown tool", "tool", name, "agent", rt.Agent)
	}

	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if pack, ok := r.skills[name]; ok {
			for _, n := range pack {
				add(n)
			}
			continue
		}
		add(name)
	}
	return tools
}

// Execute runs the tool called name, looking first in tools and then in the
// static set. Every outcome is returned as a string observation:
// an unknown name yields `Error: Unknown tool "<name>"`, and an executor
// error or panic yields `Error executing <name>: <message>`.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage, tools []Tool) string {
	t := r.lookup(name, tools)
	if t == nil {
		return fmt.Sprintf("Error: Unknown tool %q", name)
	}

	r.mu.RLock()
	al := r.auditLogger
	r.mu.RUnlock()

	if al != nil {
		al.Log(security.AuditEvent{
			Type:     security.EventToolCall,
			ToolName: name,
			Detail:   truncateForAudit(string(args)),
		})
	}

	result, failed := run(ctx, t, args)

	if al != nil {
		al.Log(security.AuditEvent{
			Type:     security.EventToolResult,
			ToolName: name,
			Detail:   truncateForAudit(result),
			Metadata: map[string]string{
				"is_error": fmt.Sprintf("%v", failed),
			},
		})
	}
	return result
}

func (r *Registry) lookup(name string, tools []Tool) Tool {
	for _, t := range tools {
		if t != nil && t.Name() == name {
			return t
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.static[name]
}

// run executes t, converting errors and panics into observation strings.
func run(ctx context.Context, t Tool, args json.RawMessage) (result string, failed bool) {
	name := t.Name()
	defer func() {
		if p := recover(); p != nil {
			result = fmt.Sprintf("Error executing %s: panic: %v", name, p)
			failed = true
		}
	}()

	out, err := t.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error executing %s: %s", name, err.Error()), true
	}
	return out, false
}

// maxAuditDetailLen is the maximum length of audit detail strings.
const maxAuditDetailLen = 4096

// truncateForAudit truncates a string to maxAuditDetailLen on a rune
// boundary, appending a truncation indicator if the string was shortened.
func truncateForAudit(s string) string {
	if len(s) <= maxAuditDetailLen {
		return s
	}
	i := maxAuditDetailLen
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "...(truncated)"
}
