// Package builtin provides the platform's stock tools and the default
// skill packs that group them.
package builtin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flemzord/crew/internal/memory"
	"github.com/flemzord/crew/internal/security"
	"github.com/flemzord/crew/internal/tool"
)

// Tool names.
const (
	WebFetch     = "web_fetch"
	WebSearch    = "web_search"
	MemoryRead   = "memory_read"
	MemoryAppend = "memory_append"
	FileRead     = "file_read"
	FileWrite    = "file_write"
	FileList     = "file_list"
	CurrentTime  = "current_time"

	// Delegate is registered by the runner, which owns the roster; the
	// team pack only refers to it by name.
	Delegate = "delegate_to_agent"
)

// DefaultSkills returns the stock skill packs. Config may add packs or
// redefine these.
func DefaultSkills() map[string][]string {
	return map[string][]string{
		"research": {WebSearch, WebFetch},
		"memory":   {MemoryRead, MemoryAppend},
		"files":    {FileRead, FileWrite, FileList},
		"team":     {Delegate},
	}
}

// WorkspaceFunc returns the directory an agent's file tools are confined to.
type WorkspaceFunc func(owner, agent string) (string, error)

// Deps are the collaborators the builtin tools need. A nil Memory or
// Workspace leaves the corresponding tools unavailable.
type Deps struct {
	Memory    memory.Log
	Workspace WorkspaceFunc
	Filter    *security.URLFilter
	Client    *http.Client
	Search    SearchConfig
	Now       func() time.Time
}

// Register adds every builtin tool to reg and defines the default skill
// packs.
func Register(reg *tool.Registry, deps Deps) error {
	if deps.Client == nil {
		deps.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if deps.Filter == nil {
		deps.Filter = security.NewURLFilter(security.URLFilterConfig{})
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Search = deps.Search.withDefaults()

	factories := map[string]tool.Factory{
		WebFetch:     fetchFactory(deps.Client, deps.Filter),
		WebSearch:    searchFactory(deps.Client, deps.Search),
		MemoryRead:   memoryReadFactory(deps.Memory),
		MemoryAppend: memoryAppendFactory(deps.Memory),
		FileRead:     fileReadFactory(deps.Workspace),
		FileWrite:    fileWriteFactory(deps.Workspace),
		FileList:     fileListFactory(deps.Workspace),
	}
	for name, f := range factories {
		if err := reg.Register(name, f); err != nil {
			return err
		}
	}
	if err := reg.RegisterStatic(clockTool(deps.Now)); err != nil {
		return err
	}

	for pack, names := range DefaultSkills() {
		if err := reg.DefineSkill(pack, names); err != nil {
			return fmt.Errorf("builtin: skill %s: %w", pack, err)
		}
	}
	return nil
}

// decodeArgs unmarshals tool arguments, treating empty input as {}.
func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func schema(s string) json.RawMessage { return json.RawMessage(s) }
