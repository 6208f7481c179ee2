package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/crew/internal/memory"
	"github.com/flemzord/crew/internal/tool"
)

const (
	memoryTailSize   = 20
	memorySearchTopK = 5
	maxMemoryEntry   = 4000
)

func memoryReadFactory(log memory.Log) tool.Factory {
	return func(rt tool.Runtime) tool.Tool {
		if log == nil {
			return nil
		}
		return &tool.Func{
			ToolName: MemoryRead,
			Desc: "Read your long-term memory. Without a query it returns your most recent notes; " +
				"with a query it returns the most relevant ones.",
			Params: schema(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "Optional search terms."}
  }
}`),
			Fn: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var args struct {
					Query string `json:"query"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return "", err
				}

				var (
					entries []memory.Entry
					err     error
				)
				if q := strings.TrimSpace(args.Query); q != "" {
					entries, err = log.Search(ctx, rt.Owner, rt.Agent, q, memorySearchTopK)
				} else {
					entries, err = log.Tail(ctx, rt.Owner, rt.Agent, memoryTailSize)
				}
				if err != nil {
					return "", err
				}
				if len(entries) == 0 {
					return "No memories found.", nil
				}
				return FormatEntries(entries), nil
			},
		}
	}
}

func memoryAppendFactory(log memory.Log) tool.Factory {
	return func(rt tool.Runtime) tool.Tool {
		if log == nil {
			return nil
		}
		return &tool.Func{
			ToolName: MemoryAppend,
			Desc:     "Save a note to your long-term memory so future runs can recall it.",
			Params: schema(`{
  "type": "object",
  "properties": {
    "entry": {"type": "string", "description": "The note to remember."}
  },
  "required": ["entry"]
}`),
			Fn: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var args struct {
					Entry string `json:"entry"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return "", err
				}
				entry := strings.TrimSpace(args.Entry)
				if entry == "" {
					return "", errors.New("entry is required")
				}
				if len(entry) > maxMemoryEntry {
					return "", fmt.Errorf("entry too long (%d bytes, max %d)", len(entry), maxMemoryEntry)
				}
				if err := log.Append(ctx, rt.Owner, rt.Agent, entry); err != nil {
					return "", err
				}
				return "Saved to memory.", nil
			},
		}
	}
}

// FormatEntries renders memory entries one per line with their UTC date.
func FormatEntries(entries []memory.Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- [%s] %s", e.CreatedAt.UTC().Format("2006-01-02 15:04"), e.Content)
	}
	return b.String()
}
