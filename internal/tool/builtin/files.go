package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/flemzord/crew/internal/tool"
)

const (
	maxFileRead    = 64 << 10
	maxFileWrite   = 1 << 20
	maxListEntries = 500
)

// ErrPathEscape is returned for paths outside the agent workspace.
var ErrPathEscape = errors.New("path escapes the workspace")

// cleanRel validates a model-supplied path and returns it in slash form,
// relative to the workspace root.
func cleanRel(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", errors.New("path is required")
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, p)
	}
	clean := path.Clean(filepath.ToSlash(p))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, p)
	}
	return clean, nil
}

// openWorkspace opens the agent's workspace as an os.Root, creating it
// when missing. os.Root also refuses symlinks that leave the directory.
func openWorkspace(ws WorkspaceFunc, rt tool.Runtime) (*os.Root, error) {
	dir, err := ws(rt.Owner, rt.Agent)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return os.OpenRoot(dir)
}

type pathArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func fileReadFactory(ws WorkspaceFunc) tool.Factory {
	return func(rt tool.Runtime) tool.Tool {
		if ws == nil {
			return nil
		}
		return &tool.Func{
			ToolName: FileRead,
			Desc:     "Read a text file from your workspace.",
			Params: schema(`{
  "type": "object",
  "properties": {
    "path": {"type": "string", "description": "Path relative to your workspace."}
  },
  "required": ["path"]
}`),
			Fn: func(_ context.Context, raw json.RawMessage) (string, error) {
				var args pathArgs
				if err := decodeArgs(raw, &args); err != nil {
					return "", err
				}
				rel, err := cleanRel(args.Path)
				if err != nil {
					return "", err
				}
				root, err := openWorkspace(ws, rt)
				if err != nil {
					return "", err
				}
				defer func() { _ = root.Close() }()

				data, err := root.ReadFile(rel)
				if errors.Is(err, fs.ErrNotExist) {
					return "", fmt.Errorf("file not found: %s", rel)
				}
				if err != nil {
					return "", err
				}
				if len(data) > maxFileRead {
					return string(data[:maxFileRead]) + "\n[truncated]", nil
				}
				return string(data), nil
			},
		}
	}
}

func fileWriteFactory(ws WorkspaceFunc) tool.Factory {
	return func(rt tool.Runtime) tool.Tool {
		if ws == nil {
			return nil
		}
		return &tool.Func{
			ToolName: FileWrite,
			Desc:     "Write a text file in your workspace, creating parent directories and replacing existing content.",
			Params: schema(`{
  "type": "object",
  "properties": {
    "path": {"type": "string", "description": "Path relative to your workspace."},
    "content": {"type": "string", "description": "Full file content."}
  },
  "required": ["path", "content"]
}`),
			Fn: func(_ context.Context, raw json.RawMessage) (string, error) {
				var args pathArgs
				if err := decodeArgs(raw, &args); err != nil {
					return "", err
				}
				rel, err := cleanRel(args.Path)
				if err != nil {
					return "", err
				}
				if rel == "." {
					return "", errors.New("path must name a file")
				}
				if len(args.Content) > maxFileWrite {
					return "", fmt.Errorf("content too large (%d bytes, max %d)", len(args.Content), maxFileWrite)
				}
				root, err := openWorkspace(ws, rt)
				if err != nil {
					return "", err
				}
				defer func() { _ = root.Close() }()

				if dir := path.Dir(rel); dir != "." {
					if err := root.MkdirAll(dir, 0o750); err != nil {
						return "", err
					}
				}
				if err := root.WriteFile(rel, []byte(args.Content), 0o640); err != nil {
					return "", err
				}
				return fmt.Sprintf("Wrote %d bytes to %s.", len(args.Content), rel), nil
			},
		}
	}
}

func fileListFactory(ws WorkspaceFunc) tool.Factory {
	return func(rt tool.Runtime) tool.Tool {
		if ws == nil {
			return nil
		}
		return &tool.Func{
			ToolName: FileList,
			Desc:     "List the files in your workspace.",
			Params:   schema(`{"type":"object","properties":{}}`),
			Fn: func(_ context.Context, _ json.RawMessage) (string, error) {
				root, err := openWorkspace(ws, rt)
				if err != nil {
					return "", err
				}
				defer func() { _ = root.Close() }()

				var (
					lines     []string
					truncated bool
				)
				err = fs.WalkDir(root.FS(), ".", func(p string, d fs.DirEntry, err error) error {
					if err != nil {
						return err
					}
					if p == "." {
						return nil
					}
					if len(lines) == maxListEntries {
						truncated = true
						return fs.SkipAll
					}
					if d.IsDir() {
						lines = append(lines, p+"/")
						return nil
					}
					info, err := d.Info()
					if err != nil {
						return err
					}
					lines = append(lines, fmt.Sprintf("%s (%d bytes)", p, info.Size()))
					return nil
				})
				if err != nil {
					return "", err
				}
				if len(lines) == 0 {
					return "Workspace is empty.", nil
				}
				out := strings.Join(lines, "\n")
				if truncated {
					out += fmt.Sprintf("\n[listing truncated at %d entries]", maxListEntries)
				}
				return out, nil
			},
		}
	}
}
