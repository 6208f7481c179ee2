// Package mcpserver exposes an agent's tool set to MCP clients. Every call
// goes through tool.Registry.Execute, so a failing tool is reported as an
// error result rather than a protocol error.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/crew/internal/tool"
)

// Executor runs a tool call by name. *tool.Registry implements it.
type Executor interface {
	Execute(ctx context.Context, name string, args json.RawMessage, tools []tool.Tool) string
}

// Options configures a Server.
type Options struct {
	Name    string
	Version string
	Logger  *slog.Logger
}

// Server serves a fixed set of bound tools.
type Server struct {
	mcp    *server.MCPServer
	exec   Executor
	tools  []tool.Tool
	logger *slog.Logger
}

// New creates a Server advertising tools. Duplicate names keep the first.
func New(exec Executor, tools []tool.Tool, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "crew"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		mcp:    server.NewMCPServer(opts.Name, opts.Version, server.WithToolCapabilities(false)),
		exec:   exec,
		tools:  tools,
		logger: opts.Logger,
	}
	seen := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		name := t.Name()
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(name, t.Description(), t.Schema()), s.handler(name))
	}
	return s
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := json.RawMessage("{}")
		if raw := req.GetRawArguments(); raw != nil {
			b, err := json.Marshal(raw)
			if err != nil {
				return mcp.NewToolResultError("Error: invalid arguments: " + err.Error()), nil
			}
			args = b
		}
		s.logger.Debug("mcp tool call", "tool", name)
		out := s.exec.Execute(ctx, name, args, s.tools)
		if strings.HasPrefix(out, "Error") {
			return mcp.NewToolResultError(out), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

// HandleMessage processes one JSON-RPC message.
func (s *Server) HandleMessage(ctx context.Context, msg json.RawMessage) mcp.JSONRPCMessage {
	return s.mcp.HandleMessage(ctx, msg)
}

// ServeStdio reads requests from in and writes responses to out until ctx
// is done or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(slogWriter{s.logger}, "", 0))
	return stdio.Listen(ctx, in, out)
}

// slogWriter forwards the stdio server's log.Logger output to slog.
type slogWriter struct{ logger *slog.Logger }

func (w slogWriter) Write(p []byte) (int, error) {
	w.logger.Warn("mcp stdio", "message", strings.TrimSpace(string(p)))
	return len(p), nil
}
