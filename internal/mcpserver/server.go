// Package mcpserver exposes the registered chat tools over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/comigor/chat-go/internal/logger"
	"github.com/comigor/chat-go/pkg/tools"
)

const serverName = "chat-go"

// New builds an MCP server with one MCP tool per entry of m.
func New(m *tools.ToolManager, version string) *server.MCPServer {
	s := server.NewMCPServer(serverName, version, server.WithToolCapabilities(false))
	for _, t := range m.List() {
		s.AddTool(mcp.NewToolWithRawSchema(t.Name(), t.Description(), t.Schema()), Handler(t))
		logger.L.Debug("registered MCP tool", "tool", t.Name())
	}
	return s
}

// Handler adapts t to an MCP tool handler. Tool failures become error results so the
// calling model sees them; only argument encoding failures are protocol errors.
func Handler(t tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}

		logger.L.Info("MCP tool call", "tool", t.Name())
		out, err := t.Run(ctx, string(raw))
		if err != nil {
			logger.L.Warn("MCP tool failed", "tool", t.Name(), "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

// ServeStdio serves s on stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
