package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/comigor/chat-go/pkg/tools"
)

type mockTool struct {
	RunFunc func(ctx context.Context, args string) (string, error)
}

func (m *mockTool) Name() string        { return "echo" }
func (m *mockTool) Description() string { return "echoes its arguments" }
func (m *mockTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (m *mockTool) Run(ctx context.Context, args string) (string, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, args)
	}
	return args, nil
}

func callRequest(args any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "echo", Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandler_PassesArgumentsAsJSON(t *testing.T) {
	res, err := Handler(&mockTool{})(context.Background(), callRequest(map[string]any{"message": "hi"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.JSONEq(t, `{"message":"hi"}`, resultText(t, res))
}

func TestHandler_NoArguments(t *testing.T) {
	res, err := Handler(&mockTool{})(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.JSONEq(t, `{}`, resultText(t, res))
}

func TestHandler_ToolErrorIsResult(t *testing.T) {
	tool := &mockTool{RunFunc: func(context.Context, string) (string, error) {
		return "", errors.New("path is required")
	}}
	res, err := Handler(tool)(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, "path is required", resultText(t, res))
}

func TestNew_ListsAndCallsTools(t *testing.T) {
	m := tools.NewToolManager()
	m.RegisterTool(&mockTool{})
	s := New(m, "test")

	list := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(list)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"name":"echo"`)
	require.Contains(t, string(raw), "echoes its arguments")

	call := s.HandleMessage(context.Background(), json.RawMessage(
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"limit":2}}}`))
	raw, err = json.Marshal(call)
	require.NoError(t, err)
	require.Contains(t, string(raw), `limit`)
	require.NotContains(t, string(raw), `"error"`)
}
