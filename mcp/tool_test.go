package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/effective-security/mailagent/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedTransport struct {
	lastMethod string
	lastParams any
	result     json.RawMessage
	err        error
}

func (s *scriptedTransport) Call(_ context.Context, method string, params any) (json.RawMessage, error) {
	s.lastMethod = method
	s.lastParams = params
	return s.result, s.err
}

func (s *scriptedTransport) Endpoint() string { return "test" }

func TestRemoteToolCall(t *testing.T) {
	t.Parallel()

	result, _ := json.Marshal(mcp.CallToolResult{
		Content: []mcp.Content{
			{Type: "text", Text: "line one"},
			{Type: "text", Text: "line two"},
		},
	})
	tr := &scriptedTransport{result: result}

	def := mcp.ToolDefinition{
		Name:        "classify_email",
		Description: "Classifies an email",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message_id": map[string]any{"type": "string"},
			},
		},
	}
	tool := mcp.NewRemoteTool("classifier", def, tr)
	assert.Equal(t, "classify_email", tool.Name())
	assert.Equal(t, "Classifies an email", tool.Description())
	assert.Equal(t, "classifier", tool.Server())
	assert.Equal(t, def.InputSchema, tool.Parameters())

	out, err := tool.Call(context.Background(), `{"message_id":"m1"}`)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", out)

	assert.Equal(t, mcp.MethodCallTool, tr.lastMethod)
	params, ok := tr.lastParams.(mcp.CallToolParams)
	require.True(t, ok)
	assert.Equal(t, "classify_email", params.Name)
	assert.Equal(t, "m1", params.Arguments["message_id"])
}

func TestRemoteToolCallError(t *testing.T) {
	t.Parallel()

	result, _ := json.Marshal(mcp.CallToolResult{
		Content: []mcp.Content{{Type: "text", Text: "invalid message id"}},
		IsError: true,
	})
	tool := mcp.NewRemoteTool("s", mcp.ToolDefinition{Name: "t"}, &scriptedTransport{result: result})

	_, err := tool.Call(context.Background(), `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid message id")
}

func TestRemoteToolBadInput(t *testing.T) {
	t.Parallel()

	tool := mcp.NewRemoteTool("s", mcp.ToolDefinition{Name: "t"}, &scriptedTransport{})
	_, err := tool.Call(context.Background(), `not json`)
	require.Error(t, err)
}

func TestRemoteToolDefaultSchema(t *testing.T) {
	t.Parallel()

	tool := mcp.NewRemoteTool("s", mcp.ToolDefinition{Name: "t"}, &scriptedTransport{})
	assert.Equal(t, map[string]any{"type": "object"}, tool.Parameters())
}

func TestCallToolResultText(t *testing.T) {
	t.Parallel()

	res := &mcp.CallToolResult{
		Content: []mcp.Content{
			{Type: "text", Text: "a"},
			{Type: "image"},
			{Text: "b"},
		},
	}
	assert.Equal(t, "a\nb", res.Text())
}
