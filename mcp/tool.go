package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mailagent/internal/metricskey"
	"github.com/effective-security/mailagent/mcp/transport"
)

// RemoteTool is a resolved tool descriptor bound to the transport of
// the server that exposed it. It implements tools.ITool.
type RemoteTool struct {
	server string
	def    ToolDefinition
	tr     transport.Transport
}

// NewRemoteTool binds a tool definition to its server transport.
func NewRemoteTool(server string, def ToolDefinition, tr transport.Transport) *RemoteTool {
	return &RemoteTool{
		server: server,
		def:    def,
		tr:     tr,
	}
}

// Server returns the name of the server that exposed the tool.
func (t *RemoteTool) Server() string {
	return t.server
}

// Name implements tools.ITool.
func (t *RemoteTool) Name() string {
	return t.def.Name
}

// Description implements tools.ITool.
func (t *RemoteTool) Description() string {
	return t.def.Description
}

// Parameters implements tools.ITool.
func (t *RemoteTool) Parameters() any {
	if t.def.InputSchema == nil {
		return map[string]any{"type": "object"}
	}
	return t.def.InputSchema
}

// Call implements tools.ITool: issues tools/call with the JSON input
// as arguments and returns the text content of the result.
func (t *RemoteTool) Call(ctx context.Context, input string) (string, error) {
	defer metricskey.PerfToolCall.MeasureSince(time.Now(), t.def.Name)

	args := map[string]any{}
	if input != "" {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return "", errors.WithMessagef(err, "invalid arguments for tool %q", t.def.Name)
		}
	}

	raw, err := t.tr.Call(ctx, MethodCallTool, CallToolParams{
		Name:      t.def.Name,
		Arguments: args,
	})
	if err != nil {
		return "", errors.WithMessagef(err, "tool %q failed on server %q", t.def.Name, t.server)
	}

	var res CallToolResult
	if err := unmarshalResult(raw, &res); err != nil {
		return "", errors.WithMessagef(err, "invalid result from tool %q", t.def.Name)
	}
	if res.IsError {
		return "", errors.Newf("tool %q returned error: %s", t.def.Name, res.Text())
	}
	return res.Text(), nil
}

func unmarshalResult(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("empty result")
	}
	return errors.WithStack(json.Unmarshal(raw, v))
}
