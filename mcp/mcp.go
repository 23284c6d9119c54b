// Package mcp provides a client for MCP tool servers: tool discovery
// over tools/list, tool invocation over tools/call, and a registry that
// aggregates capabilities from a set of configured servers.
package mcp

import (
	"strings"

	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mailagent", "mcp")

// MCP method names.
const (
	MethodListTools = "tools/list"
	MethodCallTool  = "tools/call"
)

// ToolDefinition is a tool descriptor returned by tools/list.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// ListToolsResult is the result payload of tools/list.
type ListToolsResult struct {
	Tools []ToolDefinition `json:"tools"`
}

// CallToolParams is the parameter payload of tools/call.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Content is one block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallToolResult is the result payload of tools/call.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Text joins the text blocks of the result.
func (r *CallToolResult) Text() string {
	var sb strings.Builder
	for _, c := range r.Content {
		if c.Type != "text" && c.Type != "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// ServerTools is the resolved tool set of one server,
// the unit stored in the descriptor cache.
type ServerTools struct {
	Server string           `json:"server"`
	Tools  []ToolDefinition `json:"tools"`
}
