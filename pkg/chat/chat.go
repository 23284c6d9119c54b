// Package chat defines the conversation model shared by the agent loop,
// the LLM providers and the tool registry: roles, messages, tool-call
// requests and tool-call responses.
package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the type of a single conversation turn.
type Role string

const (
	// RoleSystem is the system prompt turn.
	RoleSystem Role = "system"
	// RoleHuman is a turn sent by the user or the inbound event.
	RoleHuman Role = "human"
	// RoleAI is a turn produced by the model.
	RoleAI Role = "ai"
	// RoleTool is a tool-result turn responding to a prior tool call.
	RoleTool Role = "tool"
)

// FunctionCall is the name and arguments of a requested function call.
type FunctionCall struct {
	// Name of the function to call.
	Name string `json:"name"`
	// Arguments to pass to the function, as a JSON string.
	Arguments string `json:"arguments"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	// ID is the unique identifier of the tool call within a run.
	ID string `json:"id"`
	// Type of the tool call, typically "function".
	Type string `json:"type"`
	// FunctionCall to be executed.
	FunctionCall *FunctionCall `json:"function,omitempty"`
}

func (tc ToolCall) String() string {
	return fmt.Sprintf("ToolCall: %s (%s), input: %s", tc.ID, tc.FunctionCall.Name, tc.FunctionCall.Arguments)
}

// ToolResponse is the result of an executed tool call.
type ToolResponse struct {
	// ToolCallID is the ID of the tool call this response is for.
	ToolCallID string `json:"tool_call_id"`
	// Name of the tool that was called.
	Name string `json:"name"`
	// Content is the textual payload of the response.
	Content string `json:"content"`
	// IsError marks the content as a structured error payload
	// surfaced to the model rather than raised to the caller.
	IsError bool `json:"is_error,omitempty"`
}

func (tr ToolResponse) String() string {
	return fmt.Sprintf("ToolResponse: %s (%s), response size: %d", tr.ToolCallID, tr.Name, len(tr.Content))
}

// Message is one turn in the conversation history.
// AI turns may carry tool-call requests; tool turns carry exactly one
// tool response.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	// ToolCalls are set on AI turns that request tool invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolResponse is set on tool turns.
	ToolResponse *ToolResponse `json:"tool_response,omitempty"`
}

// NewTextMessage returns a plain text message with the given role.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Content: text}
}

// NewToolCallMessage returns an AI message requesting the given tool calls.
func NewToolCallMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAI, Content: content, ToolCalls: calls}
}

// NewToolResponseMessage returns a tool message carrying one tool response.
func NewToolResponseMessage(resp ToolResponse) Message {
	return Message{Role: RoleTool, ToolResponse: &resp}
}

// HasToolCalls reports whether the message requests any tool invocations.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAI && len(m.ToolCalls) > 0
}

func (m Message) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:", m.Role)
	if m.Content != "" {
		fmt.Fprintf(&b, " %s", m.Content)
	}
	for _, tc := range m.ToolCalls {
		fmt.Fprintf(&b, " [%s]", tc.String())
	}
	if m.ToolResponse != nil {
		fmt.Fprintf(&b, " [%s]", m.ToolResponse.String())
	}
	return b.String()
}

// ToJSON returns the message history as JSON, for diagnostics.
func ToJSON(msgs []Message) string {
	bs, _ := json.Marshal(msgs)
	return string(bs)
}
