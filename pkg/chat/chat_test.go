package chat_test

import (
	"testing"

	"github.com/effective-security/mailagent/pkg/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessages(t *testing.T) {
	t.Parallel()

	m := chat.NewTextMessage(chat.RoleHuman, "hello")
	assert.Equal(t, chat.RoleHuman, m.Role)
	assert.Equal(t, "hello", m.Content)
	assert.False(t, m.HasToolCalls())

	tc := chat.ToolCall{
		ID:   "call_1",
		Type: "function",
		FunctionCall: &chat.FunctionCall{
			Name:      "read_email",
			Arguments: `{"message_id":"m1"}`,
		},
	}
	ai := chat.NewToolCallMessage("checking", tc)
	assert.Equal(t, chat.RoleAI, ai.Role)
	assert.True(t, ai.HasToolCalls())
	assert.Contains(t, ai.String(), "read_email")

	// tool calls on non-AI roles do not count
	human := chat.Message{Role: chat.RoleHuman, ToolCalls: []chat.ToolCall{tc}}
	assert.False(t, human.HasToolCalls())

	tr := chat.NewToolResponseMessage(chat.ToolResponse{
		ToolCallID: "call_1",
		Name:       "read_email",
		Content:    `{"subject":"hi"}`,
	})
	assert.Equal(t, chat.RoleTool, tr.Role)
	require.NotNil(t, tr.ToolResponse)
	assert.Equal(t, "call_1", tr.ToolResponse.ToolCallID)
	assert.Contains(t, tr.String(), "call_1")
}

func TestContentResponseMessage(t *testing.T) {
	t.Parallel()

	tc := chat.ToolCall{
		ID:           "call_2",
		Type:         "function",
		FunctionCall: &chat.FunctionCall{Name: "unlock_account", Arguments: "{}"},
	}
	resp := &chat.ContentResponse{
		Choices: []*chat.ContentChoice{
			{Content: "first"},
			{Content: "second", ToolCalls: []chat.ToolCall{tc}},
		},
	}

	m := resp.Message()
	assert.Equal(t, chat.RoleAI, m.Role)
	assert.Equal(t, "first\n\nsecond", m.Content)
	require.Len(t, m.ToolCalls, 1)
	assert.Equal(t, "call_2", m.ToolCalls[0].ID)
}

func TestProviderCapabilities(t *testing.T) {
	t.Parallel()

	assert.True(t, chat.ProviderOpenAI.Supports(chat.CapabilityFunctionCalling))
	assert.True(t, chat.ProviderAnthropic.Supports(chat.CapabilitySystemPrompt))
	assert.False(t, chat.ProviderType("UNKNOWN").Supports(chat.CapabilityText))
}

func TestToJSON(t *testing.T) {
	t.Parallel()

	js := chat.ToJSON([]chat.Message{chat.NewTextMessage(chat.RoleSystem, "sys")})
	assert.Contains(t, js, `"role":"system"`)
}
