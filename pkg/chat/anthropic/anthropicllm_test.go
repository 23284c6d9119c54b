package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mailagent/pkg/chat"
	"github.com/effective-security/mailagent/pkg/chat/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageResponse(content []map[string]any, stopReason string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-sonnet-4-20250514",
		"content":     content,
		"stop_reason": stopReason,
		"usage": map[string]any{
			"input_tokens":  20,
			"output_tokens": 7,
		},
	}
}

func TestNewRequiresToken(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := anthropic.New()
	require.Error(t, err)
	assert.True(t, errors.Is(err, anthropic.ErrMissingToken))
}

func TestGenerateContent(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageResponse([]map[string]any{
			{"type": "text", "text": "reading the mail"},
			{
				"type":  "tool_use",
				"id":    "toolu_1",
				"name":  "read_email",
				"input": map[string]any{"message_id": "m1"},
			},
		}, "tool_use"))
	}))
	defer srv.Close()

	llm, err := anthropic.New(
		anthropic.WithToken("test-token"),
		anthropic.WithModel("claude-sonnet-4-20250514"),
		anthropic.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-20250514", llm.GetName())
	assert.Equal(t, chat.ProviderAnthropic, llm.GetProviderType())

	msgs := []chat.Message{
		chat.NewTextMessage(chat.RoleSystem, "you triage email"),
		chat.NewTextMessage(chat.RoleHuman, "a mail arrived"),
	}
	tools := []chat.Tool{
		{
			Type: "function",
			Function: &chat.FunctionDefinition{
				Name:        "read_email",
				Description: "Reads an email.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"message_id": map[string]any{"type": "string"},
					},
				},
			},
		},
	}

	resp, err := llm.GenerateContent(context.Background(), msgs, chat.WithTools(tools))
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)

	choice := resp.Choices[0]
	assert.Equal(t, "reading the mail", choice.Content)
	assert.Equal(t, "tool_use", choice.StopReason)
	require.Len(t, choice.ToolCalls, 1)
	assert.Equal(t, "toolu_1", choice.ToolCalls[0].ID)
	assert.Equal(t, "read_email", choice.ToolCalls[0].FunctionCall.Name)
	assert.JSONEq(t, `{"message_id":"m1"}`, choice.ToolCalls[0].FunctionCall.Arguments)

	// system prompt travels in the system field, not in the messages
	system := captured["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "you triage email", system[0].(map[string]any)["text"])

	reqMsgs := captured["messages"].([]any)
	require.Len(t, reqMsgs, 1)
	assert.Equal(t, "user", reqMsgs[0].(map[string]any)["role"])

	reqTools := captured["tools"].([]any)
	require.Len(t, reqTools, 1)
	assert.Equal(t, "read_email", reqTools[0].(map[string]any)["name"])
}

func TestGenerateContentToolHistory(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageResponse([]map[string]any{
			{"type": "text", "text": "the account is unlocked"},
		}, "end_turn"))
	}))
	defer srv.Close()

	llm, err := anthropic.New(
		anthropic.WithToken("test-token"),
		anthropic.WithModel("claude-sonnet-4-20250514"),
		anthropic.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	msgs := []chat.Message{
		chat.NewTextMessage(chat.RoleHuman, "process msg m1"),
		chat.NewToolCallMessage("", chat.ToolCall{
			ID:           "toolu_1",
			Type:         "function",
			FunctionCall: &chat.FunctionCall{Name: "read_email", Arguments: `{"message_id":"m1"}`},
		}),
		chat.NewToolResponseMessage(chat.ToolResponse{
			ToolCallID: "toolu_1",
			Name:       "read_email",
			Content:    `{"subject":"unlock request"}`,
		}),
	}

	resp, err := llm.GenerateContent(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, "the account is unlocked", resp.Choices[0].Content)

	in, out := int64(0), int64(0)
	for k, v := range resp.Choices[0].GenerationInfo {
		switch k {
		case "InputTokens":
			in = v.(int64)
		case "OutputTokens":
			out = v.(int64)
		}
	}
	assert.Equal(t, int64(20), in)
	assert.Equal(t, int64(7), out)

	reqMsgs := captured["messages"].([]any)
	require.Len(t, reqMsgs, 3)
	assistant := reqMsgs[1].(map[string]any)
	assert.Equal(t, "assistant", assistant["role"])
	blocks := assistant["content"].([]any)
	require.Len(t, blocks, 1)
	assert.Equal(t, "tool_use", blocks[0].(map[string]any)["type"])

	// tool results are delivered as user messages
	toolResult := reqMsgs[2].(map[string]any)
	assert.Equal(t, "user", toolResult["role"])
	resultBlocks := toolResult["content"].([]any)
	require.Len(t, resultBlocks, 1)
	assert.Equal(t, "tool_result", resultBlocks[0].(map[string]any)["type"])

	_, err = llm.GenerateContent(context.Background(), []chat.Message{{Role: chat.RoleTool}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool message without tool response")
}
