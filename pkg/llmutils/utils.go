// Package llmutils provides helpers for JSON produced and consumed by
// LLMs, which is frequently wrapped in prose or markdown fences.
package llmutils

import (
	"bytes"
	"encoding/json"

	"github.com/effective-security/mailagent/pkg/chat"
)

// CleanJSON returns JSON by trimming prefixes and postfixes,
// as the model can reply like `Here you go: {json}`.
func CleanJSON(bs []byte) []byte {
	return trimPostfixAfterJSON(trimPrefixBeforeJSON(bs))
}

// Removes any prefixes before the JSON (like "Sure, here you go:")
func trimPrefixBeforeJSON(bs []byte) []byte {
	startObject := bytes.IndexByte(bs, '{')
	startArray := bytes.IndexByte(bs, '[')

	var start int
	if startObject == -1 && startArray == -1 {
		return bs
	} else if startObject == -1 {
		start = startArray
	} else if startArray == -1 {
		start = startObject
	} else {
		start = min(startObject, startArray)
	}
	return bs[start:]
}

// Removes any postfixes after the JSON
func trimPostfixAfterJSON(bs []byte) []byte {
	endObject := bytes.LastIndexByte(bs, '}')
	endArray := bytes.LastIndexByte(bs, ']')

	var end int
	if endObject == -1 && endArray == -1 {
		return bs
	} else if endObject == -1 {
		end = endArray
	} else if endArray == -1 {
		end = endObject
	} else {
		end = max(endObject, endArray)
	}
	return bs[:end+1]
}

// ToJSON marshals the value to a compact JSON string.
func ToJSON(val any) string {
	bs, _ := json.Marshal(val)
	return string(bs)
}

// ToJSONIndent marshals the value to an indented JSON string.
func ToJSONIndent(val any) string {
	bs, _ := json.MarshalIndent(val, "", "\t")
	return string(bs)
}

// BackticksJSON wraps JSON in a markdown code fence.
func BackticksJSON(js string) string {
	return "```json\n" + js + "\n```"
}

// CountMessagesContentSize returns the total content size of the
// history in bytes, used to enforce request size limits.
func CountMessagesContentSize(msgs []chat.Message) uint64 {
	var total uint64
	for _, msg := range msgs {
		total += uint64(len(msg.Content))
		for _, tc := range msg.ToolCalls {
			if tc.FunctionCall != nil {
				total += uint64(len(tc.FunctionCall.Name) + len(tc.FunctionCall.Arguments))
			}
		}
		if msg.ToolResponse != nil {
			total += uint64(len(msg.ToolResponse.Content))
		}
	}
	return total
}

// CountTokens extracts input/output token usage from the response
// generation info, when the provider reports it.
func CountTokens(resp *chat.ContentResponse) (in, out int64) {
	for _, choice := range resp.Choices {
		for key, val := range choice.GenerationInfo {
			n := toInt64(val)
			switch key {
			case "PromptTokens", "InputTokens":
				in += n
			case "CompletionTokens", "OutputTokens":
				out += n
			}
		}
	}
	return in, out
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}
