package chat

import (
	"context"
)

// ProviderType is the type of LLM provider.
type ProviderType string

const (
	// ProviderOpenAI is the OpenAI API.
	ProviderOpenAI ProviderType = "OPENAI"
	// ProviderAzure is the Azure OpenAI API.
	ProviderAzure ProviderType = "AZURE"
	// ProviderAzureAD is the Azure OpenAI API with AD authentication.
	ProviderAzureAD ProviderType = "AZURE_AD"
	// ProviderAnthropic is the Anthropic API.
	ProviderAnthropic ProviderType = "ANTHROPIC"
)

// Capability is a bitmask indicating supported features of an LLM provider.
type Capability uint64

const (
	// CapabilityText is basic text or chat generation.
	CapabilityText Capability = 1 << iota
	// CapabilityFunctionCalling is function/tool calling.
	CapabilityFunctionCalling
	// CapabilityMultiToolCalling is multiple tool calls in one response.
	CapabilityMultiToolCalling
	// CapabilitySystemPrompt is system prompt support.
	CapabilitySystemPrompt
)

var providerCapabilities = map[ProviderType]Capability{
	ProviderOpenAI: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	ProviderAzure: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	ProviderAzureAD: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	ProviderAnthropic: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,
}

// Supports reports whether the provider supports the given capability.
func (p ProviderType) Supports(cap Capability) bool {
	return providerCapabilities[p]&cap != 0
}

// ContentChoice is one of the response choices returned by the model.
type ContentChoice struct {
	// Content is the textual content of a generation.
	Content string `json:"content"`
	// StopReason is the reason the model stopped generating output.
	StopReason string `json:"stop_reason,omitempty"`
	// ToolCalls is a list of tool calls the model requested.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// GenerationInfo is provider metadata, such as token usage.
	GenerationInfo map[string]any `json:"generation_info,omitempty"`
}

// ContentResponse is the response returned by a GenerateContent call.
// It can potentially return multiple choices.
type ContentResponse struct {
	Choices []*ContentChoice `json:"choices"`
}

// Message returns the response as an AI message, combining the content of
// all choices and preserving requested tool calls.
func (r *ContentResponse) Message() Message {
	var content string
	var calls []ToolCall
	for i, choice := range r.Choices {
		if i > 0 && choice.Content != "" && content != "" {
			content += "\n\n"
		}
		content += choice.Content
		calls = append(calls, choice.ToolCalls...)
	}
	return Message{Role: RoleAI, Content: content, ToolCalls: calls}
}

// Model is the interface chat models implement.
type Model interface {
	// GetName returns the configured model name.
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GenerateContent asks the model to generate content from a sequence
	// of messages.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}
