// Package openai adapts the official OpenAI Go SDK to the chat.Model
// interface. It supports the OpenAI API and Azure OpenAI deployments.
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mailagent/pkg/chat"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

var (
	// ErrEmptyResponse is returned when the API returns no choices.
	ErrEmptyResponse = errors.New("openai: no response")
	// ErrMissingToken is returned when no API key is configured.
	ErrMissingToken = errors.New("openai: missing API key, set it in the OPENAI_API_KEY environment variable")
)

// APIType selects between the OpenAI API and Azure OpenAI deployments.
type APIType string

const (
	APITypeOpenAI  APIType = "OPENAI"
	APITypeAzure   APIType = "AZURE"
	APITypeAzureAD APIType = "AZURE_AD"
)

const (
	defaultModel     = "gpt-4o"
	defaultMaxTokens = 4096
)

// Option configures the client.
type Option func(*Options)

// Options holds the client configuration.
type Options struct {
	Token      string
	Model      string
	BaseURL    string
	APIType    APIType
	APIVersion string
	HTTPClient *http.Client
}

// WithToken sets the API key.
func WithToken(token string) Option {
	return func(o *Options) { o.Token = token }
}

// WithModel sets the default model or Azure deployment name.
func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// WithBaseURL sets the API endpoint, required for Azure.
func WithBaseURL(baseURL string) Option {
	return func(o *Options) { o.BaseURL = baseURL }
}

// WithAPIType selects the API flavor.
func WithAPIType(apiType APIType) Option {
	return func(o *Options) { o.APIType = apiType }
}

// WithAPIVersion sets the Azure API version.
func WithAPIVersion(version string) Option {
	return func(o *Options) { o.APIVersion = version }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) { o.HTTPClient = client }
}

// LLM is an OpenAI-backed chat model.
type LLM struct {
	client   openai.Client
	model    string
	provider chat.ProviderType
}

var _ chat.Model = (*LLM)(nil)

// New returns a new OpenAI chat model.
func New(opts ...Option) (*LLM, error) {
	o := &Options{
		APIType: APITypeOpenAI,
		Model:   defaultModel,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Token == "" {
		o.Token = os.Getenv("OPENAI_API_KEY")
	}
	if o.Token == "" {
		return nil, errors.WithStack(ErrMissingToken)
	}

	var reqOpts []option.RequestOption
	provider := chat.ProviderOpenAI
	switch o.APIType {
	case APITypeAzure, APITypeAzureAD:
		if o.BaseURL == "" {
			return nil, errors.New("openai: Azure API requires a base URL")
		}
		reqOpts = append(reqOpts,
			azure.WithEndpoint(o.BaseURL, o.APIVersion),
			azure.WithAPIKey(o.Token),
		)
		provider = chat.ProviderAzure
		if o.APIType == APITypeAzureAD {
			provider = chat.ProviderAzureAD
		}
	default:
		reqOpts = append(reqOpts, option.WithAPIKey(o.Token))
		if o.BaseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(o.BaseURL))
		}
	}
	if o.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.HTTPClient))
	}

	return &LLM{
		client:   openai.NewClient(reqOpts...),
		model:    o.Model,
		provider: provider,
	}, nil
}

// GetName implements the chat.Model interface.
func (o *LLM) GetName() string {
	return o.model
}

// GetProviderType implements the chat.Model interface.
func (o *LLM) GetProviderType() chat.ProviderType {
	return o.provider
}

// GenerateContent implements the chat.Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []chat.Message, options ...chat.CallOption) (*chat.ContentResponse, error) {
	opts := chat.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	chatMsgs, err := convertMessages(messages)
	if err != nil {
		return nil, err
	}

	model := o.model
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(model),
		Messages:            chatMsgs,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	for _, tool := range opts.Tools {
		if tool.Function == nil {
			continue
		}
		fd := shared.FunctionDefinitionParam{
			Name:       tool.Function.Name,
			Parameters: toFunctionParameters(tool.Function.Parameters),
		}
		if tool.Function.Description != "" {
			fd.Description = openai.String(tool.Function.Description)
		}
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{Function: fd})
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.WithMessage(err, "openai: chat completion failed")
	}
	if len(completion.Choices) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	choices := make([]*chat.ContentChoice, len(completion.Choices))
	for i, c := range completion.Choices {
		choice := &chat.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
			GenerationInfo: map[string]any{
				"PromptTokens":     completion.Usage.PromptTokens,
				"CompletionTokens": completion.Usage.CompletionTokens,
				"TotalTokens":      completion.Usage.TotalTokens,
			},
		}
		for _, tc := range c.Message.ToolCalls {
			id := tc.ID
			if id == "" {
				id = uuid.NewString()
			}
			choice.ToolCalls = append(choice.ToolCalls, chat.ToolCall{
				ID:   id,
				Type: "function",
				FunctionCall: &chat.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		choices[i] = choice
	}

	return &chat.ContentResponse{Choices: choices}, nil
}

func convertMessages(messages []chat.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case chat.RoleHuman:
			result = append(result, openai.UserMessage(msg.Content))
		case chat.RoleAI:
			result = append(result, assistantMessage(msg))
		case chat.RoleTool:
			if msg.ToolResponse == nil {
				return nil, errors.New("openai: tool message without tool response")
			}
			result = append(result, openai.ToolMessage(msg.ToolResponse.Content, msg.ToolResponse.ToolCallID))
		default:
			return nil, errors.Newf("openai: role %v not supported", msg.Role)
		}
	}
	return result, nil
}

func assistantMessage(msg chat.Message) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(msg.Content),
		}
	}
	for _, tc := range msg.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: tc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.FunctionCall.Name,
				Arguments: tc.FunctionCall.Arguments,
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

// toFunctionParameters converts an arbitrary schema value to the SDK
// parameter map, defaulting to an empty object schema.
func toFunctionParameters(params any) shared.FunctionParameters {
	if params == nil {
		return shared.FunctionParameters{"type": "object"}
	}
	var m map[string]any
	switch v := params.(type) {
	case map[string]any:
		m = v
	case json.RawMessage:
		_ = json.Unmarshal(v, &m)
	default:
		bs, err := json.Marshal(params)
		if err == nil {
			_ = json.Unmarshal(bs, &m)
		}
	}
	if len(m) == 0 {
		return shared.FunctionParameters{"type": "object"}
	}
	result := make(shared.FunctionParameters, len(m)+1)
	for k, v := range m {
		result[k] = v
	}
	if _, ok := result["type"]; !ok {
		result["type"] = "object"
	}
	return result
}
