// Package anthropic adapts the official Anthropic Go SDK to the
// chat.Model interface.
package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mailagent/pkg/chat"
)

var (
	// ErrEmptyResponse is returned when the API returns no content.
	ErrEmptyResponse = errors.New("anthropic: no response")
	// ErrMissingToken is returned when no API key is configured.
	ErrMissingToken = errors.New("anthropic: missing API key, set it in the ANTHROPIC_API_KEY environment variable")
)

const defaultMaxTokens = 4096

// Option configures the client.
type Option func(*Options)

// Options holds the client configuration.
type Options struct {
	Token      string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// WithToken sets the API key.
func WithToken(token string) Option {
	return func(o *Options) { o.Token = token }
}

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// WithBaseURL sets a custom API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *Options) { o.BaseURL = baseURL }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) { o.HTTPClient = client }
}

// LLM is an Anthropic-backed chat model.
type LLM struct {
	client anthropicsdk.Client
	model  string
}

var _ chat.Model = (*LLM)(nil)

// New returns a new Anthropic chat model.
func New(opts ...Option) (*LLM, error) {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.Token == "" {
		o.Token = os.Getenv("ANTHROPIC_API_KEY")
	}
	if o.Token == "" {
		return nil, errors.WithStack(ErrMissingToken)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(o.Token)}
	if o.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.BaseURL))
	}
	if o.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.HTTPClient))
	}

	return &LLM{
		client: anthropicsdk.NewClient(reqOpts...),
		model:  o.Model,
	}, nil
}

// GetName implements the chat.Model interface.
func (a *LLM) GetName() string {
	return a.model
}

// GetProviderType implements the chat.Model interface.
func (a *LLM) GetProviderType() chat.ProviderType {
	return chat.ProviderAnthropic
}

// GenerateContent implements the chat.Model interface.
func (a *LLM) GenerateContent(ctx context.Context, messages []chat.Message, options ...chat.CallOption) (*chat.ContentResponse, error) {
	opts := chat.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	system, msgs, err := convertMessages(messages)
	if err != nil {
		return nil, err
	}

	model := a.model
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropicsdk.Float(opts.Temperature)
	}
	if len(opts.StopWords) > 0 {
		params.StopSequences = opts.StopWords
	}
	for _, tool := range opts.Tools {
		if tool.Function == nil {
			continue
		}
		schema, err := toInputSchema(tool.Function.Parameters)
		if err != nil {
			return nil, errors.WithMessagef(err, "anthropic: invalid schema for tool %s", tool.Function.Name)
		}
		tp := anthropicsdk.ToolParam{
			Name:        tool.Function.Name,
			InputSchema: schema,
		}
		if tool.Function.Description != "" {
			tp.Description = anthropicsdk.String(tool.Function.Description)
		}
		params.Tools = append(params.Tools, anthropicsdk.ToolUnionParam{OfTool: &tp})
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.WithMessage(err, "anthropic: message creation failed")
	}
	if len(msg.Content) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	choice := &chat.ContentChoice{
		StopReason: string(msg.StopReason),
		GenerationInfo: map[string]any{
			"InputTokens":  msg.Usage.InputTokens,
			"OutputTokens": msg.Usage.OutputTokens,
		},
	}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			choice.Content += block.Text
		case "tool_use":
			choice.ToolCalls = append(choice.ToolCalls, chat.ToolCall{
				ID:   block.ID,
				Type: "function",
				FunctionCall: &chat.FunctionCall{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
		}
	}

	return &chat.ContentResponse{Choices: []*chat.ContentChoice{choice}}, nil
}

func convertMessages(messages []chat.Message) ([]anthropicsdk.TextBlockParam, []anthropicsdk.MessageParam, error) {
	var system []anthropicsdk.TextBlockParam
	var msgs []anthropicsdk.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			system = append(system, anthropicsdk.TextBlockParam{Text: msg.Content})
		case chat.RoleHuman:
			msgs = append(msgs, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(msg.Content)))
		case chat.RoleAI:
			var blocks []anthropicsdk.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropicsdk.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				if tc.FunctionCall == nil {
					continue
				}
				var input any
				if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &input); err != nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropicsdk.NewToolUseBlock(tc.ID, input, tc.FunctionCall.Name))
			}
			msgs = append(msgs, anthropicsdk.NewAssistantMessage(blocks...))
		case chat.RoleTool:
			if msg.ToolResponse == nil {
				return nil, nil, errors.New("anthropic: tool message without tool response")
			}
			msgs = append(msgs, anthropicsdk.NewUserMessage(
				anthropicsdk.NewToolResultBlock(msg.ToolResponse.ToolCallID, msg.ToolResponse.Content, msg.ToolResponse.IsError),
			))
		default:
			return nil, nil, errors.Newf("anthropic: role %v not supported", msg.Role)
		}
	}
	return system, msgs, nil
}

func toInputSchema(params any) (anthropicsdk.ToolInputSchemaParam, error) {
	if params == nil {
		return anthropicsdk.ToolInputSchemaParam{Type: "object"}, nil
	}
	bs, err := json.Marshal(params)
	if err != nil {
		return anthropicsdk.ToolInputSchemaParam{}, errors.WithStack(err)
	}
	var schema anthropicsdk.ToolInputSchemaParam
	if err := json.Unmarshal(bs, &schema); err != nil {
		return anthropicsdk.ToolInputSchemaParam{}, errors.WithStack(err)
	}
	if schema.Type == "" {
		schema.Type = "object"
	}
	return schema, nil
}
