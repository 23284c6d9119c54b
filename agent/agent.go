// Package agent implements the reason/act loop: the model is invoked
// on the message history, requested tool calls are executed, and the
// cycle repeats until the model answers without tool calls or the
// iteration cap is reached.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mailagent/internal/metricskey"
	"github.com/effective-security/mailagent/pkg/chat"
	"github.com/effective-security/mailagent/pkg/llmutils"
	"github.com/effective-security/mailagent/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mailagent", "agent")

// DefaultMaxIterations caps the reason/act cycles of one run.
const DefaultMaxIterations = 10

// ToolResolver provides the tool set for a run.
// Implemented by mcp.Registry.
type ToolResolver interface {
	Resolve(ctx context.Context) ([]tools.ITool, error)
}

// Config tunes the agent loop.
type Config struct {
	// SystemPrompt is prepended to every run.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	// MaxIterations caps reasoning cycles per run, defaults to 10.
	MaxIterations int `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	// MaxTokens bounds each model completion.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	// Temperature for the model calls.
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// Option configures the agent.
type Option func(*Agent)

// WithCallback attaches a run observer.
func WithCallback(cb Callback) Option {
	return func(a *Agent) {
		a.callback = cb
	}
}

// WithLocalTools registers tools defined in process, available without
// registry resolution. A local tool shadows a remote tool of the same
// name.
func WithLocalTools(list ...tools.ITool) Option {
	return func(a *Agent) {
		a.locals = append(a.locals, list...)
	}
}

// Agent drives the reason/act loop over a model and a tool set.
type Agent struct {
	llm      chat.Model
	resolver ToolResolver
	cfg      Config
	callback Callback
	locals   []tools.ITool
}

// New creates an agent.
func New(llm chat.Model, resolver ToolResolver, cfg Config, opts ...Option) *Agent {
	a := &Agent{
		llm:      llm,
		resolver: resolver,
		cfg:      cfg,
		callback: NoopCallback{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the loop on the given state until the model produces a
// final answer, and returns that terminal assistant message.
func (a *Agent) Run(ctx context.Context, state *State) (chat.Message, error) {
	defer metricskey.PerfAgentRun.MeasureSince(time.Now())
	metricskey.StatsRunsStarted.IncrCounter(1)
	a.callback.OnRunStart(ctx, state)

	final, err := a.run(ctx, state)
	if err != nil {
		metricskey.StatsRunsFailed.IncrCounter(1, FailureReason(err))
		a.callback.OnRunError(ctx, state, err)
		return chat.Message{}, err
	}
	metricskey.StatsRunsSucceeded.IncrCounter(1)
	a.callback.OnRunEnd(ctx, state, final)
	return final, nil
}

func (a *Agent) run(ctx context.Context, state *State) (chat.Message, error) {
	toolSet, byName, err := a.resolveTools(ctx)
	if err != nil {
		return chat.Message{}, err
	}
	defs := toolDefinitions(toolSet)
	maxIterations := values.NumbersCoalesce(a.cfg.MaxIterations, DefaultMaxIterations)

	for {
		if state.iterations >= maxIterations {
			return chat.Message{}, errors.WithMessagef(ErrLoopLimit,
				"run %s aborted after %d iterations", state.RunID, state.iterations)
		}

		if err := a.reason(ctx, state, defs); err != nil {
			return chat.Message{}, err
		}
		state.iterations++

		last, _ := state.Last()
		switch Route(last) {
		case PhaseTerminated:
			state.done = true
			return last, nil
		case PhaseExecutingTools:
			a.executeToolCalls(ctx, state, last.ToolCalls, toolSet, byName)
		}
	}
}

// resolveTools combines the local tools with the registry set.
// Local tools come first, so they win name collisions.
func (a *Agent) resolveTools(ctx context.Context) ([]tools.ITool, map[string]tools.ITool, error) {
	var resolved []tools.ITool
	if a.resolver != nil {
		var err error
		resolved, err = a.resolver.Resolve(ctx)
		if err != nil {
			if len(a.locals) == 0 {
				return nil, nil, err
			}
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "registry_resolve",
				"err", err.Error(),
			)
		}
	}

	byName := make(map[string]tools.ITool)
	var toolSet []tools.ITool
	for _, t := range append(append([]tools.ITool{}, a.locals...), resolved...) {
		key := strings.ToLower(t.Name())
		if _, ok := byName[key]; ok {
			continue
		}
		byName[key] = t
		toolSet = append(toolSet, t)
	}
	if len(toolSet) == 0 {
		return nil, nil, errors.WithStack(ErrConnectivity)
	}
	return toolSet, byName, nil
}

func toolDefinitions(list []tools.ITool) []chat.Tool {
	defs := make([]chat.Tool, 0, len(list))
	for _, t := range list {
		defs = append(defs, chat.Tool{
			Type: "function",
			Function: &chat.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// reason invokes the model once on the sanitized history view and
// appends the assistant message to the unfiltered state.
func (a *Agent) reason(ctx context.Context, state *State, defs []chat.Tool) error {
	view := SanitizeHistory(a.withSystemPrompt(state.Messages()))
	a.callback.OnLLMCallStart(ctx, state, view)

	modelName := a.llm.GetName()
	opts := []chat.CallOption{}
	if len(defs) > 0 {
		opts = append(opts, chat.WithTools(defs))
	}
	if a.cfg.MaxTokens > 0 {
		opts = append(opts, chat.WithMaxTokens(a.cfg.MaxTokens))
	}
	if a.cfg.Temperature > 0 {
		opts = append(opts, chat.WithTemperature(a.cfg.Temperature))
	}

	started := time.Now()
	resp, err := a.llm.GenerateContent(ctx, view, opts...)
	metricskey.PerfLLMCall.MeasureSince(started, modelName)
	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, modelName)
		return errors.WithMessage(errors.Mark(err, ErrModelService), "reasoning call failed")
	}
	if len(resp.Choices) == 0 {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, modelName)
		return errors.WithMessage(errors.Mark(errors.New("empty response"), ErrModelService), "reasoning call failed")
	}
	metricskey.StatsLLMCallsSucceeded.IncrCounter(1, modelName)

	tokensIn, tokensOut := llmutils.CountTokens(resp)
	metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), modelName)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), modelName)

	a.callback.OnLLMCallEnd(ctx, state, resp)
	state.Append(resp.Message())
	return nil
}

func (a *Agent) withSystemPrompt(messages []chat.Message) []chat.Message {
	if a.cfg.SystemPrompt == "" {
		return messages
	}
	out := make([]chat.Message, 0, len(messages)+1)
	out = append(out, chat.NewTextMessage(chat.RoleSystem, a.cfg.SystemPrompt))
	return append(out, messages...)
}

// executeToolCalls dispatches the requested calls concurrently and
// appends one tool result per request, in request order. Failures are
// converted to error payloads for the model, never raised.
func (a *Agent) executeToolCalls(ctx context.Context, state *State, calls []chat.ToolCall, toolSet []tools.ITool, byName map[string]tools.ITool) {
	type callResult struct {
		response string
		index    int
	}

	resultChan := make(chan callResult, len(calls))

	var wg sync.WaitGroup
	wg.Add(len(calls))

	for i, call := range calls {
		go func(index int, tc chat.ToolCall) {
			defer wg.Done()
			toolName := tc.FunctionCall.Name
			toolArgs := tc.FunctionCall.Arguments

			tool := byName[strings.ToLower(toolName)]
			if tool == nil {
				metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
				a.callback.OnToolNotFound(ctx, toolName)

				available := toolNames(toolSet)
				logger.ContextKV(ctx, xlog.WARNING,
					"run_id", state.RunID,
					"status", "tool_not_found",
					"tool", toolName,
					"available_tools", available,
				)
				resultChan <- callResult{
					response: fmt.Sprintf("Tool `%s` not found. Please check the tool name and try again with exact match. Available tools: %s", toolName, available),
					index:    index,
				}
				return
			}

			a.callback.OnToolStart(ctx, tool, toolArgs)

			res, err := tool.Call(ctx, toolArgs)
			if err != nil {
				metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
				a.callback.OnToolError(ctx, tool, toolArgs, err)
				logger.ContextKV(ctx, xlog.WARNING,
					"run_id", state.RunID,
					"status", "tool_call_failed",
					"tool", toolName,
					"err", err.Error(),
				)
				resultChan <- callResult{
					response: fmt.Sprintf("Tool call failed: %s", err.Error()),
					index:    index,
				}
				return
			}
			metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
			a.callback.OnToolEnd(ctx, tool, toolArgs, res)

			resultChan <- callResult{
				response: res,
				index:    index,
			}
		}(i, call)
	}

	wg.Wait()
	close(resultChan)

	// Reassemble in request order for a deterministic history.
	results := make([]string, len(calls))
	for result := range resultChan {
		results[result.index] = result.response
	}

	for i, call := range calls {
		state.Append(chat.NewToolResponseMessage(chat.ToolResponse{
			ToolCallID: call.ID,
			Name:       call.FunctionCall.Name,
			Content:    results[i],
		}))
	}
}

func toolNames(list []tools.ITool) string {
	names := make([]string, 0, len(list))
	for _, t := range list {
		names = append(names, t.Name())
	}
	return strings.Join(names, ", ")
}
