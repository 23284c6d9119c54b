package agent

import (
	"context"
	"sync"

	"github.com/effective-security/mailagent/pkg/chat"
	"github.com/effective-security/mailagent/tools"
	"github.com/effective-security/xlog"
)

// Callback receives run lifecycle events.
type Callback interface {
	OnRunStart(ctx context.Context, state *State)
	OnRunEnd(ctx context.Context, state *State, final chat.Message)
	OnRunError(ctx context.Context, state *State, err error)
	OnLLMCallStart(ctx context.Context, state *State, messages []chat.Message)
	OnLLMCallEnd(ctx context.Context, state *State, resp *chat.ContentResponse)
	OnToolStart(ctx context.Context, tool tools.ITool, input string)
	OnToolEnd(ctx context.Context, tool tools.ITool, input, output string)
	OnToolError(ctx context.Context, tool tools.ITool, input string, err error)
	OnToolNotFound(ctx context.Context, name string)
}

// NoopCallback does nothing.
type NoopCallback struct{}

var _ Callback = (*NoopCallback)(nil)

func (NoopCallback) OnRunStart(context.Context, *State)                          {}
func (NoopCallback) OnRunEnd(context.Context, *State, chat.Message)              {}
func (NoopCallback) OnRunError(context.Context, *State, error)                   {}
func (NoopCallback) OnLLMCallStart(context.Context, *State, []chat.Message)      {}
func (NoopCallback) OnLLMCallEnd(context.Context, *State, *chat.ContentResponse) {}
func (NoopCallback) OnToolStart(context.Context, tools.ITool, string)            {}
func (NoopCallback) OnToolEnd(context.Context, tools.ITool, string, string)      {}
func (NoopCallback) OnToolError(context.Context, tools.ITool, string, error)     {}
func (NoopCallback) OnToolNotFound(context.Context, string)                      {}

// LoggerCallback writes run events to the package logger.
type LoggerCallback struct {
	logger *xlog.PackageLogger
}

func NewLoggerCallback(logger *xlog.PackageLogger) *LoggerCallback {
	return &LoggerCallback{logger: logger}
}

var _ Callback = (*LoggerCallback)(nil)

func (l *LoggerCallback) OnRunStart(ctx context.Context, state *State) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"status", "run_start",
		"run_id", state.RunID,
		"message_id", state.MessageID,
	)
}

func (l *LoggerCallback) OnRunEnd(ctx context.Context, state *State, final chat.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"status", "run_end",
		"run_id", state.RunID,
		"iterations", state.Iterations(),
		"content_length", len(final.Content),
	)
}

func (l *LoggerCallback) OnRunError(ctx context.Context, state *State, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"status", "run_error",
		"run_id", state.RunID,
		"reason", FailureReason(err),
		"err", err.Error(),
	)
}

func (l *LoggerCallback) OnLLMCallStart(ctx context.Context, state *State, messages []chat.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"status", "llm_call_start",
		"run_id", state.RunID,
		"messages", len(messages),
	)
}

func (l *LoggerCallback) OnLLMCallEnd(ctx context.Context, state *State, resp *chat.ContentResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"status", "llm_call_end",
		"run_id", state.RunID,
		"choices", len(resp.Choices),
	)
}

func (l *LoggerCallback) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tool_start",
		"tool", tool.Name(),
		"input_length", len(input),
	)
}

func (l *LoggerCallback) OnToolEnd(ctx context.Context, tool tools.ITool, input, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tool_end",
		"tool", tool.Name(),
		"output_length", len(output),
	)
}

func (l *LoggerCallback) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	l.logger.ContextKV(ctx, xlog.WARNING,
		"status", "tool_error",
		"tool", tool.Name(),
		"err", err.Error(),
	)
}

func (l *LoggerCallback) OnToolNotFound(ctx context.Context, name string) {
	l.logger.ContextKV(ctx, xlog.WARNING,
		"status", "tool_not_found",
		"tool", name,
	)
}

// TraceEvent is one recorded step of a run.
type TraceEvent struct {
	Kind string
	Name string
	Err  string
}

// TraceCallback records run events for diagnostics and tests.
type TraceCallback struct {
	mu     sync.Mutex
	events []TraceEvent
}

var _ Callback = (*TraceCallback)(nil)

func (t *TraceCallback) record(kind, name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ev := TraceEvent{Kind: kind, Name: name}
	if err != nil {
		ev.Err = err.Error()
	}
	t.events = append(t.events, ev)
}

// Events returns a copy of the recorded events.
func (t *TraceCallback) Events() []TraceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TraceEvent{}, t.events...)
}

func (t *TraceCallback) OnRunStart(ctx context.Context, state *State) {
	t.record("run_start", state.RunID, nil)
}
func (t *TraceCallback) OnRunEnd(ctx context.Context, state *State, final chat.Message) {
	t.record("run_end", state.RunID, nil)
}
func (t *TraceCallback) OnRunError(ctx context.Context, state *State, err error) {
	t.record("run_error", state.RunID, err)
}
func (t *TraceCallback) OnLLMCallStart(ctx context.Context, state *State, messages []chat.Message) {
	t.record("llm_call_start", state.RunID, nil)
}
func (t *TraceCallback) OnLLMCallEnd(ctx context.Context, state *State, resp *chat.ContentResponse) {
	t.record("llm_call_end", state.RunID, nil)
}
func (t *TraceCallback) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	t.record("tool_start", tool.Name(), nil)
}
func (t *TraceCallback) OnToolEnd(ctx context.Context, tool tools.ITool, input, output string) {
	t.record("tool_end", tool.Name(), nil)
}
func (t *TraceCallback) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	t.record("tool_error", tool.Name(), err)
}
func (t *TraceCallback) OnToolNotFound(ctx context.Context, name string) {
	t.record("tool_not_found", name, nil)
}
