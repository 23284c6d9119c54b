package agent

import (
	"strconv"

	"github.com/effective-security/mailagent/pkg/chat"
	"github.com/effective-security/xdb/pkg/flake"
)

// Phase is the position of a run in the reason/act cycle.
type Phase int

const (
	// PhaseReasoning invokes the model on the message history.
	PhaseReasoning Phase = iota
	// PhaseExecutingTools dispatches the requested tool calls.
	PhaseExecutingTools
	// PhaseTerminated ends the run with the latest assistant message.
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseReasoning:
		return "reasoning"
	case PhaseExecutingTools:
		return "executing_tools"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// State is the working memory of one run. It is owned by the run and
// must not be shared across runs.
type State struct {
	// RunID identifies the run in logs and traces.
	RunID string
	// MessageID is the mail message that triggered the run.
	MessageID string
	// Notification carries the inbound event that started the run,
	// kept for logging and diagnostics only.
	Notification any

	messages   []chat.Message
	iterations int
	done       bool
}

// NewState creates a run state seeded with the initial messages.
func NewState(messageID string, messages ...chat.Message) *State {
	return &State{
		RunID:     strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10),
		MessageID: messageID,
		messages:  append([]chat.Message{}, messages...),
	}
}

// Append adds messages to the history.
func (s *State) Append(messages ...chat.Message) {
	s.messages = append(s.messages, messages...)
}

// Messages returns the full, unfiltered history.
func (s *State) Messages() []chat.Message {
	return s.messages
}

// Last returns the most recent message.
func (s *State) Last() (chat.Message, bool) {
	if len(s.messages) == 0 {
		return chat.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Iterations returns the number of completed reasoning cycles.
func (s *State) Iterations() int {
	return s.iterations
}

// Done reports whether the run has terminated.
func (s *State) Done() bool {
	return s.done
}

// Route decides the next phase from the latest message alone:
// an assistant message with tool calls routes to tool execution,
// anything else terminates the run.
func Route(m chat.Message) Phase {
	if m.HasToolCalls() {
		return PhaseExecutingTools
	}
	return PhaseTerminated
}

// SanitizeHistory returns a view of the history with orphaned tool
// results removed: any tool message whose ToolCallID does not match a
// tool call requested by an earlier assistant message. The input is
// not modified. Applying the filter twice yields the same result.
func SanitizeHistory(messages []chat.Message) []chat.Message {
	requested := make(map[string]bool)
	out := make([]chat.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == chat.RoleAI {
			for _, tc := range m.ToolCalls {
				requested[tc.ID] = true
			}
		}
		if m.Role == chat.RoleTool {
			if m.ToolResponse == nil || !requested[m.ToolResponse.ToolCallID] {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}
