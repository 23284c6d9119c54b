// Package tools defines the capability interface the agent dispatches on.
// Tools may be resolved dynamically from remote MCP servers or defined
// locally in this repository.
package tools

import (
	"context"

	"github.com/effective-security/mailagent/pkg/llmutils"
)

// ITool is a named, executable capability for the agent to act with.
type ITool interface {
	// Name returns the name of the tool, unique within a run.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the parameters definition of the function, to be used in the prompt.
	Parameters() any

	// Call executes the tool with the given JSON input and returns the result.
	Call(context.Context, string) (string, error)
}

// Tool is a typed capability with structured input and output.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

type toolDescription struct {
	Name        string `json:"Name"`
	Description string `json:"Description"`
}

type toolsDescription struct {
	Tools []toolDescription `json:"Tools"`
}

// GetDescriptions returns a JSON rendering of the tool set, suitable for
// embedding in a system prompt.
func GetDescriptions(list ...ITool) string {
	var d toolsDescription
	for _, tool := range list {
		d.Tools = append(d.Tools, toolDescription{
			Name:        tool.Name(),
			Description: tool.Description(),
		})
	}
	return llmutils.BackticksJSON(llmutils.ToJSONIndent(d))
}
