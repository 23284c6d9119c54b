// Package prompts formats prompt text from named inputs.
package prompts

import (
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"
)

// PromptTemplate renders a prompt with Go template syntax. Every
// declared input variable must be provided at format time.
type PromptTemplate struct {
	inputVariables []string
	tmpl           *template.Template
}

// New parses the template. inputVariables lists the required keys.
func New(text string, inputVariables []string) (*PromptTemplate, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to parse prompt template")
	}
	return &PromptTemplate{
		inputVariables: inputVariables,
		tmpl:           tmpl,
	}, nil
}

// MustNew is New that panics on a bad template.
func MustNew(text string, inputVariables []string) *PromptTemplate {
	p, err := New(text, inputVariables)
	if err != nil {
		panic(err)
	}
	return p
}

// Format renders the template with the given values.
func (p *PromptTemplate) Format(values map[string]any) (string, error) {
	for _, name := range p.inputVariables {
		if _, ok := values[name]; !ok {
			return "", errors.Newf("missing prompt input: %s", name)
		}
	}
	var sb strings.Builder
	if err := p.tmpl.Execute(&sb, values); err != nil {
		return "", errors.WithMessage(err, "failed to format prompt")
	}
	return sb.String(), nil
}

// InputVariables returns the required input names.
func (p *PromptTemplate) InputVariables() []string {
	return p.inputVariables
}
