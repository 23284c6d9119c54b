package prompts_test

import (
	"testing"

	"github.com/effective-security/mailagent/pkg/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	p, err := prompts.New("email {{.message_id}} from {{.sender}}", []string{"message_id", "sender"})
	require.NoError(t, err)
	assert.Equal(t, []string{"message_id", "sender"}, p.InputVariables())

	out, err := p.Format(map[string]any{
		"message_id": "msg-1",
		"sender":     "a@b.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "email msg-1 from a@b.com", out)
}

func TestFormatMissingInput(t *testing.T) {
	t.Parallel()

	p := prompts.MustNew("hello {{.name}}", []string{"name"})
	_, err := p.Format(map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing prompt input: name")
}

func TestNewBadTemplate(t *testing.T) {
	t.Parallel()

	_, err := prompts.New("{{.unclosed", nil)
	assert.Error(t, err)

	assert.Panics(t, func() {
		prompts.MustNew("{{.unclosed", nil)
	})
}
