package schema_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/effective-security/mailagent/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupRequest struct {
	MessageID string `json:"message_id" jsonschema:"description=The message to look up."`
	Folder    string `json:"folder,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func TestNew(t *testing.T) {
	t.Parallel()

	sc, err := schema.New(reflect.TypeOf(lookupRequest{}))
	require.NoError(t, err)
	require.NotNil(t, sc.Parameters)

	assert.Equal(t, "object", sc.Parameters.Type)
	assert.Contains(t, sc.Parameters.Required, "message_id")
	assert.NotContains(t, sc.Parameters.Required, "folder")

	prop, ok := sc.Parameters.Properties.Get("message_id")
	require.True(t, ok)
	assert.Equal(t, "string", prop.Type)
	assert.Equal(t, "The message to look up.", prop.Description)

	js, err := json.Marshal(sc.Parameters)
	require.NoError(t, err)
	assert.Contains(t, string(js), `"message_id"`)

	// same type returns the cached schema
	sc2, err := schema.New(reflect.TypeOf(lookupRequest{}))
	require.NoError(t, err)
	assert.Same(t, sc, sc2)

	assert.NotEmpty(t, sc.String())
}

func TestFromAny(t *testing.T) {
	t.Parallel()

	s, err := schema.FromAny(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{"type": "string"},
		},
		"required": []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t, "object", s.Type)
	assert.Equal(t, []string{"id"}, s.Required)

	assert.Panics(t, func() {
		schema.MustFromAny(make(chan int))
	})
}
