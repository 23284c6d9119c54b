package llmfactory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/effective-security/mailagent/llmfactory"
	"github.com/effective-security/mailagent/pkg/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
default_provider: openai_prod
providers:
  - name: openai_prod
    api_type: OPENAI
    token: ${TEST_OPENAI_TOKEN}
    default_model: gpt-4o
    available_models:
      - gpt-4o
      - gpt-4o-mini
  - name: claude
    api_type: ANTHROPIC
    token: test-anthropic-token
    default_model: claude-sonnet-4-20250514
    available_models:
      - claude-sonnet-4-20250514
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "llm.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	return file
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "sk-test")

	cfg, err := llmfactory.LoadConfig(writeConfig(t, testConfigYAML))
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "openai_prod", cfg.DefaultProvider)
	assert.Equal(t, "sk-test", cfg.Providers[0].Token)
	assert.Equal(t, "ANTHROPIC", cfg.Providers[1].APIType)

	// empty location returns an empty config
	cfg, err = llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Parallel()

	// missing api_type fails validation
	_, err := llmfactory.LoadConfig(writeConfig(t, `
providers:
  - name: broken
`))
	assert.Error(t, err)

	_, err = llmfactory.LoadConfig(writeConfig(t, `providers: []`))
	assert.Error(t, err)
}

func TestFindModel(t *testing.T) {
	t.Parallel()

	cfg := &llmfactory.ProviderConfig{
		DefaultModel:    "gpt-4o",
		AvailableModels: []string{"gpt-4o", "gpt-4o-mini"},
	}
	assert.Equal(t, "gpt-4o-mini", cfg.FindModel("gpt-4o-mini"))
	assert.Equal(t, "gpt-4o", cfg.FindModel("unknown"))
	assert.Equal(t, "gpt-4o", cfg.FindModel())
}

func TestCreateLLM(t *testing.T) {
	t.Parallel()

	model, err := llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:         "openai",
		APIType:      "OPENAI",
		Token:        "sk-test",
		DefaultModel: "gpt-4o",
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", model.GetName())
	assert.Equal(t, chat.ProviderOpenAI, model.GetProviderType())

	model, err = llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:         "claude",
		APIType:      "anthropic",
		Token:        "test-token",
		DefaultModel: "claude-sonnet-4-20250514",
	})
	require.NoError(t, err)
	assert.Equal(t, chat.ProviderAnthropic, model.GetProviderType())

	_, err = llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:    "bad",
		APIType: "GEMINI",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider type")
}

func TestFactoryModels(t *testing.T) {
	t.Parallel()

	f := llmfactory.New(&llmfactory.Config{
		DefaultProvider: "claude",
		Providers: []*llmfactory.ProviderConfig{
			{
				Name:            "openai",
				APIType:         "OPENAI",
				Token:           "sk-test",
				DefaultModel:    "gpt-4o",
				AvailableModels: []string{"gpt-4o"},
			},
			{
				Name:            "claude",
				APIType:         "ANTHROPIC",
				Token:           "test-token",
				DefaultModel:    "claude-sonnet-4-20250514",
				AvailableModels: []string{"claude-sonnet-4-20250514"},
			},
		},
	})

	model, err := f.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, chat.ProviderAnthropic, model.GetProviderType())

	model, err = f.ModelByType("OPENAI")
	require.NoError(t, err)
	assert.Equal(t, chat.ProviderOpenAI, model.GetProviderType())

	// memoized
	again, err := f.ModelByType("OPENAI")
	require.NoError(t, err)
	assert.Same(t, model, again)

	_, err = f.ModelByType("GEMINI")
	assert.Error(t, err)

	model, err = f.ModelByName("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", model.GetName())

	// unknown model falls back to the default provider
	model, err = f.ModelByName("unknown-model")
	require.NoError(t, err)
	assert.Equal(t, chat.ProviderAnthropic, model.GetProviderType())
}

func TestFactoryNoProviders(t *testing.T) {
	t.Parallel()

	f := llmfactory.New(&llmfactory.Config{})
	_, err := f.DefaultModel()
	assert.Error(t, err)
}

func TestFactoryFallbackProvider(t *testing.T) {
	t.Parallel()

	// unnamed default falls back to the first provider
	f := llmfactory.New(&llmfactory.Config{
		Providers: []*llmfactory.ProviderConfig{
			{Name: "openai", APIType: "OPENAI", Token: "sk-test", DefaultModel: "gpt-4o"},
		},
	})
	model, err := f.DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, chat.ProviderOpenAI, model.GetProviderType())
}
