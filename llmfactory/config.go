// Package llmfactory creates chat models from configuration.
package llmfactory

import (
	"slices"

	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

// Config describes the configured model providers.
type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" validate:"min=1,dive"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider,omitempty" yaml:"default_provider,omitempty"`
}

// ProviderConfig describes one model provider.
type ProviderConfig struct {
	Name  string `json:"name" yaml:"name" validate:"required"`
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
	// APIType specifies the type of API to use:
	// OPENAI|AZURE|AZURE_AD|ANTHROPIC
	APIType         string   `json:"api_type" yaml:"api_type" validate:"required"`
	BaseURL         string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIVersion      string   `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`
}

// FindModel returns the first preferred model the provider offers,
// falling back to the provider default.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// LoadConfig loads and validates the config from file, expanding
// environment variables.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
