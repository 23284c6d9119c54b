// Package config loads the service configuration file.
package config

import (
	"github.com/effective-security/mailagent/agent"
	"github.com/effective-security/mailagent/llmfactory"
	"github.com/effective-security/mailagent/mcp"
	"github.com/effective-security/mailagent/msgraph"
	"github.com/effective-security/mailagent/store"
	"github.com/effective-security/mailagent/webhook"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

// Configuration is the root of the service config file.
type Configuration struct {
	// Service is the webhook endpoint.
	Service webhook.Config `json:"service" yaml:"service"`
	// Agent tunes the reasoning loop.
	Agent agent.Config `json:"agent" yaml:"agent"`
	// LLM configures the model providers.
	LLM llmfactory.Config `json:"llm" yaml:"llm" validate:"required"`
	// Registry configures the MCP tool servers.
	Registry mcp.Config `json:"registry" yaml:"registry" validate:"required"`
	// Cache configures the resolved descriptor cache.
	Cache store.Config `json:"cache,omitempty" yaml:"cache,omitempty"`
	// Graph enables the local read_email tool when set.
	Graph *msgraph.Config `json:"graph,omitempty" yaml:"graph,omitempty"`
}

// Load reads and validates the configuration, expanding environment
// variables.
func Load(file string) (*Configuration, error) {
	cfg := new(Configuration)
	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
