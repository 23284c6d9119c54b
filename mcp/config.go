package mcp

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ServerConfig describes one MCP tool server.
// Exactly one of URL or LambdaFunction must be set.
type ServerConfig struct {
	// Name is the unique server name, used in logs and metrics.
	Name string `json:"name" yaml:"name" validate:"required"`
	// URL is the HTTP endpoint of the server.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// LambdaFunction is the name or ARN of a Lambda-wrapped server.
	LambdaFunction string `json:"lambda_function,omitempty" yaml:"lambda_function,omitempty"`
	// AuthToken is an optional bearer token for HTTP servers.
	AuthToken string `json:"auth_token,omitempty" yaml:"auth_token,omitempty"`
	// Timeout is the per-call timeout, defaults to 30s.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Config describes the ordered set of tool servers.
// Server order is significant: when two servers expose a tool with the
// same name, the first server in config order wins.
type Config struct {
	Servers []ServerConfig `json:"servers" yaml:"servers" validate:"min=1,dive"`
	// RefreshTTL bounds how long a resolved tool set is reused.
	// Zero means resolve once per registry lifetime.
	RefreshTTL time.Duration `json:"refresh_ttl,omitempty" yaml:"refresh_ttl,omitempty"`
}

// Fingerprint returns a stable hash of the server set, used as the
// descriptor cache key. The TTL does not participate.
func (c *Config) Fingerprint() string {
	js, _ := json.Marshal(c.Servers)
	return "mcp:" + strconv.FormatUint(xxhash.Sum64(js), 16)
}
