// Package msgraph is a minimal Microsoft Graph client for mailbox
// access: client-credentials auth, message fetch and normalization of
// email bodies for model consumption.
package msgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mailagent/internal/metricskey"
	"github.com/effective-security/xlog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mailagent", "msgraph")

const (
	// DefaultBaseURL is the Graph API endpoint.
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	defaultScope   = "https://graph.microsoft.com/.default"
	defaultTimeout = 30 * time.Second
)

// Config describes access to one mailbox.
type Config struct {
	TenantID     string `json:"tenant_id" yaml:"tenant_id" validate:"required"`
	ClientID     string `json:"client_id" yaml:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" yaml:"client_secret" validate:"required"`
	// TargetUser is the mailbox the agent reads.
	TargetUser string `json:"target_user" yaml:"target_user" validate:"required,email"`
	// BaseURL overrides the Graph endpoint, for tests.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// TokenURL overrides the token endpoint, for tests.
	TokenURL string `json:"token_url,omitempty" yaml:"token_url,omitempty"`
}

func (c *Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return DefaultBaseURL
}

func (c *Config) tokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", c.TenantID)
}

// Client issues authenticated Graph requests.
type Client struct {
	cfg  Config
	http *http.Client

	mu     sync.Mutex
	source oauth2.TokenSource
}

// NewClient creates a Graph client with a client-credentials token
// source.
func NewClient(cfg Config) *Client {
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: defaultTimeout},
	}
	c.source = c.newTokenSource()
	return c
}

func (c *Client) newTokenSource() oauth2.TokenSource {
	cc := &clientcredentials.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		TokenURL:     c.cfg.tokenURL(),
		Scopes:       []string{defaultScope},
	}
	return cc.TokenSource(context.Background())
}

// TargetUser returns the configured mailbox address.
func (c *Client) TargetUser() string {
	return c.cfg.TargetUser
}

// Get issues a GET to a relative Graph path.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Patch issues a PATCH with a JSON body to a relative Graph path.
func (c *Client) Patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPatch, path, body)
}

// do runs one Graph request. A 401 response invalidates the cached
// token and the request is retried once with a fresh one.
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	defer metricskey.PerfGraphRequest.MeasureSince(time.Now(), method)

	raw, status, err := c.doOnce(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		metricskey.StatsGraphTokenRefresh.IncrCounter(1)
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "token_expired",
			"path", path,
		)
		c.mu.Lock()
		c.source = c.newTokenSource()
		c.mu.Unlock()

		raw, status, err = c.doOnce(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status > 299 {
		return nil, errors.Newf("graph request failed: %s %s: status %d: %s",
			method, path, status, string(raw))
	}
	return raw, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, body any) (json.RawMessage, int, error) {
	var reader io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			return nil, 0, errors.WithMessage(err, "failed to encode body")
		}
		reader = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.baseURL()+path, reader)
	if err != nil {
		return nil, 0, errors.WithMessage(err, "failed to create request")
	}

	c.mu.Lock()
	source := c.source
	c.mu.Unlock()

	token, err := source.Token()
	if err != nil {
		return nil, 0, errors.WithMessage(err, "failed to acquire token")
	}
	token.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")

	logger.ContextKV(ctx, xlog.DEBUG, "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, errors.WithMessagef(err, "graph request failed: %s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.WithMessage(err, "failed to read response")
	}
	return raw, resp.StatusCode, nil
}
