// Package httptransport implements the MCP transport over plain HTTP,
// one POSTed JSON-RPC frame per call.
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mailagent/mcp/transport"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mailagent/mcp/transport", "httptransport")

const defaultTimeout = 30 * time.Second

// Option configures the transport.
type Option func(*Transport)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		t.client = client
	}
}

// WithBearerToken sets an Authorization bearer header on every request.
func WithBearerToken(token string) Option {
	return func(t *Transport) {
		t.bearer = token
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.timeout = d
	}
}

// Transport POSTs JSON-RPC frames to a fixed endpoint URL.
type Transport struct {
	endpoint string
	bearer   string
	timeout  time.Duration
	client   *http.Client
	counter  atomic.Uint64
}

// New returns a transport for the given endpoint URL.
func New(endpoint string, opts ...Option) *Transport {
	t := &Transport{
		endpoint: endpoint,
		timeout:  defaultTimeout,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Endpoint implements transport.Transport.
func (t *Transport) Endpoint() string {
	return t.endpoint
}

// Call implements transport.Transport.
func (t *Transport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := t.counter.Add(1)
	body, err := json.Marshal(transport.NewRequest(id, method, params))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to encode request")
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if t.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+t.bearer)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"endpoint", t.endpoint,
		"method", method,
		"id", id,
	)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.WithMessagef(err, "request failed: %s", t.endpoint)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("unexpected status %d from %s", resp.StatusCode, t.endpoint)
	}

	return transport.DecodeResponse(raw)
}
