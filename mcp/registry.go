package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mailagent/internal/metricskey"
	"github.com/effective-security/mailagent/mcp/transport"
	"github.com/effective-security/mailagent/mcp/transport/httptransport"
	"github.com/effective-security/mailagent/mcp/transport/lambdatransport"
	"github.com/effective-security/mailagent/tools"
	"github.com/effective-security/xlog"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrNoTools is returned by Resolve when no server contributed any tool.
var ErrNoTools = errors.New("no tools available from configured servers")

// DescriptorCache stores resolved tool descriptors across registry
// lifetimes, keyed by config fingerprint. Implemented by the store
// package.
type DescriptorCache interface {
	GetDescriptors(ctx context.Context, key string) ([]ServerTools, bool, error)
	SetDescriptors(ctx context.Context, key string, descriptors []ServerTools) error
}

// RegistryOption configures the registry.
type RegistryOption func(*Registry)

// WithDescriptorCache attaches a descriptor cache.
func WithDescriptorCache(cache DescriptorCache) RegistryOption {
	return func(r *Registry) {
		r.cache = cache
	}
}

// WithTransport overrides the transport for a named server.
func WithTransport(server string, tr transport.Transport) RegistryOption {
	return func(r *Registry) {
		r.transports.Set(server, tr)
	}
}

// Registry aggregates tools from the configured MCP servers.
// Resolution happens at most once per RefreshTTL window; the resolved
// set is immutable and safe for concurrent reads.
type Registry struct {
	cfg        Config
	transports *orderedmap.OrderedMap[string, transport.Transport]
	cache      DescriptorCache

	mu         sync.Mutex
	resolved   []tools.ITool
	byName     map[string]tools.ITool
	resolvedAt time.Time
}

// NewRegistry creates a registry for the given configuration,
// constructing a transport per server.
func NewRegistry(ctx context.Context, cfg Config, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		cfg:        cfg,
		transports: orderedmap.New[string, transport.Transport](),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, srv := range cfg.Servers {
		if _, ok := r.transports.Get(srv.Name); ok {
			continue
		}
		tr, err := newTransport(ctx, srv)
		if err != nil {
			return nil, errors.WithMessagef(err, "server %q", srv.Name)
		}
		r.transports.Set(srv.Name, tr)
	}
	return r, nil
}

func newTransport(ctx context.Context, srv ServerConfig) (transport.Transport, error) {
	switch {
	case srv.URL != "":
		var opts []httptransport.Option
		if srv.AuthToken != "" {
			opts = append(opts, httptransport.WithBearerToken(srv.AuthToken))
		}
		if srv.Timeout > 0 {
			opts = append(opts, httptransport.WithTimeout(srv.Timeout))
		}
		return httptransport.New(srv.URL, opts...), nil
	case srv.LambdaFunction != "":
		return lambdatransport.New(ctx, srv.LambdaFunction)
	default:
		return nil, errors.New("either url or lambda_function must be set")
	}
}

// Resolve returns the aggregated tool set, discovering it from the
// servers on first use. Per-server failures are logged and non-fatal;
// an empty aggregate returns ErrNoTools.
func (r *Registry) Resolve(ctx context.Context) ([]tools.ITool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != nil && !r.stale() {
		return r.resolved, nil
	}

	defer metricskey.PerfRegistryResolve.MeasureSince(time.Now())

	sets, fromCache := r.loadDescriptors(ctx)
	if !fromCache {
		sets = r.discover(ctx)
		r.storeDescriptors(ctx, sets)
	}

	byName := make(map[string]tools.ITool)
	var resolved []tools.ITool
	for _, set := range sets {
		tr, ok := r.transports.Get(set.Server)
		if !ok {
			continue
		}
		for _, def := range set.Tools {
			if _, dup := byName[def.Name]; dup {
				logger.ContextKV(ctx, xlog.WARNING,
					"reason", "duplicate_tool",
					"tool", def.Name,
					"server", set.Server,
				)
				continue
			}
			tool := NewRemoteTool(set.Server, def, tr)
			byName[def.Name] = tool
			resolved = append(resolved, tool)
		}
	}

	if len(resolved) == 0 {
		return nil, errors.WithStack(ErrNoTools)
	}

	metricskey.StatsRegistryResolutions.IncrCounter(1)
	logger.ContextKV(ctx, xlog.DEBUG,
		"tools", len(resolved),
		"servers", len(sets),
		"from_cache", fromCache,
	)

	r.resolved = resolved
	r.byName = byName
	r.resolvedAt = time.Now()
	return r.resolved, nil
}

// Tool returns a resolved tool by name.
// Resolve must have succeeded first.
func (r *Registry) Tool(name string) (tools.ITool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byName[name]
	return t, ok
}

func (r *Registry) stale() bool {
	return r.cfg.RefreshTTL > 0 && time.Since(r.resolvedAt) > r.cfg.RefreshTTL
}

// discover queries each server in config order with tools/list.
func (r *Registry) discover(ctx context.Context) []ServerTools {
	var sets []ServerTools
	for pair := r.transports.Oldest(); pair != nil; pair = pair.Next() {
		name, tr := pair.Key, pair.Value

		raw, err := tr.Call(ctx, MethodListTools, struct{}{})
		if err != nil {
			metricskey.StatsRegistryServerErrors.IncrCounter(1, name)
			logger.ContextKV(ctx, xlog.ERROR,
				"server", name,
				"endpoint", tr.Endpoint(),
				"err", err.Error(),
			)
			continue
		}

		var res ListToolsResult
		if err := unmarshalResult(raw, &res); err != nil {
			metricskey.StatsRegistryServerErrors.IncrCounter(1, name)
			logger.ContextKV(ctx, xlog.ERROR,
				"server", name,
				"reason", "bad_list_result",
				"err", err.Error(),
			)
			continue
		}
		sets = append(sets, ServerTools{Server: name, Tools: res.Tools})
	}
	return sets
}

func (r *Registry) loadDescriptors(ctx context.Context) ([]ServerTools, bool) {
	if r.cache == nil {
		return nil, false
	}
	sets, ok, err := r.cache.GetDescriptors(ctx, r.cfg.Fingerprint())
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "cache_get",
			"err", err.Error(),
		)
		return nil, false
	}
	return sets, ok && len(sets) > 0
}

func (r *Registry) storeDescriptors(ctx context.Context, sets []ServerTools) {
	if r.cache == nil || len(sets) == 0 {
		return
	}
	if err := r.cache.SetDescriptors(ctx, r.cfg.Fingerprint(), sets); err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "cache_set",
			"err", err.Error(),
		)
	}
}
