// Package client assembles the session manager, catalog provider,
// retrying invoker and redactor into the public capability client. The
// facade owns construction order and the display-path redaction rule;
// all interesting behavior lives in the components it wires.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"capcall/internal/config"
	"capcall/internal/domain"
	"capcall/internal/infra/catalog"
	"capcall/internal/infra/catalogcache"
	"capcall/internal/infra/invoker"
	"capcall/internal/infra/redact"
	"capcall/internal/infra/session"
	"capcall/internal/infra/telemetry"
	"capcall/internal/infra/transport"
)

// Client is the resilient capability client. One Client owns one logical
// session; it is safe for concurrent use.
type Client struct {
	cfg         config.Config
	fingerprint string

	transport transport.Transport
	sessions  *session.Manager
	catalog   *catalog.Provider
	invoker   *invoker.Invoker
	cache     *catalogcache.Cache
	redactor  *redact.Redactor

	logger  *zap.Logger
	metrics domain.Metrics
}

// Options tune construction. The zero value is usable.
type Options struct {
	// Transport replaces the MCP transport, mainly for tests.
	Transport transport.Transport
	Logger    *zap.Logger
	Metrics   domain.Metrics
}

// New wires a client for cfg. The transport stays unconnected until the
// first operation needs a session.
func New(cfg config.Config, opts Options) (*Client, error) {
	base := opts.Logger
	if base == nil {
		base = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}

	fingerprint, err := cfg.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("derive configuration fingerprint: %w", err)
	}

	redactor := redact.New(cfg.Credential)
	cache := catalogcache.New(fingerprint, catalogcache.Options{
		Enabled:  cfg.Cache.Enabled,
		TTL:      cfg.Cache.TTL,
		Dir:      cfg.Cache.Dir,
		Redactor: redactor,
		Logger:   base,
	})

	t := opts.Transport
	if t == nil {
		t = transport.NewMCP(transport.MCPOptions{Logger: base})
	}

	sessions := session.NewManager(t, cfg.Endpoints, session.Options{
		Logger:  base,
		Metrics: metrics,
	})
	provider := catalog.NewProvider(sessions, t, cache, catalog.Options{
		Logger:  base,
		Metrics: metrics,
	})
	inv := invoker.New(sessions, t, cfg.Retry, invoker.Options{
		Logger:  base,
		Metrics: metrics,
	})

	logger := base.Named("client")
	logger.Debug("client configured",
		telemetry.FingerprintField(fingerprint),
		zap.Int("endpoints", len(cfg.Endpoints)),
	)

	return &Client{
		cfg:         cfg,
		fingerprint: fingerprint,
		transport:   t,
		sessions:    sessions,
		catalog:     provider,
		invoker:     inv,
		cache:       cache,
		redactor:    redactor,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// Tools returns the catalog for display. refresh bypasses both the
// in-memory copy and the disk cache. Every descriptor is redacted; the
// unredacted catalog never leaves the client.
func (c *Client) Tools(ctx context.Context, refresh bool) (domain.CatalogSnapshot, error) {
	snap, err := c.catalog.Snapshot(ctx, refresh)
	if err != nil {
		return domain.CatalogSnapshot{}, err
	}
	snap.Capabilities = c.redactor.Catalog(snap.Capabilities)
	return snap, nil
}

// Resolve maps a short or fully qualified identifier to the catalog name
// it would invoke.
func (c *Client) Resolve(ctx context.Context, id string) (string, error) {
	res, err := c.catalog.Resolve(ctx, id)
	if err != nil {
		return "", err
	}
	return res.Descriptor.Name, nil
}

// Call resolves id, shape-checks args against the declared input schema,
// and invokes the capability with the configured retry policy. A
// configured call timeout bounds the whole operation, backoff included.
func (c *Client) Call(ctx context.Context, id string, args any) (any, error) {
	res, err := c.catalog.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.checkArgs(res, args); err != nil {
		return nil, err
	}

	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}
	return c.invoker.Invoke(ctx, res.Descriptor.Name, args)
}

// Close tears the session down. Safe to call on a client that never
// connected, and safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	return c.sessions.Close(ctx)
}

// Fingerprint returns the cache partition key derived from the
// configuration.
func (c *Client) Fingerprint() string {
	return c.fingerprint
}

// CacheInfo describes the on-disk catalog entry for this configuration.
func (c *Client) CacheInfo() catalogcache.Info {
	return c.cache.Info(time.Now())
}

// ClearCache removes the on-disk catalog entry for this configuration.
func (c *Client) ClearCache() error {
	return c.cache.Clear()
}

// checkArgs performs the one boundary shape check. Arguments must be
// object-shaped; when the resolution came from live discovery the
// declared input schema is intact and args are validated against it.
// Cache-sourced schemas have passed through the redactor and are only
// trusted for the object-shape rule.
func (c *Client) checkArgs(res catalog.Resolution, args any) error {
	if !objectShaped(args) {
		return domain.E(domain.KindValidation, "call",
			fmt.Sprintf("arguments for %q must be a JSON object", res.Descriptor.Name), nil)
	}
	if res.Source != domain.CatalogSourceLive {
		return nil
	}
	return validateAgainstSchema(res.Descriptor.Name, res.Descriptor.InputSchema, args)
}

func objectShaped(args any) bool {
	switch args.(type) {
	case nil, map[string]any:
		return true
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return false
	}
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// validateAgainstSchema checks args against a declared input schema. An
// absent, malformed or non-draft schema skips the check rather than
// blocking the call; the backend remains the authority. A schema that
// does resolve and rejects args is a terminal validation error.
func validateAgainstSchema(name string, inputSchema, args any) error {
	if inputSchema == nil {
		return nil
	}
	raw, err := json.Marshal(inputSchema)
	if err != nil {
		return nil
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil
	}

	decoded, err := decodeArgs(args)
	if err != nil {
		return domain.E(domain.KindValidation, "call",
			fmt.Sprintf("arguments for %q are not valid JSON", name), err)
	}
	if err := resolved.Validate(decoded); err != nil {
		return domain.E(domain.KindValidation, "call",
			fmt.Sprintf("arguments rejected by %q input schema", name), err)
	}
	return nil
}

// decodeArgs normalizes args to decoded-JSON form so schema validation
// sees what the wire would carry.
func decodeArgs(args any) (any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}
