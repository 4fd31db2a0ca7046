package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"capcall/internal/buildinfo"
	"capcall/internal/domain"
)

const initializeTimeout = 5 * time.Second

// MCP implements Transport over the model context protocol. Each endpoint
// spec becomes one connection (stdio subprocess or streamable HTTP), every
// endpoint's tools are merged into a single catalog under
// "<endpoint>.<tool>" names, and invocations route on the name's first dot
// segment.
type MCP struct {
	logger *zap.Logger

	mu       sync.Mutex
	backends []*backend
}

type backend struct {
	name string
	conn *endpointConn
}

// MCPOptions configures the MCP transport.
type MCPOptions struct {
	Logger *zap.Logger
}

// NewMCP creates an unconnected MCP transport. Register establishes the
// actual connections.
func NewMCP(opts MCPOptions) *MCP {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MCP{
		logger: logger.Named("transport"),
	}
}

var _ Transport = (*MCP)(nil)

// Register connects and initializes every endpoint in order. Endpoint
// failures are collected rather than aborting the loop; if any endpoint
// failed, connections that did come up are closed again so a later attempt
// starts from scratch.
func (t *MCP) Register(ctx context.Context, endpoints []domain.EndpointSpec) (domain.RegisterResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(endpoints) == 0 {
		return domain.RegisterResult{}, errors.New("no endpoints to register")
	}
	if len(t.backends) > 0 {
		_ = t.closeLocked()
	}

	backends := make([]*backend, 0, len(endpoints))
	var errs []string
	for _, spec := range endpoints {
		conn, err := t.connect(ctx, spec)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", spec.Name, err))
			continue
		}
		backends = append(backends, &backend{name: spec.Name, conn: conn})
	}
	if len(errs) > 0 {
		for _, b := range backends {
			_ = b.conn.Close()
		}
		return domain.RegisterResult{Errors: errs}, nil
	}

	t.backends = backends
	return domain.RegisterResult{Success: true}, nil
}

func (t *MCP) connect(ctx context.Context, spec domain.EndpointSpec) (*endpointConn, error) {
	var (
		raw     mcp.Connection
		cleanup processCleanup
		err     error
	)
	switch {
	case spec.IsCommand():
		raw, cleanup, err = dialCommand(ctx, spec, t.logger)
	case spec.URL != "":
		raw, err = dialHTTP(ctx, spec)
	default:
		return nil, errors.New("endpoint needs a command or a url")
	}
	if err != nil {
		return nil, err
	}

	conn := newEndpointConn(spec.Name, raw, cleanup, t.logger.Named("conn"))
	if err := t.initialize(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (t *MCP) initialize(ctx context.Context, conn *endpointConn) error {
	initCtx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()

	params := &mcp.InitializeParams{
		ProtocolVersion: domain.DefaultProtocolVersion,
		ClientInfo: &mcp.Implementation{
			Name:    "capcall",
			Version: buildinfo.Version,
		},
		Capabilities: &mcp.ClientCapabilities{},
	}
	resp, err := conn.Call(initCtx, "initialize", params)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := validateInitializeResult(resp); err != nil {
		return err
	}
	return conn.Notify(initCtx, "notifications/initialized", nil)
}

func validateInitializeResult(resp *jsonrpc.Response) error {
	if resp.Error != nil {
		return fmt.Errorf("initialize error: %w", resp.Error)
	}
	if len(resp.Result) == 0 {
		return errors.New("initialize response missing result")
	}

	var result mcp.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return fmt.Errorf("decode initialize result: %w", err)
	}

	if !domain.IsSupportedProtocolVersion(result.ProtocolVersion) {
		return fmt.Errorf("unsupported protocolVersion: %s", result.ProtocolVersion)
	}
	if result.ServerInfo == nil || result.ServerInfo.Name == "" {
		return errors.New("missing serverInfo")
	}
	if result.Capabilities == nil {
		return errors.New("missing capabilities")
	}
	return nil
}

// ListCapabilities fetches every endpoint's tool list, with pagination, and
// merges them in endpoint order. Within one endpoint the server's own order
// is preserved; it is the catalog order callers resolve against.
func (t *MCP) ListCapabilities(ctx context.Context) ([]domain.CapabilityDescriptor, error) {
	backends := t.snapshotBackends()
	if len(backends) == 0 {
		return nil, domain.ErrSessionClosed
	}

	var catalog []domain.CapabilityDescriptor
	for _, b := range backends {
		tools, err := t.fetchTools(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.name, err)
		}
		for _, tool := range tools {
			if tool == nil || tool.Name == "" {
				continue
			}
			if !isObjectSchema(tool.InputSchema) {
				t.logger.Warn("skip capability with invalid input schema",
					zap.String("endpoint", b.name),
					zap.String("capability", tool.Name),
				)
				continue
			}
			if tool.OutputSchema != nil && !isObjectSchema(tool.OutputSchema) {
				t.logger.Warn("skip capability with invalid output schema",
					zap.String("endpoint", b.name),
					zap.String("capability", tool.Name),
				)
				continue
			}
			desc := descriptorFromTool(tool)
			desc.Name = fmt.Sprintf("%s.%s", b.name, tool.Name)
			catalog = append(catalog, desc)
		}
	}
	return catalog, nil
}

func (t *MCP) fetchTools(ctx context.Context, b *backend) ([]*mcp.Tool, error) {
	var tools []*mcp.Tool
	cursor := ""

	for {
		resp, err := b.conn.Call(ctx, "tools/list", &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		result, err := decodeListTools(resp)
		if err != nil {
			return nil, err
		}
		tools = append(tools, result.Tools...)
		if result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}

	return tools, nil
}

// Invoke calls a fully qualified capability. The segment before the first
// dot selects the endpoint; the remainder is the tool name the backend
// knows.
func (t *MCP) Invoke(ctx context.Context, name string, args any) (any, error) {
	endpointName, toolName, ok := strings.Cut(name, ".")
	if !ok || toolName == "" {
		return nil, fmt.Errorf("capability name %q is not namespaced", name)
	}
	b := t.lookupBackend(endpointName)
	if b == nil {
		return nil, fmt.Errorf("no endpoint %q for capability %q", endpointName, name)
	}

	var rawArgs json.RawMessage
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshal arguments: %w", err)
		}
		rawArgs = raw
	}

	resp, err := b.conn.Call(ctx, "tools/call", &mcp.CallToolParams{
		Name:      toolName,
		Arguments: rawArgs,
	})
	if err != nil {
		return nil, err
	}
	result, err := decodeCallResult(resp)
	if err != nil {
		return nil, err
	}
	return resultPayload(result)
}

// Close tears down every backend connection. Safe to call more than once.
func (t *MCP) Close(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *MCP) closeLocked() error {
	var errs []error
	for _, b := range t.backends {
		if err := b.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
		}
	}
	t.backends = nil
	return errors.Join(errs...)
}

func (t *MCP) snapshotBackends() []*backend {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*backend(nil), t.backends...)
}

func (t *MCP) lookupBackend(name string) *backend {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range t.backends {
		if b.name == name {
			return b
		}
	}
	return nil
}
