package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"capcall/internal/domain"
)

// endpointConn multiplexes request/response pairs over one MCP
// connection. A background read loop dispatches responses to pending
// calls by request id; server-initiated requests get a method-not-found
// reply and notifications are dropped.
type endpointConn struct {
	name    string
	conn    mcp.Connection
	cleanup func()
	logger  *zap.Logger
	seq     atomic.Uint64

	mu        sync.Mutex
	pending   map[string]chan callResult
	closeOnce sync.Once
	cancel    context.CancelFunc
	closed    chan struct{}
}

type callResult struct {
	resp *jsonrpc.Response
	err  error
}

func newEndpointConn(name string, conn mcp.Connection, cleanup func(), logger *zap.Logger) *endpointConn {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &endpointConn{
		name:    name,
		conn:    conn,
		cleanup: cleanup,
		logger:  logger,
		pending: make(map[string]chan callResult),
		cancel:  cancel,
		closed:  make(chan struct{}),
	}
	go c.readLoop(ctx)
	return c
}

// Call sends one request and blocks until its response or ctx expiry.
func (c *endpointConn) Call(ctx context.Context, method string, params any) (*jsonrpc.Response, error) {
	if c.isClosed() {
		return nil, domain.ErrSessionClosed
	}

	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	key := fmt.Sprintf("capcall-%s-%d", method, c.seq.Add(1))
	id, err := jsonrpc.MakeID(key)
	if err != nil {
		return nil, fmt.Errorf("build request id: %w", err)
	}

	resultCh := make(chan callResult, 1)
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return nil, domain.ErrSessionClosed
	}
	c.pending[key] = resultCh
	c.mu.Unlock()

	req := &jsonrpc.Request{ID: id, Method: method, Params: rawParams}
	if err := c.conn.Write(ctx, req); err != nil {
		c.dropPending(key)
		return nil, fmt.Errorf("write request: %w", err)
	}

	select {
	case result := <-resultCh:
		if result.err != nil {
			return nil, result.err
		}
		return result.resp, nil
	case <-ctx.Done():
		c.dropPending(key)
		return nil, ctx.Err()
	}
}

// Notify sends a one-way notification; no response is expected.
func (c *endpointConn) Notify(ctx context.Context, method string, params any) error {
	if c.isClosed() {
		return domain.ErrSessionClosed
	}
	var rawParams json.RawMessage
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		rawParams = raw
	}
	if err := c.conn.Write(ctx, &jsonrpc.Request{Method: method, Params: rawParams}); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

func (c *endpointConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.cancel()
		err = c.conn.Close()
		if c.cleanup != nil {
			c.cleanup()
		}
		c.abortPending(domain.ErrSessionClosed)
	})
	return err
}

func (c *endpointConn) readLoop(ctx context.Context) {
	for {
		msg, err := c.conn.Read(ctx)
		if err != nil {
			c.abortPending(fmt.Errorf("read: %w", err))
			return
		}
		switch typed := msg.(type) {
		case *jsonrpc.Response:
			c.dispatchResponse(typed)
		case *jsonrpc.Request:
			if typed.ID.IsValid() {
				c.rejectServerCall(ctx, typed)
				continue
			}
			c.logger.Debug("drop notification",
				zap.String("method", typed.Method),
				zap.String("endpoint", c.name),
			)
		}
	}
}

func (c *endpointConn) dispatchResponse(resp *jsonrpc.Response) {
	key, ok := correlationKey(resp.ID)
	if !ok {
		c.logger.Debug("drop response with foreign id", zap.String("endpoint", c.name))
		return
	}
	c.mu.Lock()
	ch := c.pending[key]
	delete(c.pending, key)
	c.mu.Unlock()
	if ch == nil {
		c.logger.Debug("drop response with no pending call", zap.String("id", key))
		return
	}
	ch <- callResult{resp: resp}
}

func (c *endpointConn) rejectServerCall(ctx context.Context, req *jsonrpc.Request) {
	reply := &jsonrpc.Response{
		ID: req.ID,
		Error: &jsonrpc.Error{
			Code:    jsonrpc.CodeMethodNotFound,
			Message: "method not found",
		},
	}
	if err := c.conn.Write(ctx, reply); err != nil {
		c.logger.Warn("respond to server call failed", zap.String("method", req.Method), zap.Error(err))
	}
}

func (c *endpointConn) abortPending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, ch := range pending {
		ch <- callResult{err: err}
	}
}

func (c *endpointConn) dropPending(key string) {
	c.mu.Lock()
	if c.pending != nil {
		delete(c.pending, key)
	}
	c.mu.Unlock()
}

func (c *endpointConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// correlationKey recovers the id minted by Call. Requests go out with
// string ids only, so any other shape cannot belong to a pending call.
func correlationKey(id jsonrpc.ID) (string, bool) {
	if !id.IsValid() {
		return "", false
	}
	key, ok := id.Raw().(string)
	return key, ok
}
