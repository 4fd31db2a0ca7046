package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"capcall/internal/domain"
)

func TestMCP_StdioRoundTrip(t *testing.T) {
	tr := NewMCP(MCPOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := tr.Register(ctx, []domain.EndpointSpec{{
		Name:    "py",
		Command: []string{"python3", "-u", "-c", pythonCapabilityServerScript},
		Env:     map[string]string{"CAPS_GREETING": "hello"},
	}})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Empty(t, result.Errors)
	t.Cleanup(func() { _ = tr.Close(context.Background()) })

	catalog, err := tr.ListCapabilities(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	require.Equal(t, "py.echo", catalog[0].Name)
	require.Equal(t, "py.boom", catalog[1].Name)

	out, err := tr.Invoke(ctx, "py.echo", map[string]any{"text": "hello"})
	require.NoError(t, err)
	require.Equal(t, "hello", out)

	_, err = tr.Invoke(ctx, "py.boom", map[string]any{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom failed")
}

func TestMCP_RegisterCollectsEndpointFailures(t *testing.T) {
	tr := NewMCP(MCPOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := tr.Register(ctx, []domain.EndpointSpec{{
		Name:    "missing",
		Command: []string{"/no/such/binary"},
	}})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "missing")
}

func TestMCP_RegisterRequiresEndpoints(t *testing.T) {
	tr := NewMCP(MCPOptions{})
	_, err := tr.Register(context.Background(), nil)
	require.Error(t, err)
}

func TestMCP_InvokeBeforeRegister(t *testing.T) {
	tr := NewMCP(MCPOptions{})

	_, err := tr.Invoke(context.Background(), "bare", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not namespaced")

	_, err = tr.Invoke(context.Background(), "up.echo", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no endpoint")
}

func TestFormatEnv(t *testing.T) {
	require.Nil(t, formatEnv(nil))
	got := formatEnv(map[string]string{"B": "2", "A": "1", "C": "3"})
	require.Equal(t, []string{"A=1", "B=2", "C=3"}, got)
}

const pythonCapabilityServerScript = `import sys, json

def send(msg):
    sys.stdout.write(json.dumps(msg) + "\n")
    sys.stdout.flush()

tools = [
    {"name": "echo", "description": "echo text back",
     "inputSchema": {"type": "object", "properties": {"text": {"type": "string"}}}},
    {"name": "boom", "description": "always fails",
     "inputSchema": {"type": "object"}},
]

for line in sys.stdin:
    msg = json.loads(line)
    if "id" not in msg:
        continue
    method = msg.get("method")
    params = msg.get("params") or {}
    if method == "initialize":
        send({"jsonrpc": "2.0", "id": msg["id"], "result": {
            "protocolVersion": params.get("protocolVersion"),
            "serverInfo": {"name": "pyserver", "version": "0.0.1"},
            "capabilities": {"tools": {}}}})
    elif method == "tools/list":
        send({"jsonrpc": "2.0", "id": msg["id"], "result": {"tools": tools}})
    elif method == "tools/call":
        args = params.get("arguments") or {}
        if params.get("name") == "echo":
            send({"jsonrpc": "2.0", "id": msg["id"], "result": {
                "content": [{"type": "text", "text": args.get("text", "")}]}})
        else:
            send({"jsonrpc": "2.0", "id": msg["id"], "result": {
                "isError": True,
                "content": [{"type": "text", "text": "boom failed"}]}})
    else:
        send({"jsonrpc": "2.0", "id": msg["id"], "error": {"code": -32601, "message": "method not found"}})
`
