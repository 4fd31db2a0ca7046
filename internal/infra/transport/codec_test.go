package transport

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func TestIsObjectSchema(t *testing.T) {
	require.True(t, isObjectSchema(map[string]any{"type": "object"}))
	require.True(t, isObjectSchema(map[string]any{"type": "Object"}))
	require.False(t, isObjectSchema(map[string]any{"type": "string"}))
	require.False(t, isObjectSchema(map[string]any{"properties": map[string]any{}}))
	require.False(t, isObjectSchema(nil))
	require.False(t, isObjectSchema("object"))
	require.False(t, isObjectSchema(42))
}

func TestDescriptorFromTool_ClonesSchemas(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"text": map[string]any{"type": "string"}},
	}
	tool := &mcp.Tool{Name: "echo", InputSchema: schema}

	desc := descriptorFromTool(tool)
	require.Equal(t, "echo", desc.Name)

	schema["type"] = "mutated"
	got, ok := desc.InputSchema.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "object", got["type"])
}

func TestDescriptorFromTool_Nil(t *testing.T) {
	require.Equal(t, "", descriptorFromTool(nil).Name)
}

func TestDecodeListTools(t *testing.T) {
	resp := &jsonrpc.Response{Result: json.RawMessage(`{"tools":[{"name":"a"},{"name":"b"}]}`)}
	result, err := decodeListTools(resp)
	require.NoError(t, err)
	require.Len(t, result.Tools, 2)
	require.Equal(t, "a", result.Tools[0].Name)

	_, err = decodeListTools(&jsonrpc.Response{Error: errors.New("denied")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "denied")

	_, err = decodeListTools(&jsonrpc.Response{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing result")
}

func TestDecodeCallResult(t *testing.T) {
	resp := &jsonrpc.Response{Result: json.RawMessage(`{"content":[{"type":"text","text":"ok"}]}`)}
	result, err := decodeCallResult(resp)
	require.NoError(t, err)
	require.False(t, result.IsError)

	_, err = decodeCallResult(&jsonrpc.Response{Error: errors.New("denied")})
	require.Error(t, err)

	_, err = decodeCallResult(&jsonrpc.Response{Result: json.RawMessage(`{`)})
	require.Error(t, err)
}

func TestResultPayload_StructuredContentWins(t *testing.T) {
	result := &mcp.CallToolResult{
		StructuredContent: map[string]any{"count": float64(2)},
		Content:           []mcp.Content{&mcp.TextContent{Text: "ignored"}},
	}
	out, err := resultPayload(result)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"count": float64(2)}, out)
}

func TestResultPayload_TextShapes(t *testing.T) {
	out, err := resultPayload(&mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "only"}},
	})
	require.NoError(t, err)
	require.Equal(t, "only", out)

	out, err = resultPayload(&mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "one"},
			&mcp.TextContent{Text: "two"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, []any{"one", "two"}, out)

	out, err = resultPayload(&mcp.CallToolResult{})
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestResultPayload_ErrorCarriesBackendMessage(t *testing.T) {
	_, err := resultPayload(&mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: "rate limit exceeded"},
			&mcp.TextContent{Text: "try later"},
		},
	})
	require.Error(t, err)
	require.Equal(t, "rate limit exceeded; try later", err.Error())

	_, err = resultPayload(&mcp.CallToolResult{IsError: true})
	require.Error(t, err)
	require.Equal(t, "capability reported an error", err.Error())

	_, err = resultPayload(nil)
	require.Error(t, err)
}
