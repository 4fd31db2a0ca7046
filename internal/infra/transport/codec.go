package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"capcall/internal/domain"
)

// descriptorFromTool converts an MCP tool into a capability descriptor.
// Schemas are cloned so later catalog copies never alias SDK-owned maps.
func descriptorFromTool(tool *mcp.Tool) domain.CapabilityDescriptor {
	if tool == nil {
		return domain.CapabilityDescriptor{}
	}
	return domain.CapabilityDescriptor{
		Name:         tool.Name,
		InputSchema:  domain.CloneValue(tool.InputSchema),
		OutputSchema: domain.CloneValue(tool.OutputSchema),
	}
}

func isObjectSchema(schema any) bool {
	if schema == nil {
		return false
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return false
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	if typ, ok := obj["type"]; ok {
		if val, ok := typ.(string); ok {
			return strings.EqualFold(val, "object")
		}
	}
	return false
}

func decodeListTools(resp *jsonrpc.Response) (*mcp.ListToolsResult, error) {
	if resp.Error != nil {
		return nil, fmt.Errorf("tools/list error: %w", resp.Error)
	}
	if len(resp.Result) == 0 {
		return nil, errors.New("tools/list response missing result")
	}
	var result mcp.ListToolsResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("decode tools/list result: %w", err)
	}
	return &result, nil
}

func decodeCallResult(resp *jsonrpc.Response) (*mcp.CallToolResult, error) {
	if resp.Error != nil {
		return nil, fmt.Errorf("tools/call error: %w", resp.Error)
	}
	if len(resp.Result) == 0 {
		return nil, errors.New("tools/call response missing result")
	}
	var result mcp.CallToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("decode tools/call result: %w", err)
	}
	return &result, nil
}

// resultPayload unpacks a call result. Structured content wins when present;
// otherwise a single text block is returned as its string and multiple blocks
// as a string slice. Backend-reported failures become errors carrying the
// backend's own message so callers can classify them.
func resultPayload(result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, errors.New("tools/call returned no result")
	}
	texts := textContents(result.Content)
	if result.IsError {
		msg := strings.Join(texts, "; ")
		if msg == "" {
			msg = "capability reported an error"
		}
		return nil, errors.New(msg)
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}
	switch len(texts) {
	case 0:
		return nil, nil
	case 1:
		return texts[0], nil
	default:
		out := make([]any, 0, len(texts))
		for _, text := range texts {
			out = append(out, text)
		}
		return out, nil
	}
}

func textContents(content []mcp.Content) []string {
	var texts []string
	for _, item := range content {
		if text, ok := item.(*mcp.TextContent); ok && text.Text != "" {
			texts = append(texts, text.Text)
		}
	}
	return texts
}
