package layeraudit

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/renderaudit/kit"
)

// RegisterMCP registers the layeraudit tools on an MCP server.
func (a *Auditor) RegisterMCP(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "layeraudit_audit_page",
		Description: "Load a URL in Chrome and audit its rendering: incorrect compositing layers, <head> links blocking first paint, and large off-screen images. Returns the report as JSON.",
		InputSchema: inputSchema(map[string]any{
			"url":     map[string]any{"type": "string", "description": "Page URL to audit"},
			"page_id": map[string]any{"type": "string", "description": "Caller-chosen page identifier (default: the URL)"},
			"audits": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string", "enum": []any{AuditLayers, AuditLinkInHead, AuditInvisibleImages}},
				"description": "Audits to run (default: all)",
			},
		}, []string{"url"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r AuditRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{
			Request: &r,
			EnrichCtx: func(ctx context.Context) context.Context {
				return kit.WithRequestID(ctx, newRequestID())
			},
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, a.auditEndpoint(), decode)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
