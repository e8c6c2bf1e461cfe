package layeraudit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

var testImpl = &mcp.Implementation{Name: "layeraudit-test", Version: "0.1.0"}

// mcpSession registers the tools of a test Auditor and returns a connected
// client session.
func mcpSession(t *testing.T, a *Auditor) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testImpl, nil)
	a.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() {
		_ = srv.Run(ctx, serverT)
	}()

	session, err := mcp.NewClient(testImpl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func TestMCP_ListTools(t *testing.T) {
	a, _ := newTestAuditor(t, newTestPage())
	session := mcpSession(t, a)

	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(res.Tools) != 1 || res.Tools[0].Name != "layeraudit_audit_page" {
		t.Errorf("tools: got %+v", res.Tools)
	}
}

func TestMCP_AuditPage(t *testing.T) {
	a, _ := newTestAuditor(t, newTestPage())
	session := mcpSession(t, a)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "layeraudit_audit_page",
		Arguments: map[string]any{"url": "https://a.test/", "audits": []string{"invisible_images"}},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %+v", result.Content)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content: got %T", result.Content[0])
	}
	var rep artifact.Report
	if err := json.Unmarshal([]byte(tc.Text), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.InvisibleImages == nil || rep.InvisibleImages.RawValue != 1 {
		t.Errorf("report: got %+v", rep)
	}
}

func TestMCP_InvalidPageIsToolError(t *testing.T) {
	a, _ := newTestAuditor(t, newTestPage())
	session := mcpSession(t, a)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "layeraudit_audit_page",
		Arguments: map[string]any{"url": ""},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Error("IsError: got false, want true")
	}
}
