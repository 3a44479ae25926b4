package mcptool

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/klytics/sheetgraph/internal/formats/xlsx"
	"github.com/klytics/sheetgraph/internal/graph"
	"github.com/klytics/sheetgraph/internal/pipeline"
	"github.com/klytics/sheetgraph/internal/source"
)

var testImpl = &mcp.Implementation{Name: "sheetgraph-test", Version: "0.1.0"}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	srv := NewServer("test", pipeline.New(), &source.Loader{})

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return result
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	return tc.Text
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	err := xlsx.WriteFile(path,
		xlsx.Sheet{Name: "Sales", Rows: [][]any{{"ID", "Revenue"}, {1, 100}, {2, nil}}},
		xlsx.Sheet{Name: "Notes", Rows: [][]any{{"Text"}, {"hello"}}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractTool(t *testing.T) {
	session := mcpSession(t)
	result := callTool(t, session, ExtractTool, map[string]any{"path": writeWorkbook(t)})
	if result.IsError {
		t.Fatalf("tool error: %s", text(t, result))
	}

	var resp graph.ExtractionResponse
	if err := json.Unmarshal([]byte(text(t, result)), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Filename != "sales.xlsx" || len(resp.Tables) != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestExtractToolSheetFilter(t *testing.T) {
	session := mcpSession(t)
	result := callTool(t, session, ExtractTool, map[string]any{"path": writeWorkbook(t), "sheet": "Notes"})
	if result.IsError {
		t.Fatalf("tool error: %s", text(t, result))
	}

	var resp graph.ExtractionResponse
	if err := json.Unmarshal([]byte(text(t, result)), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Tables) != 1 || resp.Tables[0].SheetName != "Notes" {
		t.Errorf("expected only Notes, got %+v", resp.Tables)
	}
}

func TestExtractToolErrors(t *testing.T) {
	session := mcpSession(t)

	tests := map[string]map[string]any{
		"missing path":   {},
		"bad extension":  {"path": "/tmp/notes.txt"},
		"missing file":   {"path": filepath.Join(t.TempDir(), "gone.xlsx")},
		"stdin":          {"path": "-"},
		"s3 not enabled": {"path": "s3://bucket/book.xlsx"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			result := callTool(t, session, ExtractTool, args)
			if !result.IsError {
				t.Fatalf("expected a tool error, got %q", text(t, result))
			}
			if text(t, result) == "" {
				t.Error("tool error should carry a message")
			}
		})
	}
}

func TestFormatsTool(t *testing.T) {
	session := mcpSession(t)
	result := callTool(t, session, FormatsTool, map[string]any{})
	if result.IsError {
		t.Fatalf("tool error: %s", text(t, result))
	}
	if got := text(t, result); !strings.Contains(got, ".xlsx") || !strings.Contains(got, ".xls\"") {
		t.Errorf("unexpected formats %q", got)
	}
}
