// Package mcptool registers the extraction pipeline as MCP tools.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/klytics/sheetgraph/internal/graph"
	"github.com/klytics/sheetgraph/internal/pipeline"
	"github.com/klytics/sheetgraph/internal/source"
)

// Tool names.
const (
	ExtractTool = "sheetgraph_extract"
	FormatsTool = "sheetgraph_formats"
)

// NewServer creates an MCP server with the sheetgraph tools registered.
func NewServer(version string, p *pipeline.Pipeline, loader *source.Loader) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "sheetgraph", Version: version}, nil)
	Register(srv, p, loader)
	return srv
}

// Register adds the sheetgraph tools to srv.
func Register(srv *mcp.Server, p *pipeline.Pipeline, loader *source.Loader) {
	registerExtract(srv, p, loader)
	registerFormats(srv)
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

type extractReq struct {
	Path  string `json:"path"`
	Sheet string `json:"sheet,omitempty"`
}

func registerExtract(srv *mcp.Server, p *pipeline.Pipeline, loader *source.Loader) {
	tool := &mcp.Tool{
		Name:        ExtractTool,
		Description: "Extract a workbook into a semantic graph: per-sheet column statistics and one typed node per non-empty cell.",
		InputSchema: inputSchema(map[string]any{
			"path":  map[string]any{"type": "string", "description": "Local path or s3://bucket/key of an .xlsx or .xls workbook"},
			"sheet": map[string]any{"type": "string", "description": "Only return this sheet"},
		}, []string{"path"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r extractReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
		}
		if r.Path == "" {
			return toolError(fmt.Errorf("path is required")), nil
		}
		if r.Path == "-" {
			return toolError(fmt.Errorf("stdin is not available to tools")), nil
		}

		content, filename, err := loader.Load(ctx, r.Path)
		if err != nil {
			return toolError(err), nil
		}
		resp, err := p.Extract(content, filename)
		if err != nil {
			return toolError(err), nil
		}
		if r.Sheet != "" {
			resp = onlySheet(resp, r.Sheet)
		}
		return textResult(resp)
	})
}

func onlySheet(resp *graph.ExtractionResponse, sheet string) *graph.ExtractionResponse {
	out := &graph.ExtractionResponse{Filename: resp.Filename, Tables: []graph.TableGraph{}}
	for _, t := range resp.Tables {
		if t.SheetName == sheet {
			out.Tables = append(out.Tables, t)
		}
	}
	return out
}

func registerFormats(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        FormatsTool,
		Description: "List the workbook file extensions sheetgraph can read.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(map[string]any{"extensions": source.Extensions})
	})
}

func textResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Errorf("marshal: %w", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}
