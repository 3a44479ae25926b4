// Package mcp provides the "sheetgraph mcp" command, an MCP server on stdio.
package mcp

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetgraph/cmd/version"
	"github.com/klytics/sheetgraph/internal/config"
	"github.com/klytics/sheetgraph/internal/mcptool"
	"github.com/klytics/sheetgraph/internal/pipeline"
	"github.com/klytics/sheetgraph/internal/source"
)

// NewCommand returns the mcp subcommand.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve extraction tools over MCP on stdio",
		Long: `Runs an MCP server on stdin/stdout exposing:
  sheetgraph_extract  {"path": "...", "sheet": "..."}
  sheetgraph_formats  supported workbook extensions

Logs go to stderr so stdout carries only protocol messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Current()
			if err != nil {
				return err
			}
			loader, err := source.NewLoader(cfg.S3)
			if err != nil {
				return err
			}
			srv := mcptool.NewServer(version.Version, pipeline.FromConfig(cfg, slog.Default()), loader)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			slog.Info("mcp server starting", "transport", "stdio")
			return srv.Run(ctx, &mcp.StdioTransport{})
		},
	}
}
