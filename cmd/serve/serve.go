// Package serve provides the "sheetgraph serve" command.
package serve

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/klytics/sheetgraph/cmd/version"
	"github.com/klytics/sheetgraph/internal/config"
	"github.com/klytics/sheetgraph/internal/mcptool"
	"github.com/klytics/sheetgraph/internal/pipeline"
	"github.com/klytics/sheetgraph/internal/server"
	"github.com/klytics/sheetgraph/internal/source"
)

// NewCommand returns the serve subcommand.
func NewCommand() *cobra.Command {
	var (
		addr    string
		withMCP bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload endpoint over HTTP",
		Long: `Starts an HTTP server with:
  POST /upload/excel  multipart field "file", returns the extraction as JSON
  GET  /health        liveness probe
  /mcp                MCP over streamable HTTP (with --mcp)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Current()
			if err != nil {
				return err
			}
			logger := slog.Default()
			p := pipeline.FromConfig(cfg, logger)

			opts := options(cfg, logger)
			if addr != "" {
				opts.Addr = addr
			}
			if withMCP {
				loader, err := source.NewLoader(cfg.S3)
				if err != nil {
					return err
				}
				opts.MCP = mcptool.NewServer(version.Version, p, loader)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(p, opts).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from server.addr)")
	cmd.Flags().BoolVar(&withMCP, "mcp", false, "Also serve MCP tools at /mcp")

	return cmd
}

func options(cfg *config.Config, logger *slog.Logger) server.Options {
	return server.Options{
		Addr:           cfg.Server.Addr,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		Timeout:        cfg.Server.Timeout,
		Logger:         logger,
	}
}
