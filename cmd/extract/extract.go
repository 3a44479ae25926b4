// Package extract provides the "sheetgraph extract" command.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klytics/sheetgraph/internal/config"
	"github.com/klytics/sheetgraph/internal/output"
	"github.com/klytics/sheetgraph/internal/pipeline"
	"github.com/klytics/sheetgraph/internal/progress"
	"github.com/klytics/sheetgraph/internal/source"
)

// pageHeight is the line count above which pretty output goes through a pager.
const pageHeight = 40

type options struct {
	format string
	sheets []string
	out    string
}

// NewCommand returns the extract subcommand.
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "extract <file|-|s3://bucket/key>",
		Short: "Extract a workbook into a semantic graph",
		Long: `Reads a workbook and prints one table graph per non-empty sheet.

Examples:
  sheetgraph extract sales.xlsx
  sheetgraph extract legacy.xls --format pretty
  cat report.xlsx | sheetgraph extract - --sheet Summary
  sheetgraph extract s3://finance/q3.xlsx --out q3.graph.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Current()
			if err != nil {
				return err
			}
			if opts.format == "" {
				opts.format = cfg.Output.Format
			}
			loader, err := source.NewLoader(cfg.S3)
			if err != nil {
				return err
			}
			loader.Stdin = cmd.InOrStdin()

			p := pipeline.FromConfig(cfg, slog.Default(), pipeline.WithSheets(opts.sheets...))
			return run(cmd.Context(), p, loader, args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: json | yaml | pretty (default from output.format)")
	cmd.Flags().StringSliceVar(&opts.sheets, "sheet", nil, "Only extract the named sheet(s)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the result to a file instead of stdout")

	return cmd
}

func run(ctx context.Context, p *pipeline.Pipeline, loader *source.Loader, ref string, opts options, stdout io.Writer) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var spin *progress.Spinner
	if strings.HasPrefix(ref, "s3://") {
		spin = progress.NewSpinner("Downloading " + ref)
		spin.Start()
	}
	content, filename, err := loader.Load(ctx, ref)
	if spin != nil {
		spin.Stop("Downloaded " + ref)
	}
	if err != nil {
		return err
	}

	resp, err := p.Extract(content, filename)
	if err != nil {
		return err
	}

	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("could not create %s: %w", opts.out, err)
		}
		if err := output.NewWriter(f, format).WriteResponse(resp); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	if format == output.FormatPretty && stdout == os.Stdout {
		var buf bytes.Buffer
		if err := output.RenderPretty(&buf, resp); err != nil {
			return err
		}
		if output.ShouldPage(buf.String(), pageHeight) {
			return output.Page(buf.String())
		}
		_, err := io.Copy(stdout, &buf)
		return err
	}

	return output.NewWriter(stdout, format).WriteResponse(resp)
}
