// Package cmd contains all CLI commands for the sheetgraph binary.
package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetgraph/cmd/batch"
	"github.com/klytics/sheetgraph/cmd/completion"
	cmdconfig "github.com/klytics/sheetgraph/cmd/config"
	"github.com/klytics/sheetgraph/cmd/doctor"
	"github.com/klytics/sheetgraph/cmd/extract"
	cmdmcp "github.com/klytics/sheetgraph/cmd/mcp"
	"github.com/klytics/sheetgraph/cmd/serve"
	"github.com/klytics/sheetgraph/cmd/version"
	cmdwatch "github.com/klytics/sheetgraph/cmd/watch"
	"github.com/klytics/sheetgraph/internal/config"
	"github.com/klytics/sheetgraph/internal/logging"
	"github.com/klytics/sheetgraph/internal/output"
	"github.com/klytics/sheetgraph/internal/source"
	"github.com/klytics/sheetgraph/internal/workbook"
)

var (
	configFile string
	verbose    bool
	noColor    bool
	logFormat  string
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sheetgraph",
		Short: "Turn spreadsheets into semantic graphs",
		Long: `sheetgraph reads .xlsx and .xls workbooks and turns every non-empty sheet
into a table graph: column metadata with statistics, and one typed node per
non-empty cell carrying its header, row and sheet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if noColor || !cfg.Output.Color {
				color.NoColor = true
			}

			level := cfg.Log.Level
			if verbose {
				level = "debug"
			}
			format := cfg.Log.Format
			if logFormat != "" {
				format = logFormat
			}
			slog.SetDefault(logging.New(os.Stderr, level, format))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.sheetgraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text | json")

	rootCmd.AddCommand(extract.NewCommand())
	rootCmd.AddCommand(batch.NewCommand())
	rootCmd.AddCommand(serve.NewCommand())
	rootCmd.AddCommand(cmdmcp.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(doctor.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and handles any returned errors.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		output.WriteError("%s", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps I/O and network failures to ExitSystemError and everything
// else, unreadable workbooks included, to ExitUserError.
func exitCode(err error) int {
	var (
		fe      *workbook.FormatError
		pathErr *fs.PathError
		netErr  net.Error
	)
	switch {
	case err == nil:
		return output.ExitOK
	case errors.As(err, &fe), errors.Is(err, source.ErrUnsupportedExtension), errors.Is(err, fs.ErrNotExist):
		return output.ExitUserError
	case errors.As(err, &netErr), errors.As(err, &pathErr):
		return output.ExitSystemError
	}
	return output.ExitUserError
}
