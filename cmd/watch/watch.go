// Package watch provides the "sheetgraph watch" CLI commands for directory monitoring.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/klytics/sheetgraph/internal/config"
	"github.com/klytics/sheetgraph/internal/output"
	"github.com/klytics/sheetgraph/internal/pipeline"
	w "github.com/klytics/sheetgraph/internal/watch"
)

// NewCommand creates the "watch" command with subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Monitor directories and extract workbooks as they change",
		Long: `Watch directories for new or modified workbooks and write their graph
as <name>.graph.json next to each file (or into --out-dir).

Example:
  sheetgraph watch start ./inbox --recursive
  sheetgraph watch status
  sheetgraph watch stop`,
	}

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func newStartCmd() *cobra.Command {
	var (
		extensions []string
		pattern    string
		recursive  bool
		debounce   int
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "start <directory> [directory...]",
		Short: "Start watching directories for workbook changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Current()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = cfg.Watch.DebounceMS
			}
			if outDir == "" {
				outDir = cfg.Watch.OutDir
			}

			rule := w.DefaultRule()
			if len(extensions) > 0 {
				rule.Extensions = extensions
			}
			rule.Pattern = pattern

			watchCfg := w.WatchConfig{
				Directories: args,
				Rules:       []w.Rule{rule},
				Recursive:   recursive,
				Debounce:    debounce,
				OutDir:      outDir,
			}

			watcher, err := w.New(watchCfg)
			if err != nil {
				return err
			}
			watcher.Logger = slog.Default()
			watcher.Handler = w.ExtractHandler(pipeline.FromConfig(cfg, slog.Default()), outDir)

			configDir := w.DefaultConfigDir()
			if err := w.WritePIDFile(configDir); err != nil {
				slog.Warn("could not write PID file", "error", err)
			}
			defer w.RemovePIDFile(configDir)

			if err := w.SaveConfig(configDir, watcher.Config); err != nil {
				slog.Warn("could not save watcher config", "error", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %d directory(ies) for %s files\n",
				len(args), strings.Join(rule.Extensions, ", "))
			fmt.Fprintln(out, "Press Ctrl+C to stop")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watcher.Start(ctx)
		},
	}

	cmd.Flags().StringSliceVar(&extensions, "ext", nil, "Workbook extensions to watch (default: all supported)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Only process files whose name matches this glob")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Watch directories recursively")
	cmd.Flags().IntVar(&debounce, "debounce", 500, "Debounce interval in milliseconds (default from watch.debounce_ms)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for graph files (default: next to each workbook)")

	return cmd
}

func newStopCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir := w.DefaultConfigDir()
			pid, err := w.ReadPIDFile(configDir)
			if err != nil {
				return fmt.Errorf("no watcher running (PID file not found)")
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("could not find process %d: %w", pid, err)
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				w.RemovePIDFile(configDir)
				return fmt.Errorf("could not stop watcher (PID %d): %w", pid, err)
			}

			w.RemovePIDFile(configDir)

			if jsonOut {
				return output.PrintJSON(cmd.OutOrStdout(), "watch stop", map[string]any{"stopped": true, "pid": pid})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped watcher (PID %d)\n", pid)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current watcher status",
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir := w.DefaultConfigDir()

			pid, err := w.ReadPIDFile(configDir)
			running := err == nil
			if running && !alive(pid) {
				running = false
				w.RemovePIDFile(configDir)
			}

			out := cmd.OutOrStdout()
			if !running {
				if jsonOut {
					return output.PrintJSON(out, "watch status", map[string]any{"running": false})
				}
				fmt.Fprintln(out, "Watcher is not running")
				return nil
			}

			watchCfg, _ := w.LoadConfig(configDir)

			status := map[string]any{
				"running": true,
				"pid":     pid,
			}
			if watchCfg != nil {
				status["directories"] = watchCfg.Directories
				status["rules"] = len(watchCfg.Rules)
				status["recursive"] = watchCfg.Recursive
				status["outDir"] = watchCfg.OutDir
			}

			if jsonOut {
				return output.PrintJSON(out, "watch status", status)
			}

			fmt.Fprintf(out, "Watcher is running (PID %d)\n", pid)
			if watchCfg != nil {
				fmt.Fprintf(out, "  Directories: %s\n", strings.Join(watchCfg.Directories, ", "))
				fmt.Fprintf(out, "  Rules:       %d\n", len(watchCfg.Rules))
				fmt.Fprintf(out, "  Recursive:   %v\n", watchCfg.Recursive)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// alive sends signal 0 to check that pid still exists.
func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

func newConfigCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the last watcher configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			watchCfg, err := w.LoadConfig(w.DefaultConfigDir())
			if err != nil {
				return fmt.Errorf("no watcher configuration found (run 'sheetgraph watch start' first)")
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return output.PrintJSON(out, "watch config", watchCfg)
			}

			fmt.Fprintf(out, "Directories: %s\n", strings.Join(watchCfg.Directories, ", "))
			fmt.Fprintf(out, "Recursive:   %v\n", watchCfg.Recursive)
			fmt.Fprintf(out, "Debounce:    %dms\n", watchCfg.Debounce)
			if watchCfg.OutDir != "" {
				fmt.Fprintf(out, "Out dir:     %s\n", watchCfg.OutDir)
			}
			fmt.Fprintf(out, "Rules:       %d\n", len(watchCfg.Rules))
			for _, r := range watchCfg.Rules {
				fmt.Fprintf(out, "  [%s] ext=%v pattern=%q enabled=%v\n",
					r.ID, r.Extensions, r.Pattern, r.Enabled)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
