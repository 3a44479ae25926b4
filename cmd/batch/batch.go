// Package batch provides CLI commands for batch extraction of workbooks.
package batch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/klytics/sheetgraph/internal/config"
	"github.com/klytics/sheetgraph/internal/output"
	"github.com/klytics/sheetgraph/internal/pipeline"
	"github.com/klytics/sheetgraph/internal/progress"
	"github.com/klytics/sheetgraph/internal/source"
)

type batchResultItem struct {
	File   string `json:"file"`
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
	Tables int    `json:"tables"`
	Nodes  int    `json:"nodes"`
	Error  string `json:"error,omitempty"`
}

// NewCommand returns the batch subcommand.
func NewCommand() *cobra.Command {
	var (
		outDir      string
		concurrency int
		jsonReport  bool
		recursive   bool
	)

	cmd := &cobra.Command{
		Use:   "batch <glob-pattern|directory>",
		Short: "Extract every workbook matching a glob pattern or inside a directory",
		Long: `Extracts all workbooks matching a glob pattern, or found in a directory,
and writes <name>.graph.json next to each file, or into --out-dir.

On error, the batch logs the failure and continues to the next file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Current()
			if err != nil {
				return err
			}

			files, err := collect(args[0], recursive)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				err := fmt.Errorf("no workbooks matched %q", args[0])
				if jsonReport {
					output.PrintJSONError(cmd.OutOrStdout(), "batch", err, output.ExitUserError)
				}
				return err
			}

			if outDir != "" {
				if err := os.MkdirAll(outDir, 0755); err != nil {
					return fmt.Errorf("could not create output directory %s: %w", outDir, err)
				}
			}

			p := pipeline.FromConfig(cfg, slog.Default())
			bar := progress.New("Extracting", len(files))
			results := runBatch(p, files, outDir, concurrency, bar)

			succeeded, failed := tally(results)
			bar.Finish(fmt.Sprintf("Processed %d files. %d succeeded, %d failed.", len(files), succeeded, failed))

			out := cmd.OutOrStdout()
			if jsonReport {
				return output.PrintJSON(out, "batch", results)
			}
			w := output.NewWriter(out, output.FormatJSON)
			for _, r := range results {
				if r.Status == "ok" {
					w.WriteLn(fmt.Sprintf("ok     %s → %s (%d tables, %d nodes)", r.File, r.Output, r.Tables, r.Nodes))
				} else {
					w.WriteLn(fmt.Sprintf("error  %s: %s", r.File, r.Error))
				}
			}
			return w.WriteLn(fmt.Sprintf("\nProcessed %d files. %d succeeded, %d failed.", len(files), succeeded, failed))
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "Output directory for graph files (default: next to each workbook)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of parallel workers")
	cmd.Flags().BoolVar(&jsonReport, "json", false, "Print the per-file report as JSON")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories when given a directory")

	return cmd
}

// collect resolves a directory or glob pattern to workbook paths.
func collect(arg string, recursive bool) ([]string, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		found, err := source.Scan(arg, source.ScanOptions{Recursive: recursive})
		if err != nil {
			return nil, err
		}
		files := make([]string, len(found))
		for i, f := range found {
			files[i] = f.Path
		}
		return files, nil
	}

	matches, err := filepath.Glob(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", arg, err)
	}
	var files []string
	for _, m := range matches {
		if source.IsWorkbook(m) && !strings.HasSuffix(m, output.GraphSuffix) {
			files = append(files, m)
		}
	}
	return files, nil
}

func runBatch(p *pipeline.Pipeline, files []string, outDir string, concurrency int, bar *progress.Bar) []batchResultItem {
	results := make([]batchResultItem, len(files))

	if concurrency <= 1 {
		for i, file := range files {
			results[i] = processFile(p, file, outDir)
			advance(bar, results[i])
		}
		return results
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(idx int, f string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = processFile(p, f, outDir)
			advance(bar, results[idx])
		}(i, file)
	}
	wg.Wait()
	return results
}

func advance(bar *progress.Bar, r batchResultItem) {
	if bar == nil {
		return
	}
	if r.Status == "ok" {
		bar.Increment(filepath.Base(r.File))
	} else {
		bar.Fail(filepath.Base(r.File))
	}
}

func processFile(p *pipeline.Pipeline, file, outDir string) batchResultItem {
	result := batchResultItem{File: file, Status: "ok"}

	data, err := os.ReadFile(file)
	if err != nil {
		return failed(result, fmt.Errorf("could not read %s: %w", file, err))
	}
	resp, err := p.Extract(data, filepath.Base(file))
	if err != nil {
		return failed(result, err)
	}
	target, err := output.WriteGraphFile(resp, file, outDir)
	if err != nil {
		return failed(result, err)
	}

	result.Output = target
	result.Tables = len(resp.Tables)
	for _, t := range resp.Tables {
		result.Nodes += len(t.Nodes)
	}
	return result
}

func failed(r batchResultItem, err error) batchResultItem {
	r.Status = "error"
	r.Error = err.Error()
	return r
}

func tally(results []batchResultItem) (succeeded, failed int) {
	for _, r := range results {
		if r.Status == "ok" {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
