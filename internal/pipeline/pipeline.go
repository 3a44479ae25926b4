// Package pipeline runs the extraction of a workbook into per-sheet graphs.
package pipeline

import (
	"io"
	"log/slog"

	"github.com/klytics/sheetgraph/internal/config"
	"github.com/klytics/sheetgraph/internal/graph"
	"github.com/klytics/sheetgraph/internal/profile"
	"github.com/klytics/sheetgraph/internal/workbook"
)

// Pipeline sequences reading, profiling and assembly for each sheet. A
// Pipeline holds no per-run state and may be shared across goroutines.
type Pipeline struct {
	profiler profile.Profiler
	logger   *slog.Logger
	sheets   map[string]bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProfiler replaces the default column profiler. A nil profiler disables
// profiling: every column is reported with empty stats.
func WithProfiler(p profile.Profiler) Option {
	return func(pl *Pipeline) { pl.profiler = p }
}

// WithLogger sets the logger used for per-sheet diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(pl *Pipeline) {
		if l != nil {
			pl.logger = l
		}
	}
}

// WithSheets restricts extraction to the named sheets.
func WithSheets(names ...string) Option {
	return func(pl *Pipeline) {
		if len(names) == 0 {
			return
		}
		pl.sheets = make(map[string]bool, len(names))
		for _, n := range names {
			pl.sheets[n] = true
		}
	}
}

// New creates a pipeline using the default profiler.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		profiler: profile.Default,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FromConfig creates a pipeline honouring profile.enabled. Extra options are
// applied last.
func FromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	base := []Option{WithLogger(logger)}
	if cfg != nil && !cfg.Profile.Enabled {
		base = append(base, WithProfiler(nil))
	}
	return New(append(base, opts...)...)
}

// Run extracts one graph per non-empty sheet, in workbook order. A
// *workbook.FormatError is returned as is and no tables are returned with it.
func (p *Pipeline) Run(content []byte, filename string) ([]graph.TableGraph, error) {
	r, err := workbook.Open(content, filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	tables := []graph.TableGraph{}
	for r.Next() {
		sheet := r.Sheet()
		if p.sheets != nil && !p.sheets[sheet.Name] {
			continue
		}

		stats := map[string]profile.ColumnStats{}
		if p.profiler != nil {
			stats = profile.Safe(p.profiler, sheet.Frame, sheet.Name, p.logger).Stats
		}

		g := graph.Assemble(sheet.Frame, stats, sheet.Name)
		rows, cols := sheet.Frame.Shape()
		p.logger.Debug("sheet extracted",
			"file", filename,
			"sheet", sheet.Name,
			"rows", rows,
			"cols", cols,
			"nodes", len(g.Nodes),
		)
		tables = append(tables, g)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

// Extract runs the pipeline and wraps the tables in a response.
func (p *Pipeline) Extract(content []byte, filename string) (*graph.ExtractionResponse, error) {
	tables, err := p.Run(content, filename)
	if err != nil {
		return nil, err
	}
	return &graph.ExtractionResponse{Filename: filename, Tables: tables}, nil
}
