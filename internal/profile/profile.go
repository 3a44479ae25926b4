// Package profile computes per-column statistics for a cleaned frame.
package profile

import (
	"fmt"
	"log/slog"

	"github.com/klytics/sheetgraph/internal/frame"
)

// Column type labels.
const (
	TypeNumeric     = "numeric"
	TypeCategorical = "categorical"
	TypeBoolean     = "boolean"
	TypeUnsupported = "unsupported"
	TypeUnknown     = "unknown"
)

// ColumnStats is the statistics record for one column. Keys that could not be
// computed are left nil and omitted from the encoded form.
type ColumnStats struct {
	Type            string       `json:"type,omitempty" yaml:"type,omitempty"`
	DistinctCount   *int         `json:"n_distinct,omitempty" yaml:"n_distinct,omitempty"`
	MissingFraction *float64     `json:"missing_pct,omitempty" yaml:"missing_pct,omitempty"`
	Min             *frame.Value `json:"min,omitempty" yaml:"min,omitempty"`
	Max             *frame.Value `json:"max,omitempty" yaml:"max,omitempty"`
}

// IsZero reports whether no statistic is set.
func (s ColumnStats) IsZero() bool {
	return s.Type == "" && s.DistinctCount == nil && s.MissingFraction == nil && s.Min == nil && s.Max == nil
}

// Profiler computes column statistics keyed by column name.
type Profiler interface {
	Profile(f *frame.Frame) (map[string]ColumnStats, error)
}

// ProfilerFunc adapts a function to the Profiler interface.
type ProfilerFunc func(f *frame.Frame) (map[string]ColumnStats, error)

// Profile calls fn(f).
func (fn ProfilerFunc) Profile(f *frame.Frame) (map[string]ColumnStats, error) {
	return fn(f)
}

// Default is the built-in profiler.
var Default Profiler = stats{}

type stats struct{}

func (stats) Profile(f *frame.Frame) (map[string]ColumnStats, error) {
	out := make(map[string]ColumnStats, len(f.Columns))
	for j, name := range f.Columns {
		out[name] = Column(f.Column(j))
	}
	return out, nil
}

// Column profiles a single column of values.
func Column(values []frame.Value) ColumnStats {
	var (
		missing  int
		distinct = make(map[frame.Value]struct{})
		lo, hi   frame.Value
		kinds    = make(map[frame.Kind]int)
	)
	for _, v := range values {
		if v.IsMissing() {
			missing++
			continue
		}
		kinds[v.Kind()]++
		distinct[v.Key()] = struct{}{}
		if !v.IsNumber() {
			continue
		}
		if lo.IsMissing() || v.Float64() < lo.Float64() {
			lo = v
		}
		if hi.IsMissing() || v.Float64() > hi.Float64() {
			hi = v
		}
	}

	s := ColumnStats{Type: label(kinds)}
	if len(values) > 0 {
		n := len(distinct)
		frac := float64(missing) / float64(len(values))
		s.DistinctCount = &n
		s.MissingFraction = &frac
	}
	if s.Type == TypeNumeric {
		s.Min, s.Max = &lo, &hi
	}
	return s
}

func label(kinds map[frame.Kind]int) string {
	total := 0
	for _, n := range kinds {
		total += n
	}
	switch {
	case total == 0:
		return TypeUnsupported
	case kinds[frame.KindBool] == total:
		return TypeBoolean
	case kinds[frame.KindInt]+kinds[frame.KindFloat] == total:
		return TypeNumeric
	}
	return TypeCategorical
}

// Result is the outcome of a guarded profiling run. On failure Stats is empty
// and Err holds the cause.
type Result struct {
	Stats map[string]ColumnStats
	Err   error
}

// Failed reports whether profiling degraded to empty stats.
func (r Result) Failed() bool { return r.Err != nil }

// Safe runs p over f and never fails: errors and panics are logged and
// replaced by an empty stats mapping. A nil logger disables logging.
func Safe(p Profiler, f *frame.Frame, sheet string, logger *slog.Logger) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = degrade(fmt.Errorf("profiler panic: %v", r), sheet, logger)
		}
	}()

	out, err := p.Profile(f)
	if err != nil {
		return degrade(err, sheet, logger)
	}
	if out == nil {
		out = map[string]ColumnStats{}
	}
	return Result{Stats: out}
}

func degrade(err error, sheet string, logger *slog.Logger) Result {
	if logger != nil {
		logger.Warn("profiling failed, continuing without stats", "sheet", sheet, "error", err)
	}
	return Result{Stats: map[string]ColumnStats{}, Err: err}
}
