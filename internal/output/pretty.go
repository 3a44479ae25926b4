package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/klytics/sheetgraph/internal/graph"
	"github.com/klytics/sheetgraph/internal/profile"
)

// RenderPretty prints one block per sheet: shape, summary and a column table
// with the profiler's statistics.
func RenderPretty(w io.Writer, resp *graph.ExtractionResponse) error {
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	cyan := color.New(color.FgCyan)

	var sb strings.Builder
	sb.WriteString(bold.Sprintf("%s", resp.Filename))
	sb.WriteString(dim.Sprintf("  (%d %s)\n", len(resp.Tables), plural(len(resp.Tables), "sheet", "sheets")))

	if len(resp.Tables) == 0 {
		sb.WriteString(dim.Sprint("  no non-empty sheets\n"))
	}

	for _, t := range resp.Tables {
		sb.WriteString("\n")
		sb.WriteString(cyan.Sprintf("Sheet: %s", t.SheetName))
		sb.WriteString(fmt.Sprintf("  %s, %d nodes\n", t.Dimensions, len(t.Nodes)))
		sb.WriteString(dim.Sprintf("  %s\n", t.Summary))

		width := len("Column")
		for _, c := range t.Columns {
			width = max(width, len(c.Name))
		}
		sb.WriteString(bold.Sprintf("  %-*s  %-12s  %8s  %8s  %s\n", width, "Column", "Type", "Distinct", "Missing", "Range"))
		for _, c := range t.Columns {
			sb.WriteString(fmt.Sprintf("  %-*s  %s  %8s  %8s  %s\n",
				width, c.Name,
				typeColor(c.InferredType).Sprintf("%-12s", c.InferredType),
				distinct(c.Stats), missing(c.Stats), valueRange(c.Stats)))
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func typeColor(t string) *color.Color {
	switch t {
	case profile.TypeNumeric:
		return color.New(color.FgGreen)
	case profile.TypeBoolean:
		return color.New(color.FgMagenta)
	case profile.TypeCategorical:
		return color.New(color.FgBlue)
	}
	return color.New(color.FgYellow)
}

func distinct(s profile.ColumnStats) string {
	if s.DistinctCount == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *s.DistinctCount)
}

func missing(s profile.ColumnStats) string {
	if s.MissingFraction == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *s.MissingFraction*100)
}

func valueRange(s profile.ColumnStats) string {
	if s.Min == nil || s.Max == nil {
		return ""
	}
	return fmt.Sprintf("%s .. %s", s.Min, s.Max)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
