package graph

import (
	"fmt"
	"strings"

	"github.com/klytics/sheetgraph/internal/frame"
	"github.com/klytics/sheetgraph/internal/profile"
)

// RowOffset converts a data row's 0-based source position into the
// spreadsheet row number, assuming a single header row.
const RowOffset = 2

const summaryColumns = 5

// Assemble builds the graph of a cleaned frame. Columns without stats get an
// empty record and the "unknown" type.
func Assemble(f *frame.Frame, stats map[string]profile.ColumnStats, sheet string) TableGraph {
	rows, cols := f.Shape()
	g := TableGraph{
		SheetName:  sheet,
		Dimensions: fmt.Sprintf("%dx%d", rows, cols),
		Columns:    make([]ColumnMetadata, 0, cols),
		Nodes:      make([]CellNode, 0, f.NonMissing()),
		Summary:    Summary(f.SourceColumns),
	}

	for _, name := range f.Columns {
		s := stats[name]
		inferred := s.Type
		if inferred == "" {
			inferred = profile.TypeUnknown
		}
		g.Columns = append(g.Columns, ColumnMetadata{
			Name:         name,
			InferredType: inferred,
			Stats:        s,
		})
	}

	for _, r := range f.Rows {
		row := r.Source + RowOffset
		for j, v := range r.Cells {
			if v.IsMissing() {
				continue
			}
			header := f.Columns[j]
			g.Nodes = append(g.Nodes, CellNode{
				Coordinate: fmt.Sprintf("Row%d:%s", row, header),
				Value:      v,
				DataType:   Classify(v),
				Context: CellContext{
					AssociatedHeader: header,
					RowIndex:         row,
					Sheet:            sheet,
				},
			})
		}
	}
	return g
}

// Summary names up to the first five columns.
func Summary(columns []string) string {
	if len(columns) > summaryColumns {
		columns = columns[:summaryColumns]
	}
	return "Table containing columns: " + strings.Join(columns, ", ")
}
