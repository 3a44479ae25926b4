package frame

import (
	"fmt"
	"strconv"
)

// Row is one data row of a frame.
type Row struct {
	// Source is the 0-based position of the row among the sheet's data rows
	// before cleanup.
	Source int
	Cells  []Value
}

// Frame is a rectangular table with a header of unique column names.
// Every row has exactly len(Columns) cells.
type Frame struct {
	Columns []string
	Rows    []Row

	// SourceColumns is the normalized header as read, before cleanup.
	SourceColumns []string
}

// FromGrid builds a frame from a raw sheet grid whose first row is the header.
// Ragged rows are padded with nulls to the widest row.
func FromGrid(grid [][]Value) *Frame {
	if len(grid) == 0 {
		return &Frame{}
	}

	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}

	columns := normalizeHeader(grid[0], width)
	f := &Frame{
		Columns:       columns,
		SourceColumns: append([]string(nil), columns...),
	}
	for i, raw := range grid[1:] {
		cells := make([]Value, width)
		copy(cells, raw)
		f.Rows = append(f.Rows, Row{Source: i, Cells: cells})
	}
	return f
}

// normalizeHeader names missing headers "Unnamed: i" and suffixes repeated
// names with ".1", ".2", ...
func normalizeHeader(header []Value, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = header[i].String()
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if _, dup := seen[name]; dup {
			base, n := name, seen[name]
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}

// Clean drops rows whose cells are all missing, then columns whose cells are
// all missing. Surviving columns keep their first-appearance order.
func (f *Frame) Clean() *Frame {
	out := &Frame{SourceColumns: f.SourceColumns}

	var rows []Row
	for _, r := range f.Rows {
		for _, c := range r.Cells {
			if !c.IsMissing() {
				rows = append(rows, r)
				break
			}
		}
	}

	var keep []int
	for j := range f.Columns {
		for _, r := range rows {
			if !r.Cells[j].IsMissing() {
				keep = append(keep, j)
				break
			}
		}
	}

	out.Columns = make([]string, len(keep))
	for k, j := range keep {
		out.Columns[k] = f.Columns[j]
	}
	if len(keep) == 0 {
		return out
	}
	out.Rows = make([]Row, len(rows))
	for i, r := range rows {
		cells := make([]Value, len(keep))
		for k, j := range keep {
			cells[k] = r.Cells[j]
		}
		out.Rows[i] = Row{Source: r.Source, Cells: cells}
	}
	return out
}

// Empty reports whether the frame has no rows or no columns.
func (f *Frame) Empty() bool {
	return len(f.Rows) == 0 || len(f.Columns) == 0
}

// Shape returns the row and column counts.
func (f *Frame) Shape() (rows, cols int) {
	return len(f.Rows), len(f.Columns)
}

// Column returns the cells of column j in row order.
func (f *Frame) Column(j int) []Value {
	col := make([]Value, len(f.Rows))
	for i, r := range f.Rows {
		col[i] = r.Cells[j]
	}
	return col
}

// NonMissing counts the cells that are not null.
func (f *Frame) NonMissing() int {
	n := 0
	for _, r := range f.Rows {
		for _, c := range r.Cells {
			if !c.IsMissing() {
				n++
			}
		}
	}
	return n
}
