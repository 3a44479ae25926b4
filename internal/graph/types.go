// Package graph assembles the semantic graph of a sheet: column metadata, one
// typed node per non-empty cell and a short summary.
package graph

import (
	"github.com/klytics/sheetgraph/internal/frame"
	"github.com/klytics/sheetgraph/internal/profile"
)

// CellContext links a node to its header, row and sheet.
type CellContext struct {
	AssociatedHeader string `json:"associated_header" yaml:"associated_header"`
	RowIndex         int    `json:"row_index" yaml:"row_index"`
	Sheet            string `json:"sheet" yaml:"sheet"`
}

// CellNode is one non-empty cell.
type CellNode struct {
	Coordinate string      `json:"coordinate" yaml:"coordinate"`
	Value      frame.Value `json:"value" yaml:"value"`
	DataType   DataType    `json:"data_type" yaml:"data_type"`
	Context    CellContext `json:"context" yaml:"context"`
}

// ColumnMetadata describes one surviving column of a sheet.
type ColumnMetadata struct {
	Name         string              `json:"name" yaml:"name"`
	InferredType string              `json:"inferred_type" yaml:"inferred_type"`
	Description  *string             `json:"description" yaml:"description"`
	Stats        profile.ColumnStats `json:"stats" yaml:"stats"`
}

// TableGraph is the graph of one non-empty sheet.
type TableGraph struct {
	SheetName  string           `json:"sheet_name" yaml:"sheet_name"`
	Dimensions string           `json:"dimensions" yaml:"dimensions"`
	Columns    []ColumnMetadata `json:"columns" yaml:"columns"`
	Nodes      []CellNode       `json:"nodes" yaml:"nodes"`
	Summary    string           `json:"summary" yaml:"summary"`
}

// ExtractionResponse is the result for one workbook.
type ExtractionResponse struct {
	Filename string       `json:"filename" yaml:"filename"`
	Tables   []TableGraph `json:"tables" yaml:"tables"`
}
