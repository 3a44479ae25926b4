package graph

import "github.com/klytics/sheetgraph/internal/frame"

// DataType is the coarse per-cell classification.
type DataType string

const (
	Numeric DataType = "numeric"
	Boolean DataType = "boolean"
	Text    DataType = "text"
)

// Classify tags a cell value. Booleans are checked before numbers.
func Classify(v frame.Value) DataType {
	switch v.Kind() {
	case frame.KindBool:
		return Boolean
	case frame.KindInt, frame.KindFloat:
		return Numeric
	}
	return Text
}
