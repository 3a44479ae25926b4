package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
)

func grid(rows ...[]any) [][]Value {
	out := make([][]Value, len(rows))
	for i, r := range rows {
		out[i] = make([]Value, len(r))
		for j, v := range r {
			out[i][j] = of(v)
		}
	}
	return out
}

func of(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case float64:
		return Float(x)
	}
	panic(fmt.Sprintf("unsupported test value %T", v))
}

func TestFromGridHeader(t *testing.T) {
	f := FromGrid(grid(
		[]any{"ID", nil, "ID", 2023},
		[]any{1, "x", 2, 3},
	))

	want := []string{"ID", "Unnamed: 1", "ID.1", "2023"}
	if len(f.Columns) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(f.Columns))
	}
	for i, name := range want {
		if f.Columns[i] != name {
			t.Errorf("column %d: expected %q, got %q", i, name, f.Columns[i])
		}
	}
}

func TestFromGridDuplicateSuffixCollision(t *testing.T) {
	f := FromGrid(grid([]any{"A", "A.1", "A"}, []any{1, 2, 3}))
	if f.Columns[2] != "A.2" {
		t.Errorf("expected A.2, got %q", f.Columns[2])
	}
}

func TestFromGridPadsRaggedRows(t *testing.T) {
	f := FromGrid(grid(
		[]any{"A"},
		[]any{1, 2, 3},
		[]any{4},
	))
	if len(f.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(f.Columns))
	}
	for _, r := range f.Rows {
		if len(r.Cells) != 3 {
			t.Errorf("row %d has %d cells", r.Source, len(r.Cells))
		}
	}
	if !f.Rows[1].Cells[2].IsMissing() {
		t.Error("padding cell should be missing")
	}
}

func TestCleanDropsEmptyRowsThenColumns(t *testing.T) {
	f := FromGrid(grid(
		[]any{"A", "B", "C"},
		[]any{1, nil, "x"},
		[]any{nil, nil, nil},
		[]any{2, nil, nil},
	)).Clean()

	rows, cols := f.Shape()
	if rows != 2 || cols != 2 {
		t.Fatalf("expected 2x2, got %dx%d", rows, cols)
	}
	if f.Columns[0] != "A" || f.Columns[1] != "C" {
		t.Errorf("unexpected columns %v", f.Columns)
	}
	if f.Rows[1].Source != 2 {
		t.Errorf("second surviving row should keep source 2, got %d", f.Rows[1].Source)
	}
	if len(f.SourceColumns) != 3 {
		t.Errorf("source columns should be kept, got %v", f.SourceColumns)
	}
}

func TestCleanHeaderOnlyIsEmpty(t *testing.T) {
	f := FromGrid(grid([]any{"A", "B"})).Clean()
	if !f.Empty() {
		t.Error("header-only sheet should be empty after cleanup")
	}
	if !FromGrid(nil).Clean().Empty() {
		t.Error("empty grid should be empty")
	}
}

func TestMissingValues(t *testing.T) {
	cases := []Value{Null(), String(""), Float(math.NaN()), Text("N/A"), Text("nan"), Text("")}
	for i, v := range cases {
		if !v.IsMissing() {
			t.Errorf("case %d: expected missing, got %v", i, v.Kind())
		}
	}
	if Text(" ").IsMissing() {
		t.Error("whitespace is data")
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	values := []Value{Null(), String("a\"b"), Int(100), Float(100), Float(2.5), Float(1e21), Bool(true), Bool(false)}

	data, err := json.Marshal(values)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back []Value
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for i := range values {
		if back[i] != values[i] {
			t.Errorf("value %d: expected %v (%v), got %v (%v)", i, values[i], values[i].Kind(), back[i], back[i].Kind())
		}
	}
}

func TestFloatKeepsFraction(t *testing.T) {
	data, err := json.Marshal(Float(100))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "100.0" {
		t.Errorf("expected 100.0, got %s", data)
	}
}

func TestEqualAcrossNumbers(t *testing.T) {
	if !Int(1).Equal(Float(1)) {
		t.Error("1 and 1.0 should be equal")
	}
	if Int(1).Equal(Bool(true)) {
		t.Error("booleans are not numbers")
	}
	if Int(1).Key() != Float(1).Key() {
		t.Error("1 and 1.0 should share a distinct key")
	}
}

func TestNonMissing(t *testing.T) {
	f := FromGrid(grid(
		[]any{"A", "B"},
		[]any{1, nil},
		[]any{"x", false},
	))
	if n := f.NonMissing(); n != 3 {
		t.Errorf("expected 3 non-missing, got %d", n)
	}
}
