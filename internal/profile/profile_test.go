package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/klytics/sheetgraph/internal/frame"
)

func TestColumnNumeric(t *testing.T) {
	s := Column([]frame.Value{frame.Int(3), frame.Float(1.5), frame.Null(), frame.Int(3)})

	if s.Type != TypeNumeric {
		t.Errorf("expected numeric, got %q", s.Type)
	}
	if s.DistinctCount == nil || *s.DistinctCount != 2 {
		t.Errorf("expected 2 distinct, got %v", s.DistinctCount)
	}
	if s.MissingFraction == nil || *s.MissingFraction != 0.25 {
		t.Errorf("expected missing 0.25, got %v", s.MissingFraction)
	}
	if s.Min == nil || s.Min.Kind() != frame.KindFloat || s.Min.Float64() != 1.5 {
		t.Errorf("expected min 1.5, got %v", s.Min)
	}
	if s.Max == nil || s.Max.Kind() != frame.KindInt || s.Max.Int64() != 3 {
		t.Errorf("expected int max 3, got %v", s.Max)
	}
}

func TestColumnIntAndFloatAreOneDistinctValue(t *testing.T) {
	s := Column([]frame.Value{frame.Int(1), frame.Float(1)})
	if *s.DistinctCount != 1 {
		t.Errorf("expected 1 distinct, got %d", *s.DistinctCount)
	}
}

func TestColumnLabels(t *testing.T) {
	tests := []struct {
		name   string
		values []frame.Value
		want   string
	}{
		{"boolean", []frame.Value{frame.Bool(true), frame.Bool(false)}, TypeBoolean},
		{"strings", []frame.Value{frame.String("a"), frame.String("b")}, TypeCategorical},
		{"mixed", []frame.Value{frame.String("a"), frame.Int(1)}, TypeCategorical},
		{"bool and number", []frame.Value{frame.Bool(true), frame.Int(1)}, TypeCategorical},
		{"all missing", []frame.Value{frame.Null(), frame.Null()}, TypeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Column(tt.values).Type; got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestColumnNonNumericHasNoRange(t *testing.T) {
	s := Column([]frame.Value{frame.String("b"), frame.String("a")})
	if s.Min != nil || s.Max != nil {
		t.Errorf("expected no min/max for categorical column, got %v/%v", s.Min, s.Max)
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "min") {
		t.Errorf("min should be omitted: %s", data)
	}
}

func TestEmptyStatsEncodeAsEmptyObject(t *testing.T) {
	data, err := json.Marshal(ColumnStats{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{}" {
		t.Errorf("expected {}, got %s", data)
	}
	if !(ColumnStats{}).IsZero() {
		t.Error("zero stats should report IsZero")
	}
}

func TestDefaultProfilesEveryColumn(t *testing.T) {
	f := frame.FromGrid([][]frame.Value{
		{frame.String("ID"), frame.String("Name")},
		{frame.Int(1), frame.String("a")},
		{frame.Int(2), frame.Null()},
	})
	out, err := Default.Profile(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(out))
	}
	if out["ID"].Type != TypeNumeric || out["Name"].Type != TypeCategorical {
		t.Errorf("unexpected labels: %+v", out)
	}
	if *out["Name"].MissingFraction != 0.5 {
		t.Errorf("expected Name missing 0.5, got %v", *out["Name"].MissingFraction)
	}
}

func TestSafeReturnsErrorAsResult(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	boom := errors.New("boom")

	res := Safe(ProfilerFunc(func(*frame.Frame) (map[string]ColumnStats, error) {
		return nil, boom
	}), &frame.Frame{}, "Sales", logger)

	if !res.Failed() || !errors.Is(res.Err, boom) {
		t.Errorf("expected boom, got %v", res.Err)
	}
	if res.Stats == nil || len(res.Stats) != 0 {
		t.Errorf("expected empty non-nil stats, got %v", res.Stats)
	}
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "sheet=Sales") {
		t.Errorf("expected a warning naming the sheet, got %q", buf.String())
	}
}

func TestSafeRecoversPanic(t *testing.T) {
	res := Safe(ProfilerFunc(func(*frame.Frame) (map[string]ColumnStats, error) {
		panic("index out of range")
	}), &frame.Frame{}, "S", nil)

	if !res.Failed() {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Err.Error(), "index out of range") {
		t.Errorf("expected panic message in error, got %v", res.Err)
	}
	if len(res.Stats) != 0 {
		t.Errorf("expected empty stats, got %v", res.Stats)
	}
}

func TestSafeSuccess(t *testing.T) {
	f := frame.FromGrid([][]frame.Value{{frame.String("A")}, {frame.Int(1)}})
	res := Safe(Default, f, "S", nil)
	if res.Failed() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Stats["A"].Type != TypeNumeric {
		t.Errorf("expected numeric, got %+v", res.Stats["A"])
	}
}
