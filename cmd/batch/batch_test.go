package batch

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klytics/sheetgraph/internal/formats/xlsx"
	"github.com/klytics/sheetgraph/internal/pipeline"
	"github.com/klytics/sheetgraph/internal/progress"
)

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"q1.xlsx", "q2.xlsx", "q3.xlsx"} {
		err := xlsx.WriteFile(filepath.Join(dir, name),
			xlsx.Sheet{Name: "Sales", Rows: [][]any{{"ID", "Revenue"}, {1, 100}, {2, nil}}})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func files(t *testing.T, dir string) []string {
	t.Helper()
	m, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRunBatchSequential(t *testing.T) {
	dir := fixtureDir(t)
	results := runBatch(pipeline.New(), files(t, dir), "", 1, nil)

	ok, bad := tally(results)
	if ok != 3 || bad != 1 {
		t.Fatalf("expected 3 ok and 1 failed, got %d/%d: %+v", ok, bad, results)
	}
	for _, r := range results {
		if r.Status != "ok" {
			if filepath.Base(r.File) != "broken.xlsx" || r.Error == "" {
				t.Errorf("unexpected failure %+v", r)
			}
			continue
		}
		if r.Tables != 1 || r.Nodes != 3 {
			t.Errorf("%s: expected 1 table and 3 nodes, got %d/%d", r.File, r.Tables, r.Nodes)
		}
		if _, err := os.Stat(r.Output); err != nil {
			t.Errorf("graph file missing: %v", err)
		}
	}
}

func TestRunBatchConcurrentKeepsOrder(t *testing.T) {
	dir := fixtureDir(t)
	outDir := filepath.Join(dir, "graphs")
	in := files(t, dir)

	var buf bytes.Buffer
	bar := progress.New("Extracting", len(in))
	bar.Enabled = true
	bar.Out = &buf

	results := runBatch(pipeline.New(), in, outDir, 4, bar)
	for i, r := range results {
		if r.File != in[i] {
			t.Errorf("result %d is for %s, want %s", i, r.File, in[i])
		}
	}
	if bar.Current != len(in) || bar.Failed != 1 {
		t.Errorf("expected bar at %d with 1 failure, got %d/%d", len(in), bar.Current, bar.Failed)
	}
	if _, err := os.Stat(filepath.Join(outDir, "q2.graph.json")); err != nil {
		t.Errorf("expected graph in out dir: %v", err)
	}
}

func TestCollectDirectoryAndGlob(t *testing.T) {
	dir := fixtureDir(t)
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := xlsx.WriteFile(filepath.Join(dir, "sub", "deep.xlsx"), xlsx.Sheet{Rows: [][]any{{"A"}, {1}}}); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	flat, err := collect(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) != 4 {
		t.Errorf("expected 4 workbooks, got %v", flat)
	}

	deep, err := collect(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(deep) != 5 {
		t.Errorf("expected 5 workbooks recursively, got %v", deep)
	}

	globbed, err := collect(filepath.Join(dir, "q*.xlsx"), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(globbed) != 3 {
		t.Errorf("expected 3 glob matches, got %v", globbed)
	}
}
