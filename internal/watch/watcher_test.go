package watch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klytics/sheetgraph/internal/formats/xlsx"
	"github.com/klytics/sheetgraph/internal/graph"
	"github.com/klytics/sheetgraph/internal/output"
	"github.com/klytics/sheetgraph/internal/pipeline"
)

func TestNewWatcher(t *testing.T) {
	w, err := New(WatchConfig{
		Directories: []string{t.TempDir()},
		Debounce:    100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if w == nil {
		t.Fatal("expected non-nil watcher")
	}
	w.watcher.Close()
}

func TestNewUsesDefaultRule(t *testing.T) {
	w, _ := New(WatchConfig{})
	defer w.watcher.Close()

	if len(w.Config.Rules) != 1 || w.Config.Rules[0].ID != "default" {
		t.Fatalf("expected the default rule, got %+v", w.Config.Rules)
	}
	if !w.matchesRule("/tmp/old.xls", w.Config.Rules[0]) {
		t.Error("default rule should match .xls")
	}
}

func TestMatchesRuleExtension(t *testing.T) {
	w, _ := New(WatchConfig{})
	defer w.watcher.Close()

	rule := Rule{
		ID:         "r1",
		Extensions: []string{".xlsx", "xlsm"},
		Enabled:    true,
	}

	if !w.matchesRule("/tmp/report.xlsx", rule) {
		t.Error("should match .xlsx")
	}
	if !w.matchesRule("/tmp/macro.XLSM", rule) {
		t.Error("should match .xlsm without a leading dot in the rule")
	}
	if w.matchesRule("/tmp/old.xls", rule) {
		t.Error("should not match .xls")
	}
}

func TestMatchesRulePattern(t *testing.T) {
	w, _ := New(WatchConfig{})
	defer w.watcher.Close()

	rule := Rule{
		ID:      "r1",
		Pattern: "sales_*.xlsx",
		Enabled: true,
	}

	if !w.matchesRule("/tmp/sales_2024.xlsx", rule) {
		t.Error("should match sales_2024.xlsx")
	}
	if w.matchesRule("/tmp/costs.xlsx", rule) {
		t.Error("should not match costs.xlsx")
	}
}

func TestIgnored(t *testing.T) {
	tests := map[string]bool{
		"/tmp/book.xlsx":       false,
		"/tmp/OLD.XLS":         false,
		"/tmp/~$book.xlsx":     true,
		"/tmp/.~lock.xlsx":     true,
		"/tmp/book.graph.json": true,
		"/tmp/readme.txt":      true,
	}
	for path, want := range tests {
		if got := Ignored(path); got != want {
			t.Errorf("Ignored(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWatcherEvents(t *testing.T) {
	dir := t.TempDir()

	w, err := New(WatchConfig{
		Directories: []string{dir},
		Rules: []Rule{
			{ID: "test-rule", Extensions: []string{".xlsx"}, Enabled: true},
		},
		Debounce: 50,
	})
	if err != nil {
		t.Fatal(err)
	}

	handlerCalled := make(chan string, 1)
	w.Handler = func(path string, rule Rule) error {
		select {
		case handlerCalled <- path:
		default:
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Start(ctx)

	// Give the watcher time to start
	time.Sleep(100 * time.Millisecond)

	testFile := filepath.Join(dir, "test.xlsx")
	os.WriteFile(testFile, []byte("test"), 0644)

	select {
	case path := <-handlerCalled:
		if path != testFile {
			t.Errorf("expected %q, got %q", testFile, path)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for handler call")
	}
}

func TestWatcherSkipsNonWorkbooks(t *testing.T) {
	dir := t.TempDir()

	w, err := New(WatchConfig{Directories: []string{dir}, Debounce: 50})
	if err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w.Handler = func(path string, rule Rule) error {
		calls.Add(1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("test"), 0644)
	os.WriteFile(filepath.Join(dir, "~$lock.xlsx"), []byte("test"), 0644)
	os.WriteFile(filepath.Join(dir, "book.graph.json"), []byte("{}"), 0644)
	time.Sleep(300 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("handler should not be called, got %d calls", n)
	}
}

func TestExtractHandlerWritesGraph(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	path := filepath.Join(dir, "sales.xlsx")
	if err := xlsx.WriteFile(path, xlsx.Sheet{Name: "Sales", Rows: [][]any{{"ID", "Revenue"}, {1, 100}, {2, nil}}}); err != nil {
		t.Fatal(err)
	}

	h := ExtractHandler(pipeline.New(), outDir)
	if err := h(path, DefaultRule()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "sales.graph.json"))
	if err != nil {
		t.Fatal(err)
	}
	var resp graph.ExtractionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Filename != "sales.xlsx" || len(resp.Tables) != 1 || len(resp.Tables[0].Nodes) != 3 {
		t.Errorf("unexpected graph %+v", resp)
	}
}

func TestExtractHandlerRejectsCorruptWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.xlsx")
	os.WriteFile(path, []byte("not a workbook"), 0644)

	if err := ExtractHandler(pipeline.New(), "")(path, DefaultRule()); err == nil {
		t.Error("expected error for corrupt workbook")
	}
	if _, err := os.Stat(output.GraphPath(path, "")); !os.IsNotExist(err) {
		t.Error("no graph file should be written on failure")
	}
}

func TestProcessFileRecordsEvents(t *testing.T) {
	w, _ := New(WatchConfig{Rules: []Rule{{ID: "only-sales", Pattern: "sales*", Enabled: true}}})
	defer w.watcher.Close()

	w.processFile("/tmp/sales.xlsx", "CREATE")
	w.processFile("/tmp/other.xlsx", "WRITE")

	events := w.GetEvents()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Status != "processed" || events[0].RuleID != "only-sales" {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[1].Status != "skipped" {
		t.Errorf("unexpected second event %+v", events[1])
	}
}

func TestPIDFile(t *testing.T) {
	dir := t.TempDir()

	if err := WritePIDFile(dir); err != nil {
		t.Fatal(err)
	}

	pid, err := ReadPIDFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if pid != os.Getpid() {
		t.Errorf("expected PID %d, got %d", os.Getpid(), pid)
	}

	if err := RemovePIDFile(dir); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadPIDFile(dir); err == nil {
		t.Error("expected error after removing PID file")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	dir := t.TempDir()

	config := WatchConfig{
		Directories: []string{"/tmp/books"},
		Rules:       []Rule{DefaultRule()},
		Recursive:   true,
		Debounce:    500,
		OutDir:      "/tmp/graphs",
	}

	if err := SaveConfig(dir, config); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(loaded.Directories) != 1 || loaded.Directories[0] != "/tmp/books" {
		t.Errorf("directories mismatch: %v", loaded.Directories)
	}
	if !loaded.Recursive || loaded.OutDir != "/tmp/graphs" {
		t.Errorf("unexpected config %+v", loaded)
	}
}

func TestGetStatus(t *testing.T) {
	w, _ := New(WatchConfig{
		Directories: []string{"/tmp/a", "/tmp/b"},
		Rules:       []Rule{{ID: "r1"}, {ID: "r2"}},
	})
	defer w.watcher.Close()

	status := w.GetStatus()
	if !status.Running {
		t.Error("expected running=true")
	}
	if len(status.Directories) != 2 {
		t.Errorf("expected 2 directories, got %d", len(status.Directories))
	}
	if status.Rules != 2 {
		t.Errorf("expected 2 rules, got %d", status.Rules)
	}
}

func TestDefaultDebounce(t *testing.T) {
	w, _ := New(WatchConfig{Debounce: 0})
	defer w.watcher.Close()

	if w.Config.Debounce != 500 {
		t.Errorf("expected default debounce 500, got %d", w.Config.Debounce)
	}
}
