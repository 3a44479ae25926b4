// Package watch monitors directories for new or modified workbooks and hands
// them to a handler, typically one that writes the extracted graph next to
// the file.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/klytics/sheetgraph/internal/logging"
	"github.com/klytics/sheetgraph/internal/output"
	"github.com/klytics/sheetgraph/internal/source"
)

// Rule defines which files a watcher acts on.
type Rule struct {
	ID         string   `json:"id"`
	Pattern    string   `json:"pattern"`    // Glob on the base name (e.g., "sales_*.xlsx")
	Extensions []string `json:"extensions"` // File extensions to match
	Enabled    bool     `json:"enabled"`
}

// WatchConfig holds the complete watcher configuration.
type WatchConfig struct {
	Directories []string `json:"directories"`
	Rules       []Rule   `json:"rules"`
	Recursive   bool     `json:"recursive"`
	Debounce    int      `json:"debounceMs"` // Milliseconds to wait before processing
	OutDir      string   `json:"outDir,omitempty"`
}

// Event represents a file event that was detected and processed.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"` // "CREATE", "WRITE"
	RuleID    string    `json:"ruleId,omitempty"`
	Status    string    `json:"status"` // "processed", "error", "skipped"
	Error     string    `json:"error,omitempty"`
}

// Watcher monitors directories for file changes and triggers the handler.
type Watcher struct {
	Config   WatchConfig
	Logger   *slog.Logger
	Events   []Event
	Handler  EventHandler
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	debounce map[string]*time.Timer
}

// EventHandler is called when a matching file event occurs.
type EventHandler func(path string, rule Rule) error

// Status represents the current watcher status.
type Status struct {
	Running     bool     `json:"running"`
	Directories []string `json:"directories"`
	Rules       int      `json:"rules"`
	EventCount  int      `json:"eventCount"`
	StartedAt   string   `json:"startedAt,omitempty"`
}

// DefaultRule matches every workbook extension.
func DefaultRule() Rule {
	return Rule{ID: "default", Extensions: source.Extensions, Enabled: true}
}

// New creates a new Watcher with the given configuration. Without rules the
// watcher uses DefaultRule.
func New(config WatchConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	if config.Debounce <= 0 {
		config.Debounce = 500
	}
	if len(config.Rules) == 0 {
		config.Rules = []Rule{DefaultRule()}
	}

	w := &Watcher{
		Config:   config,
		Logger:   logging.Discard(),
		watcher:  fsw,
		debounce: make(map[string]*time.Timer),
	}

	return w, nil
}

// Start begins watching the configured directories. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.Config.Directories {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("could not resolve %s: %w", dir, err)
		}

		if w.Config.Recursive {
			if err := w.addRecursive(absDir); err != nil {
				return err
			}
		} else {
			if err := w.watcher.Add(absDir); err != nil {
				return fmt.Errorf("could not watch %s: %w", absDir, err)
			}
		}
	}

	w.Logger.Info("watching", "directories", len(w.Config.Directories), "rules", len(w.Config.Rules))

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("stopping watcher")
			w.stopTimers()
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if info.IsDir() {
			// Skip hidden directories
			if strings.HasPrefix(filepath.Base(path), ".") && path != dir {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Ignored reports whether path is never processed: non-workbooks, Office
// lock files and graph outputs.
func Ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".~") {
		return true
	}
	if strings.HasSuffix(base, output.GraphSuffix) {
		return true
	}
	return !source.IsWorkbook(base)
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only process create and write events
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	path := event.Name
	if Ignored(path) {
		return
	}

	// Debounce: editors write a workbook in several steps
	w.mu.Lock()
	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	op := event.Op.String()
	w.debounce[path] = time.AfterFunc(time.Duration(w.Config.Debounce)*time.Millisecond, func() {
		w.mu.Lock()
		delete(w.debounce, path)
		w.mu.Unlock()
		w.processFile(path, op)
	})
	w.mu.Unlock()
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.debounce {
		t.Stop()
		delete(w.debounce, path)
	}
}

func (w *Watcher) processFile(path string, operation string) {
	for _, rule := range w.Config.Rules {
		if !rule.Enabled {
			continue
		}
		if !w.matchesRule(path, rule) {
			continue
		}

		evt := Event{
			Time:      time.Now(),
			Path:      path,
			Operation: operation,
			RuleID:    rule.ID,
		}

		if w.Handler != nil {
			if err := w.Handler(path, rule); err != nil {
				evt.Status = "error"
				evt.Error = err.Error()
				w.Logger.Error("could not process workbook", "path", path, "error", err)
			} else {
				evt.Status = "processed"
				w.Logger.Info("processed workbook", "path", path, "rule", rule.ID)
			}
		} else {
			evt.Status = "processed"
			w.Logger.Info("matched workbook", "path", path, "rule", rule.ID, "handler", false)
		}

		w.record(evt)
		return
	}

	// No rule matched, still log
	w.record(Event{
		Time:      time.Now(),
		Path:      path,
		Operation: operation,
		Status:    "skipped",
	})
}

func (w *Watcher) record(evt Event) {
	w.mu.Lock()
	w.Events = append(w.Events, evt)
	w.mu.Unlock()
}

func (w *Watcher) matchesRule(path string, rule Rule) bool {
	ext := strings.ToLower(filepath.Ext(path))

	if len(rule.Extensions) > 0 {
		matched := false
		for _, e := range rule.Extensions {
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			if strings.ToLower(e) == ext {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if rule.Pattern != "" {
		matched, _ := filepath.Match(rule.Pattern, filepath.Base(path))
		if !matched {
			return false
		}
	}

	return true
}

// GetStatus returns the current watcher status.
func (w *Watcher) GetStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		Running:     true,
		Directories: w.Config.Directories,
		Rules:       len(w.Config.Rules),
		EventCount:  len(w.Events),
	}
}

// GetEvents returns all recorded events.
func (w *Watcher) GetEvents() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := make([]Event, len(w.Events))
	copy(events, w.Events)
	return events
}

const pidFile = ".sheetgraph-watch.pid"

// WritePIDFile writes the current process ID to the PID file in the given directory.
func WritePIDFile(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(dir, pidFile)
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

// ReadPIDFile reads the PID from the PID file.
func ReadPIDFile(dir string) (int, error) {
	path := filepath.Join(dir, pidFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}
	return pid, nil
}

// RemovePIDFile removes the PID file.
func RemovePIDFile(dir string) error {
	return os.Remove(filepath.Join(dir, pidFile))
}

// SaveConfig writes the watcher config to a JSON file.
func SaveConfig(dir string, config WatchConfig) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "watch-config.json"), data, 0644)
}

// LoadConfig reads the watcher config from a JSON file.
func LoadConfig(dir string) (*WatchConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, "watch-config.json"))
	if err != nil {
		return nil, err
	}
	var config WatchConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("invalid watch config: %w", err)
	}
	return &config, nil
}

// DefaultConfigDir returns the default state directory for the watcher.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sheetgraph")
}
