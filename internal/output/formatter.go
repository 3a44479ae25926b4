// Package output provides formatting utilities for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/klytics/sheetgraph/internal/graph"
)

// Format represents an output format.
type Format string

const (
	// FormatJSON is indented JSON output.
	FormatJSON Format = "json"
	// FormatYAML is YAML output.
	FormatYAML Format = "yaml"
	// FormatPretty is a coloured human-readable summary.
	FormatPretty Format = "pretty"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatYAML, FormatPretty:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (expected json, yaml or pretty)", s)
}

// Writer handles formatted output to a destination.
type Writer struct {
	dest   io.Writer
	format Format
}

// NewWriter creates a new output writer with the given format. A nil dest
// writes to stdout.
func NewWriter(dest io.Writer, format Format) *Writer {
	if dest == nil {
		dest = os.Stdout
	}
	return &Writer{
		dest:   dest,
		format: format,
	}
}

// WriteResponse renders an extraction result in the writer's format.
func (w *Writer) WriteResponse(resp *graph.ExtractionResponse) error {
	switch w.format {
	case FormatYAML:
		return w.WriteYAML(resp)
	case FormatPretty:
		return RenderPretty(w.dest, resp)
	default:
		return w.WriteJSON(resp)
	}
}

// WriteJSON encodes a value as pretty-printed JSON.
func (w *Writer) WriteJSON(v any) error {
	enc := json.NewEncoder(w.dest)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML encodes a value as YAML.
func (w *Writer) WriteYAML(v any) error {
	enc := yaml.NewEncoder(w.dest)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("could not encode YAML: %w", err)
	}
	return enc.Close()
}

// WriteLn writes a line of text.
func (w *Writer) WriteLn(s string) error {
	_, err := fmt.Fprintln(w.dest, s)
	return err
}

// WriteError writes an error message to stderr.
func WriteError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
