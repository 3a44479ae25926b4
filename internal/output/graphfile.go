package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klytics/sheetgraph/internal/graph"
)

// GraphSuffix is appended to a workbook's stem to name its graph file.
const GraphSuffix = ".graph.json"

// GraphPath returns where the graph of path is written: next to the file,
// or in outDir when set.
func GraphPath(path, outDir string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + GraphSuffix
	if outDir == "" {
		return filepath.Join(filepath.Dir(path), name)
	}
	return filepath.Join(outDir, name)
}

// WriteGraphFile writes resp as indented JSON to GraphPath(path, outDir),
// creating outDir if needed, and returns the written path.
func WriteGraphFile(resp *graph.ExtractionResponse, path, outDir string) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not encode graph: %w", err)
	}

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return "", fmt.Errorf("could not create %s: %w", outDir, err)
		}
	}
	target := GraphPath(path, outDir)
	if err := os.WriteFile(target, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("could not write %s: %w", target, err)
	}
	return target, nil
}
