package watch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klytics/sheetgraph/internal/output"
	"github.com/klytics/sheetgraph/internal/pipeline"
)

// ExtractHandler returns a handler that runs p over each workbook and writes
// the response next to it, or into outDir when set.
func ExtractHandler(p *pipeline.Pipeline, outDir string) EventHandler {
	return func(path string, _ Rule) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("could not read %s: %w", path, err)
		}

		resp, err := p.Extract(data, filepath.Base(path))
		if err != nil {
			return err
		}

		_, err = output.WriteGraphFile(resp, path, outDir)
		return err
	}
}
