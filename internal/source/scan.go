package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// File is a workbook found by Scan.
type File struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// ScanOptions configures a directory scan.
type ScanOptions struct {
	Recursive bool
	MaxSize   int64 // bytes; 0 = no limit
	ModAfter  time.Time
}

// Scan walks root and returns its workbooks sorted by path. Office lock
// files (~$name.xlsx) and hidden directories are skipped.
func Scan(root string, opts ScanOptions) ([]File, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("could not resolve path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("could not access %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []File
	walkFn := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if !opts.Recursive || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(d.Name(), "~$") || !IsWorkbook(d.Name()) {
			return nil
		}

		finfo, err := d.Info()
		if err != nil {
			return nil
		}
		if opts.MaxSize > 0 && finfo.Size() > opts.MaxSize {
			return nil
		}
		if !opts.ModAfter.IsZero() && finfo.ModTime().Before(opts.ModAfter) {
			return nil
		}

		files = append(files, File{
			Path:       path,
			Size:       finfo.Size(),
			ModifiedAt: finfo.ModTime(),
		})
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}
