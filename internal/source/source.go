// Package source loads workbook bytes from local files, stdin or S3.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Extensions are the workbook file extensions accepted as input.
var Extensions = []string{".xlsx", ".xlsm", ".xltx", ".xltm", ".xls"}

// ErrUnsupportedExtension is returned for names without a workbook extension.
var ErrUnsupportedExtension = errors.New("unsupported file type")

// ErrNoObjectStore is returned for s3:// references when no store is configured.
var ErrNoObjectStore = errors.New("s3 input requires s3.endpoint to be configured")

// StdinName is the filename reported for content read from stdin.
const StdinName = "stdin.xlsx"

// CheckExtension validates that name carries a workbook extension
// (case-insensitive).
func CheckExtension(name string) error {
	if IsWorkbook(name) {
		return nil
	}
	return fmt.Errorf("%w: %q (expected one of %s)", ErrUnsupportedExtension, name, strings.Join(Extensions, ", "))
}

// IsWorkbook reports whether name has a workbook extension.
func IsWorkbook(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Loader resolves input references to workbook bytes.
type Loader struct {
	// Store serves s3://bucket/key references. Nil disables them.
	Store ObjectStore
	// Stdin is read for the "-" reference. Nil means os.Stdin.
	Stdin io.Reader
}

// Load returns the content and the filename to report for ref, which is a
// local path, "-" for stdin, or s3://bucket/key.
func (l *Loader) Load(ctx context.Context, ref string) ([]byte, string, error) {
	switch {
	case ref == "-":
		in := l.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, "", fmt.Errorf("could not read stdin: %w", err)
		}
		return data, StdinName, nil

	case strings.HasPrefix(ref, "s3://"):
		bucket, key, err := ParseS3(ref)
		if err != nil {
			return nil, "", err
		}
		if err := CheckExtension(key); err != nil {
			return nil, "", err
		}
		if l.Store == nil {
			return nil, "", ErrNoObjectStore
		}
		data, err := l.Store.GetObject(ctx, bucket, key)
		if err != nil {
			return nil, "", fmt.Errorf("could not fetch %s: %w", ref, err)
		}
		return data, path.Base(key), nil
	}

	if err := CheckExtension(ref); err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, "", fmt.Errorf("could not read %s: %w", ref, err)
	}
	return data, filepath.Base(ref), nil
}

// ParseS3 splits s3://bucket/key.
func ParseS3(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 reference: %q", ref)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 reference %q (expected s3://bucket/key)", ref)
	}
	return bucket, key, nil
}
