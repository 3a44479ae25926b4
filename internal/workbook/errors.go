package workbook

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat indicates content that is neither an OOXML nor a BIFF
// workbook.
var ErrUnsupportedFormat = errors.New("unsupported workbook format (expected .xlsx or .xls content)")

// FormatError reports workbook content that cannot be parsed. It wraps the
// underlying parser error.
type FormatError struct {
	Filename string
	Err      error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("could not read workbook %q: %v", e.Filename, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsFormatError reports whether err is, or wraps, a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
