// Package workbook opens spreadsheet content of any supported format and
// yields one cleaned frame per non-empty sheet.
package workbook

import (
	"bytes"

	"github.com/klytics/sheetgraph/internal/formats/xls"
	"github.com/klytics/sheetgraph/internal/formats/xlsx"
	"github.com/klytics/sheetgraph/internal/frame"
)

// Format identifies a workbook container.
type Format string

const (
	FormatUnknown Format = ""
	// FormatOOXML covers .xlsx, .xlsm, .xltx and .xltm.
	FormatOOXML Format = "ooxml"
	// FormatBIFF covers Excel 97-2003 .xls.
	FormatBIFF Format = "biff"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Detect identifies the container format from the leading bytes.
func Detect(content []byte) Format {
	switch {
	case bytes.HasPrefix(content, zipMagic):
		return FormatOOXML
	case bytes.HasPrefix(content, oleMagic):
		return FormatBIFF
	}
	return FormatUnknown
}

// decoder is the surface shared by the per-format readers.
type decoder interface {
	SheetNames() []string
	Grid(sheet string) ([][]frame.Value, error)
	Close() error
}

// Sheet is one non-empty worksheet after cleanup.
type Sheet struct {
	Name  string
	Frame *frame.Frame
}

// Reader yields the non-empty sheets of a workbook in declared order. It is
// consumed once: after Next returns false it keeps returning false.
type Reader struct {
	filename string
	dec      decoder
	names    []string
	pos      int
	cur      Sheet
	err      error
	done     bool
}

// Open parses content and prepares the sheet sequence. It fails with a
// *FormatError when the content is not a readable workbook.
func Open(content []byte, filename string) (*Reader, error) {
	var (
		dec decoder
		err error
	)
	switch Detect(content) {
	case FormatOOXML:
		dec, err = openOOXML(content)
	case FormatBIFF:
		dec, err = openBIFF(content)
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return nil, &FormatError{Filename: filename, Err: err}
	}

	return &Reader{
		filename: filename,
		dec:      dec,
		names:    dec.SheetNames(),
	}, nil
}

func openOOXML(content []byte) (decoder, error) {
	d, err := xlsx.Open(content)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func openBIFF(content []byte) (decoder, error) {
	d, err := xls.Open(content)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// SheetNames lists every sheet in the workbook, empty ones included.
func (r *Reader) SheetNames() []string {
	return append([]string(nil), r.names...)
}

// Next advances to the next non-empty sheet. Empty sheets are skipped.
func (r *Reader) Next() bool {
	if r.done {
		return false
	}
	for r.pos < len(r.names) {
		name := r.names[r.pos]
		r.pos++

		grid, err := r.dec.Grid(name)
		if err != nil {
			r.err = &FormatError{Filename: r.filename, Err: err}
			r.finish()
			return false
		}

		f := frame.FromGrid(grid).Clean()
		if f.Empty() {
			continue
		}
		r.cur = Sheet{Name: name, Frame: f}
		return true
	}
	r.finish()
	return false
}

// Sheet returns the sheet positioned by the last successful Next.
func (r *Reader) Sheet() Sheet {
	return r.cur
}

// Err returns the *FormatError that stopped iteration, if any.
func (r *Reader) Err() error {
	return r.err
}

// Close releases the decoder. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.dec == nil {
		return nil
	}
	err := r.dec.Close()
	r.dec = nil
	r.done = true
	return err
}

func (r *Reader) finish() {
	r.done = true
	r.cur = Sheet{}
}
