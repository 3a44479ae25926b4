// Package xlsx decodes and writes Office Open XML workbooks
// (.xlsx, .xlsm, .xltx, .xltm).
package xlsx

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/sheetgraph/internal/frame"
)

// DateLayout is how date and time cells are rendered.
const DateLayout = "2006-01-02 15:04:05"

// Decoder reads typed cell grids from an OOXML workbook held in memory.
type Decoder struct {
	f          *excelize.File
	date1904   bool
	dateStyles map[int]bool
}

// Open parses workbook bytes. The returned Decoder must be closed.
func Open(data []byte) (*Decoder, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not read Excel data: %w", err)
	}

	d := &Decoder{f: f, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d, nil
}

// SheetNames lists the worksheets in workbook order.
func (d *Decoder) SheetNames() []string {
	return d.f.GetSheetList()
}

// Grid returns the sheet's cells row by row, starting at row 1. Rows are
// ragged: trailing empty cells are not included.
func (d *Decoder) Grid(sheet string) ([][]frame.Value, error) {
	rows, err := d.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("could not read sheet %q: %w", sheet, err)
	}

	grid := make([][]frame.Value, len(rows))
	for r, row := range rows {
		cells := make([]frame.Value, len(row))
		for c, raw := range row {
			if raw == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("invalid cell coordinates: %w", err)
			}
			cells[c] = d.value(sheet, cell, raw)
		}
		grid[r] = cells
	}
	return grid, nil
}

// Close releases the underlying workbook.
func (d *Decoder) Close() error {
	return d.f.Close()
}

func (d *Decoder) value(sheet, cell, raw string) frame.Value {
	typ, err := d.f.GetCellType(sheet, cell)
	if err != nil {
		return frame.Text(raw)
	}

	switch typ {
	case excelize.CellTypeBool:
		return frame.Bool(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		return d.number(sheet, cell, raw)
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return frame.String(t.Format(DateLayout))
		}
		return frame.Text(raw)
	default:
		return frame.Text(raw)
	}
}

func (d *Decoder) number(sheet, cell, raw string) frame.Value {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return frame.Text(raw)
	}
	if d.isDate(sheet, cell) {
		if t, err := excelize.ExcelDateToTime(f, d.date1904); err == nil {
			return frame.String(t.Round(time.Second).Format(DateLayout))
		}
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return frame.Int(i)
	}
	return frame.Float(f)
}

func (d *Decoder) isDate(sheet, cell string) bool {
	idx, err := d.f.GetCellStyle(sheet, cell)
	if err != nil || idx == 0 {
		return false
	}
	if known, ok := d.dateStyles[idx]; ok {
		return known
	}
	style, err := d.f.GetStyle(idx)
	isDate := err == nil && IsDateFormat(style.NumFmt, style.CustomNumFmt)
	d.dateStyles[idx] = isDate
	return isDate
}

// IsDateFormat reports whether a number format renders dates or times.
// Built-in ids follow ECMA-376 18.8.30; custom codes are scanned for date
// tokens outside quoted literals and bracketed sections.
func IsDateFormat(id int, custom *string) bool {
	if custom != nil && *custom != "" {
		return hasDateTokens(*custom)
	}
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

func hasDateTokens(code string) bool {
	inQuote, inBracket, escaped := false, false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case r == 'y', r == 'd', r == 'h', r == 's':
			return true
		}
	}
	return false
}
