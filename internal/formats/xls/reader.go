// Package xls decodes legacy BIFF8 workbooks (.xls, Excel 97-2003).
package xls

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/richardlehane/mscfb"
	"github.com/xuri/excelize/v2"

	"github.com/klytics/sheetgraph/internal/formats/xlsx"
	"github.com/klytics/sheetgraph/internal/frame"
)

var (
	// ErrNoSheets is returned for a workbook without worksheets.
	ErrNoSheets = errors.New("workbook contains no worksheets")
	// ErrNoWorkbookStream is returned for a compound document that holds no
	// Excel workbook, such as a Word .doc file.
	ErrNoWorkbookStream = errors.New("compound document has no Workbook stream")
	// ErrUnsupportedVersion is returned for pre-97 (BIFF5 and older) workbooks.
	ErrUnsupportedVersion = errors.New("only Excel 97-2003 (BIFF8) workbooks are supported")
)

type sheetRef struct {
	name   string
	offset uint32
}

// Decoder reads cell grids from a BIFF8 workbook held in memory.
type Decoder struct {
	stream   []byte
	date1904 bool
	formats  map[uint16]string
	xfFormat []uint16
	sst      []string
	sheets   []sheetRef
}

// Open parses the compound document and the workbook globals. Sheets are
// decoded lazily by Grid.
func Open(data []byte) (d *Decoder, err error) {
	// mscfb can panic on corrupt sector tables.
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("could not read Excel 97-2003 data: %v", r)
		}
	}()

	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not read Excel 97-2003 data: %w", err)
	}
	stream, err := workbookStream(doc)
	if err != nil {
		return nil, err
	}

	d = &Decoder{stream: stream, formats: make(map[uint16]string)}
	if err := d.readGlobals(); err != nil {
		return nil, err
	}
	if len(d.sheets) == 0 {
		return nil, ErrNoSheets
	}
	return d, nil
}

func workbookStream(doc *mscfb.Reader) ([]byte, error) {
	legacy := false
	for _, f := range doc.File {
		if len(f.Path) != 0 {
			continue
		}
		switch f.Name {
		case "Workbook":
			data, err := io.ReadAll(f)
			if err != nil {
				return nil, fmt.Errorf("could not read Workbook stream: %w", err)
			}
			return data, nil
		case "Book":
			legacy = true
		}
	}
	if legacy {
		return nil, ErrUnsupportedVersion
	}
	return nil, ErrNoWorkbookStream
}

func (d *Decoder) readGlobals() error {
	r := &records{b: d.stream}
	rec, ok := r.next()
	if !ok || rec.id != recBOF {
		return errors.New("workbook stream does not start with a BOF record")
	}
	if c := newCursor(rec.data); c.u16() != biff8 {
		return ErrUnsupportedVersion
	}

	for {
		rec, ok := r.next()
		if !ok {
			if r.err != nil {
				return fmt.Errorf("could not read workbook globals: %w", r.err)
			}
			return nil
		}
		c := newCursor(rec.data)
		switch rec.id {
		case recEOF:
			return nil
		case recDateMode:
			d.date1904 = c.u16() == 1
		case recFormat:
			id := c.u16()
			code := c.str()
			if c.err == nil {
				d.formats[id] = code
			}
		case recXF:
			c.u16()
			d.xfFormat = append(d.xfFormat, c.u16())
		case recBoundSheet:
			offset := c.u32()
			c.u8()
			kind := c.u8()
			name := c.shortStr()
			if c.err != nil {
				return fmt.Errorf("could not read sheet entry: %w", c.err)
			}
			// 0 is a worksheet; charts, macro sheets and VB modules carry no cells.
			if kind == 0 {
				d.sheets = append(d.sheets, sheetRef{name: name, offset: offset})
			}
		case recSST:
			segs := [][]byte{rec.data}
			for r.peek() == recContinue {
				cont, _ := r.next()
				segs = append(segs, cont.data)
			}
			d.sst = readSST(segs)
		}
	}
}

// SheetNames lists the worksheets in workbook order.
func (d *Decoder) SheetNames() []string {
	names := make([]string, len(d.sheets))
	for i, s := range d.sheets {
		names[i] = s.name
	}
	return names
}

// Grid returns the sheet's cells row by row, starting at row 1. Rows without
// cells are nil and rows are ragged.
func (d *Decoder) Grid(sheet string) ([][]frame.Value, error) {
	for _, s := range d.sheets {
		if s.name != sheet {
			continue
		}
		g, err := d.readCells(s.offset)
		if err != nil {
			return nil, fmt.Errorf("could not read sheet %q: %w", sheet, err)
		}
		return g.rows(), nil
	}
	return nil, fmt.Errorf("sheet %q not found", sheet)
}

// Close releases the workbook stream.
func (d *Decoder) Close() error {
	d.stream = nil
	return nil
}

type cellRef struct {
	row, col int
}

// cellGrid collects sparse cell records.
type cellGrid struct {
	cells  map[cellRef]frame.Value
	widths map[int]int
	height int
}

func (g *cellGrid) set(row, col uint16, v frame.Value) {
	r, c := int(row), int(col)
	g.cells[cellRef{r, c}] = v
	g.widths[r] = max(g.widths[r], c+1)
	g.height = max(g.height, r+1)
}

func (g *cellGrid) rows() [][]frame.Value {
	if g.height == 0 {
		return nil
	}
	out := make([][]frame.Value, g.height)
	for r, w := range g.widths {
		out[r] = make([]frame.Value, w)
	}
	for ref, v := range g.cells {
		out[ref.row][ref.col] = v
	}
	return out
}

func (d *Decoder) readCells(offset uint32) (*cellGrid, error) {
	if int(offset) >= len(d.stream) {
		return nil, fmt.Errorf("sheet offset %d is outside the workbook stream", offset)
	}
	r := &records{b: d.stream, off: int(offset)}
	if r.peek() != recBOF {
		return nil, fmt.Errorf("no BOF record at sheet offset %d", offset)
	}

	g := &cellGrid{cells: make(map[cellRef]frame.Value), widths: make(map[int]int)}
	var pending *cellRef
	depth := 0
	for {
		rec, ok := r.next()
		if !ok {
			// A sheet cut off before its EOF keeps the cells read so far.
			return g, r.err
		}
		switch rec.id {
		case recBOF:
			depth++
			continue
		case recEOF:
			depth--
			if depth == 0 {
				return g, nil
			}
			continue
		}
		// Embedded chart substreams sit at depth 2.
		if depth != 1 {
			continue
		}
		if err := d.readCell(rec, g, &pending); err != nil {
			return nil, err
		}
	}
}

func (d *Decoder) readCell(rec record, g *cellGrid, pending **cellRef) error {
	c := newCursor(rec.data)
	switch rec.id {
	case recLabelSST:
		row, col, _ := c.u16(), c.u16(), c.u16()
		idx := c.u32()
		if c.err != nil {
			return c.err
		}
		if int(idx) >= len(d.sst) {
			return fmt.Errorf("shared string %d out of range (%d strings)", idx, len(d.sst))
		}
		g.set(row, col, frame.Text(d.sst[idx]))

	case recLabel:
		row, col, _ := c.u16(), c.u16(), c.u16()
		s := c.str()
		if c.err != nil {
			return c.err
		}
		g.set(row, col, frame.Text(s))

	case recNumber:
		row, col, xf := c.u16(), c.u16(), c.u16()
		bits := binary.LittleEndian.Uint64(c.bytes(8))
		if c.err != nil {
			return c.err
		}
		g.set(row, col, d.number(xf, math.Float64frombits(bits)))

	case recRK:
		row, col, xf := c.u16(), c.u16(), c.u16()
		rk := c.u32()
		if c.err != nil {
			return c.err
		}
		g.set(row, col, d.number(xf, rkNumber(rk)))

	case recMulRK:
		row, first := c.u16(), c.u16()
		n := (len(rec.data) - 6) / 6
		for i := 0; i < n; i++ {
			xf, rk := c.u16(), c.u32()
			if c.err != nil {
				return c.err
			}
			g.set(row, first+uint16(i), d.number(xf, rkNumber(rk)))
		}

	case recBoolErr:
		row, col, _ := c.u16(), c.u16(), c.u16()
		v, isErr := c.u8(), c.u8()
		if c.err != nil {
			return c.err
		}
		if isErr != 0 {
			g.set(row, col, frame.Text(errorText(v)))
		} else {
			g.set(row, col, frame.Bool(v != 0))
		}

	case recFormula:
		row, col, xf := c.u16(), c.u16(), c.u16()
		res := c.bytes(8)
		if c.err != nil {
			return c.err
		}
		if res[6] != 0xFF || res[7] != 0xFF {
			g.set(row, col, d.number(xf, math.Float64frombits(binary.LittleEndian.Uint64(res))))
			return nil
		}
		switch res[0] {
		case 0x00: // text, carried by the STRING record that follows
			*pending = &cellRef{int(row), int(col)}
		case 0x01:
			g.set(row, col, frame.Bool(res[2] != 0))
		case 0x02:
			g.set(row, col, frame.Text(errorText(res[2])))
		}

	case recString:
		if *pending == nil {
			return nil
		}
		s := c.str()
		if c.err != nil {
			return c.err
		}
		ref := *pending
		g.set(uint16(ref.row), uint16(ref.col), frame.Text(s))
		*pending = nil
	}
	return nil
}

// number types a numeric cell: date formats become text, integral values
// become integers.
func (d *Decoder) number(xf uint16, f float64) frame.Value {
	if d.isDate(xf) {
		if t, err := excelize.ExcelDateToTime(f, d.date1904); err == nil {
			return frame.String(t.Round(time.Second).Format(xlsx.DateLayout))
		}
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return frame.Int(int64(f))
	}
	return frame.Float(f)
}

func (d *Decoder) isDate(xf uint16) bool {
	if int(xf) >= len(d.xfFormat) {
		return false
	}
	id := d.xfFormat[xf]
	if code, ok := d.formats[id]; ok {
		return xlsx.IsDateFormat(int(id), &code)
	}
	return xlsx.IsDateFormat(int(id), nil)
}
