package xls

import (
	"encoding/binary"
	"errors"
	"math"
	"unicode/utf16"
)

// BIFF8 record identifiers.
const (
	recFormula    = 0x0006
	recEOF        = 0x000A
	recDateMode   = 0x0022
	recContinue   = 0x003C
	recBoundSheet = 0x0085
	recMulRK      = 0x00BD
	recXF         = 0x00E0
	recSST        = 0x00FC
	recLabelSST   = 0x00FD
	recNumber     = 0x0203
	recLabel      = 0x0204
	recBoolErr    = 0x0205
	recString     = 0x0207
	recRK         = 0x027E
	recFormat     = 0x041E
	recBOF        = 0x0809
)

// biff8 is the BOF version field of Excel 97-2003 streams.
const biff8 = 0x0600

var errTruncated = errors.New("truncated BIFF record")

type record struct {
	id   uint16
	data []byte
}

// records walks the record headers of a workbook stream.
type records struct {
	b   []byte
	off int
	err error
}

func (r *records) next() (record, bool) {
	if r.err != nil || r.off+4 > len(r.b) {
		return record{}, false
	}
	id := binary.LittleEndian.Uint16(r.b[r.off:])
	n := int(binary.LittleEndian.Uint16(r.b[r.off+2:]))
	start := r.off + 4
	if start+n > len(r.b) {
		r.err = errTruncated
		return record{}, false
	}
	r.off = start + n
	return record{id: id, data: r.b[start : start+n]}, true
}

// peek returns the id of the next record, or 0 at the end of the stream.
func (r *records) peek() uint16 {
	if r.off+4 > len(r.b) {
		return 0
	}
	return binary.LittleEndian.Uint16(r.b[r.off:])
}

// cursor reads little-endian fields from a record body and any CONTINUE
// bodies that follow it. A read past the end sets err and yields zero; later
// reads are no-ops.
type cursor struct {
	segs     [][]byte
	seg, pos int
	err      error
}

func newCursor(segs ...[]byte) *cursor {
	if len(segs) == 0 {
		segs = [][]byte{nil}
	}
	return &cursor{segs: segs}
}

func (c *cursor) u8() byte {
	if c.err != nil {
		return 0
	}
	for c.pos >= len(c.segs[c.seg]) {
		if c.seg+1 >= len(c.segs) {
			c.err = errTruncated
			return 0
		}
		c.seg++
		c.pos = 0
	}
	b := c.segs[c.seg][c.pos]
	c.pos++
	return b
}

func (c *cursor) u16() uint16 {
	return uint16(c.u8()) | uint16(c.u8())<<8
}

func (c *cursor) u32() uint32 {
	return uint32(c.u16()) | uint32(c.u16())<<16
}

func (c *cursor) bytes(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = c.u8()
	}
	return out
}

func (c *cursor) skip(n int) {
	for i := 0; i < n && c.err == nil; i++ {
		c.u8()
	}
}

// chars reads n characters stored as Latin-1 bytes or UTF-16 units. When the
// characters run into the next segment, that segment starts with a fresh
// option byte that may switch the width.
func (c *cursor) chars(n int, wide bool) string {
	units := make([]uint16, 0, n)
	for i := 0; i < n && c.err == nil; i++ {
		if c.pos >= len(c.segs[c.seg]) {
			if c.seg+1 >= len(c.segs) {
				c.err = errTruncated
				break
			}
			c.seg++
			c.pos = 0
			wide = c.u8()&0x01 != 0
		}
		if wide {
			units = append(units, c.u16())
		} else {
			units = append(units, uint16(c.u8()))
		}
	}
	return string(utf16.Decode(units))
}

// str reads an XLUnicodeString: 16-bit length, option byte, characters.
func (c *cursor) str() string {
	n := c.u16()
	flags := c.u8()
	return c.chars(int(n), flags&0x01 != 0)
}

// shortStr reads a ShortXLUnicodeString with an 8-bit length.
func (c *cursor) shortStr() string {
	n := c.u8()
	flags := c.u8()
	return c.chars(int(n), flags&0x01 != 0)
}

// richStr reads an SST entry, dropping formatting runs and phonetic data.
func (c *cursor) richStr() string {
	n := c.u16()
	flags := c.u8()
	runs, ext := 0, 0
	if flags&0x08 != 0 {
		runs = int(c.u16())
	}
	if flags&0x04 != 0 {
		ext = int(c.u32())
	}
	s := c.chars(int(n), flags&0x01 != 0)
	c.skip(4*runs + ext)
	return s
}

// readSST decodes the shared string table. A table shorter than its declared
// count keeps the strings read so far.
func readSST(segs [][]byte) []string {
	c := newCursor(segs...)
	c.u32()
	unique := int(c.u32())
	out := make([]string, 0, min(unique, 1<<16))
	for i := 0; i < unique; i++ {
		s := c.richStr()
		if c.err != nil {
			break
		}
		out = append(out, s)
	}
	return out
}

// rkNumber decodes an RK value: a 30-bit integer or the high bits of a
// double, optionally scaled by 1/100.
func rkNumber(rk uint32) float64 {
	var f float64
	if rk&0x02 != 0 {
		f = float64(int32(rk) >> 2)
	} else {
		f = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		f /= 100
	}
	return f
}

func errorText(code byte) string {
	switch code {
	case 0x00:
		return "#NULL!"
	case 0x07:
		return "#DIV/0!"
	case 0x0F:
		return "#VALUE!"
	case 0x17:
		return "#REF!"
	case 0x1D:
		return "#NAME?"
	case 0x24:
		return "#NUM!"
	case 0x2A:
		return "#N/A"
	}
	return "#ERROR!"
}
