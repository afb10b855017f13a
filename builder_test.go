package ifd

import "encoding/binary"

///////////////////////////
//                       //
// Fixtures              //
//                       //
///////////////////////////

// Fixtures are assembled byte by byte: directories and value blocks
// land at explicit offsets so broken layouts are as easy to craft as
// clean ones.

type tiffBuilder struct {
	bo   binary.ByteOrder
	wide bool
	b    []byte
}

func newBuilder(bo binary.ByteOrder) *tiffBuilder {
	t := &tiffBuilder{bo: bo}
	if bo == binary.LittleEndian {
		t.b = append(t.b, leHeader...)
	} else {
		t.b = append(t.b, beHeader...)
	}
	t.b = append(t.b, 0, 0, 0, 0) // first-directory pointer, patched by setFirst
	return t
}

func newBigBuilder(bo binary.ByteOrder) *tiffBuilder {
	t := &tiffBuilder{bo: bo, wide: true}
	if bo == binary.LittleEndian {
		t.b = append(t.b, leHeaderBig...)
	} else {
		t.b = append(t.b, beHeaderBig...)
	}
	t.b = append(t.b, t.u16(8)...)          // offset size
	t.b = append(t.b, t.u16(0)...)          // reserved
	t.b = append(t.b, make([]byte, 8)...)   // first-directory pointer
	return t
}

func (t *tiffBuilder) setFirst(off int64) {
	if t.wide {
		t.bo.PutUint64(t.b[8:16], uint64(off))
	} else {
		t.bo.PutUint32(t.b[4:8], uint32(off))
	}
}

func (t *tiffBuilder) at() int64 { return int64(len(t.b)) }

func (t *tiffBuilder) bytes() []byte { return t.b }

// place writes data at an absolute offset, zero-filling any gap.
func (t *tiffBuilder) place(off int64, data []byte) {
	for int64(len(t.b)) < off+int64(len(data)) {
		t.b = append(t.b, 0)
	}
	copy(t.b[off:], data)
}

// pad grows the buffer with zeros up to off.
func (t *tiffBuilder) pad(off int64) {
	for int64(len(t.b)) < off {
		t.b = append(t.b, 0)
	}
}

func (t *tiffBuilder) u16(v uint16) []byte {
	p := make([]byte, 2)
	t.bo.PutUint16(p, v)
	return p
}

func (t *tiffBuilder) u32(v uint32) []byte {
	p := make([]byte, 4)
	t.bo.PutUint32(p, v)
	return p
}

func (t *tiffBuilder) u64(v uint64) []byte {
	p := make([]byte, 8)
	t.bo.PutUint64(p, v)
	return p
}

func (t *tiffBuilder) rat(num, den uint32) []byte {
	return append(t.u32(num), t.u32(den)...)
}

// A recEntry describes one record of a directory under construction.
type recEntry struct {
	tag    uint16
	format Format
	count  uint64
	field  []byte // zero-padded to the pointer width
}

// dir appends a directory at the current end and returns its start.
func (t *tiffBuilder) dir(next int64, entries ...recEntry) int64 {
	start := t.at()
	fw := 4
	if t.wide {
		fw = 8
		t.b = append(t.b, t.u64(uint64(len(entries)))...)
	} else {
		t.b = append(t.b, t.u16(uint16(len(entries)))...)
	}
	for _, e := range entries {
		t.b = append(t.b, t.u16(e.tag)...)
		t.b = append(t.b, t.u16(uint16(e.format))...)
		if t.wide {
			t.b = append(t.b, t.u64(e.count)...)
		} else {
			t.b = append(t.b, t.u32(uint32(e.count))...)
		}
		f := make([]byte, fw)
		copy(f, e.field)
		t.b = append(t.b, f...)
	}
	if t.wide {
		t.b = append(t.b, t.u64(uint64(next))...)
	} else {
		t.b = append(t.b, t.u32(uint32(next))...)
	}
	return start
}

func (t *tiffBuilder) eShort(tag uint16, vals ...uint16) recEntry {
	var f []byte
	for _, v := range vals {
		f = append(f, t.u16(v)...)
	}
	return recEntry{tag: tag, format: FormatShort, count: uint64(len(vals)), field: f}
}

func (t *tiffBuilder) eLong(tag uint16, vals ...uint32) recEntry {
	var f []byte
	for _, v := range vals {
		f = append(f, t.u32(v)...)
	}
	return recEntry{tag: tag, format: FormatLong, count: uint64(len(vals)), field: f}
}

func (t *tiffBuilder) eLong8(tag uint16, vals ...uint64) recEntry {
	var f []byte
	for _, v := range vals {
		f = append(f, t.u64(v)...)
	}
	return recEntry{tag: tag, format: FormatLong8, count: uint64(len(vals)), field: f}
}

// eASCII builds an inline text entry; the terminator must still fit
// the field.
func (t *tiffBuilder) eASCII(tag uint16, s string) recEntry {
	f := append([]byte(s), 0)
	return recEntry{tag: tag, format: FormatASCII, count: uint64(len(f)), field: f}
}

// ePtr builds an out-of-line entry whose field holds ptr as stored;
// the payload is placed separately.
func (t *tiffBuilder) ePtr(tag uint16, f Format, count uint64, ptr int64) recEntry {
	field := t.u32(uint32(ptr))
	if t.wide {
		field = t.u64(uint64(ptr))
	}
	return recEntry{tag: tag, format: f, count: count, field: field}
}

func (t *tiffBuilder) eRaw(tag uint16, f Format, count uint64, field []byte) recEntry {
	return recEntry{tag: tag, format: f, count: count, field: field}
}

// testParser wraps a raw byte region for component-level tests that
// bypass the entry points.
func testParser(data []byte) *parser {
	return &parser{
		r:      newSource(data),
		opts:   Options{}.sanitized(),
		meta:   &Metadata{},
		seen:   make(map[int64]bool),
		active: make(map[int64]bool),
	}
}
