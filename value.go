package ifd

import (
	"encoding/binary"
	"fmt"
	"math"
)

// A block is the resolved absolute byte range of one out-of-line value.
// Blocks are collected even when unreadable under the current base:
// out-of-bounds positions are exactly the evidence the offset analyzer
// works from.
type block struct {
	off   int64
	n     int64
	entry int // index into directory.entries
}

// resolved is the outcome of one resolution pass over a directory.
type resolved struct {
	vals   []Value
	blocks []block
	warns  [][]error // per entry
}

// unavailable returns the first entry defect of the pass where a value
// could not be read, or nil when every value came back whole.
func (r resolved) unavailable() error {
	for _, ws := range r.warns {
		for _, w := range ws {
			switch w.(type) {
			case UnavailableError, TruncatedError:
				return w
			}
		}
	}
	return nil
}

// blockFor returns the out-of-line block resolved for entry i, or nil
// when the value was inline or carried an unknown format.
func (r resolved) blockFor(i int) *block {
	for j := range r.blocks {
		if r.blocks[j].entry == i {
			return &r.blocks[j]
		}
	}
	return nil
}

// resolveDirectory materializes every entry of d under ctx. Each entry
// degrades independently; a bad pointer never affects its siblings.
func (p *parser) resolveDirectory(ctx offsetContext, d *directory) resolved {
	res := resolved{
		vals:  make([]Value, len(d.entries)),
		warns: make([][]error, len(d.entries)),
	}
	for i := range d.entries {
		v, b, warns := p.resolveEntry(ctx, d, i)
		res.vals[i] = v
		if b != nil {
			res.blocks = append(res.blocks, *b)
		}
		res.warns[i] = warns
	}
	return res
}

// resolveEntry materializes one entry's value. The value is inline when
// count*size fits the pointer field; otherwise the field is an offset
// against ctx.base (or the entry's own record position in
// entry-relative mode) and the value bytes live there.
func (p *parser) resolveEntry(ctx offsetContext, d *directory, i int) (Value, *block, []error) {
	e := &d.entries[i]
	v := Value{Format: e.format}

	size := int64(e.format.Size())
	if size == 0 {
		// Unknown format: the field bytes are carried raw since there
		// is no element size to dereference with.
		v.Raw = append([]byte(nil), e.field...)
		return v, nil, []error{UnsupportedError(fmt.Sprintf("format code %d for tag %d", uint16(e.format), e.tag))}
	}
	if e.count == 0 {
		return v, nil, nil // a zero count is a valid empty value
	}
	if e.count > uint64(math.MaxInt64)/uint64(size) {
		return v, nil, []error{UnavailableError{Tag: e.tag, Offset: e.pos, Length: -1}}
	}
	total := int64(e.count) * size

	if total <= ctx.ptrSize() {
		return decodeValue(e.format, ctx.order, e.count, e.field[:total]), nil, nil
	}

	var ptr uint64
	if ctx.wide {
		ptr = ctx.order.Uint64(e.field)
	} else {
		ptr = uint64(ctx.order.Uint32(e.field))
	}
	abs := ctx.base + int64(ptr)
	if ctx.entryRel {
		abs = e.pos + int64(ptr)
	}
	b := &block{off: abs, n: total, entry: i}

	raw, err := p.r.bytes(abs, total)
	if err != nil {
		return v, b, []error{UnavailableError{Tag: e.tag, Offset: abs, Length: total}}
	}
	return decodeValue(e.format, ctx.order, e.count, raw), b, nil
}

// decodeValue converts raw wire bytes into a typed Value. raw must hold
// exactly count elements; the caller guarantees the bounds.
func decodeValue(f Format, bo binary.ByteOrder, count uint64, raw []byte) Value {
	v := Value{Format: f}
	n := int(count)
	switch f {
	case FormatByte:
		v.UInt = make([]uint64, n)
		for i := 0; i < n; i++ {
			v.UInt[i] = uint64(raw[i])
		}
	case FormatASCII:
		// Only the terminating NUL is stripped. Embedded NULs separate
		// multiple strings and belong to the caller.
		if n > 0 && raw[n-1] == 0 {
			raw = raw[:n-1]
		}
		v.Text = string(raw)
	case FormatShort:
		v.UInt = make([]uint64, n)
		for i := 0; i < n; i++ {
			v.UInt[i] = uint64(bo.Uint16(raw[2*i:]))
		}
	case FormatLong, FormatIFD:
		v.UInt = make([]uint64, n)
		for i := 0; i < n; i++ {
			v.UInt[i] = uint64(bo.Uint32(raw[4*i:]))
		}
	case FormatLong8, FormatIFD8:
		v.UInt = make([]uint64, n)
		for i := 0; i < n; i++ {
			v.UInt[i] = bo.Uint64(raw[8*i:])
		}
	case FormatSByte:
		v.SInt = make([]int64, n)
		for i := 0; i < n; i++ {
			v.SInt[i] = int64(int8(raw[i]))
		}
	case FormatSShort:
		v.SInt = make([]int64, n)
		for i := 0; i < n; i++ {
			v.SInt[i] = int64(int16(bo.Uint16(raw[2*i:])))
		}
	case FormatSLong:
		v.SInt = make([]int64, n)
		for i := 0; i < n; i++ {
			v.SInt[i] = int64(int32(bo.Uint32(raw[4*i:])))
		}
	case FormatSLong8:
		v.SInt = make([]int64, n)
		for i := 0; i < n; i++ {
			v.SInt[i] = int64(bo.Uint64(raw[8*i:]))
		}
	case FormatRational:
		v.Rat = make([]Rational, n)
		for i := 0; i < n; i++ {
			v.Rat[i] = Rational{
				Num: int64(bo.Uint32(raw[8*i:])),
				Den: int64(bo.Uint32(raw[8*i+4:])),
			}
		}
	case FormatSRational:
		v.Rat = make([]Rational, n)
		for i := 0; i < n; i++ {
			v.Rat[i] = Rational{
				Num: int64(int32(bo.Uint32(raw[8*i:]))),
				Den: int64(int32(bo.Uint32(raw[8*i+4:]))),
			}
		}
	case FormatFloat:
		v.Float = make([]float64, n)
		for i := 0; i < n; i++ {
			v.Float[i] = float64(math.Float32frombits(bo.Uint32(raw[4*i:])))
		}
	case FormatDouble:
		v.Float = make([]float64, n)
		for i := 0; i < n; i++ {
			v.Float[i] = math.Float64frombits(bo.Uint64(raw[8*i:]))
		}
	default:
		// FormatUndefined and anything else sized 1: raw payload.
		v.Raw = append([]byte(nil), raw...)
	}
	return v
}
