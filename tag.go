package ifd

import (
	"fmt"
	"math/big"
)

// An Entry is one decoded directory entry: the tag, where it came from,
// and its resolved value. Entries are emitted in encounter order, a
// directory's own entries first and its subdirectories after.
type Entry struct {
	Tag      uint16
	Group    string // slash-separated path, e.g. "IFD0/Exif/MakerNote"
	Format   Format
	Count    uint64
	Value    Value
	Offset   int64 // absolute position of the entry record
	Warnings []error
}

// String implements Stringer.
func (e Entry) String() string {
	return fmt.Sprintf("%s tag 0x%04x %s[%d]: %s", e.Group, e.Tag, e.Format, e.Count, e.Value)
}

// A Value holds an entry's payload decoded into the slice matching its
// format family. At most one field is populated: UInt for BYTE, SHORT,
// LONG, IFD and the 64-bit unsigned formats, SInt for the signed ones,
// Rat for both rational kinds, Float for FLOAT and DOUBLE, Text for
// ASCII, Raw for UNDEFINED and for format codes this package does not
// know. An unresolvable value leaves every field empty.
type Value struct {
	Format Format
	UInt   []uint64
	SInt   []int64
	Rat    []Rational
	Float  []float64
	Text   string
	Raw    []byte
}

// Len returns the number of decoded elements. ASCII counts one element
// per byte of text left after the terminator is stripped.
func (v Value) Len() int {
	switch {
	case v.UInt != nil:
		return len(v.UInt)
	case v.SInt != nil:
		return len(v.SInt)
	case v.Rat != nil:
		return len(v.Rat)
	case v.Float != nil:
		return len(v.Float)
	case v.Raw != nil:
		return len(v.Raw)
	default:
		return len(v.Text)
	}
}

// First returns the first element widened to uint64, or 0 when the
// value is empty or not integral.
func (v Value) First() uint64 {
	return v.Uint(0)
}

// Uint returns the unsigned integer at index, or 0 when out of range.
// Signed elements and raw bytes are widened.
func (v Value) Uint(i int) uint64 {
	switch {
	case i < 0:
		return 0
	case i < len(v.UInt):
		return v.UInt[i]
	case i < len(v.SInt):
		return uint64(v.SInt[i])
	case i < len(v.Raw):
		return uint64(v.Raw[i])
	}
	return 0
}

// Int returns the signed integer at index, or 0 when out of range.
func (v Value) Int(i int) int64 {
	switch {
	case i < 0:
		return 0
	case i < len(v.SInt):
		return v.SInt[i]
	case i < len(v.UInt):
		return int64(v.UInt[i])
	case i < len(v.Raw):
		return int64(v.Raw[i])
	}
	return 0
}

// Rational returns the rational at index, or an undefined zero rational
// when out of range.
func (v Value) Rational(i int) Rational {
	if i < 0 || i >= len(v.Rat) {
		return Rational{}
	}
	return v.Rat[i]
}

// AsFloat returns the element at index converted to float64, or 0 when
// out of range or undefined.
func (v Value) AsFloat(i int) float64 {
	switch {
	case i >= 0 && i < len(v.Float):
		return v.Float[i]
	case i >= 0 && i < len(v.Rat):
		return v.Rat[i].Float64()
	case i >= 0 && i < len(v.SInt):
		return float64(v.SInt[i])
	default:
		return float64(v.Uint(i))
	}
}

// String implements Stringer.
func (v Value) String() string {
	switch {
	case v.Text != "":
		return fmt.Sprintf("%q", v.Text)
	case v.UInt != nil:
		return fmt.Sprintf("%v", v.UInt)
	case v.SInt != nil:
		return fmt.Sprintf("%v", v.SInt)
	case v.Rat != nil:
		return fmt.Sprintf("%v", v.Rat)
	case v.Float != nil:
		return fmt.Sprintf("%v", v.Float)
	case v.Raw != nil:
		return fmt.Sprintf("%d raw bytes", len(v.Raw))
	default:
		return "empty"
	}
}

// A Rational is a numerator/denominator pair. A zero denominator is
// carried as-is and reported by Defined; it is never evaluated.
type Rational struct {
	Num int64
	Den int64
}

// Defined reports whether the rational can be evaluated.
func (r Rational) Defined() bool {
	return r.Den != 0
}

// Rat returns the value as a big.Rat, or nil when the denominator is
// zero.
func (r Rational) Rat() *big.Rat {
	if !r.Defined() {
		return nil
	}
	return big.NewRat(r.Num, r.Den)
}

// Float64 returns the evaluated rational, or 0 when the denominator is
// zero.
func (r Rational) Float64() float64 {
	if !r.Defined() {
		return 0
	}
	f, _ := r.Rat().Float64()
	return f
}

// String implements Stringer.
func (r Rational) String() string {
	if !r.Defined() {
		return fmt.Sprintf("%d/0 (undefined)", r.Num)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}
