package ifd

// Resources:
// https://www.itu.int/itudoc/itu-t/com16/tiff-fx/docs/tiff6.pdf (TIFF 6.0)
// https://www.cipa.jp/std/documents/download_e.html?DC-008-2012_E (EXIF 2.3)
// https://www.awaresystems.be/imaging/tiff/bigtiff.html (BigTIFF layout)
// https://exiv2.org/makernote.html (maker note headers)
// https://exiftool.org/makernote_types.html (maker note offset schemes)

import (
	"encoding/binary"
	"io"
	"math"

	"golang.org/x/exp/mmap"
)

// A source provides bounds-checked random access to a finite byte
// region. Every read takes an explicit absolute offset, and byte order
// is supplied by the caller at each numeric read; there is no cursor
// and no ambient state, so a single source is safely shared across
// recursion levels.
type source struct {
	r    io.ReaderAt
	buf  []byte // non-nil when the whole region lives in memory
	size int64
}

func newSource(data []byte) *source {
	return &source{buf: data, size: int64(len(data))}
}

func newSourceAt(r io.ReaderAt, size int64) *source {
	return &source{r: r, size: size}
}

// openSource memory-maps the file at path. The returned closer unmaps
// it; reads after Close are invalid.
func openSource(path string) (*source, io.Closer, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return newSourceAt(m, int64(m.Len())), m, nil
}

func (s *source) len() int64 {
	return s.size
}

// in reports whether [off, off+n) lies inside the source.
func (s *source) in(off, n int64) bool {
	return off >= 0 && n >= 0 && off <= s.size && n <= s.size-off
}

// bytes returns the n bytes at off. The window aliases the backing
// buffer when there is one, so callers that retain data must copy.
// The length is validated before any allocation happens.
func (s *source) bytes(off, n int64) ([]byte, error) {
	if !s.in(off, n) {
		return nil, TruncatedError{Offset: off, Need: n}
	}
	if s.buf != nil {
		return s.buf[off : off+n], nil
	}
	p := make([]byte, n)
	// ReadAt may pair a full read with io.EOF when it ends at the last
	// byte; only a short read is a failure.
	if m, _ := s.r.ReadAt(p, off); int64(m) != n {
		return nil, TruncatedError{Offset: off, Need: n}
	}
	return p, nil
}

// window returns up to n bytes at off, clamped to what the source still
// holds. Used for signature peeks where a short region is not an error.
func (s *source) window(off, n int64) []byte {
	if off < 0 || off >= s.size {
		return nil
	}
	n = min(n, s.size-off)
	p, err := s.bytes(off, n)
	if err != nil {
		return nil
	}
	return p
}

func (s *source) uint16(bo binary.ByteOrder, off int64) (uint16, error) {
	p, err := s.bytes(off, 2)
	if err != nil {
		return 0, err
	}
	return bo.Uint16(p), nil
}

func (s *source) uint32(bo binary.ByteOrder, off int64) (uint32, error) {
	p, err := s.bytes(off, 4)
	if err != nil {
		return 0, err
	}
	return bo.Uint32(p), nil
}

func (s *source) uint64(bo binary.ByteOrder, off int64) (uint64, error) {
	p, err := s.bytes(off, 8)
	if err != nil {
		return 0, err
	}
	return bo.Uint64(p), nil
}

func (s *source) float32(bo binary.ByteOrder, off int64) (float32, error) {
	v, err := s.uint32(bo, off)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (s *source) float64(bo binary.ByteOrder, off int64) (float64, error) {
	v, err := s.uint64(bo, off)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}
