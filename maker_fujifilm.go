package ifd

import (
	"bytes"
	"encoding/binary"
)

// Fujifilm notes are always little-endian regardless of the container,
// and every pointer inside them counts from the note start. The
// directory position itself is stored as a LE u32 at +8 (in practice
// 12, but firmware is taken at its word).
type fujifilmNote struct{}

func (fujifilmNote) name() string { return "fujifilm" }

func (fujifilmNote) match(f noteFacts) bool {
	return bytes.HasPrefix(f.header, []byte("FUJIFILM"))
}

func (fujifilmNote) parse(p *parser, parent offsetContext, span noteSpan, group string) error {
	dir, err := p.r.uint32(binary.LittleEndian, span.start+8)
	if err != nil {
		return err
	}
	ctx := offsetContext{base: span.start, order: binary.LittleEndian, hint: "fujifilm"}
	p.descend(ctx, span.start+int64(dir), group, span, offsetFixed)
	return nil
}
