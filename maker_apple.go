package ifd

import (
	"bytes"
	"encoding/binary"
)

// Apple notes carry pointers relative to the note start and the
// directory at +14, after the label, a version word, and the order
// mark at +12. Shipping firmware writes "MM"; the mark is honored
// either way, and a garbled mark falls back to big-endian.
type appleNote struct{}

func (appleNote) name() string { return "apple" }

func (appleNote) match(f noteFacts) bool {
	return bytes.HasPrefix(f.header, []byte("Apple iOS\x00"))
}

func (appleNote) parse(p *parser, parent offsetContext, span noteSpan, group string) error {
	var ord binary.ByteOrder = binary.BigEndian
	if h := p.r.window(span.start, 14); len(h) >= 14 && string(h[12:14]) == "II" {
		ord = binary.LittleEndian
	}
	ctx := offsetContext{base: span.start, order: ord, hint: "apple"}
	p.descend(ctx, span.start+14, group, span, offsetFixed)
	return nil
}
