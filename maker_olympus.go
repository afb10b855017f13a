package ifd

import (
	"bytes"
	"encoding/binary"
)

// Olympus switched layouts around 2005:
//
//	"OLYMP\x00"         legacy: bare directory at +8, container
//	                    coordinates
//	"OLYMPUS\x00II..."  directory at +12 with pointers relative to the
//	                    note start; the order mark at +8 is
//	                    authoritative
//
// Both generations ship firmware with shifted pointers, so the offset
// analyzer vets every Olympus directory.
type olympusNote struct{}

func (olympusNote) name() string { return "olympus" }

func (olympusNote) match(f noteFacts) bool {
	return bytes.HasPrefix(f.header, []byte("OLYMPUS\x00")) ||
		bytes.HasPrefix(f.header, []byte("OLYMP\x00"))
}

func (olympusNote) parse(p *parser, parent offsetContext, span noteSpan, group string) error {
	h := p.r.window(span.start, 12)
	if bytes.HasPrefix(h, []byte("OLYMPUS\x00")) && len(h) >= 10 {
		var ord binary.ByteOrder = parent.order
		switch string(h[8:10]) {
		case "II":
			ord = binary.LittleEndian
		case "MM":
			ord = binary.BigEndian
		}
		ctx := offsetContext{base: span.start, order: ord, hint: "olympus2"}
		p.descend(ctx, span.start+12, group, span, offsetAuto)
		return nil
	}
	ctx := offsetContext{base: parent.base, order: parent.order, hint: "olympus1"}
	p.descend(ctx, span.start+8, group, span, offsetAuto)
	return nil
}
