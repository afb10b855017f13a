package ifd

import (
	"bytes"
	"strings"
)

// Nikon notes come in three shapes:
//
//	"Nikon\x00\x01..."      bare directory at +8, container coordinates
//	"Nikon\x00\x02..."      a whole embedded container at +10 whose
//	                        header declares the byte order and is the
//	                        origin for every pointer inside the note
//	unlabeled               bare directory at +0 on early bodies,
//	                        matched through the Make string
type nikonNote struct{}

func (nikonNote) name() string { return "nikon" }

func (nikonNote) match(f noteFacts) bool {
	return bytes.HasPrefix(f.header, []byte("Nikon\x00")) ||
		strings.HasPrefix(f.make, "NIKON")
}

func (nikonNote) parse(p *parser, parent offsetContext, span noteSpan, group string) error {
	h := p.r.window(span.start, 12)
	switch {
	case bytes.HasPrefix(h, []byte("Nikon\x00\x02")):
		return p.runChain(span.start+10, chainNamer(group))
	case bytes.HasPrefix(h, []byte("Nikon\x00\x01")):
		ctx := offsetContext{base: parent.base, order: parent.order, hint: "nikon1"}
		p.descend(ctx, span.start+8, group, span, offsetAuto)
		return nil
	default:
		// Label-less early bodies. The note's own byte order is not
		// recorded anywhere, so sniff it.
		ctx := offsetContext{base: parent.base, order: p.detectOrder(parent.order, span.start), hint: "nikon"}
		p.descend(ctx, span.start, group, span, offsetAuto)
		return nil
	}
}
