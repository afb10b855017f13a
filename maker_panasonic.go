package ifd

import "bytes"

// Panasonic notes are a bare directory at +12 in container
// coordinates. The note carries no next-directory pointer; the four
// bytes after the entry table already belong to value data, which is
// harmless here because nested directories never follow their chain.
type panasonicNote struct{}

func (panasonicNote) name() string { return "panasonic" }

func (panasonicNote) match(f noteFacts) bool {
	return bytes.HasPrefix(f.header, []byte("Panasonic\x00\x00\x00"))
}

func (panasonicNote) parse(p *parser, parent offsetContext, span noteSpan, group string) error {
	ctx := offsetContext{base: parent.base, order: parent.order, hint: "panasonic"}
	p.descend(ctx, span.start+12, group, span, offsetFixed)
	return nil
}
