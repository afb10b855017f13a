package ifd

import "bytes"

// Sony notes put a bare directory at +12 in container coordinates.
// The trailing next pointer is garbage on most bodies, and several
// firmware lines shift value pointers, so the directory goes through
// the offset analyzer.
type sonyNote struct{}

func (sonyNote) name() string { return "sony" }

func (sonyNote) match(f noteFacts) bool {
	return bytes.HasPrefix(f.header, []byte("SONY DSC \x00\x00\x00")) ||
		bytes.HasPrefix(f.header, []byte("SONY CAM \x00\x00\x00"))
}

func (sonyNote) parse(p *parser, parent offsetContext, span noteSpan, group string) error {
	ctx := offsetContext{base: parent.base, order: parent.order, hint: "sony"}
	p.descend(ctx, span.start+12, group, span, offsetAuto)
	return nil
}
