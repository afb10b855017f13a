package ifd

import "strings"

// Canon notes carry no label at all: the block is a bare directory in
// container coordinates, recognized through the Make string. Offset
// bugs are common enough across EOS firmware that the analyzer always
// vets the result.
type canonNote struct{}

func (canonNote) name() string { return "canon" }

func (canonNote) match(f noteFacts) bool {
	return strings.HasPrefix(f.make, "Canon")
}

func (canonNote) parse(p *parser, parent offsetContext, span noteSpan, group string) error {
	ctx := offsetContext{base: parent.base, order: parent.order, hint: "canon"}
	p.descend(ctx, span.start, group, span, offsetAuto)
	return nil
}
