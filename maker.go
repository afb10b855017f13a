package ifd

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// noteFacts is the fact set signature predicates are tested against:
// the leading bytes of the note block plus the Make and Model strings
// already extracted from the root directory.
type noteFacts struct {
	header []byte
	make   string
	model  string
}

// noteSpan is the absolute extent of a maker-note block inside the
// container.
type noteSpan struct {
	start int64
	size  int64
}

// A makerNote recognizes and parses one manufacturer family's note
// layout. Implementations are stateless; the table below is shared
// read-only across concurrent parses.
type makerNote interface {
	name() string
	match(f noteFacts) bool
	parse(p *parser, parent offsetContext, span noteSpan, group string) error
}

// makerNotes is the signature table. Order is priority: label-bearing
// layouts first, Make-matched label-less layouts last.
var makerNotes = []makerNote{
	nikonNote{},
	olympusNote{},
	fujifilmNote{},
	appleNote{},
	panasonicNote{},
	sonyNote{},
	canonNote{},
}

// dispatchMakerNote routes a maker-note block to the first matching
// strategy, or to the generic fallback when nothing matches. The
// nesting level is charged here so that a note embedding further
// containers cannot recurse unboundedly.
func (p *parser) dispatchMakerNote(parent offsetContext, span noteSpan, group string) {
	if err := p.budget(); err != nil {
		p.warn(group, err)
		return
	}
	if p.depth >= p.opts.MaxDepth {
		p.warn(group, LimitError{Limit: "depth"})
		return
	}
	p.depth++
	defer func() { p.depth-- }()

	facts := noteFacts{
		header: p.r.window(span.start, min(32, span.size)),
		make:   p.camMake,
		model:  p.camModel,
	}
	for _, m := range makerNotes {
		if m.match(facts) {
			if err := m.parse(p, parent, span, group); err != nil {
				p.warn(group, errors.Wrap(err, m.name()+" maker note"))
			}
			return
		}
	}
	p.genericNote(parent, span, group)
}

// genericNote is the fallback for unknown manufacturers: a bare
// directory in container coordinates, vetted by the plausibility sniff
// and handed to the offset analyzer since nothing about its anchor is
// known.
func (p *parser) genericNote(parent offsetContext, span noteSpan, group string) {
	ord := p.detectOrder(parent.order, span.start)
	if !p.plausibleDirectory(ord, span.start) {
		p.warn(group, UnsupportedError("unrecognized maker note layout"))
		return
	}
	ctx := offsetContext{base: parent.base, order: ord, hint: "generic"}
	p.descend(ctx, span.start, group, span, offsetAuto)
}

// detectOrder picks the byte order that yields a plausible entry count
// at off. When both or neither order looks plausible the container's
// order wins.
func (p *parser) detectOrder(parent binary.ByteOrder, off int64) binary.ByteOrder {
	le, err := p.r.uint16(binary.LittleEndian, off)
	if err != nil {
		return parent
	}
	be := le>>8 | le<<8

	plausible := func(c uint16) bool { return c > 0 && int(c) <= p.opts.MaxEntries }
	switch {
	case plausible(le) && !plausible(be):
		return binary.LittleEndian
	case plausible(be) && !plausible(le):
		return binary.BigEndian
	default:
		return parent
	}
}

// plausibleDirectory reports whether off looks like an entry table: a
// sane count and the first few records carrying format codes of known
// size. Maker notes that are really packed structs fail this and stay
// raw.
func (p *parser) plausibleDirectory(ord binary.ByteOrder, off int64) bool {
	c, err := p.r.uint16(ord, off)
	if err != nil || c == 0 || c > 255 {
		return false
	}
	sniff := min(int(c), 4)
	for i := 0; i < sniff; i++ {
		f, err := p.r.uint16(ord, off+2+int64(i)*ifdLen+2)
		if err != nil || Format(f).Size() == 0 {
			return false
		}
	}
	return true
}

// descend parses one nested directory with the recursion guards: the
// wall budget, the depth cap, and the active-stack cycle refusal.
// Every failure is local; the parent keeps going.
func (p *parser) descend(ctx offsetContext, start int64, group string, note noteSpan, behavior offsetBehavior) {
	if err := p.budget(); err != nil {
		p.warn(group, err)
		return
	}
	if p.depth >= p.opts.MaxDepth {
		p.warn(group, LimitError{Limit: "depth"})
		return
	}
	if p.active[start] {
		p.warn(group, CycleError{Offset: start})
		return
	}
	p.depth++
	defer func() { p.depth-- }()

	if _, err := p.processDirectory(ctx, start, group, note, behavior); err != nil {
		p.warn(group, err)
	}
}
