package ifd

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Options tunes a parse. The zero value is ready to use: zero caps take
// the package defaults, while a zero MaxDirectories or Deadline means
// unlimited.
type Options struct {
	// MaxEntries caps the declared entry count a single directory may
	// carry before it is rejected as invalid.
	MaxEntries int

	// MaxDepth caps subdirectory nesting.
	MaxDepth int

	// MaxChain caps the number of linked directories in one chain.
	MaxChain int

	// MaxDirectories caps the total number of directories across the
	// whole parse, nested ones included.
	MaxDirectories int

	// Deadline stops the walk once passed, keeping whatever was
	// already decoded.
	Deadline time.Time

	// Strict drops every entry of a directory whose value layout is
	// suspect or whose values cannot be read, instead of keeping the
	// readable remainder. Sibling directories are unaffected.
	Strict bool
}

func (o Options) sanitized() Options {
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxChain <= 0 {
		o.MaxChain = DefaultMaxChain
	}
	return o
}

// An ImageRange locates an embedded image, usually a thumbnail, inside
// the source.
type ImageRange struct {
	Group  string
	Offset int64
	Length int64
}

// Metadata is the decoded output: every entry in encounter order plus
// the container facts needed to interpret them.
type Metadata struct {
	// Order is the container byte order.
	Order binary.ByteOrder

	// BigTIFF reports the 8-byte offset layout.
	BigTIFF bool

	// Entries holds every decoded entry, each directory's own entries
	// first and its subdirectories after.
	Entries []Entry

	// Previews lists the self-contained image ranges the directories
	// advertise.
	Previews []ImageRange

	// Directories counts the directories parsed.
	Directories int

	// Warnings aggregates every recovered directory- and chain-level
	// defect, or nil for a clean parse. Entry-level defects stay on
	// the entries they belong to.
	Warnings error
}

// Find returns the first entry carrying tag in encounter order, or nil.
func (m *Metadata) Find(tag uint16) *Entry {
	for i := range m.Entries {
		if m.Entries[i].Tag == tag {
			return &m.Entries[i]
		}
	}
	return nil
}

// FindIn returns the first entry carrying tag inside the named group,
// or nil.
func (m *Metadata) FindIn(group string, tag uint16) *Entry {
	for i := range m.Entries {
		if m.Entries[i].Group == group && m.Entries[i].Tag == tag {
			return &m.Entries[i]
		}
	}
	return nil
}

// Parse extracts the metadata reachable from the container header at
// the start of data.
func Parse(data []byte, opts *Options) (*Metadata, error) {
	return decode(newSource(data), opts)
}

// Decode reads r to the end and extracts the metadata. Callers holding
// a random-access source avoid the buffering with DecodeReaderAt.
func Decode(r io.Reader, opts *Options) (*Metadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "ifd: read")
	}
	return Parse(data, opts)
}

// DecodeReaderAt extracts the metadata from the first size bytes of r.
func DecodeReaderAt(r io.ReaderAt, size int64, opts *Options) (*Metadata, error) {
	return decode(newSourceAt(r, size), opts)
}

// DecodeFile memory-maps the file at path and extracts its metadata.
func DecodeFile(path string, opts *Options) (*Metadata, error) {
	s, c, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return decode(s, opts)
}

func decode(s *source, opts *Options) (*Metadata, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	p := &parser{
		r:      s,
		opts:   o.sanitized(),
		meta:   &Metadata{},
		seen:   make(map[int64]bool),
		active: make(map[int64]bool),
	}
	if err := p.runChain(0, func(i int) string { return fmt.Sprintf("%s%d", groupIFD, i) }); err != nil {
		return nil, err
	}
	p.meta.Directories = p.ndirs
	p.meta.Warnings = p.werr.ErrorOrNil()
	return p.meta, nil
}

// parser carries the state of one parse: the source, the sanitized
// options, the output under construction, the recursion bookkeeping
// and the identity facts maker-note dispatch keys on.
type parser struct {
	r    *source
	opts Options
	meta *Metadata

	camMake  string
	camModel string

	seen   map[int64]bool // every directory start parsed so far
	active map[int64]bool // directory starts on the current call stack
	depth  int
	ndirs  int

	werr *multierror.Error
}

func (p *parser) warn(group string, err error) {
	if err == nil {
		return
	}
	p.werr = multierror.Append(p.werr, errors.Wrap(err, group))
}

// budget enforces the whole-parse ceilings. It is consulted between
// directories and before every descent, never inside one, so a hit
// leaves complete directories behind.
func (p *parser) budget() error {
	if p.opts.MaxDirectories > 0 && p.ndirs >= p.opts.MaxDirectories {
		return LimitError{Limit: "directories"}
	}
	if !p.opts.Deadline.IsZero() && time.Now().After(p.opts.Deadline) {
		return LimitError{Limit: "deadline"}
	}
	return nil
}

type chainState int

const (
	chainStart chainState = iota
	chainParsing
	chainFollowing
	chainDone
	chainError
)

// chainNamer names the links of an embedded chain: the first link keeps
// the group itself, later links append their index.
func chainNamer(group string) func(int) string {
	return func(i int) string {
		if i == 0 {
			return group
		}
		return fmt.Sprintf("%s/%s%d", group, groupIFD, i)
	}
}

// runChain parses one container: the header at off, then the linked
// directory chain it points to. Only the header can fail the run;
// every defect past it degrades to a warning and ends the chain
// cleanly. The same walk serves the top-level container and the
// embedded one inside Nikon notes.
func (p *parser) runChain(off int64, groupFor func(int) string) error {
	var (
		state = chainStart
		ctx   offsetContext
		start int64
		links int
		dir   *directory
		ferr  error
	)
	for {
		switch state {
		case chainStart:
			order, wide, first, err := p.parseHeader(off)
			if err != nil {
				ferr = err
				state = chainError
				break
			}
			ctx = offsetContext{base: off, order: order, wide: wide}
			if p.meta.Order == nil {
				p.meta.Order = order
				p.meta.BigTIFF = wide
			}
			start = off + first
			state = chainParsing

		case chainParsing:
			group := groupFor(links)
			if err := p.budget(); err != nil {
				p.warn(group, err)
				state = chainDone
				break
			}
			if links >= p.opts.MaxChain {
				p.warn(group, LimitError{Limit: "chain"})
				state = chainDone
				break
			}
			if p.seen[start] {
				p.warn(group, CycleError{Offset: start})
				state = chainDone
				break
			}
			d, err := p.processDirectory(ctx, start, group, noteSpan{}, offsetFixed)
			if err != nil {
				p.warn(group, err)
				state = chainDone
				break
			}
			dir = d
			links++
			state = chainFollowing

		case chainFollowing:
			if dir.next == 0 {
				state = chainDone
				break
			}
			next := ctx.base + int64(dir.next)
			if p.seen[next] {
				p.warn(groupFor(links), CycleError{Offset: next})
				state = chainDone
				break
			}
			start = next
			state = chainParsing

		case chainDone:
			return nil

		case chainError:
			return ferr

		default:
			return InternalError("unhandled chain state")
		}
	}
}

// parseHeader validates the container header at off and returns the
// byte order, the BigTIFF flag and the first-directory offset relative
// to off. Header failures are the only fatal kind.
func (p *parser) parseHeader(off int64) (binary.ByteOrder, bool, int64, error) {
	hd, err := p.r.bytes(off, 8)
	if err != nil {
		return nil, false, 0, FormatError("truncated header")
	}
	var order binary.ByteOrder
	var wide bool
	switch string(hd[0:4]) {
	case leHeader:
		order = binary.LittleEndian
	case beHeader:
		order = binary.BigEndian
	case leHeaderBig:
		order, wide = binary.LittleEndian, true
	case beHeaderBig:
		order, wide = binary.BigEndian, true
	default:
		return nil, false, 0, FormatError("malformed header")
	}
	if !wide {
		return order, false, int64(order.Uint32(hd[4:8])), nil
	}
	// BigTIFF widens the header: an offset-size word that must be 8, a
	// reserved word that must be zero, then an 8-byte first offset.
	if n := order.Uint16(hd[4:6]); n != 8 {
		return nil, false, 0, UnsupportedError(fmt.Sprintf("BigTIFF offset size %d", n))
	}
	if order.Uint16(hd[6:8]) != 0 {
		return nil, false, 0, FormatError("malformed BigTIFF header")
	}
	first, err := p.r.uint64(order, off+8)
	if err != nil {
		return nil, false, 0, FormatError("truncated header")
	}
	if first > uint64(math.MaxInt64) {
		return nil, false, 0, FormatError("malformed BigTIFF header")
	}
	return order, true, int64(first), nil
}

// processDirectory parses, resolves and emits one directory, then walks
// its subdirectory pointers. The returned directory carries the stored
// next pointer for chain walkers. Only the table parse itself can
// return an error; everything after recovers locally.
func (p *parser) processDirectory(ctx offsetContext, start int64, group string, note noteSpan, behavior offsetBehavior) (*directory, error) {
	d, err := p.parseDirectory(ctx, start)
	if err != nil {
		return nil, err
	}
	p.seen[start] = true
	p.ndirs++
	p.active[start] = true
	defer delete(p.active, start)

	res := p.resolveDirectory(ctx, d)
	if behavior == offsetAuto && len(res.blocks) > 0 {
		fx := p.analyzeOffsets(ctx, d, res.blocks, note)
		switch {
		case fx.suspect:
			d.warns = append(d.warns, SuspectError{Group: group})
		case fx.delta != 0 || fx.entryRel:
			ctx.base += fx.delta
			ctx.entryRel = fx.entryRel
			res = p.resolveDirectory(ctx, d)
		}
	}
	for _, w := range d.warns {
		p.warn(group, w)
	}
	if p.opts.Strict {
		if cause := strictCause(d, res); cause != nil {
			p.warn(group, errors.Wrapf(cause, "strict: dropping %s", group))
			return d, nil
		}
	}
	p.emitDirectory(ctx, d, res, group)
	p.descendChildren(ctx, d, res, group)
	return d, nil
}

// strictCause returns the defect that disqualifies a directory under
// strict decoding: a suspect offset layout or any unreadable value.
func strictCause(d *directory, res resolved) error {
	for _, w := range d.warns {
		if s, ok := w.(SuspectError); ok {
			return s
		}
	}
	return res.unavailable()
}

// emitDirectory appends the directory's entries to the output in
// storage order, captures the Make and Model facts from the root
// directories, and records any self-contained preview range the
// directory advertises.
func (p *parser) emitDirectory(ctx offsetContext, d *directory, res resolved, group string) {
	var prevOff, prevLen int64 = -1, -1
	for i := range d.entries {
		e := &d.entries[i]
		v := res.vals[i]
		p.meta.Entries = append(p.meta.Entries, Entry{
			Tag:      e.tag,
			Group:    group,
			Format:   e.format,
			Count:    e.count,
			Value:    v,
			Offset:   e.pos,
			Warnings: res.warns[i],
		})
		if p.depth == 0 {
			switch e.tag {
			case tMake:
				if p.camMake == "" {
					p.camMake = v.Text
				}
			case tModel:
				if p.camModel == "" {
					p.camModel = v.Text
				}
			}
		}
		switch e.tag {
		case tJPEGInterchangeFormat:
			prevOff = int64(v.First())
		case tJPEGInterchangeFormatLength:
			prevLen = int64(v.First())
		}
	}
	if prevOff > 0 && prevLen > 0 {
		off := ctx.base + prevOff
		if p.r.in(off, prevLen) {
			p.meta.Previews = append(p.meta.Previews, ImageRange{Group: group, Offset: off, Length: prevLen})
		} else {
			p.warn(group, UnavailableError{Tag: tJPEGInterchangeFormat, Offset: off, Length: prevLen})
		}
	}
}

// descendChildren walks the pointer entries once the directory's own
// entries are out: the standard EXIF, GPS and interoperability
// designators, every SubIFDs element, and the maker note.
func (p *parser) descendChildren(ctx offsetContext, d *directory, res resolved, group string) {
	child := offsetContext{base: ctx.base, order: ctx.order, wide: ctx.wide}
	for i := range d.entries {
		e := &d.entries[i]
		v := res.vals[i]
		switch e.tag {
		case tExifIFD:
			p.descendAt(child, v.First(), group+"/"+groupExif)
		case tGPSIFD:
			p.descendAt(child, v.First(), group+"/"+groupGPS)
		case tInteropIFD:
			p.descendAt(child, v.First(), group+"/"+groupInterop)
		case tSubIFDs:
			for j := 0; j < v.Len(); j++ {
				p.descendAt(child, v.Uint(j), fmt.Sprintf("%s/%s%d", group, groupSubIFD, j))
			}
		case tMakerNote:
			b := res.blockFor(i)
			if b == nil || !p.r.in(b.off, b.n) {
				break // inline or unreadable note, nothing to walk
			}
			p.dispatchMakerNote(ctx, noteSpan{start: b.off, size: b.n}, group+"/"+groupMakerNote)
		}
	}
}

// descendAt follows one standard subdirectory pointer declared against
// the container base.
func (p *parser) descendAt(ctx offsetContext, ptr uint64, group string) {
	if ptr == 0 {
		return
	}
	p.descend(ctx, ctx.base+int64(ptr), group, noteSpan{}, offsetFixed)
}
