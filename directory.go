package ifd

import (
	"encoding/binary"
)

// offsetContext carries the coordinate system a directory is decoded
// under: the base its value pointers are relative to, the byte order in
// effect, the pointer width, and whether pointers are entry-relative.
// A child context never aliases its parent's mutable state.
type offsetContext struct {
	base     int64
	order    binary.ByteOrder
	wide     bool   // 8-byte counts, fields and pointers
	entryRel bool   // value pointers count from their own entry record
	hint     string // manufacturer name, "" for standard directories
}

// entrySize returns the fixed record length in this context.
func (c offsetContext) entrySize() int64 {
	if c.wide {
		return ifdLen8
	}
	return ifdLen
}

// ptrSize returns the width of the value-or-pointer field.
func (c offsetContext) ptrSize() int64 {
	if c.wide {
		return 8
	}
	return 4
}

// countSize returns the width of the leading entry count.
func (c offsetContext) countSize() int64 {
	if c.wide {
		return 8
	}
	return 2
}

// A directory is one parsed IFD. It lives only for the duration of its
// resolution step; decoded entries are what survives.
type directory struct {
	start   int64 // absolute position of the entry count
	tabEnd  int64 // absolute end of the table, next pointer included
	entries []dirEntry
	next    uint64 // next-directory pointer as stored; 0 = end of chain
	warns   []error
}

// A dirEntry is the raw fixed-size record of one entry. field holds the
// value-or-pointer bytes exactly as stored.
type dirEntry struct {
	tag    uint16
	format Format
	count  uint64
	field  []byte
	pos    int64 // absolute position of the record
}

// parseDirectory reads the entry table at start. It fails only when the
// stated entry count cannot fit in the remaining source or exceeds the
// configured maximum; unknown formats are left for the resolver and a
// broken next pointer just ends the chain with a warning.
func (p *parser) parseDirectory(ctx offsetContext, start int64) (*directory, error) {
	cs := ctx.countSize()
	es := ctx.entrySize()

	var count uint64
	if ctx.wide {
		c, err := p.r.uint64(ctx.order, start)
		if err != nil {
			return nil, err
		}
		count = c
	} else {
		c, err := p.r.uint16(ctx.order, start)
		if err != nil {
			return nil, err
		}
		count = uint64(c)
	}

	// Both caps are enforced before anything is allocated; a hostile
	// count must not cost memory proportional to its claim.
	remaining := p.r.len() - (start + cs)
	if remaining < 0 {
		remaining = 0
	}
	if count > uint64(p.opts.MaxEntries) || count > uint64(remaining/es) {
		return nil, InvalidDirectoryError{Offset: start, Count: count}
	}

	// The whole table is read in one chunk.
	tab, err := p.r.bytes(start+cs, int64(count)*es)
	if err != nil {
		return nil, err
	}

	d := &directory{
		start:   start,
		entries: make([]dirEntry, 0, count),
	}
	for i := int64(0); i < int64(count); i++ {
		rec := tab[i*es : (i+1)*es]
		e := dirEntry{
			tag:    ctx.order.Uint16(rec[0:2]),
			format: Format(ctx.order.Uint16(rec[2:4])),
			pos:    start + cs + i*es,
		}
		if ctx.wide {
			e.count = ctx.order.Uint64(rec[4:12])
			e.field = rec[12:20]
		} else {
			e.count = uint64(ctx.order.Uint32(rec[4:8]))
			e.field = rec[8:12]
		}
		d.entries = append(d.entries, e)
	}

	nextPos := start + cs + int64(count)*es
	d.tabEnd = nextPos + ctx.ptrSize()
	if ctx.wide {
		n, err := p.r.uint64(ctx.order, nextPos)
		if err != nil {
			d.warns = append(d.warns, err)
			d.tabEnd = nextPos
		} else {
			d.next = n
		}
	} else {
		n, err := p.r.uint32(ctx.order, nextPos)
		if err != nil {
			d.warns = append(d.warns, err)
			d.tabEnd = nextPos
		} else {
			d.next = uint64(n)
		}
	}

	return d, nil
}
