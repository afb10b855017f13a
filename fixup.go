package ifd

// Camera firmware frequently writes maker-note value pointers against
// the wrong origin: the file start, the note block start plus some
// label skip, or each entry's own record position. The analyzer takes
// the value blocks resolved under the naive base and looks for the
// correction that makes them a plausible layout again: inside the
// source, clear of the entry table, and packed without overlaps.

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// fixup describes how a subdirectory's value layout was reconciled.
// The zero value means the naive base was already consistent.
type fixup struct {
	delta    int64 // correction added to the base
	entryRel bool  // switch to entry-relative addressing
	suspect  bool  // nothing reconciled; base left uncorrected
}

const (
	// gapSlack is the padding tolerated between consecutive value
	// blocks before the distance counts against a layout. Writers pad
	// values to word boundaries.
	gapSlack = 8

	// relSpread is the largest standard deviation of inter-block gaps
	// accepted as a regular entry-relative layout.
	relSpread = 4.0
)

// disqualified marks a candidate whose corrected blocks leave the
// source or collide with the entry table.
const disqualified = int64(math.MaxInt64)

func tolerance(blocks int) int64 {
	return int64(16 + 4*blocks)
}

// analyzeOffsets decides whether d's out-of-line values were declared
// against a wrong anchor and computes the correction. It never fails:
// an irreconcilable layout comes back marked suspect and the caller
// keeps the uncorrected resolution.
//
// Ties keep the earliest candidate. The list is ordered by the
// strength of the convention behind each landmark, and the zero
// candidate leads it, so re-running on an already corrected directory
// is a no-op.
func (p *parser) analyzeOffsets(ctx offsetContext, d *directory, blocks []block, note noteSpan) fixup {
	if len(blocks) == 0 {
		return fixup{}
	}

	bs := make([]block, len(blocks))
	copy(bs, blocks)
	sort.Slice(bs, func(i, j int) bool { return bs[i].off < bs[j].off })

	// Candidate corrections come from the structural landmarks, in
	// decreasing order of how often real firmware anchors against
	// them: the anchor already chosen (zero), the container origin,
	// the note block start, and the end of the entry table as the
	// first plausible value position.
	first := bs[0].off
	cands := []int64{
		0,
		-ctx.base,
		note.start - ctx.base,
		d.tabEnd - first,
		note.start - first,
	}

	var (
		bestDelta int64
		bestScore = disqualified
	)
	for _, delta := range seenOnce(cands) {
		if score := p.layoutScore(bs, delta, d.tabEnd); score < bestScore {
			bestScore, bestDelta = score, delta
		}
	}

	tol := tolerance(len(bs))
	if bestScore <= tol {
		return fixup{delta: bestDelta}
	}

	// No global shift reconciles the blocks. Rebase each one against
	// its own entry record; a layout that only makes sense that way is
	// the entry-relative firmware quirk.
	if score, ok := p.entryRelativeScore(ctx, d, bs); ok && score <= tol {
		return fixup{entryRel: true}
	}

	return fixup{suspect: true}
}

// layoutScore rates the blocks shifted by delta. Lower is better; zero
// is a perfectly packed layout. floor is the absolute end of the entry
// table: corrected values must not precede it, and nothing may leave
// the source.
func (p *parser) layoutScore(bs []block, delta, floor int64) int64 {
	size := p.r.len()
	var score, end int64
	for i, b := range bs {
		off := b.off + delta
		if off < floor || b.n > size || off > size-b.n {
			return disqualified
		}
		if i > 0 {
			if g := off - end; g < 0 {
				score += -g
			} else if g > gapSlack {
				score += g - gapSlack
			}
		}
		if e := off + b.n; e > end {
			end = e
		}
	}
	return score
}

// entryRelativeScore rates the layout under per-entry rebasing, where
// each pointer counts from its own record position instead of the
// directory base. On top of the usual score, the rebased blocks must be
// regularly spaced; irregular spacing means the apparent fit is
// coincidence, not a firmware convention.
func (p *parser) entryRelativeScore(ctx offsetContext, d *directory, bs []block) (int64, bool) {
	rb := make([]block, len(bs))
	for i, b := range bs {
		rb[i] = block{
			off:   b.off - ctx.base + d.entries[b.entry].pos,
			n:     b.n,
			entry: b.entry,
		}
	}
	sort.Slice(rb, func(i, j int) bool { return rb[i].off < rb[j].off })

	score := p.layoutScore(rb, 0, d.tabEnd)
	if score == disqualified {
		return score, false
	}
	if len(rb) > 1 {
		gaps := make([]float64, len(rb)-1)
		for i := 0; i < len(rb)-1; i++ {
			gaps[i] = float64(rb[i+1].off - (rb[i].off + rb[i].n))
		}
		if m := stat.Mean(gaps, nil); m < 0 || m > gapSlack {
			return score, false
		}
		if stat.StdDev(gaps, nil) > relSpread {
			return score, false
		}
	}
	return score, true
}

// seenOnce drops duplicate candidates, keeping first occurrences in
// order so that tie-breaking stays deterministic.
func seenOnce(cands []int64) []int64 {
	out := cands[:0]
	for _, c := range cands {
		dup := false
		for _, o := range out {
			if o == c {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}
