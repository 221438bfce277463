package lcfrs

import (
	"github.com/talent-works/disco-dop/internal/bitspan"
	"github.com/talent-works/disco-dop/internal/chart"
)

// atomCount returns the number of yield-function atoms encoded in a rule:
// the highest set bit of Lengths always marks the last atom of the last
// argument, so bitlength(Lengths) == the atom count.
func atomCount(r chart.Rule) int {
	return bitLength64(r.Lengths)
}

func bitLength64(v uint64) int {
	n := 0
	for v != 0 {
		v >>= 1
		n++
	}
	return n
}

func testBit64(v uint64, i int) bool {
	return v&(uint64(1)<<uint(i)) != 0
}

// plainConcatArgs/plainConcatLengths is the yield function ((0,1),): a
// single argument built by taking all of the left child's span followed
// immediately by all of the right child's span, with no gap. It is the
// common case for ordinary CFG rules lifted into LCFRS form, so concat
// special-cases it.
const plainConcatArgs = chart.PlainConcatArgs
const plainConcatLengths = chart.PlainConcatLengths

// concat tests whether rule's yield function, applied to lvec (left
// child's span) and rvec (right child's span), is defined -- i.e. the two
// children's spans can be interleaved per the yield function to produce a
// single well-formed span with no overlap and the required gaps between
// arguments. It does not compute the resulting span; the caller derives
// that as lvec.Union(rvec), which concat's success guarantees is correct
// (invariant 3/4 in spec.md's testable properties).
func concat(rule chart.Rule, lvec, rvec bitspan.Span) bool {
	if !lvec.IntersectEmpty(rvec) {
		return false
	}

	if rule.Args == plainConcatArgs && rule.Lengths == plainConcatLengths {
		return plainConcatCompatible(lvec, rvec)
	}

	n := atomCount(rule)
	if n == 0 {
		return lvec.IsEmpty() && rvec.IsEmpty()
	}

	l, r := lvec, rvec
	pos := nextSetEither(l, r, 0)
	for i := 0; i < n; i++ {
		var selected *bitspan.Span
		if testBit64(rule.Args, i) {
			selected = &r
		} else {
			selected = &l
		}
		if !selected.TestBit(pos) {
			return false
		}
		runEnd := selected.NextUnset(pos)

		l = l.ClearRange(pos, runEnd)
		r = r.ClearRange(pos, runEnd)

		if testBit64(rule.Lengths, i) {
			// Argument boundary: the position right after the run must be
			// a genuine gap in both vectors.
			if l.TestBit(runEnd) || r.TestBit(runEnd) {
				return false
			}
			if i == n-1 {
				pos = runEnd
				continue
			}
			next := nextSetEither(l, r, runEnd)
			if next < 0 {
				return false
			}
			pos = next
		} else {
			pos = runEnd
		}
	}

	return l.IsEmpty() && r.IsEmpty()
}

// fatconcat is the wide-span counterpart to concat, specified separately
// because the reference algorithm walks (lpos, rpos) cursors instead of
// bitmask arithmetic. bitspan.Span already abstracts over width behind a
// single dispatch per primitive operation, so the position-oriented walk
// above is already width-agnostic; fatconcat is kept as a named entry
// point purely to make that equivalence (spec.md invariant 5) explicit and
// testable, and always delegates to the same implementation.
func fatconcat(rule chart.Rule, lvec, rvec bitspan.Span) bool {
	return concat(rule, lvec, rvec)
}

func nextSetEither(l, r bitspan.Span, from int) int {
	nl := l.NextSet(from)
	nr := r.NextSet(from)
	switch {
	case nl < 0:
		return nr
	case nr < 0:
		return nl
	case nl < nr:
		return nl
	default:
		return nr
	}
}

// plainConcatCompatible is the fast path for the two-atom "plain
// concatenation" yield function: lvec must be a single contiguous run,
// rvec must be a single contiguous run, and rvec must begin exactly where
// lvec ends.
func plainConcatCompatible(lvec, rvec bitspan.Span) bool {
	if lvec.IsEmpty() || rvec.IsEmpty() {
		return false
	}
	lLo := lvec.NextSet(0)
	lHi := lvec.NextUnset(lLo)
	if lHi-lLo != lvec.PopCount() {
		return false
	}
	rLo := rvec.NextSet(0)
	rHi := rvec.NextUnset(rLo)
	if rHi-rLo != rvec.PopCount() {
		return false
	}
	return rLo == lHi
}
