package lcfrs

import (
	"testing"

	"github.com/talent-works/disco-dop/internal/bitspan"
	"github.com/talent-works/disco-dop/internal/chart"
)

func span(positions ...int) bitspan.Span {
	s := bitspan.EmptyNarrow()
	for _, p := range positions {
		s = s.Union(bitspan.NarrowBit(p))
	}
	return s
}

func TestConcatPlainAdjacent(t *testing.T) {
	rule := chart.Rule{Args: chart.PlainConcatArgs, Lengths: chart.PlainConcatLengths}
	lvec := span(0, 1)
	rvec := span(2, 3)
	if !concat(rule, lvec, rvec) {
		t.Fatal("adjacent contiguous runs should satisfy plain concatenation")
	}
}

func TestConcatPlainRejectsGap(t *testing.T) {
	rule := chart.Rule{Args: chart.PlainConcatArgs, Lengths: chart.PlainConcatLengths}
	lvec := span(0, 1)
	rvec := span(3, 4) // gap at position 2
	if concat(rule, lvec, rvec) {
		t.Fatal("a gap between the children should fail plain concatenation")
	}
}

func TestConcatPlainRejectsOverlap(t *testing.T) {
	rule := chart.Rule{Args: chart.PlainConcatArgs, Lengths: chart.PlainConcatLengths}
	lvec := span(0, 1, 2)
	rvec := span(2, 3) // overlaps at position 2
	if concat(rule, lvec, rvec) {
		t.Fatal("overlapping children should never be concat-compatible")
	}
}

// TestConcatDiscontinuousTwoArgument exercises the general yield-function
// path with a two-argument function ((0,),(1,)): the left child forms the
// first argument, the right child forms the second, with a gap between
// them in the combined span.
func TestConcatDiscontinuousTwoArgument(t *testing.T) {
	const args = 0b10    // atom0 (bit0) = left, atom1 (bit1) = right
	const lengths = 0b11 // both atoms end their own argument
	rule := chart.Rule{Args: args, Lengths: lengths}

	lvec := span(0, 1)
	rvec := span(5)
	if !concat(rule, lvec, rvec) {
		t.Fatal("expected the discontinuous two-argument yield function to accept a gapped combination")
	}

	// fatconcat must agree with concat on every input (spec invariant: wide
	// and narrow paths compute the same predicate).
	if fatconcat(rule, lvec, rvec) != concat(rule, lvec, rvec) {
		t.Fatal("fatconcat disagreed with concat")
	}
}

func TestConcatDiscontinuousRejectsWrongOrder(t *testing.T) {
	const args = 0b10
	const lengths = 0b11
	rule := chart.Rule{Args: args, Lengths: lengths}

	// Right child occupies an earlier position than the left child is
	// allowed to: atom0 must be satisfied by the left span starting at its
	// own first bit, and here the left span starts after the right span,
	// which the monotone order-preserving walk must reject.
	lvec := span(5)
	rvec := span(0, 1)
	if concat(rule, lvec, rvec) {
		t.Fatal("expected an out-of-order combination to be rejected")
	}
}

func TestConcatRejectsIntersectingSpans(t *testing.T) {
	rule := chart.Rule{Args: chart.PlainConcatArgs, Lengths: chart.PlainConcatLengths}
	lvec := span(0, 1, 2)
	rvec := span(1)
	if concat(rule, lvec, rvec) {
		t.Fatal("spans sharing a set bit can never be concat-compatible")
	}
}
