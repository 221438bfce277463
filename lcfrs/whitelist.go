package lcfrs

import (
	"github.com/talent-works/disco-dop/internal/bitspan"
	"github.com/talent-works/disco-dop/internal/chart"
)

// componentSpan is the narrow-span encoding of a single contiguous run
// [lo,hi), used as the key into a split-whitelist's per-component sets.
// Runs used for whitelist lookups never exceed 64 positions in practice
// (components are themselves contiguous word spans of the sentence), so a
// plain uint64 mask is sufficient here even when the enclosing ChartItem
// uses a wide Span.
type componentSpan = uint64

// LabelWhitelist is the per-label entry of a Whitelist: the sum type
// described in spec.md's design notes (None / Plain / Split /
// SplitShared), encoded as a tagged struct rather than an interface so the
// zero value (kind==wlNone) means "no restriction for this label".
type LabelWhitelist struct {
	kind kind
	// plain holds exact (label implied, span) membership for non-split mode.
	plain map[bitspan.Span]struct{}
	// splitPerOrigin holds one membership set per component index, used
	// when markorigin is set: splitPerOrigin[i][componentSpan].
	splitPerOrigin []map[componentSpan]struct{}
	// splitShared holds a single membership set shared across all
	// component indices, used when markorigin is false.
	splitShared map[componentSpan]struct{}
}

type kind int

const (
	wlNone kind = iota
	wlPlain
	wlSplit
	wlSplitShared
)

// NewPlainWhitelist builds a plain (non-split) whitelist entry restricting
// a label to exactly the given set of spans.
func NewPlainWhitelist(spans []bitspan.Span) *LabelWhitelist {
	m := make(map[bitspan.Span]struct{}, len(spans))
	for _, s := range spans {
		m[s] = struct{}{}
	}
	return &LabelWhitelist{kind: wlPlain, plain: m}
}

// NewSplitWhitelist builds a split-PCFG whitelist entry with one membership
// set per component (markorigin mode).
func NewSplitWhitelist(perOrigin []map[componentSpan]struct{}) *LabelWhitelist {
	return &LabelWhitelist{kind: wlSplit, splitPerOrigin: perOrigin}
}

// NewSplitSharedWhitelist builds a split-PCFG whitelist entry with a single
// membership set shared across all components.
func NewSplitSharedWhitelist(shared map[componentSpan]struct{}) *LabelWhitelist {
	return &LabelWhitelist{kind: wlSplitShared, splitShared: shared}
}

// Whitelist restricts which (label, span) chart items the LCFRS parser is
// allowed to admit. A nil Whitelist, or a nil/zero-value entry for a given
// label, means "no restriction for this label" -- a full entry with zero
// keys means "block everything under this label".
type Whitelist map[chart.Label]*LabelWhitelist

// pass reports whether item passes w's restriction for its label. fanout
// is the label's fanout (from Grammar.Fanout); splitPrune selects between
// plain span-equality matching and the split-PCFG component reprojection
// described in spec.md section 4.2.
func (w Whitelist) pass(item chart.ChartItem, fanout int, splitPrune, markOrigin bool) bool {
	if w == nil {
		return true
	}
	entry, ok := w[item.Label]
	if !ok || entry == nil || entry.kind == wlNone {
		return true
	}

	if !splitPrune || fanout <= 1 {
		_, ok := entry.plain[item.Span]
		return ok
	}

	for idx, lo, hi := 0, -1, -1; ; {
		lo = item.Span.NextSet(hi + 1)
		if lo < 0 {
			return true
		}
		hi = item.Span.NextUnset(lo) - 1
		comp := (uint64(1)<<uint(hi+1) - 1) &^ (uint64(1)<<uint(lo) - 1)
		if markOrigin {
			if idx >= len(entry.splitPerOrigin) {
				return false
			}
			if _, ok := entry.splitPerOrigin[idx][comp]; !ok {
				return false
			}
		} else {
			if _, ok := entry.splitShared[comp]; !ok {
				return false
			}
		}
		idx++
	}
}
