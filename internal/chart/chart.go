// Package chart holds the data model shared by the LCFRS parser, the CFG
// parser and the k-best enumerator: labels, chart items, edges, rules and
// the Grammar interface the parsers consume. Items and edges are immutable
// value objects; the parsers own the maps that store them.
package chart

import (
	"strings"

	"github.com/talent-works/disco-dop/internal/bitspan"
)

// Label identifies a grammar nonterminal, or the sentinel Epsilon.
type Label int32

// Epsilon is the reserved sentinel label (toid["Epsilon"]).
const Epsilon Label = 0

// ChartItem identifies a (nonterminal, span) pair. Comparable, so it can be
// used directly as a map key.
type ChartItem struct {
	Label Label
	Span  bitspan.Span
}

// NONE is the distinguished sentinel used as an absent backpointer.
var NONE = ChartItem{Label: Epsilon, Span: bitspan.EmptyNarrow()}

// IsNone reports whether c is the NONE sentinel.
func (c ChartItem) IsNone() bool {
	return c.Label == Epsilon && c.Span.IsEmpty()
}

// Edge describes a single hyperedge: a derivation of some ChartItem from at
// most two children via one grammar rule.
//
// Prob is the rule's log-probability, stored as -log p (lower is better).
// Inside is the derivation's total inside cost (sum of Prob with the
// children's insides). Score is Inside plus an optional outside estimate;
// agenda ordering uses Score, chart tie-breaking uses Inside.
//
// Left is always present. Right.Label == Epsilon marks a unary or lexical
// edge (no right child); for lexical edges Left's span carries the input
// position.
type Edge struct {
	Score  float64
	Inside float64
	Prob   float64
	RuleNo int
	Left   ChartItem
	Right  ChartItem
}

// IsUnary reports whether e has no right child.
func (e Edge) IsUnary() bool {
	return e.Right.Label == Epsilon
}

// Rule is a grammar production (lhs, rhs1, rhs2, yield function, weight).
//
// Args and Lengths are the compact binary encoding of the yield function:
// if the yield function is a tuple of tuples of 0/1 atoms picking from the
// left/right child, atom i occupies bit i of Args (the low-order bit is the
// first atom), and Lengths has a 1 bit (counted the same way, from the
// low-order end) in the position of the last atom of each argument.
//
// Binary rules have RHS2 != Epsilon; unary rules have RHS2 == Epsilon;
// lexical rules are represented separately as LexicalRule.
type Rule struct {
	LHS, RHS1, RHS2 Label
	Args, Lengths   uint64
	Prob            float64
	No              int
}

// IsBinary reports whether r is a binary rule.
func (r Rule) IsBinary() bool { return r.RHS2 != Epsilon }

// PlainConcatArgs and PlainConcatLengths encode the yield function
// ((0,1),): the ordinary CFG case of a single argument built by
// concatenating all of the left child's span with all of the right
// child's span, with no gap. Grammar construction assigns this to every
// binary rule compiled from a discontinuity-free grammar; the LCFRS
// parser special-cases it for speed.
const PlainConcatArgs uint64 = 0b10
const PlainConcatLengths uint64 = 0b10

// LexicalRule assigns a part-of-speech label and probability to a word.
type LexicalRule struct {
	LHS  Label
	Prob float64
}

// TagMatches reports whether a lexical or bare-tag candidate's label string
// satisfies a supplied tag constraint: either an exact match, or a DOP
// address (labelStr starting with "tag@"). Shared by the LCFRS and CFG
// scan steps.
func TagMatches(labelStr, tag string) bool {
	return labelStr == tag || strings.HasPrefix(labelStr, tag+"@")
}

// Grammar is the interface the LCFRS and CFG parsers consume. Grammar
// construction, unary closure pre-computation and id/label bookkeeping are
// the external collaborator's responsibility (see the grammar package);
// the parsers only ever read through this interface.
type Grammar interface {
	// ToID maps a label string to its numeric id, returning false if unknown.
	ToID(name string) (Label, bool)
	// ToLabel maps a numeric label id back to its string form.
	ToLabel(l Label) string
	// NumRules is the total number of rules in the grammar.
	NumRules() int
	// NumNonterminals is the number of distinct nonterminal labels.
	NumNonterminals() int
	// Lexical returns the lexical rules for word, or nil if word is unknown.
	Lexical(word string) []LexicalRule
	// Unary returns the unary rules with RHS1 == label.
	Unary(label Label) []Rule
	// LBinary returns the binary rules with RHS1 == label (left-sibling
	// expansion).
	LBinary(label Label) []Rule
	// RBinary returns the binary rules with RHS2 == label (right-sibling
	// expansion).
	RBinary(label Label) []Rule
	// Fanout returns the number of contiguous components a label's span may
	// be split into (1 for continuous/CFG labels).
	Fanout(label Label) int
}
