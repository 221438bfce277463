// Package kbest implements the lazy k-best derivation enumerator (Huang &
// Chiang 2005) shared by the LCFRS and CFG parsers: per-vertex D/cand/
// explored memoization over a finished, read-only chart, plus derivation
// string rendering with debinarization-marker splicing.
//
// The enumerator is generic over the vertex type so the same algorithm
// serves both chart.ChartItem (LCFRS, keyed by label+span) and cfg.Cell
// (the dense CFG parser, keyed by label+left+right) without duplicating the
// memoization logic for each.
package kbest

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"
)

// Edge is the minimal shape lazy k-best needs from a hyperedge: the rule's
// own weight, the edge's total inside cost, and up to two children. RuleNo
// == -1 marks a lexical edge: Left is not a vertex to recurse into, it is
// resolved to an input position via the Source's Terminal callback.
type Edge[V comparable] struct {
	Prob     float64
	Inside   float64
	RuleNo   int
	Left     V
	Right    V
	HasRight bool
}

// Source supplies the finished chart to the enumerator.
type Source[V comparable] interface {
	// Edges returns every edge discovered for v, in no particular order.
	Edges(v V) []Edge[V]
	// Label returns the string to render for v.
	Label(v V) string
	// Terminal resolves a lexical edge's Left vertex to its input position.
	Terminal(v V) (pos int, ok bool)
}

type rankedEdge[V comparable] struct {
	edge                Edge[V]
	rankLeft, rankRight int
	cost                float64
}

type explKey[V comparable] struct {
	ruleNo              int
	left, right         V
	rankLeft, rankRight int
}

// candHeap is a min-heap of rankedEdge ordered by cumulative cost.
type candHeap[V comparable] []rankedEdge[V]

func (h candHeap[V]) Len() int            { return len(h) }
func (h candHeap[V]) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h candHeap[V]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candHeap[V]) Push(x any)         { *h = append(*h, x.(rankedEdge[V])) }
func (h *candHeap[V]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Enumerator computes k-best derivations lazily over a Source.
type Enumerator[V comparable] struct {
	src     Source[V]
	kGlobal int

	d        map[V][]rankedEdge[V]
	cand     map[V]*candHeap[V]
	explored map[V]map[explKey[V]]bool
}

// New creates an Enumerator reading from src. kGlobal bounds how many
// candidate edges are considered per vertex when a cand heap is first
// seeded; callers that only ever request small k can leave it equal to the
// largest k they intend to request.
func New[V comparable](src Source[V], kGlobal int) *Enumerator[V] {
	return &Enumerator[V]{
		src:      src,
		kGlobal:  kGlobal,
		d:        map[V][]rankedEdge[V]{},
		cand:     map[V]*candHeap[V]{},
		explored: map[V]map[explKey[V]]bool{},
	}
}

func (e *Enumerator[V]) seed(v V) {
	if _, ok := e.cand[v]; ok {
		return
	}
	edges := append([]Edge[V](nil), e.src.Edges(v)...)
	sort.Slice(edges, func(i, j int) bool { return edges[i].Inside < edges[j].Inside })
	if len(edges) > e.kGlobal {
		edges = edges[:e.kGlobal]
	}
	h := &candHeap[V]{}
	heap.Init(h)
	for _, ed := range edges {
		rr := 0
		if !ed.HasRight {
			rr = -1
		}
		re := rankedEdge[V]{edge: ed, rankLeft: 0, rankRight: rr, cost: ed.Inside}
		heap.Push(h, re)
		e.markExplored(v, re)
	}
	e.cand[v] = h
}

func (e *Enumerator[V]) markExplored(v V, re rankedEdge[V]) {
	m, ok := e.explored[v]
	if !ok {
		m = map[explKey[V]]bool{}
		e.explored[v] = m
	}
	m[keyOf(re)] = true
}

func (e *Enumerator[V]) isExplored(v V, k explKey[V]) bool {
	return e.explored[v][k]
}

// keyOf identifies a ranked successor by the edge it came from (RuleNo) as
// well as its children and ranks: two distinct edges at the same vertex can
// share identical (Left, Right) children (e.g. two rules with the same
// backbone but different probabilities), and without RuleNo in the key
// they'd collide in explored, silently dropping one edge's legitimate
// rank-(rankLeft, rankRight) successor because the other edge's identical-
// looking successor got there first.
func keyOf[V comparable](re rankedEdge[V]) explKey[V] {
	return explKey[V]{
		ruleNo: re.edge.RuleNo,
		left:   re.edge.Left, right: re.edge.Right,
		rankLeft: re.rankLeft, rankRight: re.rankRight,
	}
}

// lazyKthBest ensures D[v] holds at least k+1 entries, returning false if
// fewer than k+1 derivations exist for v.
func (e *Enumerator[V]) lazyKthBest(v V, k int) bool {
	e.seed(v)
	for len(e.d[v]) <= k {
		if len(e.d[v]) >= 1 {
			last := e.d[v][len(e.d[v])-1]
			e.lazyNext(v, last)
		}
		ch := e.cand[v]
		if ch.Len() == 0 {
			return false
		}
		best := heap.Pop(ch).(rankedEdge[V])
		e.d[v] = append(e.d[v], best)
	}
	return true
}

// lazyNext pushes ej's successors (one rank further on each present child)
// into cand[v], skipping anything already explored or whose child rank
// cannot be materialized.
func (e *Enumerator[V]) lazyNext(v V, ej rankedEdge[V]) {
	e.tryPush(v, ej, true)
	if ej.rankRight != -1 {
		e.tryPush(v, ej, false)
	}
}

func (e *Enumerator[V]) tryPush(v V, ej rankedEdge[V], advanceLeft bool) {
	ejp := ej
	var child V
	var rank int
	if advanceLeft {
		ejp.rankLeft++
		child, rank = ejp.edge.Left, ejp.rankLeft
	} else {
		ejp.rankRight++
		child, rank = ejp.edge.Right, ejp.rankRight
	}

	e.lazyKthBest(child, rank)
	if rank >= len(e.d[child]) {
		return
	}
	key := keyOf(ejp)
	if e.isExplored(v, key) {
		return
	}
	cost, ok := e.getProb(ejp)
	if !ok {
		return
	}
	ejp.cost = cost
	heap.Push(e.cand[v], ejp)
	e.markExplored(v, ejp)
}

// getProb sums the child inside costs at ej's requested ranks plus the
// edge's own rule probability. The requested ranks must already be present
// in D; callers arrange this via lazyKthBest before calling getProb.
func (e *Enumerator[V]) getProb(ej rankedEdge[V]) (float64, bool) {
	if ej.rankLeft >= len(e.d[ej.edge.Left]) {
		return 0, false
	}
	cost := ej.edge.Prob + e.d[ej.edge.Left][ej.rankLeft].cost
	if ej.edge.HasRight {
		if ej.rankRight >= len(e.d[ej.edge.Right]) {
			return 0, false
		}
		cost += e.d[ej.edge.Right][ej.rankRight].cost
	}
	return cost, true
}

// maxDepth guards derivation rendering against bad chart cycles.
const maxDepth = 100

// Best returns up to k derivation strings for root, best first, each in
// "(LABEL child1 child2)" form with terminals rendered as their input
// position index. If debinMarker is non-empty, any label containing it has
// its parentheses dropped and its children spliced directly into the
// parent. Derivations that require an unreachable rank are silently
// omitted, so the result may hold fewer than k entries.
func (e *Enumerator[V]) Best(root V, k int, debinMarker string) []string {
	out := make([]string, 0, k)
	for rank := 0; rank < k; rank++ {
		if !e.lazyKthBest(root, rank) {
			break
		}
		s, ok := e.render(root, rank, debinMarker, 0)
		if !ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (e *Enumerator[V]) render(v V, rank int, debinMarker string, depth int) (string, bool) {
	if depth > maxDepth {
		return "", false
	}
	if !e.lazyKthBest(v, rank) {
		return "", false
	}
	re := e.d[v][rank]

	if re.edge.RuleNo == -1 {
		pos, ok := e.src.Terminal(re.edge.Left)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("(%s %d)", e.src.Label(v), pos), true
	}

	left, ok := e.render(re.edge.Left, re.rankLeft, debinMarker, depth+1)
	if !ok {
		return "", false
	}
	children := left
	if re.edge.HasRight {
		right, ok := e.render(re.edge.Right, re.rankRight, debinMarker, depth+1)
		if !ok {
			return "", false
		}
		children = left + " " + right
	}

	label := e.src.Label(v)
	if debinMarker != "" && strings.Contains(label, debinMarker) {
		return children, true
	}
	return "(" + label + " " + children + ")", true
}
