// Package cfg implements the dense-chart CKY specialization for monotone
// CFG grammars (every yield function is ((0,1),) or ((0,),)): a Viterbi
// matrix plus narrow/wide split-index filters replace the LCFRS parser's
// agenda and yield-function compatibility test.
package cfg

import (
	"math"

	"github.com/talent-works/disco-dop/internal/agenda"
	"github.com/talent-works/disco-dop/internal/chart"
	"github.com/talent-works/disco-dop/kbest"
)

// Cell identifies a (label, left, right) CFG chart cell. A lexical edge's
// Left child carries Label == chart.Epsilon with Left holding the input
// position (and Right == Left+1), mirroring the LCFRS convention for
// terminal backpointers.
type Cell struct {
	Label       chart.Label
	Left, Right int
}

// NoCell is returned as the goal cell when no derivation exists.
var NoCell = Cell{Label: chart.Epsilon, Left: -1, Right: -1}

// IsNone reports whether c is the NoCell sentinel.
func (c Cell) IsNone() bool { return c == NoCell }

// CFGEdge is the dense-chart counterpart of chart.Edge. RuleNo == -1 marks
// a lexical edge (no further recursion; Left resolves to an input position).
type CFGEdge struct {
	Prob     float64
	Inside   float64
	RuleNo   int
	Left     Cell
	Right    Cell
	HasRight bool
}

// Chart maps every cell to the edges discovered for it.
type Chart map[Cell][]CFGEdge

// Options configures a single call to Parse.
type Options struct {
	// Tags, if non-nil, must have one entry per input token.
	Tags []string
	// Start is the goal nonterminal.
	Start chart.Label
}

type parser struct {
	sentence []string
	grammar  chart.Grammar
	opts     Options
	n        int
	labels   int

	viterbi [][][]float64
	chart   Chart

	minsplitright, maxsplitright [][]int
	minsplitleft, maxsplitleft   [][]int
}

// Parse runs the dense CFG CKY parser over sentence. It returns the
// resulting chart and the goal cell if the sentence was derived, or NoCell
// otherwise.
func Parse(sentence []string, grammar chart.Grammar, opts Options) (Chart, Cell) {
	n := len(sentence)
	p := &parser{
		sentence: sentence,
		grammar:  grammar,
		opts:     opts,
		n:        n,
		labels:   grammar.NumNonterminals(),
		chart:    Chart{},
	}
	p.allocate()

	if !p.scan() {
		return p.chart, NoCell
	}

	for span := 2; span <= n; span++ {
		for left := 0; left <= n-span; left++ {
			right := left + span
			p.applyBinaries(left, right)
			p.unaryClosure(left, right)
		}
	}

	goal := Cell{Label: opts.Start, Left: 0, Right: n}
	if _, ok := p.chart[goal]; ok {
		return p.chart, goal
	}
	return p.chart, NoCell
}

func (p *parser) allocate() {
	n := p.n
	p.viterbi = make([][][]float64, p.labels)
	p.minsplitright = make([][]int, p.labels)
	p.maxsplitright = make([][]int, p.labels)
	p.minsplitleft = make([][]int, p.labels)
	p.maxsplitleft = make([][]int, p.labels)

	for l := 0; l < p.labels; l++ {
		rows := make([][]float64, n+1)
		for i := range rows {
			row := make([]float64, n+1)
			for j := range row {
				row[j] = math.Inf(1)
			}
			rows[i] = row
		}
		p.viterbi[l] = rows

		minR := make([]int, n+1)
		maxR := make([]int, n+1)
		minL := make([]int, n+1)
		maxL := make([]int, n+1)
		for i := 0; i <= n; i++ {
			minR[i], minL[i] = n+1, n+1
			maxR[i], maxL[i] = -1, -1
		}
		p.minsplitright[l], p.maxsplitright[l] = minR, maxR
		p.minsplitleft[l], p.maxsplitleft[l] = minL, maxL
	}
}

// admit records edge for cell, updating the Viterbi matrix and (on a
// +Inf-to-finite transition) the split-index filters.
func (p *parser) admit(cell Cell, edge CFGEdge) {
	p.chart[cell] = append(p.chart[cell], edge)
	cur := p.viterbi[cell.Label][cell.Left][cell.Right]
	if edge.Inside < cur {
		wasInf := math.IsInf(cur, 1)
		p.viterbi[cell.Label][cell.Left][cell.Right] = edge.Inside
		if wasInf {
			p.updateFilters(int(cell.Label), cell.Left, cell.Right)
		}
	}
}

func (p *parser) updateFilters(label, left, right int) {
	if right < p.minsplitright[label][left] {
		p.minsplitright[label][left] = right
	}
	if right > p.maxsplitright[label][left] {
		p.maxsplitright[label][left] = right
	}
	if left < p.minsplitleft[label][right] {
		p.minsplitleft[label][right] = left
	}
	if left > p.maxsplitleft[label][right] {
		p.maxsplitleft[label][right] = left
	}
}

// scan performs the lexical pass of spec.md section 4.3: the same DOP-tag
// matching rule the LCFRS parser uses, then the unary closure for each
// span-1 cell.
func (p *parser) scan() bool {
	for i, tok := range p.sentence {
		matched := false
		for _, lr := range p.grammar.Lexical(tok) {
			if p.opts.Tags != nil {
				labelStr := p.grammar.ToLabel(lr.LHS)
				if !chart.TagMatches(labelStr, p.opts.Tags[i]) {
					continue
				}
			}
			matched = true
			p.admit(Cell{lr.LHS, i, i + 1}, CFGEdge{
				Prob: lr.Prob, Inside: lr.Prob, RuleNo: -1,
				Left: Cell{chart.Epsilon, i, i + 1},
			})
		}
		if !matched && p.opts.Tags != nil {
			if lhs, ok := p.grammar.ToID(p.opts.Tags[i]); ok {
				matched = true
				p.admit(Cell{lhs, i, i + 1}, CFGEdge{
					RuleNo: -1, Left: Cell{chart.Epsilon, i, i + 1},
				})
			}
		}
		if !matched {
			return false
		}
		p.unaryClosure(i, i+1)
	}
	return true
}

// applyBinaries fills chart[left][right] from every binary rule whose
// children's admissible split ranges (tracked by the filter matrices)
// overlap, per spec.md section 4.3's narrow/wide formula.
func (p *parser) applyBinaries(left, right int) {
	for a := 0; a < p.labels; a++ {
		rules := p.grammar.LBinary(chart.Label(a))
		if len(rules) == 0 {
			continue
		}
		narrowR := p.minsplitright[a][left]
		if narrowR >= right {
			continue
		}
		wideR := p.maxsplitright[a][left]

		for _, rule := range rules {
			b := int(rule.RHS2)
			narrowL := p.minsplitleft[b][right]
			if narrowL < narrowR {
				continue
			}
			wideL := p.maxsplitleft[b][right]

			minMid := max(narrowR, wideL)
			maxMid := min(wideR, narrowL) + 1
			for mid := minMid; mid < maxMid; mid++ {
				if mid <= left || mid >= right {
					continue
				}
				vA := p.viterbi[a][left][mid]
				vB := p.viterbi[b][mid][right]
				if math.IsInf(vA, 1) || math.IsInf(vB, 1) {
					continue
				}
				p.admit(Cell{rule.LHS, left, right}, CFGEdge{
					Prob: rule.Prob, Inside: rule.Prob + vA + vB, RuleNo: rule.No,
					Left: Cell{chart.Label(a), left, mid}, Right: Cell{chart.Label(b), mid, right},
					HasRight: true,
				})
			}
		}
	}
}

// unaryClosure applies every unary rule to the finite labels of cell
// (left,right) to a fixpoint, using a small decrease-key agenda seeded
// with each label currently finite in the cell. Terminates because
// admissions strictly decrease Viterbi costs on a finite semiring.
func (p *parser) unaryClosure(left, right int) {
	ag := agenda.New[chart.Label, struct{}]()
	for l := 0; l < p.labels; l++ {
		if v := p.viterbi[l][left][right]; !math.IsInf(v, 1) {
			ag.Push(chart.Label(l), v, struct{}{})
		}
	}

	for {
		entry, ok := ag.Pop()
		if !ok {
			break
		}
		lbl := entry.Key
		inside := p.viterbi[lbl][left][right]
		for _, rule := range p.grammar.Unary(lbl) {
			prob := rule.Prob + inside
			before := p.viterbi[rule.LHS][left][right]
			p.admit(Cell{rule.LHS, left, right}, CFGEdge{
				Prob: rule.Prob, Inside: prob, RuleNo: rule.No,
				Left: Cell{lbl, left, right},
			})
			if prob < before {
				if ag.Contains(rule.LHS) {
					ag.SetIfBetter(rule.LHS, prob, struct{}{})
				} else {
					ag.Push(rule.LHS, prob, struct{}{})
				}
			}
		}
	}
}

// Source adapts a finished Chart and its Grammar into a kbest.Source[Cell],
// so the lazy k-best enumerator can walk CFG derivations the same way it
// walks LCFRS ones.
type Source struct {
	Chart   Chart
	Grammar chart.Grammar
}

// Edges implements kbest.Source.
func (s Source) Edges(v Cell) []kbest.Edge[Cell] {
	cellEdges := s.Chart[v]
	out := make([]kbest.Edge[Cell], len(cellEdges))
	for i, e := range cellEdges {
		out[i] = kbest.Edge[Cell]{
			Prob: e.Prob, Inside: e.Inside, RuleNo: e.RuleNo,
			Left: e.Left, Right: e.Right, HasRight: e.HasRight,
		}
	}
	return out
}

// Label implements kbest.Source.
func (s Source) Label(v Cell) string { return s.Grammar.ToLabel(v.Label) }

// Terminal implements kbest.Source: a lexical edge's Left cell carries the
// input position in its Left field.
func (s Source) Terminal(v Cell) (int, bool) {
	if v.Label != chart.Epsilon {
		return 0, false
	}
	return v.Left, true
}
