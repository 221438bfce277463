// Package lcfrs implements the agenda-driven CKY parser for monotone
// string-rewriting LCFRS grammars over bitvector span encodings: lexical
// scan, unary/binary expansion, yield-function compatibility testing
// (concat/fatconcat), optional outside-estimate FOM pruning, optional
// whitelist pruning (including split-PCFG reprojection), and an optional
// first-come-first-served beam.
package lcfrs

import (
	"fmt"
	"log"

	"github.com/talent-works/disco-dop/internal/agenda"
	"github.com/talent-works/disco-dop/internal/bitspan"
	"github.com/talent-works/disco-dop/internal/chart"
)

// Chart maps a chart item to every edge discovered for it; the best
// (minimum-inside) edge is tracked separately during parsing and is always
// a member of this slice once the parse returns.
type Chart map[chart.ChartItem][]chart.Edge

// Options configures a single call to Parse.
type Options struct {
	// Tags, if non-nil, must have one entry per input token and constrains
	// the admissible POS label at that position.
	Tags []string
	// Start is the goal nonterminal.
	Start chart.Label
	// Exhaustive runs the agenda to completion instead of stopping at the
	// first derivation of the goal item.
	Exhaustive bool
	// Whitelist, if non-nil, restricts which items may be admitted.
	Whitelist Whitelist
	// SplitPrune enables split-PCFG component reprojection when checking a
	// discontinuous label against Whitelist.
	SplitPrune bool
	// MarkOrigin selects per-component whitelist maps over a single shared
	// map, when SplitPrune is enabled.
	MarkOrigin bool
	// Estimates, if non-nil, is the outside-estimate FOM table.
	Estimates *Estimates
	// BeamWidth, if nonzero, caps the number of candidates admitted per
	// derived span on a first-come-first-served basis. Zero disables it.
	BeamWidth int
}

// Stats carries the diagnostic counters spec.md requires in the returned
// message: agenda high-water mark, final agenda size, admitted items,
// distinct labels touched, total edges recorded, and items rejected by
// whitelist pruning.
type Stats struct {
	MaxAgenda     int
	FinalAgenda   int
	Admitted      int
	LabelsTouched int
	TotalEdges    int
	Blocked       int
	Reentries     int
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"max agenda %d, final agenda %d, admitted %d, labels %d, edges %d, blocked %d, reentries %d",
		s.MaxAgenda, s.FinalAgenda, s.Admitted, s.LabelsTouched, s.TotalEdges, s.Blocked, s.Reentries)
}

type parser struct {
	sentence []string
	grammar  chart.Grammar
	opts     Options
	wide     bool

	ag          *agenda.Agenda[chart.ChartItem, chart.Edge]
	chartMap    Chart
	viterbiEdge map[chart.ChartItem]chart.Edge
	viterbi     map[chart.Label][]chart.ChartItem
	admittedSet map[chart.ChartItem]bool
	beamHist    map[bitspan.Span]int
	touched     map[chart.Label]bool
	stats       Stats
}

// Parse runs the agenda-driven LCFRS CKY parser over sentence. It returns
// the resulting chart, the goal item if the sentence was derived (else the
// NONE sentinel) and a diagnostic message.
func Parse(sentence []string, grammar chart.Grammar, opts Options) (Chart, chart.ChartItem, string) {
	n := len(sentence)
	if n > bitspan.MaxLen {
		panic(fmt.Sprintf("lcfrs: sentence length %d exceeds maximum %d", n, bitspan.MaxLen))
	}

	p := &parser{
		sentence:    sentence,
		grammar:     grammar,
		opts:        opts,
		wide:        n >= 64,
		ag:          agenda.New[chart.ChartItem, chart.Edge](),
		chartMap:    Chart{},
		viterbiEdge: map[chart.ChartItem]chart.Edge{},
		viterbi:     map[chart.Label][]chart.ChartItem{},
		admittedSet: map[chart.ChartItem]bool{},
		touched:     map[chart.Label]bool{},
	}
	if opts.BeamWidth > 0 {
		p.beamHist = map[bitspan.Span]int{}
	}

	if msg, ok := p.scan(); !ok {
		return p.chartMap, chart.NONE, msg
	}

	goal := chart.ChartItem{Label: opts.Start, Span: p.fullSpan()}

	for {
		if p.ag.Len() > p.stats.MaxAgenda {
			p.stats.MaxAgenda = p.ag.Len()
		}
		entry, ok := p.ag.Pop()
		if !ok {
			break
		}
		item, edge := entry.Key, entry.Payload

		p.chartMap[item] = append(p.chartMap[item], edge)
		p.viterbiEdge[item] = edge
		p.stats.Admitted++
		p.stats.TotalEdges++
		if !p.touched[item.Label] {
			p.touched[item.Label] = true
			p.stats.LabelsTouched++
		}
		if !p.admittedSet[item] {
			p.admittedSet[item] = true
			p.viterbi[item.Label] = append(p.viterbi[item.Label], item)
		}

		if item == goal && !opts.Exhaustive {
			p.stats.FinalAgenda = p.ag.Len()
			return p.chartMap, goal, "parsed: " + p.stats.String()
		}

		p.expand(item, edge)
	}

	p.stats.FinalAgenda = p.ag.Len()
	if _, ok := p.chartMap[goal]; ok {
		return p.chartMap, goal, "parsed: " + p.stats.String()
	}
	return p.chartMap, chart.NONE, "no parse " + p.stats.String()
}

func (p *parser) fullSpan() bitspan.Span {
	n := len(p.sentence)
	if n == 0 {
		return bitspan.EmptyNarrow()
	}
	s := p.bitAt(0)
	for i := 1; i < n; i++ {
		s = s.Union(p.bitAt(i))
	}
	return s
}

func (p *parser) bitAt(pos int) bitspan.Span {
	if p.wide {
		return bitspan.WideBit(pos)
	}
	return bitspan.NarrowBit(pos)
}

// scan performs the lexical pass described in spec.md section 4.2: emit a
// chart item per matching lexical rule, falling back to a bare tag item
// with inside cost 0 when tags are supplied but no lexical rule matched.
// Returns (message, false) on the terminal "not covered" failure.
func (p *parser) scan() (string, bool) {
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
			p.admitScanCandidate(lr.LHS, i, lr.Prob)
		}
		if !matched && p.opts.Tags != nil {
			if lhs, ok := p.grammar.ToID(p.opts.Tags[i]); ok {
				matched = true
				p.admitScanCandidate(lhs, i, 0)
			}
		}
		if !matched {
			return fmt.Sprintf("not covered: %q", tok), false
		}
	}
	return "", true
}

func (p *parser) admitScanCandidate(lhs chart.Label, pos int, inside float64) {
	item := chart.ChartItem{Label: lhs, Span: p.bitAt(pos)}
	score := inside + p.opts.Estimates.outside(item, len(p.sentence))
	if score > InfDropThreshold {
		return
	}
	edge := chart.Edge{
		Score:  score,
		Inside: inside,
		Prob:   inside,
		RuleNo: -1,
		Left:   chart.ChartItem{Label: chart.Epsilon, Span: p.bitAt(pos)},
		Right:  chart.NONE,
	}
	p.processEdge(item, edge)
}

// expand generates unary and binary successors of the just-admitted item,
// per spec.md section 4.2 steps 2-3.
func (p *parser) expand(item chart.ChartItem, edge chart.Edge) {
	for _, rule := range p.grammar.Unary(item.Label) {
		newItem := chart.ChartItem{Label: rule.LHS, Span: item.Span}
		if p.beamBlocked(newItem) {
			continue
		}
		inside := rule.Prob + edge.Inside
		score := inside + p.opts.Estimates.outside(newItem, len(p.sentence))
		if score > InfDropThreshold {
			continue
		}
		p.processEdge(newItem, chart.Edge{
			Score: score, Inside: inside, Prob: rule.Prob, RuleNo: rule.No,
			Left: item, Right: chart.NONE,
		})
	}

	for _, rule := range p.grammar.LBinary(item.Label) {
		for _, sibling := range p.viterbi[rule.RHS2] {
			if !concat(rule, item.Span, sibling.Span) {
				continue
			}
			p.combine(rule, item, edge, sibling, p.viterbiEdge[sibling])
		}
	}

	for _, rule := range p.grammar.RBinary(item.Label) {
		for _, sibling := range p.viterbi[rule.RHS1] {
			if !concat(rule, sibling.Span, item.Span) {
				continue
			}
			p.combine(rule, sibling, p.viterbiEdge[sibling], item, edge)
		}
	}
}

// combine builds and admits the binary-rule candidate formed by left/right,
// in grammar order (left is always RHS1, right is always RHS2).
func (p *parser) combine(rule chart.Rule, left chart.ChartItem, leftEdge chart.Edge, right chart.ChartItem, rightEdge chart.Edge) {
	newItem := chart.ChartItem{Label: rule.LHS, Span: left.Span.Union(right.Span)}
	if p.beamBlocked(newItem) {
		return
	}
	inside := rule.Prob + leftEdge.Inside + rightEdge.Inside
	score := inside + p.opts.Estimates.outside(newItem, len(p.sentence))
	if score > InfDropThreshold {
		return
	}
	p.processEdge(newItem, chart.Edge{
		Score: score, Inside: inside, Prob: rule.Prob, RuleNo: rule.No,
		Left: left, Right: right,
	})
}

func (p *parser) beamBlocked(item chart.ChartItem) bool {
	if p.beamHist == nil {
		return false
	}
	n := p.beamHist[item.Span]
	p.beamHist[item.Span] = n + 1
	return n >= p.opts.BeamWidth
}

// processEdge arbitrates a candidate (item, edge) against the current
// agenda/chart state, per the five cases of spec.md section 4.2.
func (p *parser) processEdge(item chart.ChartItem, edge chart.Edge) {
	_, inChart := p.chartMap[item]
	inAgenda := p.ag.Contains(item)

	switch {
	case !inAgenda && !inChart:
		fanout := p.grammar.Fanout(item.Label)
		if !p.opts.Whitelist.pass(item, fanout, p.opts.SplitPrune, p.opts.MarkOrigin) {
			p.stats.Blocked++
			return
		}
		p.ag.Push(item, edge.Score, edge)
		p.chartMap[item] = []chart.Edge{}

	case !p.opts.Exhaustive && inAgenda:
		p.ag.SetIfBetter(item, edge.Score, edge)

	case inAgenda:
		cur, _ := p.ag.Get(item)
		if edge.Inside < cur.Payload.Inside {
			p.chartMap[item] = append(p.chartMap[item], cur.Payload)
			p.stats.TotalEdges++
			p.ag.Replace(item, edge.Score, edge)
		} else if p.opts.Exhaustive {
			p.chartMap[item] = append(p.chartMap[item], edge)
			p.stats.TotalEdges++
		}

	default: // !inAgenda, thus inChart: item already admitted
		best := p.viterbiEdge[item]
		if edge.Inside < best.Inside {
			p.stats.Reentries++
			log.Printf("lcfrs: reinserting %+v into agenda: inside %.6f < viterbi %.6f (inconsistent FOM?)", item, edge.Inside, best.Inside)
			p.ag.Push(item, edge.Score, edge)
		} else if p.opts.Exhaustive {
			p.chartMap[item] = append(p.chartMap[item], edge)
			p.stats.TotalEdges++
		}
	}
}
