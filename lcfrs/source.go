package lcfrs

import (
	"github.com/talent-works/disco-dop/internal/chart"
	"github.com/talent-works/disco-dop/kbest"
)

// Source adapts a finished Chart and its Grammar into a
// kbest.Source[chart.ChartItem], so the lazy k-best enumerator can walk
// LCFRS derivations.
type Source struct {
	Chart   Chart
	Grammar chart.Grammar
}

// Edges implements kbest.Source.
func (s Source) Edges(v chart.ChartItem) []kbest.Edge[chart.ChartItem] {
	itemEdges := s.Chart[v]
	out := make([]kbest.Edge[chart.ChartItem], len(itemEdges))
	for i, e := range itemEdges {
		out[i] = kbest.Edge[chart.ChartItem]{
			Prob: e.Prob, Inside: e.Inside, RuleNo: e.RuleNo,
			Left: e.Left, Right: e.Right, HasRight: !e.IsUnary(),
		}
	}
	return out
}

// Label implements kbest.Source.
func (s Source) Label(v chart.ChartItem) string { return s.Grammar.ToLabel(v.Label) }

// Terminal implements kbest.Source: a lexical edge's Left item carries the
// input position as its span's single set bit.
func (s Source) Terminal(v chart.ChartItem) (int, bool) {
	if v.Label != chart.Epsilon {
		return 0, false
	}
	pos := v.Span.NextSet(0)
	if pos < 0 {
		return 0, false
	}
	return pos, true
}
