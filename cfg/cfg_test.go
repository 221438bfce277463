package cfg

import (
	"testing"

	"github.com/talent-works/disco-dop/internal/chart"
)

// fakeGrammar is a minimal in-memory chart.Grammar for exercising the CFG
// parser without going through the grammar package's text format.
type fakeGrammar struct {
	names []string
	ids   map[string]chart.Label
	lex   map[string][]chart.LexicalRule
	unary map[chart.Label][]chart.Rule
	lbin  map[chart.Label][]chart.Rule
	rbin  map[chart.Label][]chart.Rule
}

func newFakeGrammar(names ...string) *fakeGrammar {
	g := &fakeGrammar{
		names: names,
		ids:   map[string]chart.Label{},
		lex:   map[string][]chart.LexicalRule{},
		unary: map[chart.Label][]chart.Rule{},
		lbin:  map[chart.Label][]chart.Rule{},
		rbin:  map[chart.Label][]chart.Rule{},
	}
	for i, n := range names {
		g.ids[n] = chart.Label(i)
	}
	return g
}

func (g *fakeGrammar) ToID(name string) (chart.Label, bool) { id, ok := g.ids[name]; return id, ok }
func (g *fakeGrammar) ToLabel(l chart.Label) string {
	if int(l) < 0 || int(l) >= len(g.names) {
		return ""
	}
	return g.names[l]
}
func (g *fakeGrammar) NumRules() int             { return 0 }
func (g *fakeGrammar) NumNonterminals() int       { return len(g.names) }
func (g *fakeGrammar) Lexical(word string) []chart.LexicalRule { return g.lex[word] }
func (g *fakeGrammar) Unary(label chart.Label) []chart.Rule    { return g.unary[label] }
func (g *fakeGrammar) LBinary(label chart.Label) []chart.Rule  { return g.lbin[label] }
func (g *fakeGrammar) RBinary(label chart.Label) []chart.Rule  { return g.rbin[label] }
func (g *fakeGrammar) Fanout(label chart.Label) int            { return 1 }

func (g *fakeGrammar) addLexical(word string, lhs chart.Label, prob float64) {
	g.lex[word] = append(g.lex[word], chart.LexicalRule{LHS: lhs, Prob: prob})
}

func (g *fakeGrammar) addUnary(no int, lhs, rhs chart.Label, prob float64) {
	g.unary[rhs] = append(g.unary[rhs], chart.Rule{LHS: lhs, RHS1: rhs, Prob: prob, No: no})
}

func (g *fakeGrammar) addBinary(no int, lhs, rhs1, rhs2 chart.Label, prob float64) {
	r := chart.Rule{
		LHS: lhs, RHS1: rhs1, RHS2: rhs2,
		Args: chart.PlainConcatArgs, Lengths: chart.PlainConcatLengths,
		Prob: prob, No: no,
	}
	g.lbin[rhs1] = append(g.lbin[rhs1], r)
	g.rbin[rhs2] = append(g.rbin[rhs2], r)
}

// buildSentenceGrammar builds S -> NP VP, VP -> V (unary), NP -> alice, V -> sings.
func buildSentenceGrammar() (*fakeGrammar, chart.Label) {
	g := newFakeGrammar("Epsilon", "S", "NP", "VP", "V")
	S, NP, VP, V := chart.Label(1), chart.Label(2), chart.Label(3), chart.Label(4)
	g.addBinary(0, S, NP, VP, 0.0)
	g.addUnary(1, VP, V, 0.0)
	g.addLexical("alice", NP, 0.0)
	g.addLexical("sings", V, 0.0)
	return g, S
}

func TestParseSimpleSentence(t *testing.T) {
	g, S := buildSentenceGrammar()
	chart, goal := Parse([]string{"alice", "sings"}, g, Options{Start: S})
	if goal.IsNone() {
		t.Fatal("expected a derivation for \"alice sings\"")
	}
	if goal.Label != S || goal.Left != 0 || goal.Right != 2 {
		t.Fatalf("unexpected goal cell: %+v", goal)
	}
	edges, ok := chart[goal]
	if !ok || len(edges) == 0 {
		t.Fatal("expected at least one edge for the goal cell")
	}
}

func TestParseFailsOnUnknownWord(t *testing.T) {
	g, S := buildSentenceGrammar()
	_, goal := Parse([]string{"alice", "banana"}, g, Options{Start: S})
	if !goal.IsNone() {
		t.Fatal("expected no derivation when a word has no lexical entry")
	}
}

func TestParseBareTagFallback(t *testing.T) {
	g, S := buildSentenceGrammar()
	// "warbles" has no lexical entry at all, but a supplied tag matching a
	// known nonterminal should still admit a zero-cost bare-tag edge.
	_, goal := Parse([]string{"alice", "warbles"}, g, Options{
		Start: S,
		Tags:  []string{"NP", "V"},
	})
	if goal.IsNone() {
		t.Fatal("expected the bare-tag fallback to let parsing succeed")
	}
}

func TestParseTagsRejectMismatchedLexicalEntry(t *testing.T) {
	g, S := buildSentenceGrammar()
	// "alice" is lexically NP, but the supplied tag demands V: the lexical
	// entry is filtered out, and the bare-tag fallback admits a V cell at
	// position 0 instead (V is a known label). No rule rewrites V into NP,
	// so S can never form even though every position matched something.
	c, goal := Parse([]string{"alice", "sings"}, g, Options{
		Start: S,
		Tags:  []string{"V", "V"},
	})
	if !goal.IsNone() {
		t.Fatal("expected no S derivation: the first token never produces an NP")
	}
	bareV := Cell{Label: chart.Label(4), Left: 0, Right: 1}
	if _, ok := c[bareV]; !ok {
		t.Fatal("expected the bare-tag fallback to still admit a V cell at position 0")
	}
}

func TestParseNoParseWithoutTagOrLexicalMatch(t *testing.T) {
	g, S := buildSentenceGrammar()
	_, goal := Parse([]string{"alice", "sings"}, g, Options{
		Start: S,
		Tags:  []string{"Unknown", "V"},
	})
	if !goal.IsNone() {
		t.Fatal("expected no derivation when neither lexical nor bare-tag match succeeds")
	}
}

func TestUnaryClosureAppliesAtEveryCell(t *testing.T) {
	g, S := buildSentenceGrammar()
	chart_, goal := Parse([]string{"alice", "sings"}, g, Options{Start: S})
	if goal.IsNone() {
		t.Fatal("expected a parse")
	}
	vp := Cell{Label: chart.Label(3), Left: 1, Right: 2}
	if _, ok := chart_[vp]; !ok {
		t.Fatal("expected VP to be derived from V via unary closure at [1,2)")
	}
}

func TestSourceAdapter(t *testing.T) {
	g, S := buildSentenceGrammar()
	c, goal := Parse([]string{"alice", "sings"}, g, Options{Start: S})
	src := Source{Chart: c, Grammar: g}

	if label := src.Label(goal); label != "S" {
		t.Fatalf("Label(goal) = %q, want S", label)
	}

	edges := src.Edges(goal)
	if len(edges) == 0 {
		t.Fatal("expected at least one edge for the goal cell")
	}
	if edges[0].RuleNo != 0 {
		t.Fatalf("expected rule 0 (S -> NP VP), got %d", edges[0].RuleNo)
	}

	lexCell := Cell{Label: chart.Label(2), Left: 0, Right: 1}
	lexEdges := src.Edges(lexCell)
	if len(lexEdges) != 1 || lexEdges[0].RuleNo != -1 {
		t.Fatalf("expected a single lexical edge with RuleNo -1, got %+v", lexEdges)
	}

	if _, ok := src.Terminal(goal); ok {
		t.Fatal("a non-Epsilon cell should not be treated as terminal")
	}
	term := lexEdges[0].Left
	pos, ok := src.Terminal(term)
	if !ok || pos != 0 {
		t.Fatalf("expected terminal position 0, got %d, %v", pos, ok)
	}
}
