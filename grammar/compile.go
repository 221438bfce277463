package grammar

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"
	"github.com/talent-works/disco-dop/internal/chart"
)

// CompileOptions configures Compile.
type CompileOptions struct {
	// EliminateNullRules removes null productions (A -> <nil>) by folding
	// their probability mass into every rule that references the nullable
	// symbol. Defaults to true: the chart parsers have no notion of an
	// empty yield, so a surviving null rule is a compile error.
	EliminateNullRules bool
	// EliminateUnitRules collapses unary chains (A -> B, B -> C, ...) into
	// direct rules at compile time. Defaults to false: the parsers' own
	// unary-closure machinery already walks unary chains at parse time, so
	// elimination only trades a one-time compile cost for a larger rule
	// count, with no effect on parser correctness.
	EliminateUnitRules bool
	// Debug turns on the normalization pipeline's own trace logging
	// (unit-rule removal steps), for diagnosing a grammar that compiles to
	// an unexpected rule set.
	Debug bool
}

// DefaultCompileOptions returns the recommended options for grammars with
// no unusual requirements.
func DefaultCompileOptions() CompileOptions {
	return CompileOptions{EliminateNullRules: true}
}

// Compile parses grammarText and turns it into a CompiledGrammar ready to
// drive the lcfrs or cfg parser. It runs the normalization pipeline
// (weight normalization, terminal isolation, rule binarization, optional
// null/unit rule elimination) before assigning ids and building the
// per-label rule indexes the chart.Grammar interface requires.
func Compile(grammarText string, opts CompileOptions) (*CompiledGrammar, error) {
	g, err := ParseGrammar(grammarText)
	if err != nil {
		return nil, errors.Wrap(err, "grammar.Compile")
	}
	if opts.Debug {
		g.DebugMode()
	}

	g.normalizeWeight()
	g.addTermVariables()
	g.reduceHigherRules()

	if opts.EliminateNullRules {
		g.removeNullRules()
	}

	if opts.EliminateUnitRules {
		g.removeStrongComponents()
		g.removeUnitRules()
	} else if err := g.checkUnaryCycles(); err != nil {
		return nil, errors.Wrap(err, "grammar.Compile")
	}

	return g.compileChart()
}

// checkUnaryCycles rejects any strongly connected component of the
// unary-rule graph that contains a zero-or-negative-cost arc (weight >=
// 1.0, i.e. -log(weight) <= 0): the parsers' unary-closure agendas rely on
// every admission strictly decreasing cost to terminate, which a
// zero-cost cycle would violate. This is a conservative, by-arc
// approximation of "the cycle's total cost is positive" -- it can reject
// a few cycles that an exact Floyd-Warshall cycle-cost computation would
// accept, in exchange for a much simpler check.
func (g *Grammar) checkUnaryCycles() error {
	components := g.findStrongComponents()
	if len(components) == 0 {
		return nil
	}

	componentOf := map[Symbol]int{}
	for ci, component := range components {
		for _, s := range component {
			componentOf[s] = ci
		}
	}

	for _, rule := range g.Rules {
		if !rule.IsUnary() || rule.Right[0].IsTerminal() {
			continue
		}
		left, lok := componentOf[rule.Left]
		right, rok := componentOf[rule.Right[0]]
		if lok && rok && left == right && rule.Weight >= 1.0 {
			return errors.Errorf(
				"zero-cost unary cycle through %s ::= %s (weight %.6f)",
				rule.Left, rule.Right[0], rule.Weight)
		}
	}
	return nil
}

// CompiledGrammar implements chart.Grammar over a normalized Grammar.
type CompiledGrammar struct {
	toID   map[string]chart.Label
	toName []string

	numRules int

	lexical map[string][]chart.LexicalRule
	unary   map[chart.Label][]chart.Rule
	lbinary map[chart.Label][]chart.Rule
	rbinary map[chart.Label][]chart.Rule
	fanout  map[chart.Label]int
}

// encodeYield bit-packs a binary rule's yield function into the Args/
// Lengths pair chart.Rule and lcfrs' concat expect: atom i's bit in Args is
// 0 to take the next run from the rule's first right-hand symbol or 1 for
// its second, and atom i's bit in Lengths is set when atom i is the last
// atom of its argument (an argument boundary). A nil Yield (the common
// case: an ordinary CFG rule with no annotation) compiles to
// chart.PlainConcatArgs/PlainConcatLengths, the single-argument,
// no-gap yield function.
func encodeYield(y Yield) (args, lengths uint64, err error) {
	if y == nil {
		return chart.PlainConcatArgs, chart.PlainConcatLengths, nil
	}

	pos := 0
	for _, arg := range y {
		if len(arg) == 0 {
			return 0, 0, errors.New("empty yield-function argument")
		}
		for i, atom := range arg {
			if atom != 0 && atom != 1 {
				return 0, 0, errors.Errorf("yield-function atom must be 0 or 1, got %d", atom)
			}
			if pos >= 64 {
				return 0, 0, errors.New("yield function too long to encode (max 64 atoms)")
			}
			if atom == 1 {
				args |= uint64(1) << uint(pos)
			}
			if i == len(arg)-1 {
				lengths |= uint64(1) << uint(pos)
			}
			pos++
		}
	}
	return args, lengths, nil
}

// compileChart assigns ids and builds the per-label indexes chart.Grammar
// needs. A label's fanout is derived from the argument-boundary count
// (popcount of Lengths) of the binary rule that produces it, rather than
// assumed: most grammar text compiles the plain concatenation yield
// function, giving fanout 1, but a rule carrying an explicit
// yield-function annotation can derive any fanout its tuple-of-tuples
// notation specifies.
func (g *Grammar) compileChart() (*CompiledGrammar, error) {
	cg := &CompiledGrammar{
		toID:    map[string]chart.Label{"Epsilon": chart.Epsilon},
		toName:  []string{"Epsilon"},
		lexical: map[string][]chart.LexicalRule{},
		unary:   map[chart.Label][]chart.Rule{},
		lbinary: map[chart.Label][]chart.Rule{},
		rbinary: map[chart.Label][]chart.Rule{},
		fanout:  map[chart.Label]int{},
	}

	labelOf := func(s Symbol) chart.Label {
		name := string(s)
		if id, ok := cg.toID[name]; ok {
			return id
		}
		id := chart.Label(len(cg.toName))
		cg.toID[name] = id
		cg.toName = append(cg.toName, name)
		cg.fanout[id] = 1
		return id
	}

	for _, rule := range g.Rules {
		if rule.IsUnary() && rule.Right[0].IsTerminal() {
			if rule.Right[0] == EpsilonSymbol {
				return nil, errors.Errorf(
					"grammar.Compile: unresolved null rule %s ::= <nil>; "+
						"set CompileOptions.EliminateNullRules", rule.Left)
			}
			lhs := labelOf(rule.Left)
			word := string(rule.Right[0])
			cg.lexical[word] = append(cg.lexical[word], chart.LexicalRule{
				LHS: lhs, Prob: -math.Log(rule.Weight),
			})
			cg.numRules++
			continue
		}

		no := cg.numRules
		cg.numRules++
		lhs := labelOf(rule.Left)
		prob := -math.Log(rule.Weight)

		if rule.IsUnary() {
			rhs1 := labelOf(rule.Right[0])
			cg.unary[rhs1] = append(cg.unary[rhs1], chart.Rule{
				LHS: lhs, RHS1: rhs1, Prob: prob, No: no,
			})
			continue
		}

		rhs1 := labelOf(rule.Right[0])
		rhs2 := labelOf(rule.Right[1])
		args, lengths, yerr := encodeYield(rule.Yield)
		if yerr != nil {
			return nil, errors.Wrapf(yerr, "grammar.Compile: %s", rule.Left)
		}
		r := chart.Rule{
			LHS: lhs, RHS1: rhs1, RHS2: rhs2,
			Args: args, Lengths: lengths,
			Prob: prob, No: no,
		}
		cg.lbinary[rhs1] = append(cg.lbinary[rhs1], r)
		cg.rbinary[rhs2] = append(cg.rbinary[rhs2], r)
		cg.fanout[lhs] = bits.OnesCount64(r.Lengths)
	}

	return cg, nil
}

// ToID implements chart.Grammar.
func (cg *CompiledGrammar) ToID(name string) (chart.Label, bool) {
	id, ok := cg.toID[name]
	return id, ok
}

// ToLabel implements chart.Grammar.
func (cg *CompiledGrammar) ToLabel(l chart.Label) string {
	if int(l) < 0 || int(l) >= len(cg.toName) {
		return ""
	}
	return cg.toName[l]
}

// NumRules implements chart.Grammar.
func (cg *CompiledGrammar) NumRules() int { return cg.numRules }

// NumNonterminals implements chart.Grammar.
func (cg *CompiledGrammar) NumNonterminals() int { return len(cg.toName) }

// Lexical implements chart.Grammar.
func (cg *CompiledGrammar) Lexical(word string) []chart.LexicalRule { return cg.lexical[word] }

// Unary implements chart.Grammar.
func (cg *CompiledGrammar) Unary(label chart.Label) []chart.Rule { return cg.unary[label] }

// LBinary implements chart.Grammar.
func (cg *CompiledGrammar) LBinary(label chart.Label) []chart.Rule { return cg.lbinary[label] }

// RBinary implements chart.Grammar.
func (cg *CompiledGrammar) RBinary(label chart.Label) []chart.Rule { return cg.rbinary[label] }

// Fanout implements chart.Grammar.
func (cg *CompiledGrammar) Fanout(label chart.Label) int {
	if f, ok := cg.fanout[label]; ok {
		return f
	}
	return 1
}
