// Package deriv renders the derivation strings the kbest package emits
// ("(LABEL child1 child2)", terminals as input-position indices) into a
// Node/Tree value and a human-readable indented representation.
package deriv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Node represents a single node in a parse tree. A nil Children slice
// marks a leaf (a terminal word).
type Node struct {
	Children []*Node
	Symbol   string
}

// Tree represents a whole parse tree.
type Tree struct {
	*Node
}

// String returns the tree's indented representation.
func (n *Node) String() string {
	return n.repr(0)
}

func (n *Node) repr(level int) string {
	prefix := strings.Repeat(" ", level*2)
	if level != 0 {
		prefix = "\n" + prefix
	}
	if n.Children == nil {
		return prefix + n.Symbol
	}

	reprs := make([]string, len(n.Children))
	for i, child := range n.Children {
		reprs[i] = child.repr(level + 1)
	}
	return fmt.Sprintf("%s(%s %s)", prefix, n.Symbol, strings.Join(reprs, " "))
}

// Parse parses a single derivation string as emitted by kbest.Enumerator,
// resolving each terminal leaf -- rendered there as the input position
// index -- back to the corresponding word of sentence.
func Parse(deriv string, sentence []string) (*Tree, error) {
	toks := tokenize(deriv)
	pos := 0
	n, err := parseNode(toks, &pos, sentence)
	if err != nil {
		return nil, errors.Wrap(err, "deriv.Parse")
	}
	if pos != len(toks) {
		return nil, errors.Errorf("deriv.Parse: unexpected trailing tokens after %q", deriv)
	}
	return &Tree{n}, nil
}

func tokenize(s string) []string {
	s = strings.ReplaceAll(s, "(", " ( ")
	s = strings.ReplaceAll(s, ")", " ) ")
	return strings.Fields(s)
}

func parseNode(toks []string, pos *int, sentence []string) (*Node, error) {
	if *pos >= len(toks) || toks[*pos] != "(" {
		return nil, errors.New("expected '('")
	}
	*pos++

	if *pos >= len(toks) {
		return nil, errors.New("unexpected end of derivation after '('")
	}
	label := toks[*pos]
	*pos++

	node := &Node{Symbol: label}
	for *pos < len(toks) && toks[*pos] != ")" {
		if toks[*pos] == "(" {
			child, err := parseNode(toks, pos, sentence)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
			continue
		}

		idx, err := strconv.Atoi(toks[*pos])
		if err != nil {
			return nil, errors.Errorf("expected input position, got %q", toks[*pos])
		}
		if idx < 0 || idx >= len(sentence) {
			return nil, errors.Errorf("input position %d out of range for a %d-word sentence", idx, len(sentence))
		}
		node.Children = append(node.Children, &Node{Symbol: sentence[idx]})
		*pos++
	}
	if *pos >= len(toks) {
		return nil, errors.Errorf("unterminated '(' for %q", label)
	}
	*pos++ // consume ')'
	return node, nil
}
