package grammar

import (
	"math"
)

// Vertex is a graph node identified by its grammar symbol's text -- the
// unary-rule graphs built in grammar.go use a Vertex per nonterminal and an
// arc per unit rule A ::= B, weighted by the rule's probability.
type Vertex string

// DirectedGraph is a weighted directed graph over Vertex. grammar.go builds
// one purely from a grammar's unary rules to reason about unit-rule chains:
// TopologicalSort/Transpose/DFS drive removeUnitRules' elimination order,
// and StrongComponents/Floyd drive removeStrongComponents' detection and
// reprobabilization of unary cycles.
type DirectedGraph struct {
	Arcs     map[Vertex]map[Vertex]float64
	Vertices map[Vertex]bool
}

// NewDirectedGraph returns an empty graph.
func NewDirectedGraph() *DirectedGraph {
	g := new(DirectedGraph)
	g.Arcs = make(map[Vertex]map[Vertex]float64)
	g.Vertices = make(map[Vertex]bool)
	return g
}

// Add adds a weighted arc s -> t, registering both endpoints as vertices.
func (g *DirectedGraph) Add(s, t Vertex, weight float64) {
	if g.Arcs[s] == nil {
		g.Arcs[s] = map[Vertex]float64{}
	}
	g.Arcs[s][t] = weight
	g.Vertices[s] = true
	g.Vertices[t] = true
}

// HasArc reports whether an arc s -> t exists.
func (g *DirectedGraph) HasArc(s, t Vertex) bool {
	if _, ok := g.Arcs[s]; !ok {
		return false
	}
	if _, ok := g.Arcs[s][t]; !ok {
		return false
	}
	return true
}

// DFS visits s and everything reachable from it, skipping any vertex
// already marked in visited, and returns the visit order. visited is
// updated in place so repeated calls across a whole-graph traversal never
// revisit a vertex.
func (g *DirectedGraph) DFS(s Vertex, visited map[Vertex]bool) []Vertex {
	if visited[s] || !g.Vertices[s] {
		return []Vertex{}
	}
	visited[s] = true

	order := []Vertex{s}
	outgoingArcs, ok := g.Arcs[s]
	if ok {
		for nextV := range outgoingArcs {
			order = append(order, g.DFS(nextV, visited)...)
		}
	}
	return order
}

// TopologicalSort returns every vertex in topological order (for every arc
// s -> t outside a cycle, s comes before t), computed as reverse DFS
// finishing order. removeUnitRules calls it on the transpose of a unary-
// rule graph, where that order runs leaf-to-root, exactly the order it
// wants to eliminate unit rules in.
func (g *DirectedGraph) TopologicalSort() []Vertex {
	visited := map[Vertex]bool{}
	topologicalOrder := []Vertex{}
	var visit func(v Vertex)
	visit = func(v Vertex) {
		visited[v] = true
		for next := range g.Arcs[v] {
			if !visited[next] {
				visit(next)
			}
		}
		topologicalOrder = append([]Vertex{v}, topologicalOrder...)
	}
	for v := range g.Vertices {
		if !visited[v] {
			visit(v)
		}
	}
	return topologicalOrder
}

// Transpose returns a new graph with every arc reversed.
func (g *DirectedGraph) Transpose() *DirectedGraph {
	reversed := NewDirectedGraph()
	for s, targets := range g.Arcs {
		for t, weight := range targets {
			reversed.Add(t, s, weight)
		}
	}

	return reversed
}

// StrongComponents finds the graph's strongly connected components with
// Kosaraju's algorithm (topological order on g, then DFS on the transpose).
// Singleton components are dropped: for a unary-rule graph a singleton just
// means "this symbol doesn't unary-cycle back to itself", not a genuine
// strong component removeStrongComponent needs to collapse.
func (g *DirectedGraph) StrongComponents() [][]Vertex {
	visited := map[Vertex]bool{}
	components := [][]Vertex{}
	topologicalOrder := g.TopologicalSort()
	gt := g.Transpose()
	for _, v := range topologicalOrder {
		if visited[v] {
			continue
		}

		component := gt.DFS(v, visited)
		if len(component) <= 1 {
			continue
		}
		components = append(components, component)
	}
	return components
}

// Floyd computes all-pairs shortest paths with Floyd-Warshall. Called on
// the negative-log-weight graph of a single strong component, the result
// is the probability of the most probable unary path (after exponentiating
// back) between any two symbols in a unary cycle -- what removeStrongComponent uses to
// fold the cycle's probability mass into the rules that survive its
// removal.
func (g *DirectedGraph) Floyd() map[Vertex]map[Vertex]float64 {
	distance := map[Vertex]map[Vertex]float64{}
	for s := range g.Vertices {
		distance[s] = map[Vertex]float64{}
		for t := range g.Vertices {
			if s == t {
				distance[s][t] = 0
			} else {
				distance[s][t] = math.Inf(1)
			}
		}
	}

	for s, ts := range g.Arcs {
		for t, w := range ts {
			distance[s][t] = w
		}
	}

	for k := range g.Vertices {
		for i := range g.Vertices {
			for j := range g.Vertices {
				d := distance[i][k] + distance[k][j]
				if distance[i][j] > d {
					distance[i][j] = d
				}
			}
		}
	}

	return distance
}
