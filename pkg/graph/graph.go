package graph

import "fmt"

// Graph is the read-only result of a build: nodes in build order and edges in
// discovery order. Every edge endpoint is a node of the graph.
type Graph struct {
	nodes []*Node
	index map[NodeID]int
	edges []Edge
}

// New assembles a Graph, rejecting duplicate nodes and edges whose endpoints
// are missing. Edges repeating an unordered pair are collapsed into the first, taking
// the later label.
func New(nodes []*Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		nodes: make([]*Node, 0, len(nodes)),
		index: make(map[NodeID]int, len(nodes)),
	}
	for _, n := range nodes {
		if _, ok := g.index[n.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		g.index[n.ID] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}

	set := NewEdgeSet()
	for _, e := range edges {
		if _, ok := g.index[e.From]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrDanglingEdge, e.From)
		}
		if _, ok := g.index[e.To]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrDanglingEdge, e.To)
		}
		set.Add(e)
	}
	g.edges = set.Edges()
	return g, nil
}

// Nodes returns the nodes in build order. The slice must not be modified.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Edges returns the edges in discovery order. The slice must not be modified.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Node looks up a node by id
func (g *Graph) Node(id NodeID) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// TypeOf returns the source type of a node
func (g *Graph) TypeOf(id NodeID) (string, error) {
	n, ok := g.Node(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return n.Type, nil
}

// EdgeSet collects edges keyed by their unordered endpoint pair. A pair keeps
// the endpoints of its first edge and the label of its last. Not safe for
// concurrent use.
type EdgeSet struct {
	index map[EdgeKey]int
	edges []Edge
}

// NewEdgeSet creates an empty edge set
func NewEdgeSet() *EdgeSet {
	return &EdgeSet{index: make(map[EdgeKey]int)}
}

// Add inserts the edge, or relabels the edge already holding its pair.
// Returns true if the edge was added as a new pair.
func (s *EdgeSet) Add(e Edge) bool {
	k := e.Key()
	if i, ok := s.index[k]; ok {
		s.edges[i].Label = e.Label
		return false
	}
	s.index[k] = len(s.edges)
	s.edges = append(s.edges, e)
	return true
}

// Len returns the number of edges in the set
func (s *EdgeSet) Len() int {
	return len(s.edges)
}

// Edges returns the edges in insertion order
func (s *EdgeSet) Edges() []Edge {
	return s.edges
}
