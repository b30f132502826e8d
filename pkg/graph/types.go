package graph

// NodeID is the deterministic key of a node: the source type name followed by
// the record identifier. It is opaque; callers must not parse it.
type NodeID string

// NewNodeID builds the NodeID for a record of the given type.
func NewNodeID(typeName, recordID string) NodeID {
	return NodeID(typeName + recordID)
}

// DefaultRelation is used when an edge carries no relation label and the
// consumer requires one.
const DefaultRelation = "RELATED"

// Node represents a vertex in the graph
type Node struct {
	ID         NodeID
	Type       string // source type the node was first created from
	Attributes map[string]Value
}

// Edge represents a relationship between two nodes.
// From/To keep discovery order even though storage treats the pair as unordered.
type Edge struct {
	From  NodeID
	To    NodeID
	Label string
}

// RelationOr returns the edge label, or fallback when the label is empty
func (e Edge) RelationOr(fallback string) string {
	if e.Label == "" {
		return fallback
	}
	return e.Label
}

// Key returns the unordered identity of the edge
func (e Edge) Key() EdgeKey {
	if e.From <= e.To {
		return EdgeKey{A: e.From, B: e.To}
	}
	return EdgeKey{A: e.To, B: e.From}
}

// EdgeKey identifies an edge by its unordered endpoint pair
type EdgeKey struct {
	A NodeID
	B NodeID
}

// PlainAttributes returns the attribute map with plain Go values
func (n *Node) PlainAttributes() map[string]any {
	out := make(map[string]any, len(n.Attributes))
	for k, v := range n.Attributes {
		out[k] = v.Interface()
	}
	return out
}
