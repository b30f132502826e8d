package graph

import (
	"hash/fnv"
	"sort"
	"sync"
)

const arenaShards = 64

// Order positions a node in the frozen graph: schema type position first,
// then source enumeration position within the type.
type Order struct {
	Type int
	Seq  int
}

func (o Order) less(p Order) bool {
	if o.Type != p.Type {
		return o.Type < p.Type
	}
	return o.Seq < p.Seq
}

// NodeArena holds nodes addressed by NodeID while a graph is being built.
// Upsert is safe for concurrent use; Freeze ends the build.
type NodeArena struct {
	shards [arenaShards]arenaShard
}

type arenaShard struct {
	mu    sync.RWMutex
	nodes map[NodeID]*arenaEntry
}

type arenaEntry struct {
	node  *Node
	order Order
}

// NewNodeArena creates an empty arena
func NewNodeArena() *NodeArena {
	a := &NodeArena{}
	for i := range a.shards {
		a.shards[i].nodes = make(map[NodeID]*arenaEntry)
	}
	return a
}

func (a *NodeArena) shard(id NodeID) *arenaShard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &a.shards[h.Sum32()%arenaShards]
}

// Upsert creates the node if absent, or fetches the existing one, and calls
// fn with it while holding the shard lock. Returns true if the node was created.
func (a *NodeArena) Upsert(id NodeID, typeName string, order Order, fn func(*Node)) bool {
	s := a.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.nodes[id]
	if !ok {
		entry = &arenaEntry{
			node:  &Node{ID: id, Type: typeName, Attributes: make(map[string]Value)},
			order: order,
		}
		s.nodes[id] = entry
	} else if order.less(entry.order) {
		// Keep placement independent of goroutine scheduling.
		entry.order = order
		entry.node.Type = typeName
	}
	if fn != nil {
		fn(entry.node)
	}
	return !ok
}

// Contains reports whether a node exists
func (a *NodeArena) Contains(id NodeID) bool {
	s := a.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// Len returns the number of nodes in the arena
func (a *NodeArena) Len() int {
	total := 0
	for i := range a.shards {
		s := &a.shards[i]
		s.mu.RLock()
		total += len(s.nodes)
		s.mu.RUnlock()
	}
	return total
}

// Freeze orders the nodes and assembles the final Graph with the given edges.
// The arena must not be used afterwards.
func (a *NodeArena) Freeze(edges *EdgeSet) (*Graph, error) {
	entries := make([]*arenaEntry, 0, a.Len())
	for i := range a.shards {
		s := &a.shards[i]
		s.mu.Lock()
		for _, e := range s.nodes {
			entries = append(entries, e)
		}
		s.mu.Unlock()
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].order == entries[j].order {
			return entries[i].node.ID < entries[j].node.ID
		}
		return entries[i].order.less(entries[j].order)
	})

	nodes := make([]*Node, len(entries))
	for i, e := range entries {
		nodes[i] = e.node
	}
	var list []Edge
	if edges != nil {
		list = edges.Edges()
	}
	return New(nodes, list)
}
