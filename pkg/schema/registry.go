package schema

import "fmt"

// Registry is the immutable set of included types, built once per run.
type Registry struct {
	entries  []*Entry
	byName   map[string]*Entry
	semantic SemanticMap
}

// NewRegistry validates and indexes entries in declaration order.
func NewRegistry(entries []*Entry, semantic SemanticMap) (*Registry, error) {
	r := &Registry{
		entries:  make([]*Entry, 0, len(entries)),
		byName:   make(map[string]*Entry, len(entries)),
		semantic: make(SemanticMap, len(semantic)),
	}
	for _, e := range entries {
		if err := e.Type.Resolve(); err != nil {
			return nil, err
		}
		if _, ok := r.byName[e.Type.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, e.Type.Name)
		}
		if e.ExcludedFields == nil {
			e.ExcludedFields = map[string]struct{}{}
		}
		e.position = len(r.entries)
		r.entries = append(r.entries, e)
		r.byName[e.Type.Name] = e
	}
	for pair, label := range semantic {
		if !r.Includes(pair.From) {
			return nil, fmt.Errorf("%w in semantic relationship: %s", ErrUnknownType, pair.From)
		}
		if !r.Includes(pair.To) {
			return nil, fmt.Errorf("%w in semantic relationship: %s", ErrUnknownType, pair.To)
		}
		r.semantic[pair] = label
	}
	return r, nil
}

// Types returns the entries in declaration order
func (r *Registry) Types() []*Entry {
	return r.entries
}

// Entry looks up the entry for a type
func (r *Registry) Entry(name string) (*Entry, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Includes reports whether a type is part of the graph
func (r *Registry) Includes(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Semantic returns the semantic relationship map
func (r *Registry) Semantic() SemanticMap {
	return r.semantic
}

// Descriptors returns the type descriptors in declaration order
func (r *Registry) Descriptors() []*TypeDescriptor {
	out := make([]*TypeDescriptor, len(r.entries))
	for i, e := range r.entries {
		out[i] = &e.Type
	}
	return out
}
