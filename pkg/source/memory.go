package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-graphize/pkg/graph"
	"github.com/dd0wney/cluso-graphize/pkg/schema"
)

// Memory is an in-process Source holding records per type name.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]Record
	fail    map[string]error
}

// NewMemory creates an empty in-memory source
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string][]Record),
		fail:    make(map[string]error),
	}
}

// Add appends records for a type
func (m *Memory) Add(typeName string, records ...Record) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[typeName] = append(m.records[typeName], records...)
	return m
}

// FailWith makes enumeration of a type return err
func (m *Memory) FailWith(typeName string, err error) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[typeName] = err
	return m
}

// Records implements Source
func (m *Memory) Records(ctx context.Context, t *schema.TypeDescriptor, fn func(Record) error) error {
	m.mu.RLock()
	records := m.records[t.Name]
	failure := m.fail[t.Name]
	m.mu.RUnlock()

	if failure != nil {
		return failure
	}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.ID == "" {
			return fmt.Errorf("%s: %w", t.Name, ErrMissingID)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// NewRecord starts a record with the given identifier
func NewRecord(id string) Record {
	return Record{ID: id}
}

// Scalar adds a scalar field
func (r Record) Scalar(name string, value any) Record {
	r.Fields = append(r.Fields, Field{Name: name, Kind: schema.KindScalar, Value: graph.FromAny(value)})
	return r
}

// Reference adds a reference field; an empty id means the reference is null
func (r Record) Reference(name, targetType, targetID string) Record {
	f := Field{Name: name, Kind: schema.KindReference}
	if targetID != "" {
		f.Refs = []Ref{{Type: targetType, ID: targetID}}
	}
	r.Fields = append(r.Fields, f)
	return r
}

// Collection adds a collection field
func (r Record) Collection(name, targetType string, ids ...string) Record {
	f := Field{Name: name, Kind: schema.KindCollection}
	for _, id := range ids {
		f.Refs = append(f.Refs, Ref{Type: targetType, ID: id})
	}
	r.Fields = append(r.Fields, f)
	return r
}
