// Package source enumerates the relational records a graph is built from.
package source

import (
	"context"
	"errors"

	"github.com/dd0wney/cluso-graphize/pkg/graph"
	"github.com/dd0wney/cluso-graphize/pkg/schema"
)

var (
	ErrUnsupportedDriver = errors.New("unsupported driver")
	ErrUnknownType       = errors.New("type not provided by source")
	ErrMissingID         = errors.New("record has no identifier")
)

// Ref points at another record
type Ref struct {
	Type string
	ID   string
}

// Field is one classified field value of a record.
// Scalars carry Value; references carry at most one Ref; collections any number.
type Field struct {
	Name  string
	Kind  schema.FieldKind
	Value graph.Value
	Refs  []Ref
}

// Record is a source record with a stable identifier
type Record struct {
	ID     string
	Fields []Field
}

// Scalars returns the record's raw scalar values keyed by field name
func (r Record) Scalars() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		if f.Kind == schema.KindScalar {
			out[f.Name] = f.Value.Interface()
		}
	}
	return out
}

// Source produces the records of a type. Records must call fn once per
// record, in a stable order, and stop at the first error fn returns.
// Enumeration restarts from the beginning on every call.
type Source interface {
	Records(ctx context.Context, t *schema.TypeDescriptor, fn func(Record) error) error
}

// Describer is implemented by sources that can discover fields for types the
// schema declares without any.
type Describer interface {
	Describe(ctx context.Context, reg *schema.Registry) error
}
