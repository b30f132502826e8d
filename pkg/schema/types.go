// Package schema describes which source record types become graph nodes and
// how their fields turn into attributes and edges.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-graphize/pkg/graph"
)

var (
	ErrUnknownType    = errors.New("unknown type")
	ErrDuplicateType  = errors.New("duplicate type")
	ErrDuplicateField = errors.New("duplicate field")
	ErrInvalidSchema  = errors.New("invalid schema")
)

// FieldKind classifies a source field
type FieldKind string

const (
	KindScalar     FieldKind = "scalar"
	KindReference  FieldKind = "reference"  // points to one other record
	KindCollection FieldKind = "collection" // points to zero or more other records
)

// FieldFormat overrides how a scalar column value is typed
type FieldFormat string

const (
	FormatAuto FieldFormat = "auto"
	FormatText FieldFormat = "text"
	FormatWKT  FieldFormat = "wkt"  // geometry as well-known text
	FormatFile FieldFormat = "file" // file/binary handle rendered as its path
)

// FieldDescriptor is a resolved source field.
type FieldDescriptor struct {
	Name   string      `yaml:"name" validate:"required"`
	Kind   FieldKind   `yaml:"kind,omitempty" validate:"omitempty,oneof=scalar reference collection"`
	Column string      `yaml:"column,omitempty" validate:"omitempty,identifier"`
	Target string      `yaml:"target,omitempty"`
	Format FieldFormat `yaml:"format,omitempty" validate:"omitempty,oneof=auto text wkt file"`

	// Collection join table: rows of (SourceColumn, TargetColumn)
	Through      string `yaml:"through,omitempty" validate:"omitempty,identifier"`
	SourceColumn string `yaml:"source_column,omitempty" validate:"omitempty,identifier"`
	TargetColumn string `yaml:"target_column,omitempty" validate:"omitempty,identifier"`
}

// IsRelation reports whether the field points at other records
func (f *FieldDescriptor) IsRelation() bool {
	return f.Kind == KindReference || f.Kind == KindCollection
}

// TypeDescriptor is a resolved source record type.
type TypeDescriptor struct {
	Name     string            `yaml:"name" validate:"required"`
	Table    string            `yaml:"table,omitempty" validate:"omitempty,identifier"`
	IDColumn string            `yaml:"id_column,omitempty" validate:"omitempty,identifier"`
	Fields   []FieldDescriptor `yaml:"fields,omitempty" validate:"dive"`
}

// Field looks up a field by name
func (t *TypeDescriptor) Field(name string) (*FieldDescriptor, bool) {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// Resolve fills in defaults for table, id column and field columns, and
// checks relation fields are complete.
func (t *TypeDescriptor) Resolve() error {
	if t.Name == "" {
		return fmt.Errorf("%w: type name is empty", ErrInvalidSchema)
	}
	if t.Table == "" {
		t.Table = strings.ToLower(t.Name)
	}
	if t.IDColumn == "" {
		t.IDColumn = "id"
	}

	seen := make(map[string]struct{}, len(t.Fields))
	for i := range t.Fields {
		f := &t.Fields[i]
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateField, t.Name, f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.Kind == "" {
			f.Kind = KindScalar
		}
		if f.Format == "" {
			f.Format = FormatAuto
		}

		switch f.Kind {
		case KindScalar:
			if f.Column == "" {
				f.Column = f.Name
			}
		case KindReference:
			if f.Target == "" {
				return fmt.Errorf("%w: reference %s.%s has no target", ErrInvalidSchema, t.Name, f.Name)
			}
			if f.Column == "" {
				f.Column = f.Name + "_id"
			}
		case KindCollection:
			if f.Target == "" {
				return fmt.Errorf("%w: collection %s.%s has no target", ErrInvalidSchema, t.Name, f.Name)
			}
			if f.Through == "" {
				f.Through = t.Table + "_" + f.Name
			}
			if f.SourceColumn == "" {
				f.SourceColumn = strings.ToLower(t.Name) + "_id"
			}
			if f.TargetColumn == "" {
				f.TargetColumn = strings.ToLower(f.Target) + "_id"
			}
		default:
			return fmt.Errorf("%w: field %s.%s has unknown kind %q", ErrInvalidSchema, t.Name, f.Name, f.Kind)
		}
	}
	return nil
}

// RenameRule copies attribute From to To, removing From when Delete is set.
type RenameRule struct {
	From   string `yaml:"from" validate:"required"`
	To     string `yaml:"to" validate:"required"`
	Delete bool   `yaml:"delete,omitempty"`
}

// Entry is the per-type configuration held by a Registry.
type Entry struct {
	Type             TypeDescriptor
	ExcludedFields   map[string]struct{}
	StaticAttributes map[string]graph.Value
	RenameRules      []RenameRule
	Filter           *Filter

	position int
}

// Position returns the entry's index in schema declaration order
func (e *Entry) Position() int {
	return e.position
}

// Excludes reports whether a field is excluded from the graph
func (e *Entry) Excludes(field string) bool {
	_, ok := e.ExcludedFields[field]
	return ok
}

// ApplyRenames runs the rename rules in declared order. A rule whose source
// key is absent is skipped. Delete removes the source key after the copy, so
// a rule renaming a key onto itself with Delete drops it.
func (e *Entry) ApplyRenames(attrs map[string]graph.Value) {
	for _, r := range e.RenameRules {
		v, ok := attrs[r.From]
		if !ok {
			continue
		}
		attrs[r.To] = v
		if r.Delete {
			delete(attrs, r.From)
		}
	}
}

// ApplyStatic merges static attributes, overwriting derived values.
func (e *Entry) ApplyStatic(attrs map[string]graph.Value) {
	for k, v := range e.StaticAttributes {
		attrs[k] = v
	}
}

// eachIdentifier calls fn for every SQL identifier a resolved descriptor
// splices into queries, including the defaulted ones.
func (t *TypeDescriptor) eachIdentifier(fn func(field, ident string)) {
	fn("table", t.Table)
	fn("id_column", t.IDColumn)
	for _, f := range t.Fields {
		if f.Kind == KindCollection {
			fn(f.Name+".through", f.Through)
			fn(f.Name+".source_column", f.SourceColumn)
			fn(f.Name+".target_column", f.TargetColumn)
			continue
		}
		fn(f.Name+".column", f.Column)
	}
}

// TypePair is an ordered pair of source type names
type TypePair struct {
	From string
	To   string
}

// SemanticMap maps ordered type pairs to relation labels
type SemanticMap map[TypePair]string

// Resolve looks up (from, to) and then (to, from). swapped is true when only
// the reversed pair is mapped, meaning the endpoints must be emitted reversed.
func (m SemanticMap) Resolve(from, to string) (label string, swapped bool, ok bool) {
	if label, ok := m[TypePair{From: from, To: to}]; ok {
		return label, false, true
	}
	if label, ok := m[TypePair{From: to, To: from}]; ok {
		return label, true, true
	}
	return "", false, false
}
