package schema

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-graphize/pkg/graph"
	"github.com/dd0wney/cluso-graphize/pkg/validation"
)

// File is the on-disk schema document.
//
//	types:
//	  - name: Person
//	    table: people
//	    fields:
//	      - {name: name}
//	      - {name: employer, kind: reference, target: Company}
//	    exclude: [password]
//	    rename: [{from: name, to: label}]
//	    static: {type: person}
//	    filter: record.active == true
//	semantic_relationships:
//	  - {from: Person, to: Company, label: works_for}
type File struct {
	Types                 []TypeConfig     `yaml:"types" validate:"required,min=1,dive"`
	SemanticRelationships []SemanticConfig `yaml:"semantic_relationships" validate:"dive"`
}

// TypeConfig is one type in the schema document
type TypeConfig struct {
	TypeDescriptor `yaml:",inline"`

	Exclude []string       `yaml:"exclude,omitempty"`
	Static  map[string]any `yaml:"static,omitempty"`
	Rename  []RenameRule   `yaml:"rename,omitempty" validate:"dive"`
	Filter  string         `yaml:"filter,omitempty"`
}

// SemanticConfig maps an ordered type pair to a relation label
type SemanticConfig struct {
	From  string `yaml:"from" validate:"required"`
	To    string `yaml:"to" validate:"required"`
	Label string `yaml:"label" validate:"required"`
}

// Load reads and parses a schema file
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return reg, nil
}

// Parse decodes a schema document into a Registry
func Parse(data []byte) (*Registry, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return file.Registry()
}

// Validate checks the document before it is turned into a Registry
func (f *File) Validate() error {
	if err := validation.Struct(f); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	cv := validation.NewConfigValidator("schema")
	for _, t := range f.Types {
		for _, r := range t.Rename {
			cv.Custom(t.Name+".rename", func() error { return validation.ValidateAttributeKey(r.To) })
		}
		for k := range t.Static {
			cv.Custom(t.Name+".static", func() error { return validation.ValidateAttributeKey(k) })
		}
		if t.Filter != "" {
			cv.Custom(t.Name+".filter", func() error {
				_, err := CompileFilter(t.Filter)
				return err
			})
		}

		// Defaults derived from type and field names must be usable in SQL too
		td := t.TypeDescriptor
		td.Fields = append([]FieldDescriptor(nil), t.Fields...)
		if err := td.Resolve(); err != nil {
			cv.Custom(t.Name, func() error { return err })
			continue
		}
		td.eachIdentifier(func(field, ident string) {
			cv.Identifier(t.Name+"."+field, ident)
		})
	}
	if err := cv.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	return nil
}

// Registry converts the document into an immutable Registry
func (f *File) Registry() (*Registry, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(f.Types))
	for _, t := range f.Types {
		e := &Entry{
			Type:             t.TypeDescriptor,
			ExcludedFields:   make(map[string]struct{}, len(t.Exclude)),
			StaticAttributes: make(map[string]graph.Value, len(t.Static)),
			RenameRules:      t.Rename,
		}
		for _, name := range t.Exclude {
			e.ExcludedFields[name] = struct{}{}
		}
		for k, v := range t.Static {
			val := graph.FromAny(v)
			if val.IsNull() {
				return nil, fmt.Errorf("%w: %s.static.%s has unsupported value %v", ErrInvalidSchema, t.Name, k, v)
			}
			e.StaticAttributes[k] = val
		}
		if t.Filter != "" {
			filter, err := CompileFilter(t.Filter)
			if err != nil {
				return nil, err
			}
			e.Filter = filter
		}
		entries = append(entries, e)
	}

	semantic := make(SemanticMap, len(f.SemanticRelationships))
	for _, s := range f.SemanticRelationships {
		semantic[TypePair{From: s.From, To: s.To}] = s.Label
	}
	return NewRegistry(entries, semantic)
}
