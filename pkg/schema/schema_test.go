package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dd0wney/cluso-graphize/pkg/graph"
)

const testSchema = `
types:
  - name: Person
    table: people
    fields:
      - name: name
      - name: bio
      - name: password
      - name: employer
        kind: reference
        target: Company
      - name: tags
        kind: collection
        target: Tag
        through: person_tags
    exclude: [password]
    rename:
      - {from: name, to: label}
      - {from: bio, to: about, delete: true}
    static:
      type: person
      weight: 2
    filter: record.name != ""
  - name: Company
    fields:
      - name: name
      - name: hq
        format: wkt
  - name: Tag
semantic_relationships:
  - {from: Person, to: Company, label: works_for}
`

func TestParse(t *testing.T) {
	reg, err := Parse([]byte(testSchema))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	types := reg.Types()
	if len(types) != 3 {
		t.Fatalf("Types() = %d entries, want 3", len(types))
	}
	if types[0].Type.Name != "Person" || types[2].Type.Name != "Tag" {
		t.Errorf("declaration order not preserved")
	}

	person, ok := reg.Entry("Person")
	if !ok {
		t.Fatal("Person entry missing")
	}
	if !person.Excludes("password") || person.Excludes("name") {
		t.Error("exclusions not applied")
	}
	if person.Filter == nil {
		t.Error("filter not compiled")
	}
	if v := person.StaticAttributes["weight"]; v.String() != "2" {
		t.Errorf("static weight = %v", v)
	}

	employer, _ := person.Type.Field("employer")
	if employer.Column != "employer_id" {
		t.Errorf("reference column default = %q, want employer_id", employer.Column)
	}
	tags, _ := person.Type.Field("tags")
	if tags.SourceColumn != "person_id" || tags.TargetColumn != "tag_id" {
		t.Errorf("collection defaults = %q/%q", tags.SourceColumn, tags.TargetColumn)
	}

	company, _ := reg.Entry("Company")
	if company.Type.Table != "company" || company.Type.IDColumn != "id" {
		t.Errorf("type defaults = %q/%q", company.Type.Table, company.Type.IDColumn)
	}

	label, swapped, ok := reg.Semantic().Resolve("Company", "Person")
	if !ok || !swapped || label != "works_for" {
		t.Errorf("Resolve(reversed) = %q, %v, %v", label, swapped, ok)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", `types: []`},
		{"unknown key", "types:\n  - name: A\n    colour: red\n"},
		{"bad kind", "types:\n  - name: A\n    fields:\n      - {name: x, kind: many}\n"},
		{"reference without target", "types:\n  - name: A\n    fields:\n      - {name: x, kind: reference}\n"},
		{"duplicate type", "types:\n  - name: A\n  - name: A\n"},
		{"duplicate field", "types:\n  - name: A\n    fields:\n      - {name: x}\n      - {name: x}\n"},
		{"bad table", "types:\n  - name: A\n    table: 'a;b'\n"},
		{"type name unusable as table", "types:\n  - name: 'Data Point'\n"},
		{"field name unusable as column", "types:\n  - name: A\n    fields:\n      - {name: 'home address'}\n"},
		{"collection name unusable as join table", "types:\n  - name: A\n    fields:\n      - {name: 'x-y', kind: collection, target: A}\n"},
		{"bad filter", "types:\n  - name: A\n    filter: 'record.x +'\n"},
		{"semantic unknown type", "types:\n  - name: A\nsemantic_relationships:\n  - {from: A, to: B, label: x}\n"},
		{"rename without target", "types:\n  - name: A\n    rename:\n      - {from: x}\n"},
		{"nested static", "types:\n  - name: A\n    static:\n      x: {y: 1}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseExplicitColumnForAwkwardFieldName(t *testing.T) {
	doc := "types:\n  - name: 'Data Point'\n    table: data_point\n    fields:\n      - {name: 'home address', column: home_address}\n"
	reg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !reg.Includes("Data Point") {
		t.Error("type missing")
	}
}

func TestParseSemanticUnknownTypeIsErrUnknownType(t *testing.T) {
	_, err := Parse([]byte("types:\n  - name: A\nsemantic_relationships:\n  - {from: A, to: B, label: x}\n"))
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphize.yaml")
	if err := os.WriteFile(path, []byte(testSchema), 0644); err != nil {
		t.Fatal(err)
	}
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reg.Includes("Company") || reg.Includes("Invoice") {
		t.Error("Includes() mismatch")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadExampleSchema(t *testing.T) {
	reg, err := Load(filepath.Join("..", "..", "examples", "graphize.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	person, ok := reg.Entry("Person")
	if !ok {
		t.Fatal("Person not declared")
	}
	if !person.Excludes("password") || person.Filter == nil {
		t.Errorf("Person entry incomplete: %+v", person)
	}
	if label, _, ok := reg.Semantic().Resolve("Tag", "Person"); !ok || label != "tagged" {
		t.Errorf("Resolve(Tag, Person) = %q, %v", label, ok)
	}
}

func TestApplyRenames(t *testing.T) {
	e := &Entry{RenameRules: []RenameRule{
		{From: "name", To: "label"},
		{From: "bio", To: "about", Delete: true},
		{From: "missing", To: "other", Delete: true},
		{From: "label", To: "title", Delete: true},
	}}
	attrs := map[string]graph.Value{
		"name": graph.TextValue("Alice"),
		"bio":  graph.TextValue("hi"),
	}
	e.ApplyRenames(attrs)

	if _, ok := attrs["bio"]; ok {
		t.Error("bio should be deleted")
	}
	if attrs["about"].String() != "hi" {
		t.Error("about not copied")
	}
	if _, ok := attrs["other"]; ok {
		t.Error("rename of a missing key must be a no-op")
	}
	if _, ok := attrs["label"]; ok {
		t.Error("label should be moved to title by the later rule")
	}
	if attrs["title"].String() != "Alice" || attrs["name"].String() != "Alice" {
		t.Errorf("unexpected attrs: %v", attrs)
	}
}

func TestApplyRenamesOntoItselfWithDelete(t *testing.T) {
	e := &Entry{RenameRules: []RenameRule{{From: "name", To: "name", Delete: true}}}
	attrs := map[string]graph.Value{"name": graph.TextValue("Alice")}
	e.ApplyRenames(attrs)
	if len(attrs) != 0 {
		t.Errorf("copy then delete of the same key should leave nothing, got %v", attrs)
	}

	e = &Entry{RenameRules: []RenameRule{{From: "name", To: "name"}}}
	attrs = map[string]graph.Value{"name": graph.TextValue("Alice")}
	e.ApplyRenames(attrs)
	if attrs["name"].String() != "Alice" {
		t.Errorf("rename onto itself without delete should keep the key, got %v", attrs)
	}
}

func TestApplyStaticOverrides(t *testing.T) {
	e := &Entry{StaticAttributes: map[string]graph.Value{"type": graph.TextValue("person")}}
	attrs := map[string]graph.Value{"type": graph.TextValue("derived"), "name": graph.TextValue("A")}
	e.ApplyStatic(attrs)
	if attrs["type"].String() != "person" || attrs["name"].String() != "A" {
		t.Errorf("unexpected attrs after static merge: %v", attrs)
	}
}

func TestFilter(t *testing.T) {
	f, err := CompileFilter(`record.age >= 18 && record.active == true`)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := f.Match(map[string]any{"age": int64(30), "active": true})
	if err != nil || !ok {
		t.Errorf("Match(adult) = %v, %v", ok, err)
	}
	ok, err = f.Match(map[string]any{"age": int64(12), "active": true})
	if err != nil || ok {
		t.Errorf("Match(minor) = %v, %v", ok, err)
	}
	if _, err := f.Match(map[string]any{"active": true}); err == nil {
		t.Error("missing key should produce an evaluation error")
	}

	var nilFilter *Filter
	if ok, _ := nilFilter.Match(nil); !ok {
		t.Error("nil filter should match")
	}

	if _, err := CompileFilter(`"not a bool"`); err == nil {
		t.Error("non-boolean filter should not compile")
	}
}
