package builder

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-graphize/pkg/graph"
	"github.com/dd0wney/cluso-graphize/pkg/logging"
	"github.com/dd0wney/cluso-graphize/pkg/sanitize"
	"github.com/dd0wney/cluso-graphize/pkg/schema"
	"github.com/dd0wney/cluso-graphize/pkg/source"
)

func registry(t testing.TB, entries ...*schema.Entry) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(entries, nil)
	require.NoError(t, err)
	return reg
}

func build(t testing.TB, src source.Source, reg *schema.Registry) (*graph.Graph, *Stats) {
	t.Helper()
	g, stats, err := New(src, reg, Options{Policy: sanitize.Structured, Workers: 4, Logger: logging.NewNopLogger()}).
		Build(context.Background())
	require.NoError(t, err)
	return g, stats
}

func attrs(t testing.TB, g *graph.Graph, id graph.NodeID) map[string]any {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok, "node %s missing", id)
	return n.PlainAttributes()
}

func TestBuildWorkedExample(t *testing.T) {
	src := source.NewMemory().
		Add("Person", source.NewRecord("1").Scalar("name", "Alice").Reference("employer", "Company", "1")).
		Add("Company", source.NewRecord("1").Scalar("name", "Acme"))
	reg := registry(t,
		&schema.Entry{Type: schema.TypeDescriptor{Name: "Person"}},
		&schema.Entry{Type: schema.TypeDescriptor{Name: "Company"}},
	)

	g, stats := build(t, src, reg)

	require.Equal(t, 2, g.NodeCount())
	assert.Equal(t, map[string]any{"name": "Alice"}, attrs(t, g, "Person1"))
	assert.Equal(t, map[string]any{"name": "Acme"}, attrs(t, g, "Company1"))
	assert.Equal(t, []graph.Edge{{From: "Person1", To: "Company1", Label: "employer"}}, g.Edges())

	// Schema order, then enumeration order
	assert.Equal(t, graph.NodeID("Person1"), g.Nodes()[0].ID)
	assert.Equal(t, "Company", g.Nodes()[1].Type)
	assert.Equal(t, 1, stats.Records["Person"])
	assert.Equal(t, 1, stats.Edges)
}

func TestBuildSkipsUnknownAndExcluded(t *testing.T) {
	src := source.NewMemory().
		Add("Person", source.NewRecord("1").
			Scalar("name", "Alice").
			Scalar("password", "hunter2").
			Scalar("bio", "").
			Reference("country", "Country", "NZ").
			Reference("employer", "Company", "1")).
		Add("Company", source.NewRecord("1"))
	reg := registry(t,
		&schema.Entry{
			Type:           schema.TypeDescriptor{Name: "Person"},
			ExcludedFields: map[string]struct{}{"password": {}, "employer": {}},
		},
		&schema.Entry{Type: schema.TypeDescriptor{Name: "Company"}},
	)

	g, _ := build(t, src, reg)

	assert.Equal(t, map[string]any{"name": "Alice"}, attrs(t, g, "Person1"))
	assert.Empty(t, g.Edges(), "excluded and unknown references must not produce edges")
	assert.Equal(t, 2, g.NodeCount(), "unknown reference targets must not produce nodes")
	assert.Empty(t, attrs(t, g, "Company1"))
}

func TestBuildExcludedCollectionHasNoEdges(t *testing.T) {
	src := source.NewMemory().
		Add("Person", source.NewRecord("1").
			Collection("tags", "Tag", "a").
			Collection("follows", "Tag", "b")).
		Add("Tag", source.NewRecord("a"), source.NewRecord("b"))
	reg := registry(t,
		&schema.Entry{
			Type:           schema.TypeDescriptor{Name: "Person"},
			ExcludedFields: map[string]struct{}{"tags": {}},
		},
		&schema.Entry{Type: schema.TypeDescriptor{Name: "Tag"}},
	)

	g, _ := build(t, src, reg)

	assert.Equal(t, []graph.Edge{{From: "Person1", To: "Tagb", Label: "follows"}}, g.Edges())
	assert.Equal(t, 3, g.NodeCount(), "the excluded collection's targets are still nodes of their own type")
}

func TestBuildRenameThenStatic(t *testing.T) {
	src := source.NewMemory().
		Add("Person", source.NewRecord("7").Scalar("name", "Alice").Scalar("kind", "employee"))
	reg := registry(t, &schema.Entry{
		Type: schema.TypeDescriptor{Name: "Person"},
		RenameRules: []schema.RenameRule{
			{From: "name", To: "label", Delete: true},
			{From: "kind", To: "type"},
			{From: "missing", To: "nothing", Delete: true},
		},
		StaticAttributes: map[string]graph.Value{"type": graph.TextValue("person")},
	})

	g, _ := build(t, src, reg)

	assert.Equal(t, map[string]any{
		"label": "Alice",
		"kind":  "employee",
		"type":  "person",
	}, attrs(t, g, "Person7"))
}

func TestBuildCollectionsAndDuplicates(t *testing.T) {
	src := source.NewMemory().
		Add("Person", source.NewRecord("1").Collection("tags", "Tag", "a", "b", "zz")).
		Add("Tag",
			source.NewRecord("a").Collection("people", "Person", "1"),
			source.NewRecord("b"))
	reg := registry(t,
		&schema.Entry{Type: schema.TypeDescriptor{Name: "Person"}},
		&schema.Entry{Type: schema.TypeDescriptor{Name: "Tag"}},
	)

	g, stats := build(t, src, reg)

	assert.Equal(t, []graph.Edge{
		{From: "Person1", To: "Taga", Label: "people"},
		{From: "Person1", To: "Tagb", Label: "tags"},
	}, g.Edges())
	assert.Equal(t, 1, stats.Dangling, "Tagzz was never enumerated")
	assert.Equal(t, 1, stats.Duplicate, "Taga->Person1 collapses onto Person1->Taga")
}

func TestBuildTwoWayReferenceTakesLaterLabel(t *testing.T) {
	src := source.NewMemory().
		Add("Person", source.NewRecord("1").Reference("employer", "Company", "1")).
		Add("Company", source.NewRecord("1").Reference("ceo", "Person", "1"))
	reg := registry(t,
		&schema.Entry{Type: schema.TypeDescriptor{Name: "Person"}},
		&schema.Entry{Type: schema.TypeDescriptor{Name: "Company"}},
	)

	g, stats := build(t, src, reg)

	assert.Equal(t, []graph.Edge{{From: "Person1", To: "Company1", Label: "ceo"}}, g.Edges(),
		"endpoints from the first discovery, label from the last")
	assert.Equal(t, 1, stats.Edges)
	assert.Equal(t, 1, stats.Duplicate)
}

func TestBuildFilter(t *testing.T) {
	filter, err := schema.CompileFilter(`record.active == true`)
	require.NoError(t, err)

	src := source.NewMemory().
		Add("Person",
			source.NewRecord("1").Scalar("active", true).Reference("employer", "Company", "1"),
			source.NewRecord("2").Scalar("active", false).Reference("employer", "Company", "1")).
		Add("Company", source.NewRecord("1").Reference("ceo", "Person", "2"))
	reg := registry(t,
		&schema.Entry{Type: schema.TypeDescriptor{Name: "Person"}, Filter: filter},
		&schema.Entry{Type: schema.TypeDescriptor{Name: "Company"}},
	)

	g, stats := build(t, src, reg)

	_, ok := g.Node("Person2")
	assert.False(t, ok, "filtered record must not become a node")
	assert.Equal(t, 1, stats.Filtered["Person"])
	assert.Equal(t, 1, stats.Dangling, "edge to the filtered record is dropped")
	assert.Len(t, g.Edges(), 1)
}

func TestBuildFilterErrorIsFatal(t *testing.T) {
	filter, err := schema.CompileFilter(`record.age > 18`)
	require.NoError(t, err)

	src := source.NewMemory().Add("Person", source.NewRecord("1").Scalar("name", "Alice"))
	reg := registry(t, &schema.Entry{Type: schema.TypeDescriptor{Name: "Person"}, Filter: filter})

	_, _, err = New(src, reg, Options{Logger: logging.NewNopLogger()}).Build(context.Background())

	var buildErr *graph.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "filter", buildErr.Op)
	assert.Equal(t, "1", buildErr.RecordID)
	assert.False(t, graph.IsSourceFailure(err))
}

func TestBuildSourceFailure(t *testing.T) {
	boom := errors.New("connection refused")
	src := source.NewMemory().
		Add("Company", source.NewRecord("1")).
		FailWith("Person", boom)
	reg := registry(t,
		&schema.Entry{Type: schema.TypeDescriptor{Name: "Company"}},
		&schema.Entry{Type: schema.TypeDescriptor{Name: "Person"}},
	)

	g, stats, err := New(src, reg, Options{Logger: logging.NewNopLogger()}).Build(context.Background())

	require.Error(t, err)
	assert.True(t, graph.IsSourceFailure(err))
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, g)
	assert.Nil(t, stats)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := source.NewMemory().Add("Person", source.NewRecord("1"))
	reg := registry(t, &schema.Entry{Type: schema.TypeDescriptor{Name: "Person"}})

	_, _, err := New(src, reg, Options{Logger: logging.NewNopLogger()}).Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildTextSafePolicy(t *testing.T) {
	src := source.NewMemory().Add("Note", source.NewRecord("1").Scalar("body", "say \"hi\"\r\nbye"))
	reg := registry(t, &schema.Entry{Type: schema.TypeDescriptor{Name: "Note"}})

	g, _, err := New(src, reg, Options{Policy: sanitize.TextSafe, Logger: logging.NewNopLogger()}).
		Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "say 'hi' bye", attrs(t, g, "Note1")["body"])
}

func TestBuildProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	reg := registry(t,
		&schema.Entry{
			Type:             schema.TypeDescriptor{Name: "Person"},
			RenameRules:      []schema.RenameRule{{From: "name", To: "label"}},
			StaticAttributes: map[string]graph.Value{"label": graph.TextValue("person")},
		},
		&schema.Entry{Type: schema.TypeDescriptor{Name: "Company"}},
	)

	people := func(employers []int, companies int) *source.Memory {
		mem := source.NewMemory()
		for i, target := range employers {
			mem.Add("Person", source.NewRecord(strconv.Itoa(i)).
				Scalar("name", "p"+strconv.Itoa(i)).
				Reference("employer", "Company", strconv.Itoa(target)))
		}
		for i := 0; i < companies; i++ {
			mem.Add("Company", source.NewRecord(strconv.Itoa(i)))
		}
		return mem
	}

	properties.Property("every edge endpoint is a node", prop.ForAll(
		func(employers []int, companies int) bool {
			g, stats := build(t, people(employers, companies), reg)
			for _, e := range g.Edges() {
				if _, ok := g.Node(e.From); !ok {
					return false
				}
				if _, ok := g.Node(e.To); !ok {
					return false
				}
			}
			return g.EdgeCount()+stats.Dangling == len(employers)
		},
		gen.SliceOf(gen.IntRange(0, 30)),
		gen.IntRange(0, 20),
	))

	properties.Property("node ids and order are stable across builds", prop.ForAll(
		func(employers []int, companies int) bool {
			first, _ := build(t, people(employers, companies), reg)
			second, _ := build(t, people(employers, companies), reg)
			if first.NodeCount() != second.NodeCount() {
				return false
			}
			for i, n := range first.Nodes() {
				if second.Nodes()[i].ID != n.ID {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 10)),
		gen.IntRange(0, 10),
	))

	properties.Property("static attributes override renamed fields", prop.ForAll(
		func(employers []int) bool {
			g, _ := build(t, people(employers, 0), reg)
			for _, n := range g.Nodes() {
				if n.Type != "Person" {
					continue
				}
				if n.Attributes["label"].String() != "person" {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 5)),
	))

	properties.TestingRun(t)
}
