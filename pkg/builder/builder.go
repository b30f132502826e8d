// Package builder turns the records of a data source into a graph, following
// the types and rules held in a schema registry.
package builder

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-graphize/pkg/graph"
	"github.com/dd0wney/cluso-graphize/pkg/logging"
	"github.com/dd0wney/cluso-graphize/pkg/metrics"
	"github.com/dd0wney/cluso-graphize/pkg/sanitize"
	"github.com/dd0wney/cluso-graphize/pkg/schema"
	"github.com/dd0wney/cluso-graphize/pkg/source"
)

// Options configures a Builder
type Options struct {
	// Policy is the sanitization applied to scalar field values.
	Policy sanitize.Policy
	// Workers bounds how many types are enumerated at once. Zero means one
	// per CPU.
	Workers int
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Stats summarizes a build
type Stats struct {
	Records   map[string]int // records that produced a node, per type
	Filtered  map[string]int // records rejected by the type filter, per type
	Nodes     int
	Edges     int
	Dangling  int // edges whose target record was never enumerated
	Duplicate int // edges collapsed onto an already discovered pair
}

// Builder builds graphs from a source
type Builder struct {
	src     source.Source
	reg     *schema.Registry
	policy  sanitize.Policy
	workers int
	logger  logging.Logger
	metrics *metrics.Registry
}

// pendingEdge is a relation discovered during the node phase and resolved
// once every node exists.
type pendingEdge struct {
	edge graph.Edge
	kind schema.FieldKind
}

// typeResult is what one type's enumeration hands to the edge phase
type typeResult struct {
	records  int
	filtered int
	edges    []pendingEdge
}

// New creates a Builder
func New(src source.Source, reg *schema.Registry, opts Options) *Builder {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewRegistry()
	}
	return &Builder{
		src:     src,
		reg:     reg,
		policy:  opts.Policy,
		workers: workers,
		logger:  logging.OrDefault(opts.Logger).With(logging.Component("builder")),
		metrics: m,
	}
}

// Build enumerates every included type and returns the completed graph.
//
// Nodes are created first, one goroutine per type. Edges are resolved after
// all enumeration has finished, in schema order, so that both endpoints of
// every edge are known. A data source failure aborts the build.
func (b *Builder) Build(ctx context.Context) (*graph.Graph, *Stats, error) {
	arena := graph.NewNodeArena()
	entries := b.reg.Types()
	results := make([]typeResult, len(entries))

	start := time.Now()
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(b.workers)
	for i, entry := range entries {
		i, entry := i, entry
		eg.Go(func() error {
			res, err := b.buildNodes(ctx, arena, entry)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	b.metrics.ObservePhase("nodes", time.Since(start))

	start = time.Now()
	stats := &Stats{
		Records:  make(map[string]int, len(entries)),
		Filtered: make(map[string]int, len(entries)),
	}
	edges := graph.NewEdgeSet()
	byKind := make(map[schema.FieldKind]int)
	for i, entry := range entries {
		res := results[i]
		stats.Records[entry.Type.Name] = res.records
		stats.Filtered[entry.Type.Name] = res.filtered
		b.metrics.RecordNodes(entry.Type.Name, res.records, res.filtered)

		for _, p := range res.edges {
			if !arena.Contains(p.edge.To) {
				stats.Dangling++
				b.logger.Debug("dropping edge to missing node",
					logging.NodeID(string(p.edge.From)),
					logging.String("target", string(p.edge.To)),
					logging.Relation(p.edge.Label))
				continue
			}
			if !edges.Add(p.edge) {
				stats.Duplicate++
				continue
			}
			byKind[p.kind]++
		}
	}
	for kind, n := range byKind {
		b.metrics.RecordEdges(string(kind), n)
	}
	b.metrics.RecordDroppedEdges("dangling", stats.Dangling)
	b.metrics.RecordDroppedEdges("duplicate", stats.Duplicate)

	g, err := arena.Freeze(edges)
	if err != nil {
		return nil, nil, err
	}
	b.metrics.ObservePhase("edges", time.Since(start))

	stats.Nodes = g.NodeCount()
	stats.Edges = g.EdgeCount()
	b.logger.Info("graph built",
		logging.Int("nodes", stats.Nodes),
		logging.Int("edges", stats.Edges),
		logging.Int("dangling", stats.Dangling))
	return g, stats, nil
}

// buildNodes enumerates one type, creating its nodes and collecting the
// edges its relation fields point at.
func (b *Builder) buildNodes(ctx context.Context, arena *graph.NodeArena, entry *schema.Entry) (typeResult, error) {
	var res typeResult
	typeName := entry.Type.Name
	seq := 0

	err := b.src.Records(ctx, &entry.Type, func(rec source.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := entry.Filter.Match(rec.Scalars())
		if err != nil {
			return graph.NewError("filter").Type(typeName).Record(rec.ID).Cause(err).Err()
		}
		if !ok {
			res.filtered++
			return nil
		}

		id := graph.NewNodeID(typeName, rec.ID)
		attrs := make(map[string]graph.Value, len(rec.Fields))
		for _, f := range rec.Fields {
			if entry.Excludes(f.Name) {
				continue
			}
			switch f.Kind {
			case schema.KindReference, schema.KindCollection:
				for _, ref := range f.Refs {
					if !b.reg.Includes(ref.Type) {
						continue
					}
					res.edges = append(res.edges, pendingEdge{
						edge: graph.Edge{From: id, To: graph.NewNodeID(ref.Type, ref.ID), Label: f.Name},
						kind: f.Kind,
					})
				}
			default:
				if v := sanitize.Sanitize(f.Value, b.policy); !v.IsEmpty() {
					attrs[f.Name] = v
				}
			}
		}

		arena.Upsert(id, typeName, graph.Order{Type: entry.Position(), Seq: seq}, func(n *graph.Node) {
			for k, v := range attrs {
				n.Attributes[k] = v
			}
			entry.ApplyRenames(n.Attributes)
			entry.ApplyStatic(n.Attributes)
		})
		seq++
		res.records++
		return nil
	})
	if err != nil {
		var buildErr *graph.BuildError
		if errors.As(err, &buildErr) {
			return res, err
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, graph.SourceError(typeName, err)
	}

	b.logger.Debug("type enumerated", logging.Type(typeName), logging.Count(res.records),
		logging.Int("filtered", res.filtered))
	return res, nil
}
