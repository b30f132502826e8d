package encoding

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dd0wney/cluso-graphize/pkg/graph"
	"github.com/dd0wney/cluso-graphize/pkg/logging"
	"github.com/dd0wney/cluso-graphize/pkg/metrics"
	"github.com/dd0wney/cluso-graphize/pkg/schema"
)

// SylvaEncoder writes the JSON graph exchange document
//
//	{"nodes": [{attrs}, ...], "edges": [[{attrs}, {attrs}, "label"], ...]}
//
// Edge labels come from the semantic relationship map keyed by the endpoint
// node types. An edge whose type pair is mapped only in reverse is written
// with its endpoints swapped; an edge whose pair is not mapped at all is
// dropped with a warning.
type SylvaEncoder struct {
	w        io.Writer
	semantic schema.SemanticMap
	logger   logging.Logger
	metrics  *metrics.Registry
}

// NewSylvaEncoder creates an encoder writing to w. logger and m may be nil.
func NewSylvaEncoder(w io.Writer, semantic schema.SemanticMap, logger logging.Logger, m *metrics.Registry) *SylvaEncoder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SylvaEncoder{w: w, semantic: semantic, logger: logger, metrics: m}
}

// Encode implements Encoder
func (e *SylvaEncoder) Encode(ctx context.Context, g *graph.Graph) (*Summary, error) {
	bw := bufio.NewWriter(e.w)
	docs := make(map[graph.NodeID]json.RawMessage, g.NodeCount())
	summary := &Summary{Nodes: g.NodeCount()}

	bw.WriteString(`{"nodes": [`)
	for i, n := range g.Nodes() {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		doc, err := json.Marshal(n.Attributes)
		if err != nil {
			return nil, fmt.Errorf("encode node %s: %w", n.ID, err)
		}
		docs[n.ID] = doc
		if i > 0 {
			bw.WriteString(", ")
		}
		bw.Write(doc)
	}

	bw.WriteString(`], "edges": [`)
	unmapped := make(map[schema.TypePair]int)
	for i, edge := range g.Edges() {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fromType, err := g.TypeOf(edge.From)
		if err != nil {
			return nil, err
		}
		toType, err := g.TypeOf(edge.To)
		if err != nil {
			return nil, err
		}

		label, swapped, ok := e.semantic.Resolve(fromType, toType)
		if !ok {
			pair := schema.TypePair{From: fromType, To: toType}
			if unmapped[pair] == 0 {
				e.logger.Warn("unknown semantic relationship, dropping edge",
					logging.String("from_type", fromType),
					logging.String("to_type", toType))
			}
			unmapped[pair]++
			summary.Dropped++
			continue
		}

		a, b := edge.From, edge.To
		if swapped {
			a, b = b, a
		}
		labelDoc, err := json.Marshal(label)
		if err != nil {
			return nil, err
		}
		if summary.Edges > 0 {
			bw.WriteString(", ")
		}
		bw.WriteByte('[')
		bw.Write(docs[a])
		bw.WriteString(", ")
		bw.Write(docs[b])
		bw.WriteString(", ")
		bw.Write(labelDoc)
		bw.WriteByte(']')
		summary.Edges++
	}
	bw.WriteString("]}\n")

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("write sylva document: %w", err)
	}
	if e.metrics != nil {
		e.metrics.RecordDroppedEdges("unmapped", summary.Dropped)
	}
	if summary.Dropped > 0 {
		e.logger.Info("edges without a semantic relationship were dropped",
			logging.Count(summary.Dropped), logging.Int("pairs", len(unmapped)))
	}
	return summary, nil
}
