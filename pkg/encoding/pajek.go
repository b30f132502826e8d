package encoding

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/dd0wney/cluso-graphize/pkg/graph"
	"github.com/dd0wney/cluso-graphize/pkg/sanitize"
)

// PajekEncoder writes the Pajek text network format:
//
//	*Vertices 2
//	1 "Person1"
//	2 "Company1"
//	*Edges
//	1 2
//
// Vertex numbers follow the graph's node order, so unchanged input gives a
// byte-identical file.
type PajekEncoder struct {
	w io.Writer
}

// NewPajekEncoder creates an encoder writing to w
func NewPajekEncoder(w io.Writer) *PajekEncoder {
	return &PajekEncoder{w: w}
}

// Encode implements Encoder
func (e *PajekEncoder) Encode(ctx context.Context, g *graph.Graph) (*Summary, error) {
	bw := bufio.NewWriter(e.w)
	index := make(map[graph.NodeID]int, g.NodeCount())

	fmt.Fprintf(bw, "*Vertices %d\n", g.NodeCount())
	for i, n := range g.Nodes() {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		index[n.ID] = i + 1
		bw.WriteString(strconv.Itoa(i + 1))
		bw.WriteString(` "`)
		bw.WriteString(sanitize.SanitizeText(string(n.ID)))
		bw.WriteString("\"\n")
	}

	bw.WriteString("*Edges\n")
	for i, e := range g.Edges() {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fmt.Fprintf(bw, "%d %d\n", index[e.From], index[e.To])
	}

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("write pajek network: %w", err)
	}
	return &Summary{Nodes: g.NodeCount(), Edges: g.EdgeCount()}, nil
}
