// Package encoding writes a built graph out in one of the supported external
// representations.
package encoding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-graphize/pkg/graph"
	"github.com/dd0wney/cluso-graphize/pkg/sanitize"
)

// ErrUnknownOutputType is returned for an output type name that is not supported
var ErrUnknownOutputType = errors.New("unknown output type")

// OutputType selects an encoder
type OutputType int

const (
	OutputPajek OutputType = iota + 1 // text network file
	OutputSylva                       // JSON graph document
	OutputNeo4j                       // remote graph server
)

var outputNames = map[OutputType]string{
	OutputPajek: "pajek",
	OutputSylva: "sylva",
	OutputNeo4j: "neo4j",
}

// OutputTypes lists the accepted output type names
var OutputTypes = []string{"neo4j", "sylva", "pajek"}

// ParseOutputType parses an output type name, ignoring case
func ParseOutputType(name string) (OutputType, error) {
	for t, n := range outputNames {
		if strings.EqualFold(name, n) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownOutputType, name, strings.Join(OutputTypes, ", "))
}

func (t OutputType) String() string {
	if n, ok := outputNames[t]; ok {
		return n
	}
	return fmt.Sprintf("OutputType(%d)", int(t))
}

// Policy returns the sanitization the output type needs
func (t OutputType) Policy() sanitize.Policy {
	if t == OutputPajek {
		return sanitize.TextSafe
	}
	return sanitize.Structured
}

// Remote reports whether the output type writes to a server rather than a file
func (t OutputType) Remote() bool {
	return t == OutputNeo4j
}

// Summary describes what an Encode call wrote
type Summary struct {
	Nodes   int
	Edges   int
	Dropped int // edges left out of the output
}

// Encoder writes a graph. Encode makes a single pass over the nodes and then
// the edges, and never modifies the graph.
type Encoder interface {
	Encode(ctx context.Context, g *graph.Graph) (*Summary, error)
}

// ctxCheckInterval is how many items are written between context checks
const ctxCheckInterval = 1024
