package encoding

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-graphize/pkg/graph"
	"github.com/dd0wney/cluso-graphize/pkg/logging"
	"github.com/dd0wney/cluso-graphize/pkg/parallel"
	"github.com/dd0wney/cluso-graphize/pkg/remote"
)

// GraphClient is the remote bulk graph protocol
type GraphClient interface {
	CreateNode(ctx context.Context, labels []string, properties map[string]any) (remote.Handle, error)
	CreateRelationship(ctx context.Context, from, to remote.Handle, label string) error
}

// RemoteEncoder loads a graph into a graph server. Only nodes that are an
// endpoint of some edge are created. Each node carries its NodeID in an
// extra "id" property and its source type as label.
type RemoteEncoder struct {
	client  GraphClient
	workers int
	logger  logging.Logger
}

// NewRemoteEncoder creates an encoder that issues up to workers relationship
// calls at once.
func NewRemoteEncoder(client GraphClient, workers int, logger logging.Logger) *RemoteEncoder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RemoteEncoder{client: client, workers: workers, logger: logger}
}

// Encode implements Encoder.
//
// Node handles are created and cached by the calling goroutine only, as
// edges are walked in order. Relationship calls run on a worker pool once
// both handles are known.
func (e *RemoteEncoder) Encode(ctx context.Context, g *graph.Graph) (*Summary, error) {
	pool, err := parallel.NewWorkerPool(ctx, e.workers)
	if err != nil {
		return nil, err
	}
	// Node creation shares the pool context so that a failed relationship
	// call also stops the walk.
	ctx = pool.Context()
	handles := make(map[graph.NodeID]remote.Handle)

	handle := func(id graph.NodeID) (remote.Handle, error) {
		if h, ok := handles[id]; ok {
			return h, nil
		}
		n, ok := g.Node(id)
		if !ok {
			return 0, fmt.Errorf("%w: %s", graph.ErrUnknownNode, id)
		}
		props := n.PlainAttributes()
		props["id"] = string(n.ID)
		h, err := e.client.CreateNode(ctx, []string{n.Type}, props)
		if err != nil {
			return 0, fmt.Errorf("create node %s: %w", id, err)
		}
		handles[id] = h
		return h, nil
	}

	var createErr error
	submitted := 0
	for _, edge := range g.Edges() {
		if ctx.Err() != nil {
			break
		}
		from, err := handle(edge.From)
		if err != nil {
			createErr = err
			break
		}
		to, err := handle(edge.To)
		if err != nil {
			createErr = err
			break
		}
		label := edge.RelationOr(graph.DefaultRelation)
		if !pool.Submit(func(ctx context.Context) error {
			if err := e.client.CreateRelationship(ctx, from, to, label); err != nil {
				return fmt.Errorf("create relationship %s-[%s]->%s: %w", edge.From, label, edge.To, err)
			}
			return nil
		}) {
			break
		}
		submitted++
	}

	if err := errors.Join(createErr, pool.Wait()); err != nil {
		return nil, err
	}

	e.logger.Info("remote load complete",
		logging.Int("nodes", len(handles)),
		logging.Int("relationships", submitted))
	return &Summary{Nodes: len(handles), Edges: submitted}, nil
}
