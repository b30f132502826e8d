// Package pipeline runs one export: it builds the graph from the data source
// and hands it to the encoder selected by the output type.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-graphize/pkg/builder"
	"github.com/dd0wney/cluso-graphize/pkg/encoding"
	"github.com/dd0wney/cluso-graphize/pkg/graph"
	"github.com/dd0wney/cluso-graphize/pkg/logging"
	"github.com/dd0wney/cluso-graphize/pkg/metrics"
	"github.com/dd0wney/cluso-graphize/pkg/remote"
	"github.com/dd0wney/cluso-graphize/pkg/schema"
	"github.com/dd0wney/cluso-graphize/pkg/sink"
	"github.com/dd0wney/cluso-graphize/pkg/source"
	"github.com/dd0wney/cluso-graphize/pkg/validation"
)

// Default worker counts
const (
	DefaultWorkers       = 4
	DefaultRemoteWorkers = 8
)

// Config holds everything a run needs
type Config struct {
	Output      encoding.OutputType
	Destination string // file path, s3:// URL or server address
	Source      source.Source
	Registry    *schema.Registry

	Workers       int // concurrent type enumerations
	RemoteWorkers int // concurrent relationship calls

	Sink          sink.Options
	RemoteOptions []remote.Option
	// Client replaces the HTTP client built from Destination for remote output
	Client encoding.GraphClient

	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Report describes a finished run
type Report struct {
	RunID       string
	Output      encoding.OutputType
	Destination string
	Records     map[string]int
	Filtered    map[string]int
	Nodes       int // nodes in the built graph
	Edges       int // edges in the built graph
	Written     encoding.Summary
	Dangling    int
	Bytes       int64
	Duration    time.Duration
}

// Pipeline wires a data source, the graph builder and an encoder
type Pipeline struct {
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry
}

// New validates cfg and creates a Pipeline
func New(cfg Config) (*Pipeline, error) {
	cfg.Workers = validation.DefaultOrInt(cfg.Workers, DefaultWorkers)
	cfg.RemoteWorkers = validation.DefaultOrInt(cfg.RemoteWorkers, DefaultRemoteWorkers)

	err := validation.NewConfigValidator("pipeline").
		Custom("output", func() error {
			if _, err := encoding.ParseOutputType(cfg.Output.String()); err != nil {
				return err
			}
			return nil
		}).
		Required("destination", cfg.Destination).
		Custom("source", func() error {
			if cfg.Source == nil {
				return errors.New("no data source")
			}
			return nil
		}).
		Custom("registry", func() error {
			if cfg.Registry == nil || len(cfg.Registry.Types()) == 0 {
				return errors.New("schema declares no types")
			}
			return nil
		}).
		RangeInt("workers", cfg.Workers, 1, 1024).
		RangeInt("remote_workers", cfg.RemoteWorkers, 1, 1024).
		Validate()
	if err != nil {
		return nil, err
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.DefaultRegistry()
	}
	return &Pipeline{
		cfg:     cfg,
		logger:  logging.OrDefault(cfg.Logger),
		metrics: m,
	}, nil
}

// Run performs the export. Output is only committed when every step
// succeeded; on failure file and object destinations are left untouched.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:       uuid.NewString(),
		Output:      p.cfg.Output,
		Destination: p.cfg.Destination,
	}
	logger := p.logger.With(
		logging.RunID(report.RunID),
		logging.Output(p.cfg.Output.String()),
		logging.Destination(p.cfg.Destination))
	logger.Info("export started", logging.Int("types", len(p.cfg.Registry.Types())))

	err := p.run(ctx, logger, report)
	report.Duration = time.Since(start)

	status := "success"
	if err != nil {
		status = "failure"
		logger.Error("export failed", logging.Error(err), logging.Latency(report.Duration))
	} else {
		logger.Info("export finished",
			logging.Int("nodes", report.Written.Nodes),
			logging.Int("edges", report.Written.Edges),
			logging.Int("dropped", report.Written.Dropped),
			logging.Latency(report.Duration))
	}
	p.metrics.RecordRun(p.cfg.Output.String(), status, report.Duration, report.Nodes, report.Edges)
	return report, err
}

func (p *Pipeline) run(ctx context.Context, logger logging.Logger, report *Report) error {
	b := builder.New(p.cfg.Source, p.cfg.Registry, builder.Options{
		Policy:  p.cfg.Output.Policy(),
		Workers: p.cfg.Workers,
		Logger:  logger,
		Metrics: p.metrics,
	})
	timer := logging.StartTimer(logger, "graph build", logging.Component("builder"))
	g, stats, err := b.Build(ctx)
	if err != nil {
		timer.EndError(err)
		return err
	}
	timer.End()
	report.Records = stats.Records
	report.Filtered = stats.Filtered
	report.Nodes = stats.Nodes
	report.Edges = stats.Edges
	report.Dangling = stats.Dangling

	if p.cfg.Output.Remote() {
		return p.encodeRemote(ctx, logger, g, report)
	}
	return p.encodeFile(ctx, logger, g, report)
}

func (p *Pipeline) encodeRemote(ctx context.Context, logger logging.Logger, g *graph.Graph, report *Report) error {
	client := p.cfg.Client
	if client == nil {
		opts := append([]remote.Option{remote.WithMetrics(p.metrics)}, p.cfg.RemoteOptions...)
		c, err := remote.NewClient(p.cfg.Destination, opts...)
		if err != nil {
			return err
		}
		client = c
	}

	timer := logging.StartTimer(logger, "graph encode", logging.Component("encoder"))
	summary, err := encoding.NewRemoteEncoder(client, p.cfg.RemoteWorkers, logger).Encode(ctx, g)
	if err != nil {
		timer.EndError(err)
		return fmt.Errorf("remote load: %w", err)
	}
	report.Written = *summary
	p.metrics.ObservePhase("encode", timer.End())
	return nil
}

func (p *Pipeline) encodeFile(ctx context.Context, logger logging.Logger, g *graph.Graph, report *Report) (err error) {
	out, err := sink.Open(ctx, p.cfg.Destination, p.cfg.Sink)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if abortErr := out.Abort(); abortErr != nil {
				logger.Warn("discarding partial output failed", logging.Error(abortErr))
			}
		}
	}()

	var enc encoding.Encoder
	switch p.cfg.Output {
	case encoding.OutputPajek:
		enc = encoding.NewPajekEncoder(out)
	case encoding.OutputSylva:
		enc = encoding.NewSylvaEncoder(out, p.cfg.Registry.Semantic(), logger, p.metrics)
	default:
		return fmt.Errorf("%w: %s", encoding.ErrUnknownOutputType, p.cfg.Output)
	}

	timer := logging.StartTimer(logger, "graph encode", logging.Component("encoder"))
	summary, err := enc.Encode(ctx, g)
	if err != nil {
		timer.EndError(err)
		return err
	}
	if err = out.Commit(ctx); err != nil {
		timer.EndError(err)
		return err
	}
	p.metrics.ObservePhase("encode", timer.End(logging.Int64("bytes", out.Written())))

	report.Written = *summary
	report.Bytes = out.Written()
	p.metrics.RecordBytesWritten(p.cfg.Output.String(), report.Bytes)
	return nil
}
