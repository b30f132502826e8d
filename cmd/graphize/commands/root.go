// Package commands implements the graphize command line.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-graphize/pkg/encoding"
	"github.com/dd0wney/cluso-graphize/pkg/logging"
	"github.com/dd0wney/cluso-graphize/pkg/metrics"
	"github.com/dd0wney/cluso-graphize/pkg/pipeline"
	"github.com/dd0wney/cluso-graphize/pkg/remote"
	"github.com/dd0wney/cluso-graphize/pkg/schema"
	"github.com/dd0wney/cluso-graphize/pkg/source"
)

// tokenTTL is the lifetime of bearer tokens minted for the graph server
const tokenTTL = 15 * time.Minute

// NewRootCommand builds the graphize command
func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "graphize OUTPUT_TYPE DESTINATION",
		Short: "Export relational data as a property graph",
		Long: `graphize reads the record types declared in a schema file from a
relational database and writes them as a graph.

OUTPUT_TYPE is one of:
  pajek  Pajek text network written to the DESTINATION file
  sylva  Sylva JSON document written to the DESTINATION file
  neo4j  nodes and relationships created on the graph server at DESTINATION

File destinations may be s3://bucket/key URLs. A .sz suffix compresses the
output with snappy.`,
		Example: `  graphize --schema graphize.yaml --dsn postgres://localhost/app pajek graph.net
  graphize --driver sqlite --dsn app.db sylva s3://exports/graph.json.sz
  GRAPHIZE_API_KEY=... graphize neo4j localhost:8080`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return cmd.Help()
			}
			return run(cmd, opts, args[0], args[1])
		},
	}
	opts.bind(cmd.Flags())
	return cmd
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func run(cmd *cobra.Command, opts *options, outputName, destination string) error {
	output, err := encoding.ParseOutputType(outputName)
	if err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	level := logging.ParseLevel(opts.logLevel)
	logger := logging.NewJSONLogger(cmd.ErrOrStderr(), level).
		With(logging.String("service", "graphize"))
	logging.SetDefaultLogger(logger)

	reg, err := schema.Load(opts.schemaPath)
	if err != nil {
		return err
	}
	src, err := source.Open(ctx, opts.driver, opts.dsn)
	if err != nil {
		return err
	}
	defer src.Close()
	if err := src.Describe(ctx, reg); err != nil {
		return err
	}

	remoteOpts, err := opts.remoteOptions()
	if err != nil {
		return err
	}

	m := metrics.NewRegistry()
	p, err := pipeline.New(pipeline.Config{
		Output:        output,
		Destination:   destination,
		Source:        src,
		Registry:      reg,
		Workers:       opts.workers,
		RemoteWorkers: opts.remoteWorkers,
		Sink:          opts.sinkOptions(),
		RemoteOptions: remoteOpts,
		Logger:        logger,
		Metrics:       m,
	})
	if err != nil {
		return err
	}

	report, runErr := p.Run(ctx)
	if opts.metricsFile != "" {
		if err := m.WriteTextfile(opts.metricsFile); err != nil {
			logger.Warn("metrics not written", logging.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}
	if !opts.quiet {
		fmt.Fprintln(cmd.OutOrStdout(), renderSummary(report))
	}
	return nil
}

func (o *options) remoteOptions() ([]remote.Option, error) {
	var out []remote.Option
	if o.tokenSecret != "" {
		tokens, err := remote.NewTokenSource(o.tokenSecret, "graphize", "graphize", tokenTTL)
		if err != nil {
			return nil, err
		}
		out = append(out, remote.WithTokenSource(tokens))
	}
	if o.apiKey != "" {
		out = append(out, remote.WithAPIKey(o.apiKey))
	}
	return out, nil
}
