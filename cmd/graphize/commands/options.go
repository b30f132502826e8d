package commands

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/dd0wney/cluso-graphize/pkg/pipeline"
	"github.com/dd0wney/cluso-graphize/pkg/sink"
	"github.com/dd0wney/cluso-graphize/pkg/source"
	"github.com/dd0wney/cluso-graphize/pkg/validation"
)

// options holds the command line flags. Most fall back to an environment
// variable so secrets can stay out of shell history.
type options struct {
	schemaPath    string
	driver        string
	dsn           string
	workers       int
	remoteWorkers int
	encoding      string
	logLevel      string
	metricsFile   string
	tokenSecret   string
	apiKey        string
	s3Region      string
	s3Endpoint    string
	s3PathStyle   bool
	quiet         bool
}

var logLevels = []string{"DEBUG", "INFO", "WARN", "WARNING", "ERROR"}

func (o *options) bind(flags *pflag.FlagSet) {
	flags.StringVar(&o.schemaPath, "schema", envOr("GRAPHIZE_SCHEMA", "graphize.yaml"), "schema file [GRAPHIZE_SCHEMA]")
	flags.StringVar(&o.driver, "driver", envOr("GRAPHIZE_DRIVER", "postgres"), "database driver: "+strings.Join(source.Drivers, ", ")+" [GRAPHIZE_DRIVER]")
	flags.StringVar(&o.dsn, "dsn", os.Getenv("GRAPHIZE_DSN"), "database connection string [GRAPHIZE_DSN]")
	flags.IntVar(&o.workers, "workers", envInt("GRAPHIZE_WORKERS", pipeline.DefaultWorkers), "types enumerated concurrently")
	flags.IntVar(&o.remoteWorkers, "remote-workers", pipeline.DefaultRemoteWorkers, "concurrent relationship calls for neo4j output")
	flags.StringVar(&o.encoding, "encoding", "utf-8", "text encoding for pajek and sylva output")
	flags.StringVar(&o.logLevel, "log-level", envOr("LOG_LEVEL", "INFO"), "log level: debug, info, warn, error [LOG_LEVEL]")
	flags.StringVar(&o.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	flags.StringVar(&o.tokenSecret, "token-secret", os.Getenv("GRAPHIZE_TOKEN_SECRET"), "shared secret for bearer tokens to the graph server [GRAPHIZE_TOKEN_SECRET]")
	flags.StringVar(&o.apiKey, "api-key", os.Getenv("GRAPHIZE_API_KEY"), "API key for the graph server [GRAPHIZE_API_KEY]")
	flags.StringVar(&o.s3Region, "s3-region", os.Getenv("AWS_REGION"), "region for s3:// destinations [AWS_REGION]")
	flags.StringVar(&o.s3Endpoint, "s3-endpoint", os.Getenv("GRAPHIZE_S3_ENDPOINT"), "endpoint for S3-compatible stores [GRAPHIZE_S3_ENDPOINT]")
	flags.BoolVar(&o.s3PathStyle, "s3-path-style", false, "use path-style S3 addressing")
	flags.BoolVarP(&o.quiet, "quiet", "q", false, "do not print the run summary")
}

func (o *options) validate() error {
	return validation.NewConfigValidator("graphize").
		Required("schema", o.schemaPath).
		OneOf("driver", strings.ToLower(o.driver), source.Drivers).
		Required("dsn", o.dsn).
		RangeInt("workers", o.workers, 1, 1024).
		RangeInt("remote-workers", o.remoteWorkers, 1, 1024).
		OneOf("log-level", strings.ToUpper(o.logLevel), logLevels).
		Custom("encoding", func() error {
			_, err := sink.LookupEncoding(o.encoding)
			return err
		}).
		When(o.tokenSecret != "", func(cv *validation.ConfigValidator) {
			cv.Custom("token-secret", func() error {
				if len(o.tokenSecret) < 32 {
					return errors.New("must be at least 32 characters")
				}
				return nil
			})
		}).
		Validate()
}

func (o *options) sinkOptions() sink.Options {
	return sink.Options{
		Encoding: o.encoding,
		S3: sink.S3Options{
			Region:          o.s3Region,
			Endpoint:        o.s3Endpoint,
			AccessKeyID:     os.Getenv("GRAPHIZE_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("GRAPHIZE_S3_SECRET_ACCESS_KEY"),
			UsePathStyle:    o.s3PathStyle,
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
