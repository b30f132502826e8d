package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client abstracts the S3 API operations used by S3.
// The s3.Client type satisfies this interface.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures access to S3 or an S3-compatible object store.
// Unset fields fall back to the default AWS configuration chain.
type S3Options struct {
	Region          string
	Endpoint        string // for MinIO, R2 and other compatible stores
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	// Client overrides the client built from the fields above
	Client S3Client
}

// S3 spools output to a local temporary file and uploads it with a single
// PutObject call on Commit. Nothing is uploaded on Abort.
type S3 struct {
	destination string
	bucket      string
	key         string
	client      S3Client
	spool       *os.File
	chain       *chain

	mu    sync.Mutex
	state state
}

// ParseS3URL splits s3://bucket/key into its bucket and key
func ParseS3URL(destination string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(destination, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q is not an s3:// URL", ErrInvalidDestination, destination)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("%w: %q needs a bucket and an object key", ErrInvalidDestination, destination)
	}
	return bucket, key, nil
}

// OpenS3 opens an S3 sink for an s3://bucket/key destination
func OpenS3(ctx context.Context, destination string, opts Options) (*S3, error) {
	bucket, key, err := ParseS3URL(destination)
	if err != nil {
		return nil, err
	}
	client := opts.S3.Client
	if client == nil {
		if client, err = newS3Client(ctx, opts.S3); err != nil {
			return nil, err
		}
	}

	spool, err := os.CreateTemp("", "graphize-*.s3spool")
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	c, err := newChain(spool, key, opts)
	if err != nil {
		spool.Close()
		os.Remove(spool.Name())
		return nil, err
	}
	return &S3{
		destination: destination,
		bucket:      bucket,
		key:         key,
		client:      client,
		spool:       spool,
		chain:       c,
	}, nil
}

func newS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	}), nil
}

// Write implements io.Writer
func (s *S3) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return s.chain.Write(p)
}

// Commit uploads the spooled output
func (s *S3) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	defer s.discard()

	if err := s.chain.flush(); err != nil {
		s.state = stateAborted
		return fmt.Errorf("flush %s: %w", s.destination, err)
	}
	if _, err := s.spool.Seek(0, io.SeekStart); err != nil {
		s.state = stateAborted
		return fmt.Errorf("rewind spool: %w", err)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          s.spool,
		ContentLength: aws.Int64(s.chain.counter.n),
	})
	if err != nil {
		s.state = stateAborted
		return fmt.Errorf("upload %s: %w", s.destination, err)
	}
	s.state = stateCommitted
	return nil
}

// Abort drops the spooled output
func (s *S3) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateOpen {
		return nil
	}
	s.state = stateAborted
	return s.discard()
}

func (s *S3) discard() error {
	s.spool.Close()
	if err := os.Remove(s.spool.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove spool file: %w", err)
	}
	return nil
}

func (s *S3) checkOpen() error {
	switch s.state {
	case stateCommitted:
		return ErrCommitted
	case stateAborted:
		return ErrAborted
	}
	return nil
}

// Written implements Sink
func (s *S3) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chain.counter.n
}

// Destination implements Sink
func (s *S3) Destination() string {
	return s.destination
}
