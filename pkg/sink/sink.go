// Package sink provides transactional output destinations: nothing is
// visible at the destination until Commit, and Abort discards everything
// written so far.
package sink

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/golang/snappy"
)

var (
	ErrAborted            = errors.New("sink aborted")
	ErrCommitted          = errors.New("sink already committed")
	ErrUnknownEncoding    = errors.New("unknown text encoding")
	ErrInvalidDestination = errors.New("invalid destination")
)

// SnappySuffix marks destinations written with snappy stream framing
const SnappySuffix = ".sz"

// Sink is an output destination
type Sink interface {
	io.Writer
	// Commit makes the output visible at the destination
	Commit(ctx context.Context) error
	// Abort discards the output. It is safe to call after Commit, where it
	// does nothing.
	Abort() error
	// Written returns the number of bytes stored, after encoding and compression
	Written() int64
	// Destination returns the destination the sink was opened for
	Destination() string
}

// Options configures how a sink encodes and stores output
type Options struct {
	// Encoding is the text encoding name, e.g. "utf-8" or "windows-1252".
	// Empty means utf-8.
	Encoding string
	// S3 configures s3:// destinations
	S3 S3Options
}

// Open opens a sink for destination: an s3://bucket/key URL or a local path.
// A destination ending in .sz is snappy compressed.
func Open(ctx context.Context, destination string, opts Options) (Sink, error) {
	if destination == "" {
		return nil, ErrInvalidDestination
	}
	if strings.HasPrefix(destination, "s3://") {
		return OpenS3(ctx, destination, opts)
	}
	return OpenFile(destination, opts)
}

// chain is the writer stack in front of the storage: text encoding, then
// optional compression, then a byte counter.
type chain struct {
	w       io.Writer
	closers []io.Closer // outermost first
	counter *countingWriter
}

func newChain(base io.Writer, destination string, opts Options) (*chain, error) {
	c := &chain{counter: &countingWriter{w: base}}
	c.w = c.counter

	if strings.HasSuffix(destination, SnappySuffix) {
		sw := snappy.NewBufferedWriter(c.w)
		c.w = sw
		c.closers = append([]io.Closer{sw}, c.closers...)
	}

	enc, err := NewEncodingWriter(c.w, opts.Encoding)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		c.w = enc
		c.closers = append([]io.Closer{enc}, c.closers...)
	}
	return c, nil
}

func (c *chain) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

// flush closes every layer so all buffered bytes reach the storage
func (c *chain) flush() error {
	var errs []error
	for _, cl := range c.closers {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
