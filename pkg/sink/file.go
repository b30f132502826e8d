package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type state int

const (
	stateOpen state = iota
	stateCommitted
	stateAborted
)

// File writes to a temporary file next to the destination and renames it
// into place on Commit, so the destination never holds partial output.
type File struct {
	path  string
	tmp   *os.File
	chain *chain

	mu    sync.Mutex
	state state
}

// OpenFile opens a file sink for path
func OpenFile(path string, opts Options) (*File, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temporary file: %w", err)
	}
	c, err := newChain(tmp, path, opts)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	return &File{path: path, tmp: tmp, chain: c}, nil
}

// Write implements io.Writer
func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	return f.chain.Write(p)
}

// Commit flushes, syncs and renames the temporary file to the destination
func (f *File) Commit(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		f.discard()
		return err
	}

	err := errors.Join(f.chain.flush(), f.tmp.Sync(), f.tmp.Close())
	if err == nil {
		err = os.Rename(f.tmp.Name(), f.path)
	}
	if err != nil {
		os.Remove(f.tmp.Name())
		f.state = stateAborted
		return fmt.Errorf("commit %s: %w", f.path, err)
	}
	f.state = stateCommitted
	return nil
}

// Abort removes the temporary file
func (f *File) Abort() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != stateOpen {
		return nil
	}
	return f.discard()
}

func (f *File) discard() error {
	f.state = stateAborted
	f.tmp.Close()
	if err := os.Remove(f.tmp.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove temporary file: %w", err)
	}
	return nil
}

func (f *File) checkOpen() error {
	switch f.state {
	case stateCommitted:
		return ErrCommitted
	case stateAborted:
		return ErrAborted
	}
	return nil
}

// Written implements Sink
func (f *File) Written() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chain.counter.n
}

// Destination implements Sink
func (f *File) Destination() string {
	return f.path
}
