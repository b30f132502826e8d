package parallel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

// Task is a unit of work run by the pool
type Task func(ctx context.Context) error

// WorkerPool manages a pool of worker goroutines. The first task error
// cancels the pool context; tasks still queued at that point are skipped.
type WorkerPool struct {
	workers   int
	taskQueue chan Task
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // Protects taskQueue from concurrent close during send
	closed    bool         // Protected by mu

	errMu sync.Mutex
	errs  []error
}

var (
	// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
	ErrTooManyWorkers = errors.New("worker count exceeds maximum")
	// ErrTaskPanic wraps a panic recovered from a task.
	ErrTaskPanic = errors.New("task panicked")
)

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt / 2

// NewWorkerPool creates a new worker pool with specified number of workers.
// Returns an error if the worker count exceeds MaxWorkers.
func NewWorkerPool(ctx context.Context, workers int) (*WorkerPool, error) {
	if workers <= 0 {
		workers = 1
	}

	// Prevent overflow in buffer size calculation
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}

	ctx, cancel := context.WithCancel(ctx)
	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan Task, workers*2), // Buffer for 2x workers
		ctx:       ctx,
		cancel:    cancel,
	}

	pool.start()
	return pool, nil
}

// Workers returns the number of worker goroutines
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Context returns the pool context. It is cancelled by the first task
// error or by the parent context.
func (wp *WorkerPool) Context() context.Context {
	return wp.ctx
}

// start initializes the worker goroutines
func (wp *WorkerPool) start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// worker processes tasks from the queue
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		if wp.ctx.Err() != nil {
			continue // drain
		}
		if err := wp.run(task); err != nil {
			wp.fail(err)
		}
	}
}

// run executes a task, turning a panic into an error
func (wp *WorkerPool) run(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	return task(wp.ctx)
}

func (wp *WorkerPool) fail(err error) {
	wp.errMu.Lock()
	wp.errs = append(wp.errs, err)
	wp.errMu.Unlock()
	wp.cancel()
}

// Submit adds a task to the worker pool.
// Returns false if the pool is closed, true if task was submitted.
func (wp *WorkerPool) Submit(task Task) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}

	// Safe to send because we hold the lock and pool is not closed
	wp.taskQueue <- task
	return true
}

// Close shuts down the worker pool and waits for the workers to exit
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// Wait closes the pool, waits for all submitted tasks and returns the task
// errors joined together. If no task failed but the parent context was
// cancelled, the context error is returned.
func (wp *WorkerPool) Wait() error {
	wp.Close()
	defer wp.cancel()

	wp.errMu.Lock()
	defer wp.errMu.Unlock()
	if len(wp.errs) > 0 {
		return errors.Join(wp.errs...)
	}
	return context.Cause(wp.ctx)
}
