// Package shutdownqueue provides a LIFO queue of cleanup tasks drained once
// at the end of main:
//
//	q := shutdownqueue.New()
//	defer func() {
//		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//		defer cancel()
//		_ = q.Shutdown(ctx)
//	}()
//
// Tasks run once, in reverse order of registration. Panics are recovered.
// Shutdown is idempotent and returns an aggregated error via errors.Join.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by TryAdd once shutdown has started.
var ErrClosed = errors.New("shutdown queue closed")

// Task is a shutdown function. It should honor ctx and return an error
// if it can't finish (or ctx is canceled).
type Task func(ctx context.Context) error

// Queue is safe for concurrent use. The zero value is ready to use.
type Queue struct {
	mu     sync.Mutex
	tasks  []Task
	closed bool
}

func New() *Queue {
	return &Queue{tasks: make([]Task, 0, 8)}
}

// Add registers a task to be run on Shutdown, in LIFO order.
// A nil task or a task added after shutdown started is dropped.
func (q *Queue) Add(t Task) {
	_ = q.TryAdd(t)
}

// TryAdd is Add that reports ErrClosed when shutdown has already started.
func (q *Queue) TryAdd(t Task) error {
	if t == nil {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	q.tasks = append(q.tasks, t)

	return nil
}

// Shutdown drains all registered tasks in LIFO order. Later calls are no-ops.
//
// If ctx is canceled or times out mid-drain, Shutdown stops early and returns
// the context error joined with any task errors so far.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()

		return nil
	}

	q.closed = true
	tasks := q.tasks
	q.tasks = nil

	q.mu.Unlock()

	var errs []error

	for i := len(tasks) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("shutdown canceled: %w", ctx.Err()))

			return errors.Join(errs...)
		default:
		}

		err := runTask(ctx, tasks[i])
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func runTask(ctx context.Context, t Task) (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("panic in shutdown task: %v", r)
		}
	}()

	return t(ctx)
}
