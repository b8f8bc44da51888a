// Package shutdown provides a LIFO queue of cleanup tasks drained once at
// process exit.
package shutdown

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// Task is a cleanup function. It should honor ctx.
type Task func(ctx context.Context) error

// Queue runs registered tasks in reverse order of registration.
type Queue struct {
	mu     sync.Mutex
	tasks  []Task
	closed bool
}

func NewQueue() *Queue {
	return &Queue{tasks: make([]Task, 0, 8)}
}

// Add registers a task. Nil tasks and tasks added after Shutdown started are dropped.
func (q *Queue) Add(t Task) {
	if t == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.tasks = append(q.tasks, t)
}

// AddCloser registers an io.Closer-style func.
func (q *Queue) AddCloser(name string, closeFn func() error) {
	if closeFn == nil {
		return
	}
	q.Add(func(context.Context) error {
		if err := closeFn(); err != nil {
			return fmt.Errorf("close %s: %w", name, err)
		}
		return nil
	})
}

// Shutdown drains all tasks in LIFO order. Later calls are no-ops.
// A canceled ctx stops the drain early; errors are aggregated.
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

	var errs error
	for i := len(tasks) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			return multierr.Append(errs, fmt.Errorf("shutdown canceled: %w", ctx.Err()))
		default:
		}
		errs = multierr.Append(errs, runTask(ctx, tasks[i]))
	}
	return errs
}

func runTask(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in shutdown task: %v", r)
		}
	}()
	return t(ctx)
}
