package documents

import (
	"context"
	"sync"
)

// Task is a cancellable background operation with a single result.
// Cancel is safe to call at any time, including after completion.
type Task[T any] struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result T
	err    error
}

func startTask[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()
		res, err := fn(ctx)
		t.mu.Lock()
		t.result, t.err = res, err
		t.mu.Unlock()
	}()
	return t
}

// Done is closed when the task finishes
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Cancel stops the task and any request it has in flight
func (t *Task[T]) Cancel() {
	t.cancel()
}

// Wait blocks until the task finishes or ctx is done
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome; only meaningful once Done is closed
func (t *Task[T]) Result() (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}
