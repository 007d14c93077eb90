// Package workpool runs blocking external calls on a fixed set of workers
// and detached background work on a separate executor.
package workpool

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("workpool: closed")

// Pool is a fixed-size worker pool. Tasks run on the pool must not submit
// further tasks to the same pool.
type Pool struct {
	tasks chan func()
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once

	// mu is held for reading across every enqueue. Close takes it for
	// writing, so no send can land after the final drain.
	mu     sync.RWMutex
	closed bool
}

// New starts a pool with the given number of workers. workers < 1 means 1.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		tasks: make(chan func(), workers*4),
		quit:  make(chan struct{}),
	}
	p.wg.Add(workers)
	for range workers {
		go p.loop()
	}
	return p
}

func (p *Pool) loop() {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.tasks:
			task()
		case <-p.quit:
			// Drain what was accepted before Close.
			for {
				select {
				case task := <-p.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}

// Close stops accepting work, runs queued tasks and waits for the workers.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.quit) })
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
	// A Submit racing Close may enqueue after the workers exit.
	for {
		select {
		case task := <-p.tasks:
			task()
		default:
			return
		}
	}
}

// Future is the pending result of a submitted task.
type Future[T any] struct {
	ctx  context.Context
	done chan struct{}
	val  T
	err  error
}

func (f *Future[T]) complete(v T, err error) {
	f.val, f.err = v, err
	close(f.done)
}

// Wait blocks until the task finishes, its timeout elapses or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-f.done:
		return f.val, f.err
	case <-f.ctx.Done():
		select {
		case <-f.done:
			return f.val, f.err
		default:
		}
		return zero, f.ctx.Err()
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Submit queues fn on p. fn receives a context bounded by timeout when
// timeout > 0. A task whose context expires while queued is not run.
// Submit blocks only while the queue is full.
func Submit[T any](ctx context.Context, p *Pool, timeout time.Duration, fn func(context.Context) (T, error)) *Future[T] {
	taskCtx, cancel := withTimeout(ctx, timeout)
	f := &Future[T]{ctx: taskCtx, done: make(chan struct{})}
	var zero T

	task := func() {
		defer cancel()
		if err := taskCtx.Err(); err != nil {
			f.complete(zero, err)
			return
		}
		f.complete(fn(taskCtx))
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		cancel()
		f.complete(zero, ErrClosed)
		return f
	}

	select {
	case p.tasks <- task:
	case <-taskCtx.Done():
		err := taskCtx.Err()
		cancel()
		f.complete(zero, err)
	case <-p.quit:
		cancel()
		f.complete(zero, ErrClosed)
	}
	return f
}

// Do submits fn and waits for it. A nil pool runs fn on the calling
// goroutine under the same timeout.
func Do[T any](ctx context.Context, p *Pool, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if p == nil {
		taskCtx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		if err := taskCtx.Err(); err != nil {
			var zero T
			return zero, err
		}
		return fn(taskCtx)
	}
	return Submit(ctx, p, timeout, fn).Wait(ctx)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
