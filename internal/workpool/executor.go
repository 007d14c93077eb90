package workpool

import (
	"context"
	"sync"
	"time"

	"github.com/abhisek/cognify/internal/logger"
)

// Executor runs detached fire-and-forget jobs on its own workers so they
// never compete with a Pool. Jobs run under a context independent of the
// submitting request. When the queue is full new jobs are dropped.
type Executor struct {
	jobs   chan job
	log    *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	inflight map[string]struct{}
}

type job struct {
	name    string
	key     string
	timeout time.Duration
	fn      func(context.Context) error
}

// NewExecutor starts workers background workers with a queue of queueSize
// pending jobs.
func NewExecutor(workers, queueSize int, log *logger.Logger) *Executor {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 32
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		jobs:     make(chan job, queueSize),
		log:      logger.OrNop(log).With("component", "executor"),
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]struct{}),
	}
	e.wg.Add(workers)
	for range workers {
		go e.processLoop()
	}
	return e
}

// Go enqueues fn without waiting. It reports false when the job was
// dropped because the queue is full or the executor is shut down.
func (e *Executor) Go(name string, timeout time.Duration, fn func(context.Context) error) bool {
	return e.enqueue(job{name: name, timeout: timeout, fn: fn})
}

// GoOnce is Go with deduplication: while a job with the same key is queued
// or running, further jobs with that key are dropped.
func (e *Executor) GoOnce(key, name string, timeout time.Duration, fn func(context.Context) error) bool {
	e.mu.Lock()
	if _, busy := e.inflight[key]; busy {
		e.mu.Unlock()
		return false
	}
	e.inflight[key] = struct{}{}
	e.mu.Unlock()

	if !e.enqueue(job{name: name, key: key, timeout: timeout, fn: fn}) {
		e.release(key)
		return false
	}
	return true
}

// InFlight reports whether a GoOnce job with key is queued or running.
func (e *Executor) InFlight(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.inflight[key]
	return ok
}

func (e *Executor) enqueue(j job) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	select {
	case e.jobs <- j:
		return true
	default:
		e.log.Warn("background queue full, dropping job", "job", j.name)
		return false
	}
}

func (e *Executor) release(key string) {
	if key == "" {
		return
	}
	e.mu.Lock()
	delete(e.inflight, key)
	e.mu.Unlock()
}

func (e *Executor) processLoop() {
	defer e.wg.Done()
	for j := range e.jobs {
		e.run(j)
	}
}

func (e *Executor) run(j job) {
	defer e.release(j.key)
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("background job panicked", "job", j.name, "panic", r)
		}
	}()

	ctx, cancel := withTimeout(e.ctx, j.timeout)
	defer cancel()
	start := time.Now()
	if err := j.fn(ctx); err != nil {
		e.log.Warn("background job failed", "job", j.name, "error", err, "elapsed", time.Since(start))
		return
	}
	e.log.Debug("background job done", "job", j.name, "elapsed", time.Since(start))
}

// Shutdown stops accepting jobs and waits for queued jobs to finish. When
// ctx expires first, running jobs are cancelled and Shutdown returns
// ctx.Err() after they exit.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.jobs)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		<-done
		return ctx.Err()
	}
}
