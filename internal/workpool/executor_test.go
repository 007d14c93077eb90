package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutor_RunsJobs(t *testing.T) {
	e := NewExecutor(2, 8, nil)
	var n atomic.Int32
	for range 5 {
		if !e.Go("count", time.Second, func(ctx context.Context) error {
			n.Add(1)
			return nil
		}) {
			t.Fatal("job dropped")
		}
	}
	if err := e.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n.Load() != 5 {
		t.Errorf("ran %d jobs, want 5", n.Load())
	}
}

func TestExecutor_JobContextIsDetached(t *testing.T) {
	e := NewExecutor(1, 1, nil)
	errc := make(chan error, 1)
	e.Go("detached", time.Second, func(ctx context.Context) error {
		errc <- ctx.Err()
		return nil
	})
	if err := <-errc; err != nil {
		t.Errorf("job ctx err = %v, want nil", err)
	}
	e.Shutdown(context.Background())
}

func TestExecutor_GoOnceDedups(t *testing.T) {
	e := NewExecutor(1, 4, nil)
	release := make(chan struct{})
	started := make(chan struct{})

	ok := e.GoOnce("refill:limits", "refill", time.Second, func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	if !ok {
		t.Fatal("first GoOnce dropped")
	}
	<-started
	if e.GoOnce("refill:limits", "refill", time.Second, func(ctx context.Context) error { return nil }) {
		t.Error("duplicate GoOnce should be dropped")
	}
	if !e.InFlight("refill:limits") {
		t.Error("key should be in flight")
	}
	close(release)
	if err := e.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if e.InFlight("refill:limits") {
		t.Error("key should be released")
	}
}

func TestExecutor_DropsWhenFull(t *testing.T) {
	e := NewExecutor(1, 1, nil)
	release := make(chan struct{})
	started := make(chan struct{})
	e.Go("block", time.Second, func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started
	if !e.Go("queued", time.Second, func(ctx context.Context) error { return nil }) {
		t.Fatal("second job should fit in queue")
	}
	if e.Go("dropped", time.Second, func(ctx context.Context) error { return nil }) {
		t.Error("third job should be dropped")
	}
	close(release)
	e.Shutdown(context.Background())
}

func TestExecutor_ShutdownCancelsOnDeadline(t *testing.T) {
	e := NewExecutor(1, 1, nil)
	started := make(chan struct{})
	e.Go("slow", 0, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if e.Go("late", 0, func(ctx context.Context) error { return nil }) {
		t.Error("Go after Shutdown should report false")
	}
}

func TestExecutor_RecoversPanics(t *testing.T) {
	e := NewExecutor(1, 2, nil)
	e.Go("panics", time.Second, func(ctx context.Context) error { panic("boom") })
	done := make(chan struct{})
	e.Go("after", time.Second, func(ctx context.Context) error {
		close(done)
		return nil
	})
	<-done
	e.Shutdown(context.Background())
}
