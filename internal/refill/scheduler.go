package refill

import (
	"context"
	"sync"
	"time"
)

const scheduledKey = "refill:scheduled"

// Scheduler runs a refill pass on the executor every Interval.
type Scheduler struct {
	r    *Refiller
	done chan struct{}
	once sync.Once
	stop context.CancelFunc
}

// NewScheduler creates a scheduler for r. Call Start to begin ticking.
func NewScheduler(r *Refiller) *Scheduler {
	return &Scheduler{r: r, done: make(chan struct{})}
}

// Start begins ticking until ctx is done or Stop is called. Each tick
// queues one pass; a tick is skipped while the previous pass is running.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.stop = context.WithCancel(ctx)
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() bool {
	if s.r.deps.Executor == nil {
		return false
	}
	return s.r.deps.Executor.GoOnce(scheduledKey, "refill-pass", 0, func(ctx context.Context) error {
		_, err := s.r.RunOnce(ctx, TriggerScheduled)
		return err
	})
}

// Stop halts the ticker and waits for the loop to exit. Passes already
// queued finish on the executor.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		if s.stop == nil {
			close(s.done)
			return
		}
		s.stop()
		<-s.done
	})
}
