// Package scheduler triggers pipeline cycles on a wall-clock cadence with a
// single-flight guard: the orchestrator leaves overlapping-cycle behavior to
// its caller, and this is that caller.
package scheduler

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Scheduler fires a task either at fixed intervals or aligned to the top of
// the hour plus an offset (the offset lets the exchange finalize the bar
// before it is fetched).
type Scheduler struct {
	interval time.Duration // 0 = hourly aligned mode
	offset   time.Duration // used in aligned mode, e.g. 30s past the hour

	running atomic.Bool
	runs    atomic.Int64
	skips   atomic.Int64
}

// New creates a scheduler. interval 0 selects hourly aligned mode.
func New(interval, offset time.Duration) *Scheduler {
	return &Scheduler{interval: interval, offset: offset}
}

// Runs returns how many task executions were started.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// Skips returns how many triggers were skipped because a run was in flight.
func (s *Scheduler) Skips() int64 { return s.skips.Load() }

// next returns the next trigger time after now.
func (s *Scheduler) next(now time.Time) time.Time {
	if s.interval > 0 {
		return now.Add(s.interval)
	}
	top := now.Truncate(time.Hour).Add(s.offset)
	if !top.After(now) {
		top = top.Add(time.Hour)
	}
	return top
}

// Run blocks, invoking task at each trigger until ctx is cancelled. Triggers
// that arrive while a previous task is still running are skipped, not
// queued.
func (s *Scheduler) Run(ctx context.Context, task func(context.Context)) {
	for {
		wait := time.Until(s.next(time.Now()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if !s.running.CompareAndSwap(false, true) {
			s.skips.Add(1)
			log.Printf("[scheduler] previous cycle still running, skipping trigger")
			continue
		}
		s.runs.Add(1)
		go func() {
			defer s.running.Store(false)
			task(ctx)
		}()
	}
}

// RunOnceNow executes the task immediately with the single-flight guard,
// returning false if a run was already in flight.
func (s *Scheduler) RunOnceNow(ctx context.Context, task func(context.Context)) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.skips.Add(1)
		return false
	}
	s.runs.Add(1)
	defer s.running.Store(false)
	task(ctx)
	return true
}
