package poller

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the auto-detection period.
const DefaultInterval = 3 * time.Second

// Task is a periodic job that can be started and stopped repeatedly. Stopping cancels the
// context handed to an in-flight run.
type Task struct {
	scheduler Scheduler
	interval  time.Duration
	run       func(ctx context.Context)

	mu         sync.Mutex
	unschedule func()
	cancel     context.CancelFunc
}

func NewTask(scheduler Scheduler, interval time.Duration, run func(ctx context.Context)) *Task {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Task{scheduler: scheduler, interval: interval, run: run}
}

// Start schedules the task. It is a no-op when already running.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unschedule != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.unschedule = t.scheduler.Every(t.interval, func() {
		if ctx.Err() != nil {
			return
		}
		t.run(ctx)
	})
}

// Stop unschedules the task and cancels any in-flight run. Safe to call when stopped.
func (t *Task) Stop() {
	t.mu.Lock()
	unschedule, cancel := t.unschedule, t.cancel
	t.unschedule, t.cancel = nil, nil
	t.mu.Unlock()

	if unschedule != nil {
		unschedule()
	}
	if cancel != nil {
		cancel()
	}
}

func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unschedule != nil
}

func (t *Task) Interval() time.Duration {
	return t.interval
}
