// Package poller runs periodic work as an explicit, cancellable task.
package poller

import (
	"sort"
	"sync"
	"time"

	"temporalos-be/internal/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler registers a job to run every interval. The returned func unregisters it.
type Scheduler interface {
	Every(interval time.Duration, job func()) (cancel func())
}

// CronScheduler runs jobs on a robfig/cron instance. A job still running when its next
// tick arrives is skipped rather than overlapped.
type CronScheduler struct {
	cron *cron.Cron
}

func NewCronScheduler(log logger.ILogger) *CronScheduler {
	cl := cronLogger{log: log}
	return &CronScheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

func (s *CronScheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *CronScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *CronScheduler) Every(interval time.Duration, job func()) func() {
	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(job))
	return func() { s.cron.Remove(id) }
}

type cronLogger struct {
	log logger.ILogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("POLLER", msg, kv(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	details := kv(keysAndValues)
	details["error"] = err.Error()
	l.log.Error("POLLER", msg, details)
}

func kv(pairs []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if k, ok := pairs[i].(string); ok {
			out[k] = pairs[i+1]
		}
	}
	return out
}

// StepScheduler fires jobs only when its clock is advanced. Jobs run synchronously on
// the caller's goroutine, which makes polling deterministic in tests and simulations.
type StepScheduler struct {
	mu      sync.Mutex
	now     time.Time
	nextID  int
	entries map[int]*stepEntry
}

type stepEntry struct {
	id       int
	interval time.Duration
	due      time.Time
	job      func()
}

func NewStepScheduler() *StepScheduler {
	return &StepScheduler{
		now:     time.Unix(0, 0),
		entries: make(map[int]*stepEntry),
	}
}

func (s *StepScheduler) Every(interval time.Duration, job func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.entries[id] = &stepEntry{id: id, interval: interval, due: s.now.Add(interval), job: job}
	return func() {
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
	}
}

// Advance moves the clock forward by d and runs every job that came due, in due order.
// It returns the number of job runs.
func (s *StepScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	runs := 0
	for {
		s.mu.Lock()
		e := s.nextDue(target)
		if e == nil {
			s.now = target
			s.mu.Unlock()
			return runs
		}
		s.now = e.due
		e.due = e.due.Add(e.interval)
		job := e.job
		s.mu.Unlock()

		job()
		runs++
	}
}

// Pending reports how many jobs are registered.
func (s *StepScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *StepScheduler) nextDue(target time.Time) *stepEntry {
	due := make([]*stepEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.due.After(target) {
			due = append(due, e)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].id < due[j].id
		}
		return due[i].due.Before(due[j].due)
	})
	return due[0]
}
