// Package scheduler runs background jobs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "plancal/internal/log"
)

// Job is one unit of scheduled work. It should return when ctx is done.
type Job func(ctx context.Context)

// Scheduler runs a single named job on a standard 5-field cron spec.
type Scheduler struct {
	name string
	spec string
	job  Job
	cron *cron.Cron

	mu  sync.Mutex
	ctx context.Context
}

// New validates spec and prepares a scheduler. Runs never overlap: a tick
// that arrives while the previous run is still going is skipped.
func New(name, spec string, loc *time.Location, job Job) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("scheduler: nil job")
	}
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{name: name}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	s := &Scheduler{name: name, spec: spec, job: job, cron: c, ctx: context.Background()}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("scheduler %s: invalid schedule %q: %w", name, spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	s.RunNow(ctx)
}

// RunNow runs the job synchronously.
func (s *Scheduler) RunNow(ctx context.Context) {
	start := time.Now()
	appLog.Info("scheduled job start", "job", s.name)
	s.job(ctx)
	appLog.Info("scheduled job done", "job", s.name, "elapsed", time.Since(start).String())
}

// Start begins ticking. Cancelling ctx stops the scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	appLog.Info("scheduler started", "job", s.name, "spec", s.spec, "next", s.Next().Format(time.RFC3339))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop stops ticking and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next returns the next scheduled run, or the zero time when not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// cronLogger routes cron's own logging into the application logger.
type cronLogger struct {
	name string
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, append([]any{"job", l.name}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, append([]any{"job", l.name}, keysAndValues...)...)
}
