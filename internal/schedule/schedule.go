// Package schedule runs named periodic jobs on top of robfig/cron.
package schedule

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one unit of periodic work. The context is cancelled when the runner
// stops.
type Job func(ctx context.Context) error

// Runner wraps cron-based jobs. Overlapping runs of the same job are skipped.
type Runner struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu     sync.Mutex
	jobs   map[string]Job
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRunner(logger *slog.Logger, loc *time.Location) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		jobs:   make(map[string]Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Every registers job to run every interval. Intervals below one second are
// rounded up.
func (r *Runner) Every(name string, interval time.Duration, job Job) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.jobs[name]; dup {
		return 0, fmt.Errorf("job %q already registered", name)
	}
	r.jobs[name] = job
	return r.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), func() { r.run(name, job) })
}

// RunNow runs the named job synchronously, outside the schedule.
func (r *Runner) RunNow(name string) error {
	r.mu.Lock()
	job, ok := r.jobs[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return r.run(name, job)
}

func (r *Runner) run(name string, job Job) error {
	start := time.Now()
	err := job(r.ctx)
	attrs := []any{"job", name, "duration_ms", time.Since(start).Milliseconds()}
	if err != nil {
		r.logger.Warn("scheduled job failed", append(attrs, "error", err)...)
		return err
	}
	r.logger.Debug("scheduled job finished", attrs...)
	return nil
}

func (r *Runner) Start() {
	r.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (r *Runner) Stop() {
	r.cancel()
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
