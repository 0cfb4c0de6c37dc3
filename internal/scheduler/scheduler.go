package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type Job struct {
	ID   string
	Task func(ctx context.Context)
}

type Scheduler interface {
	// AddPeriodic runs job every interval until it is cancelled or the
	// scheduler stops. A non-positive interval is ignored.
	AddPeriodic(ctx context.Context, job Job, interval time.Duration)
	// AddOneShot runs job once after delay.
	AddOneShot(ctx context.Context, job Job, delay time.Duration)
	Cancel(jobID string)
	Stop()
}

type jobScheduler struct {
	clock  clock.Clock
	logger log.Logger

	mu   sync.Mutex
	wg   sync.WaitGroup
	jobs map[string]*entry
}

type entry struct {
	cancel context.CancelFunc
}

func New(clk clock.Clock, logger log.Logger) Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &jobScheduler{
		clock:  clk,
		logger: log.With(logger, "component", "scheduler"),
		jobs:   make(map[string]*entry),
	}
}

func (js *jobScheduler) AddPeriodic(ctx context.Context, job Job, interval time.Duration) {
	if interval <= 0 {
		_ = level.Debug(js.logger).Log("msg", "periodic job disabled", "job", job.ID)
		return
	}
	ctx, _ = js.register(ctx, job.ID)
	ticker := js.clock.Ticker(interval)
	_ = level.Info(js.logger).Log("msg", "added periodic job", "job", job.ID, "interval", interval)

	js.wg.Add(1)
	go func() {
		defer js.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				job.Task(ctx)
			case <-ctx.Done():
				_ = level.Debug(js.logger).Log("msg", "periodic job stopped", "job", job.ID)
				return
			}
		}
	}()
}

func (js *jobScheduler) AddOneShot(ctx context.Context, job Job, delay time.Duration) {
	ctx, e := js.register(ctx, job.ID)
	timer := js.clock.Timer(delay)
	_ = level.Info(js.logger).Log("msg", "added one shot job", "job", job.ID, "delay", delay)

	js.wg.Add(1)
	go func() {
		defer js.wg.Done()
		select {
		case <-timer.C:
			job.Task(ctx)
			js.forget(job.ID, e)
		case <-ctx.Done():
			timer.Stop()
			_ = level.Debug(js.logger).Log("msg", "one shot job cancelled", "job", job.ID)
		}
	}()
}

func (js *jobScheduler) Cancel(jobID string) {
	js.mu.Lock()
	e, ok := js.jobs[jobID]
	delete(js.jobs, jobID)
	js.mu.Unlock()
	if ok {
		e.cancel()
	}
}

// Stop cancels every job and waits for running tasks to return.
func (js *jobScheduler) Stop() {
	js.mu.Lock()
	for id, e := range js.jobs {
		e.cancel()
		delete(js.jobs, id)
	}
	js.mu.Unlock()
	js.wg.Wait()
	_ = level.Info(js.logger).Log("msg", "scheduler stopped")
}

// register replaces any job already scheduled under id.
func (js *jobScheduler) register(ctx context.Context, id string) (context.Context, *entry) {
	ctx, cancel := context.WithCancel(ctx)
	e := &entry{cancel}
	js.mu.Lock()
	if previous, ok := js.jobs[id]; ok {
		previous.cancel()
	}
	js.jobs[id] = e
	js.mu.Unlock()
	return ctx, e
}

func (js *jobScheduler) forget(id string, e *entry) {
	js.mu.Lock()
	if js.jobs[id] == e {
		delete(js.jobs, id)
	}
	js.mu.Unlock()
	e.cancel()
}
