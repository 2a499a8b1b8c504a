package job

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the scheduler's position in the refresh cycle.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
)

// Runner executes a single refresh run.
type Runner interface {
	Run(ctx context.Context, trigger Trigger) (*Run, error)
}

// Scheduler drives a Runner once at start and then on a fixed interval.
// A single goroutine executes runs, so they never overlap.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	notify   chan struct{}

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler. A non-positive interval falls back to 24h.
func NewScheduler(runner Runner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		notify:   make(chan struct{}, 1),
		state:    StateIdle,
	}
}

// Trigger requests an extra run. Non-blocking; requests made while one is
// already pending are coalesced.
func (s *Scheduler) Trigger() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start launches Run in the background. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	go func() {
		defer close(done)
		s.Run(ctx)
	}()
}

// Stop cancels the background loop and waits for it to return. An
// in-flight run sees its context cancelled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run performs an eager startup run, then blocks serving the ticker and
// Trigger requests until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.execute(ctx, TriggerStartup)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
			s.execute(ctx, TriggerManual)
		case <-ticker.C:
			s.execute(ctx, TriggerSchedule)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, trigger Trigger) {
	if ctx.Err() != nil {
		return
	}

	s.setState(StateFetching)
	defer s.setState(StateIdle)

	start := time.Now()
	run, err := s.runner.Run(ctx, trigger)
	if err != nil {
		if ctx.Err() != nil {
			return // shutting down
		}
		slog.Error("scheduler: refresh run", "trigger", trigger, "error", err)
		return
	}

	slog.Info("scheduler: refresh run finished",
		"trigger", trigger,
		"run", run.ID,
		"status", run.Status,
		"updated", run.Updated,
		"failed", run.Failed,
		"duration", time.Since(start).String(),
	)
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
