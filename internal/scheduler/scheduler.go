// Package scheduler drives the control loop on a cron cadence. One
// iteration at a time: a tick that lands while the previous iteration
// is still running is skipped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tradeloop/internal/observ"
	"tradeloop/internal/observability"
	"tradeloop/internal/optimizer"
	"tradeloop/internal/orchestrator"
)

// Scheduler runs orchestrator cycles from a cron entry.
type Scheduler struct {
	cron  *cron.Cron
	orch  *orchestrator.Orchestrator
	ctx   context.Context
	fatal chan error
	now   func() time.Time

	mu    sync.Mutex
	state orchestrator.LoopState
	busy  bool
	dead  bool
}

// New creates a Scheduler around the orchestrator.
func New(ctx context.Context, orch *orchestrator.Orchestrator) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds()),
		orch:  orch,
		ctx:   ctx,
		fatal: make(chan error, 1),
		now:   time.Now,
	}
}

// WithClock sets a custom clock function for deterministic tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Fatal reports errors the loop cannot recover from by retrying, such
// as a parameter-catalogue defect. The process should stop and exit
// non-zero when the channel yields.
func (s *Scheduler) Fatal() <-chan error {
	return s.fatal
}

// Register adds the control-loop entry with a six-field cron spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("register control loop %q: %w", spec, err)
	}
	return nil
}

// Start begins scheduling.
func (s *Scheduler) Start() {
	s.cron.Start()
	observ.Log("scheduler.started", nil)
}

// Stop stops scheduling and waits for a running iteration to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	observ.Log("scheduler.stopped", nil)
}

// RunNow executes one iteration immediately, outside the cron cadence.
func (s *Scheduler) RunNow() {
	s.tick()
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.busy || s.dead {
		reason := "iteration in progress"
		if s.dead {
			reason = "fatal error pending shutdown"
		}
		s.mu.Unlock()
		observ.Warn("scheduler.tick_skipped", map[string]any{"reason": reason})
		observability.RecordCycleSkipped()
		return
	}
	s.busy = true
	state := s.state
	s.mu.Unlock()

	started := s.now()
	next, err := s.orch.RunCycle(s.ctx, state, started)
	switch {
	case errors.Is(err, optimizer.ErrBadCatalogue):
		// A catalogue defect fails every retry identically; stop the
		// loop and hand the error to the process for a non-zero exit.
		observ.Warn("scheduler.fatal_config_error", map[string]any{"error": err.Error()})
		observability.RecordCycle("fatal", time.Since(started).Seconds())
		s.mu.Lock()
		s.dead = true
		s.mu.Unlock()
		select {
		case s.fatal <- err:
		default:
		}
	case err != nil:
		// A violation aborts only this iteration; persisted state is
		// intact and the next tick re-reads it.
		observ.Warn("scheduler.cycle_failed", map[string]any{"error": err.Error()})
		observability.RecordCycle("error", time.Since(started).Seconds())
	default:
		observability.RecordCycle("ok", time.Since(started).Seconds())
		observability.MarkCycleSuccess(started.Unix())
	}

	s.mu.Lock()
	s.state = next
	s.busy = false
	s.mu.Unlock()
}
