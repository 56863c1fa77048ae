// Package orchestrator runs the per-iteration position state machine.
// Flow: market gating → screening → optimization → signal generation,
// with the execution handoff proceeding out of band.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradeloop/internal/domain"
	"tradeloop/internal/execution"
	"tradeloop/internal/guard"
	"tradeloop/internal/marketclock"
	"tradeloop/internal/observ"
	"tradeloop/internal/observability"
	"tradeloop/internal/storage"
)

// ScreenerStage selects one ticker and creates a SCREENED position.
type ScreenerStage interface {
	Run(ctx context.Context, now time.Time) (*domain.Position, error)
}

// OptimizerStage advances the SCREENED position to OPTIMIZED.
type OptimizerStage interface {
	Run(ctx context.Context, now time.Time) (*domain.Position, error)
}

// GeneratorStage refreshes OPEN and dispatches OPTIMIZED positions.
type GeneratorStage interface {
	Run(ctx context.Context, now time.Time) (execution.Event, error)
}

// Orchestrator coordinates one control-loop iteration over the stores.
// It holds no mutable iteration state; everything that carries across
// iterations travels in the LoopState value.
type Orchestrator struct {
	positions storage.PositionStore
	calendar  *marketclock.Calendar
	screener  ScreenerStage
	optimizer OptimizerStage
	generator GeneratorStage
}

// Options for creating an Orchestrator.
type Options struct {
	Positions storage.PositionStore
	Calendar  *marketclock.Calendar
	Screener  ScreenerStage
	Optimizer OptimizerStage
	Generator GeneratorStage
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Positions == nil {
		return nil, errors.New("position store is required")
	}
	if opts.Calendar == nil {
		return nil, errors.New("calendar is required")
	}
	if opts.Screener == nil || opts.Optimizer == nil || opts.Generator == nil {
		return nil, errors.New("all three stages are required")
	}
	return &Orchestrator{
		positions: opts.Positions,
		calendar:  opts.Calendar,
		screener:  opts.Screener,
		optimizer: opts.Optimizer,
		generator: opts.Generator,
	}, nil
}

// LoopState is the value threaded through iterations.
type LoopState struct {
	// IdleLogged suppresses repeated idle log lines while the market
	// session keeps the loop gated.
	IdleLogged bool
}

// RunCycle executes one iteration. A fatal invariant violation aborts
// the iteration before any write for that stage; the error is returned
// so the caller can decide between logging and terminating.
func (o *Orchestrator) RunCycle(ctx context.Context, state LoopState, now time.Time) (LoopState, error) {
	session := o.calendar.Session(now)
	if !session.CanGenerate {
		if !state.IdleLogged {
			observ.Log("cycle.idle", map[string]any{"reason": "market session open"})
			state.IdleLogged = true
		}
		return state, nil
	}
	state.IdleLogged = false

	switch {
	case o.existsIn(ctx, domain.StatusDispatched):
		// The execution boundary owns the position until it reports
		// OPEN or CANCELLED.
		observ.Log("cycle.waiting_execution", nil)
		return state, nil

	case o.existsIn(ctx, domain.StatusOptimized) || o.existsIn(ctx, domain.StatusOpen):
		return state, o.generate(ctx, now)

	case o.existsIn(ctx, domain.StatusScreened):
		return state, o.optimizeAndGenerate(ctx, now)

	default:
		return state, o.fullCycle(ctx, now)
	}
}

func (o *Orchestrator) fullCycle(ctx context.Context, now time.Time) error {
	pos, err := o.screener.Run(ctx, now)
	if err != nil {
		return o.stageError("screen", err)
	}
	if pos == nil {
		// Nothing selectable this cycle; the next iteration retries.
		return nil
	}
	return o.optimizeAndGenerate(ctx, now)
}

func (o *Orchestrator) optimizeAndGenerate(ctx context.Context, now time.Time) error {
	if _, err := o.optimizer.Run(ctx, now); err != nil {
		return o.stageError("optimize", err)
	}
	return o.generate(ctx, now)
}

func (o *Orchestrator) generate(ctx context.Context, now time.Time) error {
	event, err := o.generator.Run(ctx, now)
	if err != nil {
		return o.stageError("generate", err)
	}
	if event.OpenPositionUpdated || event.DispatchedPositionCreated {
		observ.Log("cycle.handoff", map[string]any{
			"open_updated":       event.OpenPositionUpdated,
			"dispatched_created": event.DispatchedPositionCreated,
			"ticker":             event.Ticker,
		})
	}
	return nil
}

func (o *Orchestrator) existsIn(ctx context.Context, status domain.Status) bool {
	_, err := o.positions.FirstByStatus(ctx, status)
	return err == nil
}

// stageError annotates and classifies a stage failure. Invariant
// violations are loud: they require manual resolution, so they carry
// the stage name for the operator.
func (o *Orchestrator) stageError(stage string, err error) error {
	if guard.IsViolation(err) {
		observ.Warn("cycle.invariant_violation", map[string]any{
			"stage": stage,
			"error": err.Error(),
		})
		observability.RecordViolation(stage)
	}
	return fmt.Errorf("%s: %w", stage, err)
}
