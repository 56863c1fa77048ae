package signalgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradeloop/internal/domain"
	"tradeloop/internal/execution"
	"tradeloop/internal/guard"
	"tradeloop/internal/marketdata"
	"tradeloop/internal/observ"
	"tradeloop/internal/storage"
	"tradeloop/internal/strategy"
)

// Options configures a Generator.
type Options struct {
	Positions storage.PositionStore
	Results   storage.ResultStore
	History   marketdata.HistorySource
	Registry  *strategy.Registry
	Notifier  execution.Notifier

	// MaxHistoryYears bounds the trailing window fetched per ticker.
	MaxHistoryYears int

	// ATRSpan is the volatility lookback used for protective levels.
	ATRSpan int
}

// Generator refreshes the OPEN position's levels and dispatches the
// OPTIMIZED position once a ranked strategy yields a direction.
type Generator struct {
	opts Options
}

// New creates a Generator.
func New(opts Options) (*Generator, error) {
	if opts.Positions == nil {
		return nil, errors.New("position store is required")
	}
	if opts.Results == nil {
		return nil, errors.New("result store is required")
	}
	if opts.History == nil {
		return nil, errors.New("history source is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("strategy registry is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = execution.NoopNotifier{}
	}
	if opts.MaxHistoryYears < 1 {
		opts.MaxHistoryYears = 30
	}
	if opts.ATRSpan < 1 {
		opts.ATRSpan = 14
	}
	return &Generator{opts: opts}, nil
}

// Run performs one generation pass over whichever of the OPEN and
// OPTIMIZED positions exist, then emits at most one notification event
// covering both outcomes.
func (g *Generator) Run(ctx context.Context, now time.Time) (execution.Event, error) {
	if err := guard.EnsureAbsent(ctx, g.opts.Positions, domain.StatusDispatched); err != nil {
		return execution.Event{}, err
	}
	if err := guard.EnsureActionable(ctx, g.opts.Positions); err != nil {
		return execution.Event{}, err
	}

	event := execution.Event{EmittedAt: now.UnixMilli()}

	open, err := g.firstIn(ctx, domain.StatusOpen)
	if err != nil {
		return execution.Event{}, err
	}
	if open != nil {
		updated, err := g.refreshOpen(ctx, open, now)
		if err != nil {
			return execution.Event{}, err
		}
		if updated {
			event.OpenPositionUpdated = true
			event.Ticker = open.Ticker
			event.PositionID = open.PositionID
		}
	}

	optimized, err := g.firstIn(ctx, domain.StatusOptimized)
	if err != nil {
		return execution.Event{}, err
	}
	if optimized != nil {
		dispatched, err := g.dispatchOptimized(ctx, optimized, now)
		if err != nil {
			return execution.Event{}, err
		}
		if dispatched {
			event.DispatchedPositionCreated = true
			event.Ticker = optimized.Ticker
			event.PositionID = optimized.PositionID
		}
	}

	if event.OpenPositionUpdated || event.DispatchedPositionCreated {
		// Fire and forget: a delivery failure never rolls back the
		// persisted transition.
		if err := g.opts.Notifier.Notify(ctx, event); err != nil {
			observ.Warn("signal.notify_failed", map[string]any{"error": err.Error()})
		}
	}
	return event, nil
}

func (g *Generator) firstIn(ctx context.Context, status domain.Status) (*domain.Position, error) {
	pos, err := g.opts.Positions.FirstByStatus(ctx, status)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s position: %w", status, err)
	}
	return pos, nil
}

// refreshOpen recomputes protective levels around the position's fixed
// direction using the best-ranked strategy, one pass only. Direction
// is never re-derived for an OPEN position.
func (g *Generator) refreshOpen(ctx context.Context, pos *domain.Position, now time.Time) (bool, error) {
	bars, results, err := g.load(ctx, pos.Ticker, now)
	if err != nil {
		return false, err
	}
	if len(results) == 0 {
		observ.Warn("signal.no_results", map[string]any{"ticker": pos.Ticker, "status": pos.Status})
		return false, nil
	}

	best := results[0]
	strat, err := g.opts.Registry.Build(best.Params)
	if err != nil {
		return false, fmt.Errorf("build %s for %s: %w", best.Strategy, pos.Ticker, err)
	}

	levels := ComputeLevels(bars, pos.Direction, g.opts.ATRSpan, strat.StopLossFactor(), strat.TakeProfitFactor())
	pos.StopLoss = levels.StopLoss
	pos.TakeProfit = levels.TakeProfit
	pos.TargetEntry = levels.TargetEntry
	pos.UpdatedAt = now.UnixMilli()
	if err := g.opts.Positions.Update(ctx, pos); err != nil {
		return false, fmt.Errorf("refresh open position %s: %w", pos.PositionID, err)
	}

	observ.Log("signal.open_refreshed", map[string]any{
		"ticker": pos.Ticker,
		"stop":   levels.StopLoss,
		"take":   levels.TakeProfit,
		"entry":  levels.TargetEntry,
	})
	return true, nil
}

// dispatchOptimized scans ranked results until one strategy yields a
// direction on the latest window, then records it and advances the
// position to DISPATCHED. The scan depth is bounded by the catalogue.
func (g *Generator) dispatchOptimized(ctx context.Context, pos *domain.Position, now time.Time) (bool, error) {
	bars, results, err := g.load(ctx, pos.Ticker, now)
	if err != nil {
		return false, err
	}
	if len(results) == 0 {
		observ.Warn("signal.no_results", map[string]any{"ticker": pos.Ticker, "status": pos.Status})
		return false, nil
	}

	for _, result := range results {
		strat, err := g.opts.Registry.Build(result.Params)
		if err != nil {
			return false, fmt.Errorf("build %s for %s: %w", result.Strategy, pos.Ticker, err)
		}

		signals, err := strat.Apply(bars)
		if err != nil {
			observ.Warn("signal.apply_failed", map[string]any{
				"ticker":   pos.Ticker,
				"strategy": result.Strategy,
				"error":    err.Error(),
			})
			continue
		}
		direction := strategy.LastSignal(signals)
		if direction == domain.DirectionNone {
			continue
		}

		levels := ComputeLevels(bars, direction, g.opts.ATRSpan, strat.StopLossFactor(), strat.TakeProfitFactor())
		pos.Strategy = result.Strategy
		pos.Direction = direction
		pos.StopLoss = levels.StopLoss
		pos.TakeProfit = levels.TakeProfit
		pos.TargetEntry = levels.TargetEntry
		pos.Status = domain.StatusDispatched
		pos.UpdatedAt = now.UnixMilli()
		if err := g.opts.Positions.Update(ctx, pos); err != nil {
			return false, fmt.Errorf("dispatch position %s: %w", pos.PositionID, err)
		}

		observ.Log("signal.dispatched", map[string]any{
			"ticker":    pos.Ticker,
			"strategy":  result.Strategy,
			"direction": direction,
			"entry":     levels.TargetEntry,
		})
		return true, nil
	}

	observ.Log("signal.no_direction", map[string]any{"ticker": pos.Ticker, "scanned": len(results)})
	return false, nil
}

func (g *Generator) load(ctx context.Context, ticker string, now time.Time) ([]domain.Bar, []*domain.OptimizationResult, error) {
	start := now.AddDate(-g.opts.MaxHistoryYears, 0, 0)
	bars, err := g.opts.History.DailyBars(ctx, ticker, start, now)
	if err != nil {
		return nil, nil, fmt.Errorf("history for %s: %w", ticker, err)
	}
	results, err := g.opts.Results.GetByTicker(ctx, ticker)
	if err != nil {
		return nil, nil, fmt.Errorf("results for %s: %w", ticker, err)
	}
	return bars, results, nil
}
