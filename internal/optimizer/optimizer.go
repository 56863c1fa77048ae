package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tradeloop/internal/backtest"
	"tradeloop/internal/domain"
	"tradeloop/internal/guard"
	"tradeloop/internal/marketdata"
	"tradeloop/internal/observ"
	"tradeloop/internal/observability"
	"tradeloop/internal/screener"
	"tradeloop/internal/storage"
	"tradeloop/internal/strategy"
)

// Options configures an Optimizer.
type Options struct {
	Positions storage.PositionStore
	Results   storage.ResultStore
	History   marketdata.HistorySource
	Engine    backtest.Engine
	Registry  *strategy.Registry
	Catalogue []domain.ParameterSet

	Workers int

	// MaxHistoryYears bounds the backtest window.
	MaxHistoryYears int

	// DefaultWindow is the shared lookback used when a catalogue entry
	// does not sweep "window".
	DefaultWindow int
}

// ErrBadCatalogue marks a parameter-catalogue defect surfaced during
// optimization. A defective entry poisons every future iteration the
// same way, so the control loop treats it as fatal for the process
// rather than retrying next tick.
var ErrBadCatalogue = errors.New("bad parameter catalogue")

// Optimizer searches the parameter grid of every cataloged strategy
// for the current SCREENED ticker and persists the best combination
// per strategy.
type Optimizer struct {
	opts Options
}

// New creates an Optimizer.
func New(opts Options) (*Optimizer, error) {
	if opts.Positions == nil {
		return nil, errors.New("position store is required")
	}
	if opts.Results == nil {
		return nil, errors.New("result store is required")
	}
	if opts.History == nil {
		return nil, errors.New("history source is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("backtest engine is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("strategy registry is required")
	}
	if len(opts.Catalogue) == 0 {
		return nil, errors.New("strategy catalogue is empty")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxHistoryYears < 1 {
		opts.MaxHistoryYears = 30
	}
	if opts.DefaultWindow < 1 {
		opts.DefaultWindow = 20
	}
	return &Optimizer{opts: opts}, nil
}

// comboResult tags one grid combination's metrics with the parameters
// that produced them.
type comboResult struct {
	params  domain.StrategyParams
	metrics domain.PerformanceMetrics
}

// Run optimizes the current SCREENED position and advances it to
// OPTIMIZED. With no SCREENED position it is a logged no-op. A
// malformed catalogue entry fails the whole run.
func (o *Optimizer) Run(ctx context.Context, now time.Time) (*domain.Position, error) {
	pos, err := o.opts.Positions.FirstByStatus(ctx, domain.StatusScreened)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			observ.Log("optimize.no_screened", nil)
			return nil, nil
		}
		return nil, fmt.Errorf("load screened position: %w", err)
	}
	if err := guard.EnsureAbsent(ctx, o.opts.Positions, domain.StatusOptimized); err != nil {
		return nil, err
	}

	start := now.AddDate(-o.opts.MaxHistoryYears, 0, 0)
	bars, err := o.opts.History.DailyBars(ctx, pos.Ticker, start, now)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", pos.Ticker, err)
	}
	if len(bars) < 2 {
		return nil, fmt.Errorf("history for %s: too few bars (%d)", pos.Ticker, len(bars))
	}

	for _, entry := range o.opts.Catalogue {
		best, tried, err := o.optimizeStrategy(ctx, entry, bars)
		if err != nil {
			return nil, fmt.Errorf("optimize %s for %s: %w", entry.Strategy, pos.Ticker, err)
		}
		if best == nil {
			observ.Warn("optimize.no_viable_combo", map[string]any{
				"ticker":   pos.Ticker,
				"strategy": entry.Strategy,
				"tried":    tried,
			})
			continue
		}

		result := &domain.OptimizationResult{
			Ticker:      pos.Ticker,
			Strategy:    entry.Strategy,
			Params:      best.params,
			Metrics:     best.metrics,
			OptimizedAt: now,
		}
		if err := o.opts.Results.Upsert(ctx, result); err != nil {
			return nil, fmt.Errorf("persist result for %s/%s: %w", pos.Ticker, entry.Strategy, err)
		}

		observ.Log("optimize.best_found", map[string]any{
			"ticker":   pos.Ticker,
			"strategy": entry.Strategy,
			"sharpe":   best.metrics.SharpeRatio,
			"return":   best.metrics.TotalReturn,
			"trades":   best.metrics.TradeCount,
			"tried":    tried,
		})
	}

	pos.Status = domain.StatusOptimized
	pos.UpdatedAt = now.UnixMilli()
	if err := o.opts.Positions.Update(ctx, pos); err != nil {
		return nil, fmt.Errorf("advance position %s: %w", pos.PositionID, err)
	}
	observability.RecordPositionOptimized()
	return pos, nil
}

// optimizeStrategy evaluates the full grid of one catalogue entry in
// parallel batches and returns the top-ranked combination. Returns a
// nil best when every combination produced zero signals.
func (o *Optimizer) optimizeStrategy(ctx context.Context, entry domain.ParameterSet, bars []domain.Bar) (*comboResult, int, error) {
	combos := Combinations(entry.Swept)
	if len(combos) == 0 {
		combos = []map[string]float64{{}}
	}

	batches := screener.SplitBatches(combos, o.opts.Workers)
	results := make([][]comboResult, len(batches))
	errs := make([]error, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []map[string]float64) {
			defer wg.Done()
			results[i], errs[i] = o.evaluateBatch(ctx, entry.Strategy, batch, bars)
		}(i, batch)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, len(combos), err
		}
	}

	var best *comboResult
	for i := range results {
		for j := range results[i] {
			r := &results[i][j]
			if best == nil || r.metrics.BetterThan(best.metrics) {
				best = r
			}
		}
	}
	return best, len(combos), nil
}

// evaluateBatch scores its combinations sequentially over a private
// copy of the series. Parameter and constructor errors are catalogue
// defects and abort the run; zero-signal combinations are skipped.
func (o *Optimizer) evaluateBatch(ctx context.Context, strategyName string, batch []map[string]float64, bars []domain.Bar) ([]comboResult, error) {
	private := domain.CloneBars(bars)
	out := make([]comboResult, 0, len(batch))

	for _, combo := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		params, err := domain.ParamsFromValues(strategyName, o.opts.DefaultWindow, combo)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadCatalogue, err)
		}
		strat, err := o.opts.Registry.Build(params)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadCatalogue, err)
		}

		signals, err := strat.Apply(private)
		if err != nil {
			// Not enough bars for this lookback; the combination is
			// unviable for this series, not a catalogue defect.
			continue
		}
		if strategy.SignalCount(signals) == 0 {
			continue
		}

		metrics, err := o.opts.Engine.Run(private, strat)
		if err != nil {
			return nil, err
		}
		out = append(out, comboResult{params: params, metrics: metrics})
	}
	return out, nil
}
