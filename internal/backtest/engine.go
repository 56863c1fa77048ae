package backtest

import (
	"fmt"
	"math"

	"tradeloop/internal/domain"
	"tradeloop/internal/strategy"
)

// Engine scores a strategy against a bar series.
type Engine interface {
	Run(bars []domain.Bar, strat strategy.Strategy) (domain.PerformanceMetrics, error)
}

// SimEngine walks the series bar by bar, holding the position the
// previous bar's signal dictates and compounding daily returns.
type SimEngine struct {
	startingCash float64
}

// NewSimEngine creates an engine with the given starting equity.
func NewSimEngine(startingCash float64) *SimEngine {
	return &SimEngine{startingCash: startingCash}
}

// Run executes the walk and summarizes performance.
// A position change counts as one trade; flat bars earn nothing.
func (e *SimEngine) Run(bars []domain.Bar, strat strategy.Strategy) (domain.PerformanceMetrics, error) {
	if len(bars) < 2 {
		return domain.PerformanceMetrics{}, fmt.Errorf("need at least 2 bars, have %d", len(bars))
	}

	signals, err := strat.Apply(bars)
	if err != nil {
		return domain.PerformanceMetrics{}, fmt.Errorf("apply %s: %w", strat.Name(), err)
	}
	if len(signals) != len(bars) {
		return domain.PerformanceMetrics{}, fmt.Errorf("strategy %s returned %d signals for %d bars", strat.Name(), len(signals), len(bars))
	}

	closes := domain.Closes(bars)
	equity := e.startingCash
	peak := equity
	maxDrawdown := 0.0
	tradeCount := 0
	held := domain.DirectionNone
	returns := make([]float64, 0, len(bars)-1)

	for i := 1; i < len(bars); i++ {
		// The position held across bar i is the one signalled at bar i-1.
		pos := signals[i-1]
		if pos != held {
			if pos != domain.DirectionNone {
				tradeCount++
			}
			held = pos
		}

		dayReturn := 0.0
		if closes[i-1] != 0 {
			move := (closes[i] - closes[i-1]) / closes[i-1]
			switch pos {
			case domain.DirectionLong:
				dayReturn = move
			case domain.DirectionShort:
				dayReturn = -move
			}
		}
		returns = append(returns, dayReturn)

		equity *= 1 + dayReturn
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	return domain.PerformanceMetrics{
		TotalReturn: equity/e.startingCash - 1,
		SharpeRatio: annualizedSharpe(returns),
		TradeCount:  tradeCount,
		MaxDrawdown: maxDrawdown,
		FinalEquity: equity,
	}, nil
}

// annualizedSharpe computes mean/stddev of daily returns scaled by
// sqrt(252). Zero-variance series score zero.
func annualizedSharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(252)
}

// Compile-time interface check.
var _ Engine = (*SimEngine)(nil)
