package domain

import (
	"sort"
	"time"
)

// PerformanceMetrics is the backtest engine's output for one parameter
// combination.
type PerformanceMetrics struct {
	TotalReturn float64 // fractional, 0.05 == +5%
	SharpeRatio float64 // annualized risk-adjusted ratio
	TradeCount  int
	MaxDrawdown float64 // fractional peak-to-trough, positive number
	FinalEquity float64
}

// OptimizationResult is the best parameter combination found for one
// (ticker, strategy) pair. Re-optimizing the same pair supersedes the
// prior row.
type OptimizationResult struct {
	Ticker      string
	Strategy    string
	Params      StrategyParams
	Metrics     PerformanceMetrics
	OptimizedAt time.Time
}

// BetterThan reports whether m outranks other under the fixed
// lexicographic ranking key: Sharpe ratio, then total return, then trade
// count, all descending.
func (m PerformanceMetrics) BetterThan(other PerformanceMetrics) bool {
	if m.SharpeRatio != other.SharpeRatio {
		return m.SharpeRatio > other.SharpeRatio
	}
	if m.TotalReturn != other.TotalReturn {
		return m.TotalReturn > other.TotalReturn
	}
	return m.TradeCount > other.TradeCount
}

// RankResults sorts results best-first by the ranking key. The sort is
// stable so fully tied rows keep their input order.
func RankResults(results []*OptimizationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Metrics.BetterThan(results[j].Metrics)
	})
}
