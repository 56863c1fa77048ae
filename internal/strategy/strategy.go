// Package strategy holds the strategy catalogue: pure signal calculators
// over daily bar series, built from typed parameter records through a
// registry of factories.
package strategy

import "tradeloop/internal/domain"

// Strategy annotates a price series with a per-bar directional signal.
// Implementations are pure: Apply never mutates the input bars and the
// same input always yields the same signals.
type Strategy interface {
	// Name returns the catalogue identifier.
	Name() string

	// Apply computes one signal per bar, aligned with the input. Bars
	// inside the warmup window carry DirectionNone.
	Apply(bars []domain.Bar) ([]domain.Direction, error)

	// StopLossFactor is the strategy's stop-loss distance in ATR multiples.
	StopLossFactor() float64

	// TakeProfitFactor is the strategy's take-profit distance in ATR multiples.
	TakeProfitFactor() float64
}

// SignalCount returns the number of non-NONE signals. Combinations
// producing zero signals are skipped during optimization.
func SignalCount(signals []domain.Direction) int {
	n := 0
	for _, s := range signals {
		if s != domain.DirectionNone {
			n++
		}
	}
	return n
}

// LastSignal returns the most recent signal, or DirectionNone for an
// empty series.
func LastSignal(signals []domain.Direction) domain.Direction {
	if len(signals) == 0 {
		return domain.DirectionNone
	}
	return signals[len(signals)-1]
}
