package strategy

import (
	"fmt"

	"tradeloop/internal/domain"
)

// RSIReversalStrategy signals long when the RSI drops below the buy level
// and short when it rises above the sell level.
type RSIReversalStrategy struct {
	window    int
	buyLevel  float64
	sellLevel float64
}

// NewRSIReversalStrategy creates an RSI mean-reversion strategy.
func NewRSIReversalStrategy(window int, buyLevel, sellLevel float64) *RSIReversalStrategy {
	return &RSIReversalStrategy{window: window, buyLevel: buyLevel, sellLevel: sellLevel}
}

// Name returns the catalogue identifier.
func (s *RSIReversalStrategy) Name() string { return domain.StrategyRSIReversal }

// StopLossFactor returns the stop distance in ATR multiples.
func (s *RSIReversalStrategy) StopLossFactor() float64 { return 1.5 }

// TakeProfitFactor returns the take-profit distance in ATR multiples.
func (s *RSIReversalStrategy) TakeProfitFactor() float64 { return 2.0 }

// Apply computes per-bar signals.
func (s *RSIReversalStrategy) Apply(bars []domain.Bar) ([]domain.Direction, error) {
	if len(bars) <= s.window {
		return nil, fmt.Errorf("need more than %d bars, have %d", s.window, len(bars))
	}

	closes := domain.Closes(bars)
	signals := make([]domain.Direction, len(bars))
	for i := range bars {
		signals[i] = domain.DirectionNone
		if i < s.window {
			continue
		}
		r := rsi(closes, i, s.window)
		switch {
		case r < s.buyLevel:
			signals[i] = domain.DirectionLong
		case r > s.sellLevel:
			signals[i] = domain.DirectionShort
		}
	}
	return signals, nil
}

// Compile-time interface check.
var _ Strategy = (*RSIReversalStrategy)(nil)
