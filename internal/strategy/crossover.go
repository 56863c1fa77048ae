package strategy

import (
	"fmt"

	"tradeloop/internal/domain"
)

// SMACrossStrategy signals long while the fast moving average sits above
// the slow one and short while below.
type SMACrossStrategy struct {
	fastSpan int
	slowSpan int
}

// NewSMACrossStrategy creates an SMA crossover strategy.
func NewSMACrossStrategy(fastSpan, slowSpan int) *SMACrossStrategy {
	return &SMACrossStrategy{fastSpan: fastSpan, slowSpan: slowSpan}
}

// Name returns the catalogue identifier.
func (s *SMACrossStrategy) Name() string { return domain.StrategySMACross }

// StopLossFactor returns the stop distance in ATR multiples.
func (s *SMACrossStrategy) StopLossFactor() float64 { return 2.0 }

// TakeProfitFactor returns the take-profit distance in ATR multiples.
func (s *SMACrossStrategy) TakeProfitFactor() float64 { return 3.0 }

// Apply computes per-bar signals.
func (s *SMACrossStrategy) Apply(bars []domain.Bar) ([]domain.Direction, error) {
	if len(bars) < s.slowSpan {
		return nil, fmt.Errorf("need at least %d bars, have %d", s.slowSpan, len(bars))
	}

	closes := domain.Closes(bars)
	signals := make([]domain.Direction, len(bars))
	for i := range bars {
		signals[i] = domain.DirectionNone
		if i+1 < s.slowSpan {
			continue
		}
		fast := sma(closes, i, s.fastSpan)
		slow := sma(closes, i, s.slowSpan)
		switch {
		case fast > slow:
			signals[i] = domain.DirectionLong
		case fast < slow:
			signals[i] = domain.DirectionShort
		}
	}
	return signals, nil
}

// Compile-time interface check.
var _ Strategy = (*SMACrossStrategy)(nil)
