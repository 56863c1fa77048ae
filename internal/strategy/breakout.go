package strategy

import (
	"fmt"

	"tradeloop/internal/domain"
)

// ChannelBreakoutStrategy signals long when the close breaks above the
// trailing channel high by the band margin, and short on a break below
// the channel low.
type ChannelBreakoutStrategy struct {
	channelSpan int
	bandPct     float64
}

// NewChannelBreakoutStrategy creates a channel breakout strategy.
func NewChannelBreakoutStrategy(channelSpan int, bandPct float64) *ChannelBreakoutStrategy {
	return &ChannelBreakoutStrategy{channelSpan: channelSpan, bandPct: bandPct}
}

// Name returns the catalogue identifier.
func (s *ChannelBreakoutStrategy) Name() string { return domain.StrategyChannelBreakout }

// StopLossFactor returns the stop distance in ATR multiples.
func (s *ChannelBreakoutStrategy) StopLossFactor() float64 { return 2.5 }

// TakeProfitFactor returns the take-profit distance in ATR multiples.
func (s *ChannelBreakoutStrategy) TakeProfitFactor() float64 { return 4.0 }

// Apply computes per-bar signals.
func (s *ChannelBreakoutStrategy) Apply(bars []domain.Bar) ([]domain.Direction, error) {
	if len(bars) <= s.channelSpan {
		return nil, fmt.Errorf("need more than %d bars, have %d", s.channelSpan, len(bars))
	}

	signals := make([]domain.Direction, len(bars))
	for i := range bars {
		signals[i] = domain.DirectionNone
		high, low, ok := channelHighLow(bars, i, s.channelSpan)
		if !ok {
			continue
		}
		switch {
		case bars[i].Close > high*(1+s.bandPct):
			signals[i] = domain.DirectionLong
		case bars[i].Close < low*(1-s.bandPct):
			signals[i] = domain.DirectionShort
		}
	}
	return signals, nil
}

// Compile-time interface check.
var _ Strategy = (*ChannelBreakoutStrategy)(nil)
