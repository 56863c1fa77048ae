package strategy

import (
	"errors"

	"tradeloop/internal/domain"
)

// Factory errors. A missing or invalid parameter is a catalogue defect:
// callers treat it as fatal for the whole optimization run.
var (
	ErrUnknownStrategy    = errors.New("unknown strategy")
	ErrInvalidWindow      = errors.New("window must be positive")
	ErrMissingFastSpan    = errors.New("SMA_CROSS requires fast_span")
	ErrMissingSlowSpan    = errors.New("SMA_CROSS requires slow_span")
	ErrSpansOutOfOrder    = errors.New("SMA_CROSS requires fast_span < slow_span")
	ErrMissingBuyLevel    = errors.New("RSI_REVERSAL requires buy_level")
	ErrMissingSellLevel   = errors.New("RSI_REVERSAL requires sell_level")
	ErrLevelsOutOfOrder   = errors.New("RSI_REVERSAL requires buy_level < sell_level")
	ErrMissingChannelSpan = errors.New("CHANNEL_BREAKOUT requires channel_span")
	ErrMissingBandPct     = errors.New("CHANNEL_BREAKOUT requires band_pct")
)

// FromParams creates a Strategy from a typed parameter record, validating
// required fields per strategy.
func FromParams(p domain.StrategyParams) (Strategy, error) {
	switch p.Strategy {
	case domain.StrategySMACross:
		return fromSMACrossParams(p)
	case domain.StrategyRSIReversal:
		return fromRSIReversalParams(p)
	case domain.StrategyChannelBreakout:
		return fromChannelBreakoutParams(p)
	default:
		return nil, ErrUnknownStrategy
	}
}

func fromSMACrossParams(p domain.StrategyParams) (*SMACrossStrategy, error) {
	if p.FastSpan == nil {
		return nil, ErrMissingFastSpan
	}
	if p.SlowSpan == nil {
		return nil, ErrMissingSlowSpan
	}
	if *p.FastSpan >= *p.SlowSpan {
		return nil, ErrSpansOutOfOrder
	}
	return NewSMACrossStrategy(int(*p.FastSpan), int(*p.SlowSpan)), nil
}

func fromRSIReversalParams(p domain.StrategyParams) (*RSIReversalStrategy, error) {
	if p.Window <= 0 {
		return nil, ErrInvalidWindow
	}
	if p.BuyLevel == nil {
		return nil, ErrMissingBuyLevel
	}
	if p.SellLevel == nil {
		return nil, ErrMissingSellLevel
	}
	if *p.BuyLevel >= *p.SellLevel {
		return nil, ErrLevelsOutOfOrder
	}
	return NewRSIReversalStrategy(p.Window, *p.BuyLevel, *p.SellLevel), nil
}

func fromChannelBreakoutParams(p domain.StrategyParams) (*ChannelBreakoutStrategy, error) {
	if p.ChannelSpan == nil {
		return nil, ErrMissingChannelSpan
	}
	if p.BandPct == nil {
		return nil, ErrMissingBandPct
	}
	return NewChannelBreakoutStrategy(int(*p.ChannelSpan), *p.BandPct), nil
}
