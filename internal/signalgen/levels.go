package signalgen

import (
	"math"

	"tradeloop/internal/domain"
	"tradeloop/internal/strategy"
)

// entryPullbackFactor places the limit entry a fraction of one ATR
// inside the last close, so fills happen on a minor retrace instead of
// chasing the market.
const entryPullbackFactor = 0.25

// Levels is one protective order set around a limit entry.
type Levels struct {
	StopLoss    float64
	TakeProfit  float64
	TargetEntry float64
}

// ComputeLevels derives entry, stop-loss and take-profit for the given
// direction from the latest close and its ATR, scaled by the
// strategy's own multipliers. All prices are rounded to cents.
func ComputeLevels(bars []domain.Bar, direction domain.Direction, atrSpan int, stopFactor, takeFactor float64) Levels {
	if len(bars) == 0 || direction == domain.DirectionNone {
		return Levels{}
	}

	last := bars[len(bars)-1].AdjClose
	atr := strategy.AverageTrueRange(bars, atrSpan)

	var entry, stop, take float64
	switch direction {
	case domain.DirectionLong:
		entry = last - entryPullbackFactor*atr
		stop = entry - stopFactor*atr
		take = entry + takeFactor*atr
	case domain.DirectionShort:
		entry = last + entryPullbackFactor*atr
		stop = entry + stopFactor*atr
		take = entry - takeFactor*atr
	}

	return Levels{
		StopLoss:    roundCents(stop),
		TakeProfit:  roundCents(take),
		TargetEntry: roundCents(entry),
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
