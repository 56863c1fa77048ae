package screener

import (
	"math"
	"sort"

	"tradeloop/internal/domain"
	"tradeloop/internal/strategy"
)

// MeanDollarVolume averages close times volume over the series.
func MeanDollarVolume(bars []domain.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range bars {
		sum += b.AdjClose * b.Volume
	}
	return sum / float64(len(bars))
}

// NormalizedATR expresses the average true range as a fraction of the
// last close, making volatility comparable across price levels.
func NormalizedATR(bars []domain.Bar, span int) float64 {
	if len(bars) == 0 {
		return 0
	}
	last := bars[len(bars)-1].AdjClose
	if last == 0 {
		return 0
	}
	return strategy.AverageTrueRange(bars, span) / last
}

// EfficiencyRatio measures how directional the series is: net change
// over the sum of absolute bar-to-bar changes. 1 is a straight line,
// 0 is pure chop.
func EfficiencyRatio(bars []domain.Bar) float64 {
	if len(bars) < 2 {
		return 0
	}
	closes := domain.Closes(bars)
	net := math.Abs(closes[len(closes)-1] - closes[0])
	path := 0.0
	for i := 1; i < len(closes); i++ {
		path += math.Abs(closes[i] - closes[i-1])
	}
	if path == 0 {
		return 0
	}
	return net / path
}

// Quantile returns the q-th quantile of values with linear
// interpolation between adjacent ranks.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// round4 trims floating-point jitter before scores are compared.
func round4(v float64) float64 {
	return math.Round(v*10_000) / 10_000
}
