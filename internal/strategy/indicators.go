package strategy

import (
	"math"

	"tradeloop/internal/domain"
)

// sma returns the simple moving average of the span closes ending at
// index i. Callers guarantee i+1 >= span.
func sma(closes []float64, i, span int) float64 {
	if span <= 0 || i+1 < span {
		return 0
	}
	sum := 0.0
	for j := i - span + 1; j <= i; j++ {
		sum += closes[j]
	}
	return sum / float64(span)
}

// rsi returns the relative strength index over the window of changes
// ending at index i, in [0, 100]. A flat window yields the neutral 50.
// Callers guarantee i >= window.
func rsi(closes []float64, i, window int) float64 {
	if window <= 0 || i < window {
		return 50.0
	}

	var avgGain, avgLoss float64
	for j := i - window + 1; j <= i; j++ {
		change := closes[j] - closes[j-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(window)
	avgLoss /= float64(window)

	if avgGain == 0 && avgLoss == 0 {
		return 50.0
	}
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// channelHighLow returns the highest high and lowest low of the span
// bars strictly before index i. ok is false while the trailing channel
// is not yet fully formed.
func channelHighLow(bars []domain.Bar, i, span int) (high, low float64, ok bool) {
	if span <= 0 || i < span {
		return 0, 0, false
	}
	high = bars[i-span].High
	low = bars[i-span].Low
	for j := i - span + 1; j < i; j++ {
		if bars[j].High > high {
			high = bars[j].High
		}
		if bars[j].Low < low {
			low = bars[j].Low
		}
	}
	return high, low, true
}

// AverageTrueRange returns the mean true range of the last span bars.
// The true range needs the prior close, so fewer than two bars yield 0;
// a short series averages the ranges it has.
func AverageTrueRange(bars []domain.Bar, span int) float64 {
	if span <= 0 || len(bars) < 2 {
		return 0
	}

	start := len(bars) - span
	if start < 1 {
		start = 1
	}

	sum := 0.0
	count := 0
	for i := start; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr := bars[i].High - bars[i].Low
		if hc := math.Abs(bars[i].High - prevClose); hc > tr {
			tr = hc
		}
		if lc := math.Abs(bars[i].Low - prevClose); lc > tr {
			tr = lc
		}
		sum += tr
		count++
	}
	return sum / float64(count)
}
