package domain

import "time"

// Frequency of a price series.
type Frequency string

// Supported bar frequencies.
const (
	FrequencyDaily  Frequency = "1d"
	FrequencyWeekly Frequency = "1w"
)

// Bar is a single OHLCV observation.
// AdjClose carries the corporate-action-normalized close; strategies and
// screening measures read AdjClose, the raw Close is kept for level maths.
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

// CloneBars returns a deep copy of a bar slice. Optimization workers run
// strategies over private copies so batches never share mutable state.
func CloneBars(bars []Bar) []Bar {
	out := make([]Bar, len(bars))
	copy(out, bars)
	return out
}

// Closes extracts the adjusted close column.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.AdjClose
	}
	return out
}

// LastBar returns the most recent bar and true, or a zero bar and false
// when the series is empty.
func LastBar(bars []Bar) (Bar, bool) {
	if len(bars) == 0 {
		return Bar{}, false
	}
	return bars[len(bars)-1], true
}
