package domain

import "time"

// ScreeningRow holds the per-ticker measures computed during screening.
// Rows from all batches are merged into one table before filtering.
type ScreeningRow struct {
	Ticker     string
	Liquidity  float64 // mean of close × volume over the trailing window
	Volatility float64 // normalized average true range
	Noise      float64 // efficiency ratio: net change / sum of absolute changes
	Score      float64 // equal-weight combination, rounded

	Earnings    time.Time // next earnings date, zero when unknown
	HasEarnings bool
}
