package reporting

import "time"

// Report is a point-in-time snapshot of the control loop: position
// counts per lifecycle state, every tracked position, and the ranked
// optimization outcomes per ticker.
type Report struct {
	GeneratedAt time.Time

	Lifecycle LifecycleSummary

	// Positions in lifecycle order, oldest first within a state.
	Positions []PositionRow

	// Rankings per ticker, best combination first.
	Rankings []RankingRow
}

// LifecycleSummary counts positions per lifecycle state.
type LifecycleSummary struct {
	Screened   int
	Optimized  int
	Dispatched int
	Open       int
	Cancelled  int
	Closed     int
}

// ActiveCount returns positions in a non-terminal state.
func (s LifecycleSummary) ActiveCount() int {
	return s.Screened + s.Optimized + s.Dispatched + s.Open
}

// TotalCount returns all tracked positions.
func (s LifecycleSummary) TotalCount() int {
	return s.ActiveCount() + s.Cancelled + s.Closed
}

// PositionRow is one position flattened for rendering.
type PositionRow struct {
	PositionID  string
	Ticker      string
	Status      string
	Strategy    string
	Direction   string
	TargetEntry float64
	StopLoss    float64
	TakeProfit  float64
	CreatedAt   int64 // Unix ms
	UpdatedAt   int64 // Unix ms
}

// RankingRow is one optimization result flattened for rendering.
type RankingRow struct {
	Ticker      string
	Strategy    string
	Rank        int    // 1 = best for the ticker
	Params      string // encoded parameter record
	SharpeRatio float64
	TotalReturn float64
	TradeCount  int
	MaxDrawdown float64
	OptimizedAt time.Time
}
