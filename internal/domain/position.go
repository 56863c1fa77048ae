package domain

// Status is the lifecycle state of a Position.
// Transitions are strictly forward:
// SCREENED → OPTIMIZED → DISPATCHED → OPEN → CLOSED, with CANCELLED
// reachable from DISPATCHED. Terminal states are never re-opened.
type Status string

// Position lifecycle states.
const (
	StatusScreened   Status = "SCREENED"
	StatusOptimized  Status = "OPTIMIZED"
	StatusDispatched Status = "DISPATCHED"
	StatusOpen       Status = "OPEN"
	StatusCancelled  Status = "CANCELLED"
	StatusClosed     Status = "CLOSED"
)

// ActiveStatuses are the non-terminal states. At most one position per
// ticker may be in any of them at a time.
var ActiveStatuses = []Status{StatusScreened, StatusOptimized, StatusDispatched, StatusOpen}

// Terminal reports whether the status can never transition again.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusClosed
}

// Active reports whether the status counts toward the one-active-position-per-ticker rule.
func (s Status) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// Direction is the side of a trade signal.
type Direction string

// Trade directions.
const (
	DirectionNone  Direction = "NONE"
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Position represents a single tracked trading opportunity.
// Created by the screener in SCREENED status; mutated by the optimizer,
// the signal generator and the order manager in strict forward order.
type Position struct {
	PositionID string
	Ticker     string
	Status     Status
	Strategy   string    // winning strategy name, empty until dispatch
	Direction  Direction // NONE until dispatch

	// Protective order levels, zero until computed by the signal generator.
	StopLoss    float64
	TakeProfit  float64
	TargetEntry float64

	CreatedAt int64 // Unix timestamp in milliseconds
	UpdatedAt int64 // Unix timestamp in milliseconds
}
