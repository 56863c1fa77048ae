package marketdata

import (
	"context"
	"time"

	"tradeloop/internal/domain"
)

// HistorySource provides daily bar history for a ticker.
type HistorySource interface {
	// DailyBars returns bars with dates in [start, end), oldest first.
	// The interval is half-open at day granularity: a bar dated on
	// end's calendar day is excluded regardless of end's clock time.
	DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error)
}

// dayStart truncates a time to midnight UTC of its calendar day. Bar
// dates are stored this way, so interval endpoints compare against it.
func dayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EarningsSource provides the next scheduled earnings date.
type EarningsSource interface {
	// NextEarnings returns the upcoming earnings date for the ticker.
	// The bool is false when no earnings event is scheduled.
	NextEarnings(ctx context.Context, ticker string) (time.Time, bool, error)
}

// QuoteSource provides the most recent traded price.
type QuoteSource interface {
	LastPrice(ctx context.Context, ticker string) (float64, error)
}
