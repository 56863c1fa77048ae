package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradeloop/internal/domain"
	"tradeloop/internal/guard"
	"tradeloop/internal/marketclock"
	"tradeloop/internal/marketdata"
	"tradeloop/internal/observ"
	"tradeloop/internal/storage"
)

// ErrNotDispatched is returned when the position handed to the order
// manager is not in DISPATCHED status.
var ErrNotDispatched = errors.New("position is not dispatched")

// OrderManager consumes a DISPATCHED position, places its entry order
// and synchronizes the position to OPEN on fill or CANCELLED on
// timeout. It is the only component allowed to write those statuses.
type OrderManager interface {
	Execute(ctx context.Context, positionID string) error
}

// LimitOrderOptions configures a LimitOrderManager.
type LimitOrderOptions struct {
	Positions storage.PositionStore
	Quotes    marketdata.QuoteSource
	Calendar  *marketclock.Calendar

	// PollInterval is the quote polling cadence while waiting for the
	// limit price to trade through.
	PollInterval time.Duration

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// LimitOrderManager is a reference order manager: it polls quotes until
// the target entry trades through, then opens the position. An unfilled
// order is cancelled once the market is closing soon or closed.
type LimitOrderManager struct {
	opts LimitOrderOptions
}

// NewLimitOrderManager creates a LimitOrderManager.
func NewLimitOrderManager(opts LimitOrderOptions) (*LimitOrderManager, error) {
	if opts.Positions == nil {
		return nil, errors.New("position store is required")
	}
	if opts.Quotes == nil {
		return nil, errors.New("quote source is required")
	}
	if opts.Calendar == nil {
		return nil, errors.New("calendar is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LimitOrderManager{opts: opts}, nil
}

// Execute implements OrderManager.
func (m *LimitOrderManager) Execute(ctx context.Context, positionID string) error {
	pos, err := m.opts.Positions.GetByID(ctx, positionID)
	if err != nil {
		return fmt.Errorf("load position %s: %w", positionID, err)
	}
	if pos.Status != domain.StatusDispatched {
		return fmt.Errorf("position %s in status %s: %w", positionID, pos.Status, ErrNotDispatched)
	}
	if err := guard.EnsureAbsent(ctx, m.opts.Positions, domain.StatusOpen); err != nil {
		return err
	}

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		now := m.opts.Now()
		session := m.opts.Calendar.Session(now)
		if !session.CanExecute || m.opts.Calendar.ClosingSoon(now) {
			return m.cancel(ctx, pos, now)
		}

		price, err := m.opts.Quotes.LastPrice(ctx, pos.Ticker)
		if err != nil {
			observ.Warn("order.quote_failed", map[string]any{"ticker": pos.Ticker, "error": err.Error()})
		} else if filled(pos, price) {
			return m.open(ctx, pos, now)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// filled reports whether the last price traded through the limit entry.
func filled(pos *domain.Position, price float64) bool {
	switch pos.Direction {
	case domain.DirectionLong:
		return price <= pos.TargetEntry
	case domain.DirectionShort:
		return price >= pos.TargetEntry
	default:
		return false
	}
}

func (m *LimitOrderManager) open(ctx context.Context, pos *domain.Position, now time.Time) error {
	pos.Status = domain.StatusOpen
	pos.UpdatedAt = now.UnixMilli()
	if err := m.opts.Positions.Update(ctx, pos); err != nil {
		return fmt.Errorf("open position %s: %w", pos.PositionID, err)
	}
	observ.Log("order.filled", map[string]any{
		"ticker": pos.Ticker,
		"entry":  pos.TargetEntry,
	})
	return nil
}

func (m *LimitOrderManager) cancel(ctx context.Context, pos *domain.Position, now time.Time) error {
	pos.Status = domain.StatusCancelled
	pos.UpdatedAt = now.UnixMilli()
	if err := m.opts.Positions.Update(ctx, pos); err != nil {
		return fmt.Errorf("cancel position %s: %w", pos.PositionID, err)
	}
	observ.Log("order.cancelled", map[string]any{
		"ticker": pos.Ticker,
		"entry":  pos.TargetEntry,
	})
	return nil
}

// Compile-time interface check.
var _ OrderManager = (*LimitOrderManager)(nil)
