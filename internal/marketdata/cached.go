package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradeloop/internal/domain"
	"tradeloop/internal/observ"
	"tradeloop/internal/storage"
)

// CachedHistory is a cache-through wrapper over a HistorySource: ranged
// reads come from the bar store when it is current, and upstream
// fetches backfill it. Cache writes are best-effort; the first write
// after a cold start can time out on some column stores, which only
// costs a refetch next cycle.
type CachedHistory struct {
	upstream HistorySource
	store    storage.BarStore
}

// NewCachedHistory wraps upstream with the given bar store.
func NewCachedHistory(upstream HistorySource, store storage.BarStore) *CachedHistory {
	return &CachedHistory{upstream: upstream, store: store}
}

// DailyBars implements HistorySource.
func (c *CachedHistory) DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	latest, err := c.store.LatestDate(ctx, ticker)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.backfill(ctx, ticker, start, end)
	case err != nil:
		return nil, fmt.Errorf("latest cached date for %s: %w", ticker, err)
	}

	// lastWanted is the newest calendar day inside the half-open
	// interval. GetRange is inclusive on both ends, so the bound
	// converts here.
	lastWanted := dayStart(end).AddDate(0, 0, -1)
	if latest.Before(lastWanted) {
		fetched, err := c.upstream.DailyBars(ctx, ticker, latest.AddDate(0, 0, 1), end)
		if err != nil {
			return nil, err
		}
		c.cache(ctx, ticker, fetched)
	}
	return c.store.GetRange(ctx, ticker, start, lastWanted)
}

func (c *CachedHistory) backfill(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	bars, err := c.upstream.DailyBars(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	c.cache(ctx, ticker, bars)
	return bars, nil
}

func (c *CachedHistory) cache(ctx context.Context, ticker string, bars []domain.Bar) {
	if len(bars) == 0 {
		return
	}
	if err := c.store.InsertBulk(ctx, ticker, bars); err != nil {
		observ.Warn("history.cache_write_failed", map[string]any{
			"ticker": ticker,
			"bars":   len(bars),
			"error":  err.Error(),
		})
	}
}

// Compile-time interface check.
var _ HistorySource = (*CachedHistory)(nil)
