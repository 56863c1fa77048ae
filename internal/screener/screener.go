package screener

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"tradeloop/internal/domain"
	"tradeloop/internal/guard"
	"tradeloop/internal/idhash"
	"tradeloop/internal/marketclock"
	"tradeloop/internal/marketdata"
	"tradeloop/internal/observ"
	"tradeloop/internal/observability"
	"tradeloop/internal/storage"
)

// Options configures a Screener.
type Options struct {
	Positions storage.PositionStore
	History   marketdata.HistorySource
	Earnings  marketdata.EarningsSource
	Calendar  *marketclock.Calendar

	Universe []string
	Workers  int

	// WindowDays is the trailing calendar window the measures cover.
	WindowDays int

	// LiquidityQuantile keeps tickers whose dollar volume exceeds this
	// quantile of the merged set.
	LiquidityQuantile float64

	// EarningsBufferDays rejects tickers reporting within this many
	// trading days.
	EarningsBufferDays int

	// VolatilitySpan is the ATR lookback in bars.
	VolatilitySpan int
}

// Screener selects one ticker from the universe and opens a SCREENED
// position for it.
type Screener struct {
	opts Options
}

// New creates a Screener.
func New(opts Options) (*Screener, error) {
	if opts.Positions == nil {
		return nil, errors.New("position store is required")
	}
	if opts.History == nil {
		return nil, errors.New("history source is required")
	}
	if opts.Calendar == nil {
		return nil, errors.New("calendar is required")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.WindowDays < 1 {
		opts.WindowDays = 90
	}
	if opts.VolatilitySpan < 1 {
		opts.VolatilitySpan = 14
	}
	return &Screener{opts: opts}, nil
}

// Run performs one screening pass and returns the created position.
// An empty universe after filtering returns (nil, nil) and logs; the
// next loop iteration is the retry.
func (s *Screener) Run(ctx context.Context, now time.Time) (*domain.Position, error) {
	if err := guard.EnsureAbsent(ctx, s.opts.Positions, domain.StatusScreened); err != nil {
		return nil, err
	}
	if len(s.opts.Universe) == 0 {
		observ.Warn("screen.universe_empty", nil)
		return nil, nil
	}

	rows := s.measureUniverse(ctx, now)
	if len(rows) == 0 {
		observ.Warn("screen.no_data", map[string]any{"universe": len(s.opts.Universe)})
		return nil, nil
	}

	filtered := s.filter(rows, now)
	if len(filtered) == 0 {
		observ.Warn("screen.all_filtered", map[string]any{"measured": len(rows)})
		return nil, nil
	}

	pick := selectClosestToMean(filtered)

	if err := guard.EnsureNoActiveForTicker(ctx, s.opts.Positions, pick.Ticker); err != nil {
		if guard.IsViolation(err) {
			observ.Warn("screen.ticker_active", map[string]any{"ticker": pick.Ticker})
			return nil, nil
		}
		return nil, err
	}

	nowMs := now.UnixMilli()
	pos := &domain.Position{
		PositionID: idhash.ComputePositionID(pick.Ticker, nowMs),
		Ticker:     pick.Ticker,
		Status:     domain.StatusScreened,
		Direction:  domain.DirectionNone,
		CreatedAt:  nowMs,
		UpdatedAt:  nowMs,
	}
	if err := s.opts.Positions.Insert(ctx, pos); err != nil {
		return nil, fmt.Errorf("insert screened position: %w", err)
	}
	observability.RecordPositionCreated()

	observ.Log("screen.selected", map[string]any{
		"ticker":   pick.Ticker,
		"score":    pick.Score,
		"filtered": len(filtered),
	})
	return pos, nil
}

// measureUniverse fans the universe out over worker batches. Workers
// share nothing and each returns its own row slice; per-ticker data
// failures shrink the pool instead of failing the batch.
func (s *Screener) measureUniverse(ctx context.Context, now time.Time) []domain.ScreeningRow {
	batches := SplitBatches(s.opts.Universe, s.opts.Workers)
	results := make([][]domain.ScreeningRow, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, tickers []string) {
			defer wg.Done()
			results[i] = s.measureBatch(ctx, tickers, now)
		}(i, batch)
	}
	wg.Wait()

	merged := make([]domain.ScreeningRow, 0, len(s.opts.Universe))
	for _, rows := range results {
		merged = append(merged, rows...)
	}
	return merged
}

func (s *Screener) measureBatch(ctx context.Context, tickers []string, now time.Time) []domain.ScreeningRow {
	start := now.AddDate(0, 0, -s.opts.WindowDays)
	rows := make([]domain.ScreeningRow, 0, len(tickers))

	for _, ticker := range tickers {
		bars, err := s.opts.History.DailyBars(ctx, ticker, start, now)
		if err != nil {
			observ.Warn("screen.history_failed", map[string]any{"ticker": ticker, "error": err.Error()})
			continue
		}
		if len(bars) < 2 {
			observ.Warn("screen.history_empty", map[string]any{"ticker": ticker})
			continue
		}

		row := domain.ScreeningRow{
			Ticker:     ticker,
			Liquidity:  MeanDollarVolume(bars),
			Volatility: NormalizedATR(bars, s.opts.VolatilitySpan),
			Noise:      EfficiencyRatio(bars),
		}
		row.Score = round4(0.5*row.Volatility + 0.5*row.Noise)

		if s.opts.Earnings != nil {
			when, ok, err := s.opts.Earnings.NextEarnings(ctx, ticker)
			if err != nil {
				observ.Warn("screen.earnings_failed", map[string]any{"ticker": ticker, "error": err.Error()})
			} else if ok {
				row.Earnings = when
				row.HasEarnings = true
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// filter keeps rows above the liquidity quantile whose earnings, if
// known, fall beyond the trading-day buffer.
func (s *Screener) filter(rows []domain.ScreeningRow, now time.Time) []domain.ScreeningRow {
	liquidity := make([]float64, len(rows))
	for i, r := range rows {
		liquidity[i] = r.Liquidity
	}
	threshold := Quantile(liquidity, s.opts.LiquidityQuantile)

	kept := make([]domain.ScreeningRow, 0, len(rows))
	for _, r := range rows {
		if r.Liquidity < threshold {
			continue
		}
		if r.HasEarnings {
			days := s.opts.Calendar.TradingDaysUntil(now, r.Earnings)
			if days <= s.opts.EarningsBufferDays {
				continue
			}
		}
		kept = append(kept, r)
	}
	return kept
}

// selectClosestToMean picks the row whose score lies nearest the mean
// of the set, steering away from both extremes. Ties go to the earlier
// row in merge order.
func selectClosestToMean(rows []domain.ScreeningRow) domain.ScreeningRow {
	mean := 0.0
	for _, r := range rows {
		mean += r.Score
	}
	mean /= float64(len(rows))

	best := rows[0]
	bestDist := math.Abs(rows[0].Score - mean)
	for _, r := range rows[1:] {
		d := math.Abs(r.Score - mean)
		if d < bestDist {
			best = r
			bestDist = d
		}
	}
	return best
}
