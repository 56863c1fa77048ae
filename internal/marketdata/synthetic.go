package marketdata

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"tradeloop/internal/domain"
)

// SyntheticSource generates deterministic price series without any
// network dependency. Each ticker gets its own seeded random walk, so
// repeated runs and parallel readers see identical data.
type SyntheticSource struct {
	basePrice  float64
	volatility float64
}

// NewSyntheticSource creates a synthetic source. basePrice anchors each
// walk; volatility is the per-bar fractional move scale.
func NewSyntheticSource(basePrice, volatility float64) *SyntheticSource {
	if basePrice <= 0 {
		basePrice = 100
	}
	if volatility <= 0 {
		volatility = 0.02
	}
	return &SyntheticSource{basePrice: basePrice, volatility: volatility}
}

func tickerSeed(ticker string) int64 {
	h := fnv.New64a()
	h.Write([]byte(ticker))
	return int64(h.Sum64())
}

// DailyBars implements HistorySource. Weekends are skipped, matching
// real exchange series.
func (s *SyntheticSource) DailyBars(_ context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	rng := rand.New(rand.NewSource(tickerSeed(ticker)))
	price := s.basePrice * (0.5 + rng.Float64())

	var bars []domain.Bar
	for d, last := dayStart(start), dayStart(end); d.Before(last); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}

		move := (rng.Float64()*2 - 1) * s.volatility
		// A slow sine drift keeps trends long enough for crossover
		// strategies to latch on.
		drift := 0.003 * math.Sin(float64(len(bars))/20)
		open := price
		price = price * (1 + move + drift)

		high := math.Max(open, price) * (1 + rng.Float64()*s.volatility/2)
		low := math.Min(open, price) * (1 - rng.Float64()*s.volatility/2)

		bars = append(bars, domain.Bar{
			Date:     time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    price,
			AdjClose: price,
			Volume:   1e6 * (0.5 + rng.Float64()),
		})
	}
	return bars, nil
}

// NextEarnings implements EarningsSource. Synthetic tickers never
// report earnings.
func (s *SyntheticSource) NextEarnings(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

// LastPrice implements QuoteSource: the close of the most recent
// synthetic bar up to today.
func (s *SyntheticSource) LastPrice(ctx context.Context, ticker string) (float64, error) {
	now := time.Now().UTC()
	bars, err := s.DailyBars(ctx, ticker, now.AddDate(0, 0, -14), now)
	if err != nil {
		return 0, err
	}
	last, ok := domain.LastBar(bars)
	if !ok {
		return 0, fmt.Errorf("no synthetic bars for %s", ticker)
	}
	return last.Close, nil
}

// Compile-time interface checks.
var (
	_ HistorySource  = (*SyntheticSource)(nil)
	_ EarningsSource = (*SyntheticSource)(nil)
	_ QuoteSource    = (*SyntheticSource)(nil)
)
