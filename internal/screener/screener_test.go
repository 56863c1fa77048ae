package screener

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"tradeloop/internal/domain"
	"tradeloop/internal/guard"
	"tradeloop/internal/marketclock"
	"tradeloop/internal/storage/memory"
)

// fakeHistory serves canned bar series and fails for listed tickers.
type fakeHistory struct {
	series map[string][]domain.Bar
	broken map[string]bool
}

func (f *fakeHistory) DailyBars(_ context.Context, ticker string, _, _ time.Time) ([]domain.Bar, error) {
	if f.broken[ticker] {
		return nil, errors.New("feed unavailable")
	}
	return f.series[ticker], nil
}

type fakeEarnings struct {
	dates map[string]time.Time
}

func (f *fakeEarnings) NextEarnings(_ context.Context, ticker string) (time.Time, bool, error) {
	d, ok := f.dates[ticker]
	return d, ok, nil
}

// trendBars builds a series drifting by dailyMove per bar.
func trendBars(n int, start, dailyMove, volume float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	price := start
	for i := 0; i < n; i++ {
		bars[i] = domain.Bar{
			Date:     day.AddDate(0, 0, i),
			Open:     price,
			High:     price * 1.02,
			Low:      price * 0.98,
			Close:    price,
			AdjClose: price,
			Volume:   volume,
		}
		price += dailyMove
	}
	return bars
}

func newTestCalendar(t *testing.T) *marketclock.Calendar {
	t.Helper()
	cal, err := marketclock.New("America/New_York", "09:30", "16:00", 30*time.Minute)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	return cal
}

func newTestScreener(t *testing.T, opts Options) *Screener {
	t.Helper()
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestRun_CreatesScreenedPosition(t *testing.T) {
	store := memory.NewPositionStore()
	history := &fakeHistory{series: map[string][]domain.Bar{
		"AAA": trendBars(30, 100, 1, 5e6),
		"BBB": trendBars(30, 50, 0.5, 4e6),
		"CCC": trendBars(30, 20, 0.1, 3e6),
	}}

	s := newTestScreener(t, Options{
		Positions:         store,
		History:           history,
		Earnings:          &fakeEarnings{},
		Calendar:          newTestCalendar(t),
		Universe:          []string{"AAA", "BBB", "CCC"},
		Workers:           2,
		WindowDays:        60,
		LiquidityQuantile: 0,
	})

	now := time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC)
	pos, err := s.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if pos == nil {
		t.Fatal("expected a position")
	}
	if pos.Status != domain.StatusScreened {
		t.Errorf("expected SCREENED, got %s", pos.Status)
	}
	if pos.Direction != domain.DirectionNone {
		t.Errorf("fresh position must carry no direction, got %s", pos.Direction)
	}

	stored, err := store.GetByID(context.Background(), pos.PositionID)
	if err != nil {
		t.Fatalf("position not persisted: %v", err)
	}
	if stored.Ticker != pos.Ticker {
		t.Errorf("ticker mismatch: %s vs %s", stored.Ticker, pos.Ticker)
	}
}

func TestRun_SecondScreenedIsViolation(t *testing.T) {
	store := memory.NewPositionStore()
	existing := &domain.Position{
		PositionID: "abc123",
		Ticker:     "ZZZ",
		Status:     domain.StatusScreened,
		Direction:  domain.DirectionNone,
		CreatedAt:  1,
		UpdatedAt:  1,
	}
	if err := store.Insert(context.Background(), existing); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := newTestScreener(t, Options{
		Positions: store,
		History:   &fakeHistory{},
		Calendar:  newTestCalendar(t),
		Universe:  []string{"AAA"},
	})

	_, err := s.Run(context.Background(), time.Now())
	if !errors.Is(err, guard.ErrScreenedPositionExists) {
		t.Fatalf("expected ErrScreenedPositionExists, got %v", err)
	}
}

func TestRun_BrokenTickerOnlyShrinksPool(t *testing.T) {
	store := memory.NewPositionStore()
	history := &fakeHistory{
		series: map[string][]domain.Bar{
			"AAA": trendBars(30, 100, 1, 5e6),
			"BBB": trendBars(30, 50, 0.5, 4e6),
		},
		broken: map[string]bool{"BAD": true},
	}

	s := newTestScreener(t, Options{
		Positions: store,
		History:   history,
		Calendar:  newTestCalendar(t),
		Universe:  []string{"AAA", "BAD", "BBB"},
		Workers:   3,
	})

	pos, err := s.Run(context.Background(), time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if pos == nil {
		t.Fatal("expected a position despite one broken ticker")
	}
	if pos.Ticker == "BAD" {
		t.Error("broken ticker must never be selected")
	}
}

func TestRun_EarningsBufferExcludes(t *testing.T) {
	store := memory.NewPositionStore()
	now := time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC) // Monday
	history := &fakeHistory{series: map[string][]domain.Bar{
		"SOON": trendBars(30, 100, 1, 5e6),
		"LATE": trendBars(30, 50, 0.5, 4e6),
	}}
	earnings := &fakeEarnings{dates: map[string]time.Time{
		"SOON": now.AddDate(0, 0, 2),
		"LATE": now.AddDate(0, 0, 60),
	}}

	s := newTestScreener(t, Options{
		Positions:          store,
		History:            history,
		Earnings:           earnings,
		Calendar:           newTestCalendar(t),
		Universe:           []string{"SOON", "LATE"},
		EarningsBufferDays: 5,
	})

	pos, err := s.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if pos == nil {
		t.Fatal("expected a position")
	}
	if pos.Ticker != "LATE" {
		t.Errorf("expected LATE, got %s", pos.Ticker)
	}
}

func TestRun_ActiveTickerSkipped(t *testing.T) {
	store := memory.NewPositionStore()
	active := &domain.Position{
		PositionID: "def456",
		Ticker:     "AAA",
		Status:     domain.StatusOpen,
		Direction:  domain.DirectionLong,
		CreatedAt:  1,
		UpdatedAt:  1,
	}
	if err := store.Insert(context.Background(), active); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := newTestScreener(t, Options{
		Positions: store,
		History: &fakeHistory{series: map[string][]domain.Bar{
			"AAA": trendBars(30, 100, 1, 5e6),
		}},
		Calendar: newTestCalendar(t),
		Universe: []string{"AAA"},
	})

	pos, err := s.Run(context.Background(), time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run must not fail on an active ticker: %v", err)
	}
	if pos != nil {
		t.Errorf("expected no creation for active ticker, got %+v", pos)
	}
}

func TestRun_EmptyUniverse(t *testing.T) {
	s := newTestScreener(t, Options{
		Positions: memory.NewPositionStore(),
		History:   &fakeHistory{},
		Calendar:  newTestCalendar(t),
		Universe:  nil,
	})

	pos, err := s.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("empty universe must not error: %v", err)
	}
	if pos != nil {
		t.Errorf("expected nil position, got %+v", pos)
	}
}

func TestSelectClosestToMean(t *testing.T) {
	rows := []domain.ScreeningRow{
		{Ticker: "LOW", Score: 0.1},
		{Ticker: "MID", Score: 0.5},
		{Ticker: "HIGH", Score: 0.9},
	}
	if got := selectClosestToMean(rows); got.Ticker != "MID" {
		t.Errorf("expected MID, got %s", got.Ticker)
	}
}

func TestQuantile(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	if got := Quantile(vals, 0.5); got != 3 {
		t.Errorf("median of 1..5 should be 3, got %f", got)
	}
	if got := Quantile(vals, 0); got != 1 {
		t.Errorf("0-quantile should be min, got %f", got)
	}
	if got := Quantile(vals, 1); got != 5 {
		t.Errorf("1-quantile should be max, got %f", got)
	}
	if got := Quantile([]float64{2, 4}, 0.5); math.Abs(got-3) > 1e-9 {
		t.Errorf("interpolated median of {2,4} should be 3, got %f", got)
	}
}

func TestEfficiencyRatio(t *testing.T) {
	straight := trendBars(10, 100, 1, 1e6)
	if got := EfficiencyRatio(straight); math.Abs(got-1) > 1e-9 {
		t.Errorf("monotonic series should score 1, got %f", got)
	}

	chop := []domain.Bar{
		{AdjClose: 100}, {AdjClose: 110}, {AdjClose: 100}, {AdjClose: 110}, {AdjClose: 100},
	}
	if got := EfficiencyRatio(chop); got != 0 {
		t.Errorf("round-trip series should score 0, got %f", got)
	}
}
