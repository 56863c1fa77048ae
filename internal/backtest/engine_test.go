package backtest

import (
	"math"
	"testing"
	"time"

	"tradeloop/internal/domain"
)

// fixedStrategy returns a predetermined signal sequence.
type fixedStrategy struct {
	signals []domain.Direction
}

func (f *fixedStrategy) Name() string              { return "FIXED" }
func (f *fixedStrategy) StopLossFactor() float64   { return 2.0 }
func (f *fixedStrategy) TakeProfitFactor() float64 { return 3.0 }

func (f *fixedStrategy) Apply(bars []domain.Bar) ([]domain.Direction, error) {
	out := make([]domain.Direction, len(bars))
	copy(out, f.signals)
	for i := len(f.signals); i < len(bars); i++ {
		out[i] = domain.DirectionNone
	}
	return out, nil
}

func makeBars(closes []float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = domain.Bar{Date: start.AddDate(0, 0, i), Close: c, AdjClose: c, High: c, Low: c, Volume: 1e6}
	}
	return bars
}

func TestSimEngine_LongCapturesUpside(t *testing.T) {
	// Held long across a 10% then a 10% move.
	bars := makeBars([]float64{100, 110, 121})
	strat := &fixedStrategy{signals: []domain.Direction{
		domain.DirectionLong, domain.DirectionLong, domain.DirectionLong,
	}}

	m, err := NewSimEngine(10_000).Run(bars, strat)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if math.Abs(m.TotalReturn-0.21) > 1e-9 {
		t.Errorf("expected 21%% total return, got %f", m.TotalReturn)
	}
	if math.Abs(m.FinalEquity-12_100) > 1e-6 {
		t.Errorf("expected final equity 12100, got %f", m.FinalEquity)
	}
	if m.TradeCount != 1 {
		t.Errorf("expected 1 trade, got %d", m.TradeCount)
	}
	if m.MaxDrawdown != 0 {
		t.Errorf("no losing day, drawdown should be 0, got %f", m.MaxDrawdown)
	}
}

func TestSimEngine_ShortCapturesDownside(t *testing.T) {
	bars := makeBars([]float64{100, 90})
	strat := &fixedStrategy{signals: []domain.Direction{domain.DirectionShort, domain.DirectionShort}}

	m, err := NewSimEngine(10_000).Run(bars, strat)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if math.Abs(m.TotalReturn-0.10) > 1e-9 {
		t.Errorf("short on a 10%% drop should return 10%%, got %f", m.TotalReturn)
	}
}

func TestSimEngine_FlatEarnsNothing(t *testing.T) {
	bars := makeBars([]float64{100, 120, 80, 140})
	strat := &fixedStrategy{signals: []domain.Direction{
		domain.DirectionNone, domain.DirectionNone, domain.DirectionNone, domain.DirectionNone,
	}}

	m, err := NewSimEngine(10_000).Run(bars, strat)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if m.TotalReturn != 0 {
		t.Errorf("flat walk should return 0, got %f", m.TotalReturn)
	}
	if m.TradeCount != 0 {
		t.Errorf("flat walk should trade 0 times, got %d", m.TradeCount)
	}
	if m.SharpeRatio != 0 {
		t.Errorf("zero-variance returns should score 0 Sharpe, got %f", m.SharpeRatio)
	}
}

func TestSimEngine_TradeCountOnFlips(t *testing.T) {
	bars := makeBars([]float64{100, 101, 102, 103, 104})
	strat := &fixedStrategy{signals: []domain.Direction{
		domain.DirectionLong,
		domain.DirectionShort,
		domain.DirectionNone,
		domain.DirectionLong,
		domain.DirectionLong,
	}}

	m, err := NewSimEngine(10_000).Run(bars, strat)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Long, flip to short, exit to flat, re-enter long: 3 entries.
	if m.TradeCount != 3 {
		t.Errorf("expected 3 trades, got %d", m.TradeCount)
	}
}

func TestSimEngine_Drawdown(t *testing.T) {
	// Long through a 50% crash then recovery.
	bars := makeBars([]float64{100, 200, 100, 150})
	strat := &fixedStrategy{signals: []domain.Direction{
		domain.DirectionLong, domain.DirectionLong, domain.DirectionLong, domain.DirectionLong,
	}}

	m, err := NewSimEngine(10_000).Run(bars, strat)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if math.Abs(m.MaxDrawdown-0.5) > 1e-9 {
		t.Errorf("expected 50%% max drawdown, got %f", m.MaxDrawdown)
	}
}

func TestSimEngine_TooFewBars(t *testing.T) {
	if _, err := NewSimEngine(10_000).Run(makeBars([]float64{100}), &fixedStrategy{}); err == nil {
		t.Error("expected error for single-bar series")
	}
}
