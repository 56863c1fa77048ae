package strategy

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}

	if got := sma(closes, 4, 3); math.Abs(got-4.0) > 1e-9 {
		t.Errorf("sma over {3,4,5} = %f, want 4", got)
	}
	if got := sma(closes, 4, 5); math.Abs(got-3.0) > 1e-9 {
		t.Errorf("sma over full series = %f, want 3", got)
	}
	if got := sma(closes, 1, 3); got != 0 {
		t.Errorf("sma before warmup = %f, want 0", got)
	}
}

func TestRSI_Bounds(t *testing.T) {
	flat := []float64{100, 100, 100, 100, 100}
	if got := rsi(flat, 4, 3); got != 50.0 {
		t.Errorf("flat rsi = %f, want 50", got)
	}

	up := []float64{100, 101, 102, 103, 104}
	if got := rsi(up, 4, 3); got != 100.0 {
		t.Errorf("all-gain rsi = %f, want 100", got)
	}

	down := []float64{104, 103, 102, 101, 100}
	if got := rsi(down, 4, 3); got != 0.0 {
		t.Errorf("all-loss rsi = %f, want 0", got)
	}

	mixed := []float64{100, 103, 101, 104, 102}
	if got := rsi(mixed, 4, 4); got <= 0 || got >= 100 {
		t.Errorf("mixed rsi = %f, want inside (0, 100)", got)
	}
}

func TestChannelHighLow(t *testing.T) {
	bars := makeBars([]float64{100, 110, 90, 100, 150})

	// Window is bars[1..3]; the bar at i itself stays outside it.
	high, low, ok := channelHighLow(bars, 4, 3)
	if !ok {
		t.Fatal("expected formed channel")
	}
	if math.Abs(high-110*1.01) > 1e-9 {
		t.Errorf("channel high = %f, want %f", high, 110*1.01)
	}
	if math.Abs(low-90*0.99) > 1e-9 {
		t.Errorf("channel low = %f, want %f", low, 90*0.99)
	}

	if _, _, ok := channelHighLow(bars, 2, 3); ok {
		t.Error("channel should not be formed before span bars exist")
	}
}

func TestAverageTrueRange_GapDominates(t *testing.T) {
	// The overnight gap exceeds the intraday range, so the true range
	// must use the prior close.
	bars := makeBars([]float64{100, 130})
	atr := AverageTrueRange(bars, 5)
	want := 130*1.01 - 100 // high minus previous close
	if math.Abs(atr-want) > 1e-9 {
		t.Errorf("atr = %f, want %f", atr, want)
	}
}
