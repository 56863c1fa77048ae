package idhash

import "testing"

func TestComputePositionID_Deterministic(t *testing.T) {
	a := ComputePositionID("AAPL", 1700000000000)
	b := ComputePositionID("AAPL", 1700000000000)
	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
}

func TestComputePositionID_DistinctInputs(t *testing.T) {
	base := ComputePositionID("AAPL", 1700000000000)

	if got := ComputePositionID("MSFT", 1700000000000); got == base {
		t.Error("different tickers produced same ID")
	}
	if got := ComputePositionID("AAPL", 1700000000001); got == base {
		t.Error("different timestamps produced same ID")
	}
}
