package guard

import (
	"context"
	"errors"
	"testing"

	"tradeloop/internal/domain"
	"tradeloop/internal/storage/memory"
)

func TestEnsureAbsent(t *testing.T) {
	store := memory.NewPositionStore()
	ctx := context.Background()

	if err := EnsureAbsent(ctx, store, domain.StatusScreened); err != nil {
		t.Fatalf("empty store should pass: %v", err)
	}

	p := &domain.Position{PositionID: "p1", Ticker: "AAPL", Status: domain.StatusScreened}
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := EnsureAbsent(ctx, store, domain.StatusScreened)
	if !errors.Is(err, ErrScreenedPositionExists) {
		t.Errorf("expected ErrScreenedPositionExists, got %v", err)
	}

	// Other statuses still pass.
	if err := EnsureAbsent(ctx, store, domain.StatusDispatched); err != nil {
		t.Errorf("dispatched check should pass: %v", err)
	}
}

func TestEnsureAbsent_StatusSentinels(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		status domain.Status
		want   error
	}{
		{domain.StatusOptimized, ErrOptimizedPositionExists},
		{domain.StatusDispatched, ErrDispatchedPositionExists},
		{domain.StatusOpen, ErrOpenPositionExists},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			store := memory.NewPositionStore()
			p := &domain.Position{PositionID: "p1", Ticker: "AAPL", Status: tt.status}
			if err := store.Insert(ctx, p); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			if err := EnsureAbsent(ctx, store, tt.status); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEnsureActionable(t *testing.T) {
	store := memory.NewPositionStore()
	ctx := context.Background()

	if err := EnsureActionable(ctx, store); !errors.Is(err, ErrNoActionablePosition) {
		t.Errorf("expected ErrNoActionablePosition, got %v", err)
	}

	p := &domain.Position{PositionID: "p1", Ticker: "AAPL", Status: domain.StatusOptimized}
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := EnsureActionable(ctx, store); err != nil {
		t.Errorf("optimized position should be actionable: %v", err)
	}
}

func TestEnsureNoActiveForTicker(t *testing.T) {
	store := memory.NewPositionStore()
	ctx := context.Background()

	closed := &domain.Position{PositionID: "p1", Ticker: "AAPL", Status: domain.StatusClosed}
	if err := store.Insert(ctx, closed); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := EnsureNoActiveForTicker(ctx, store, "AAPL"); err != nil {
		t.Errorf("terminal position should not block: %v", err)
	}

	open := &domain.Position{PositionID: "p2", Ticker: "AAPL", Status: domain.StatusOpen}
	if err := store.Insert(ctx, open); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	err := EnsureNoActiveForTicker(ctx, store, "AAPL")
	if !errors.Is(err, ErrActivePositionExists) {
		t.Errorf("expected ErrActivePositionExists, got %v", err)
	}
}

func TestIsViolation(t *testing.T) {
	if !IsViolation(ErrScreenedPositionExists) {
		t.Error("sentinel should be a violation")
	}
	if IsViolation(errors.New("plain error")) {
		t.Error("plain error should not be a violation")
	}
}
