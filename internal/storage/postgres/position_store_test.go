package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeloop/internal/domain"
	"tradeloop/internal/storage"
)

func TestPositionStore_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPositionStore(pool)
	ctx := context.Background()

	p := &domain.Position{
		PositionID: "pos-1",
		Ticker:     "AAPL",
		Status:     domain.StatusScreened,
		Direction:  domain.DirectionNone,
		CreatedAt:  1000,
		UpdatedAt:  1000,
	}

	require.NoError(t, store.Insert(ctx, p))

	// Duplicate insert maps the unique violation.
	err := store.Insert(ctx, p)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByID(ctx, "pos-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScreened, got.Status)
	assert.Equal(t, "AAPL", got.Ticker)

	// Forward transition with levels.
	got.Status = domain.StatusDispatched
	got.Strategy = domain.StrategySMACross
	got.Direction = domain.DirectionLong
	got.StopLoss = 95.5
	got.TakeProfit = 112.25
	got.TargetEntry = 99.75
	got.UpdatedAt = 2000
	require.NoError(t, store.Update(ctx, got))

	updated, err := store.GetByID(ctx, "pos-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDispatched, updated.Status)
	assert.Equal(t, domain.DirectionLong, updated.Direction)
	assert.InDelta(t, 95.5, updated.StopLoss, 1e-9)
	assert.InDelta(t, 112.25, updated.TakeProfit, 1e-9)
}

func TestPositionStore_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPositionStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Update(ctx, &domain.Position{PositionID: "missing", Status: domain.StatusOpen})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.FirstByStatus(ctx, domain.StatusScreened)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPositionStore_StatusAndTickerQueries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPositionStore(pool)
	ctx := context.Background()

	seed := []*domain.Position{
		{PositionID: "a", Ticker: "AAPL", Status: domain.StatusClosed, Direction: domain.DirectionLong, CreatedAt: 100, UpdatedAt: 100},
		{PositionID: "b", Ticker: "AAPL", Status: domain.StatusOpen, Direction: domain.DirectionLong, CreatedAt: 200, UpdatedAt: 200},
		{PositionID: "c", Ticker: "MSFT", Status: domain.StatusScreened, Direction: domain.DirectionNone, CreatedAt: 300, UpdatedAt: 300},
		{PositionID: "d", Ticker: "NVDA", Status: domain.StatusScreened, Direction: domain.DirectionNone, CreatedAt: 150, UpdatedAt: 150},
	}
	for _, p := range seed {
		require.NoError(t, store.Insert(ctx, p))
	}

	first, err := store.FirstByStatus(ctx, domain.StatusScreened)
	require.NoError(t, err)
	assert.Equal(t, "d", first.PositionID, "oldest screened position wins")

	screened, err := store.GetByStatus(ctx, domain.StatusScreened)
	require.NoError(t, err)
	require.Len(t, screened, 2)
	assert.Equal(t, "d", screened[0].PositionID)

	active, err := store.GetActiveByTicker(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, active, 1, "terminal positions are excluded")
	assert.Equal(t, "b", active[0].PositionID)
}
