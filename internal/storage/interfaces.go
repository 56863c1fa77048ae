package storage

import (
	"context"
	"time"

	"tradeloop/internal/domain"
)

// PositionStore provides access to position storage.
//
// The store itself performs no lifecycle validation; invariant checks run
// at stage boundaries under a check-then-act discipline that assumes a
// single orchestrator instance (single writer).
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
	Insert(ctx context.Context, p *domain.Position) error

	// Update replaces a position's mutable fields. Returns ErrNotFound if not exists.
	Update(ctx context.Context, p *domain.Position) error

	// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, positionID string) (*domain.Position, error)

	// FirstByStatus returns the oldest position in the given status.
	// Returns ErrNotFound when none exists.
	FirstByStatus(ctx context.Context, status domain.Status) (*domain.Position, error)

	// GetByStatus retrieves all positions in the given status, ordered by
	// created_at ASC.
	GetByStatus(ctx context.Context, status domain.Status) ([]*domain.Position, error)

	// GetActiveByTicker retrieves positions for a ticker in any active
	// (non-terminal) status.
	GetActiveByTicker(ctx context.Context, ticker string) ([]*domain.Position, error)
}

// ResultStore provides access to optimization-result storage.
type ResultStore interface {
	// Upsert inserts or replaces the result keyed by (ticker, strategy).
	Upsert(ctx context.Context, r *domain.OptimizationResult) error

	// GetByKey retrieves the result for one (ticker, strategy) pair.
	// Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, ticker, strategy string) (*domain.OptimizationResult, error)

	// GetByTicker retrieves all results for a ticker ordered best-first by
	// the ranking key (Sharpe ratio, total return, trade count, descending).
	GetByTicker(ctx context.Context, ticker string) ([]*domain.OptimizationResult, error)
}

// BarStore provides access to the daily-bar time series store.
type BarStore interface {
	// InsertBulk adds bars for a ticker. Bars already present for
	// (ticker, date) fail the batch with ErrDuplicateKey.
	InsertBulk(ctx context.Context, ticker string, bars []domain.Bar) error

	// GetRange retrieves bars for a ticker within [start, end] inclusive,
	// ordered by date ASC.
	GetRange(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error)

	// LatestDate returns the most recent stored bar date for a ticker.
	// Returns ErrNotFound when the ticker has no bars.
	LatestDate(ctx context.Context, ticker string) (time.Time, error)
}
