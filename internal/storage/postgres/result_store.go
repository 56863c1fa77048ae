package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tradeloop/internal/domain"
	"tradeloop/internal/storage"
)

// ResultStore implements storage.ResultStore using PostgreSQL.
// Parameter records are persisted as JSONB through the domain codec.
type ResultStore struct {
	pool *Pool
}

// NewResultStore creates a new ResultStore.
func NewResultStore(pool *Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ResultStore = (*ResultStore)(nil)

// Upsert inserts or replaces the result keyed by (ticker, strategy).
func (s *ResultStore) Upsert(ctx context.Context, r *domain.OptimizationResult) error {
	params, err := domain.EncodeParams(r.Params)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO optimization_results (
			ticker, strategy, params, total_return, sharpe_ratio,
			trade_count, max_drawdown, final_equity, optimized_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ticker, strategy) DO UPDATE SET
			params = EXCLUDED.params,
			total_return = EXCLUDED.total_return,
			sharpe_ratio = EXCLUDED.sharpe_ratio,
			trade_count = EXCLUDED.trade_count,
			max_drawdown = EXCLUDED.max_drawdown,
			final_equity = EXCLUDED.final_equity,
			optimized_at = EXCLUDED.optimized_at
	`

	_, err = s.pool.Exec(ctx, query,
		r.Ticker,
		r.Strategy,
		params,
		r.Metrics.TotalReturn,
		r.Metrics.SharpeRatio,
		r.Metrics.TradeCount,
		r.Metrics.MaxDrawdown,
		r.Metrics.FinalEquity,
		r.OptimizedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert optimization result: %w", err)
	}
	return nil
}

// GetByKey retrieves the result for one (ticker, strategy) pair.
func (s *ResultStore) GetByKey(ctx context.Context, ticker, strategy string) (*domain.OptimizationResult, error) {
	query := `
		SELECT ticker, strategy, params, total_return, sharpe_ratio,
		       trade_count, max_drawdown, final_equity, optimized_at
		FROM optimization_results
		WHERE ticker = $1 AND strategy = $2
	`

	row := s.pool.QueryRow(ctx, query, ticker, strategy)
	r, err := scanResult(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get result by key: %w", err)
	}
	return r, nil
}

// GetByTicker retrieves all results for a ticker ordered best-first by
// the ranking key.
func (s *ResultStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.OptimizationResult, error) {
	query := `
		SELECT ticker, strategy, params, total_return, sharpe_ratio,
		       trade_count, max_drawdown, final_equity, optimized_at
		FROM optimization_results
		WHERE ticker = $1
		ORDER BY sharpe_ratio DESC, total_return DESC, trade_count DESC, strategy ASC
	`

	rows, err := s.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("get results by ticker: %w", err)
	}
	defer rows.Close()

	var results []*domain.OptimizationResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}

	return results, nil
}

// scanResult scans a single row into an OptimizationResult.
func scanResult(row pgx.Row) (*domain.OptimizationResult, error) {
	var r domain.OptimizationResult
	var params []byte
	var optimizedAt time.Time

	err := row.Scan(
		&r.Ticker,
		&r.Strategy,
		&params,
		&r.Metrics.TotalReturn,
		&r.Metrics.SharpeRatio,
		&r.Metrics.TradeCount,
		&r.Metrics.MaxDrawdown,
		&r.Metrics.FinalEquity,
		&optimizedAt,
	)
	if err != nil {
		return nil, err
	}

	decoded, err := domain.DecodeParams(params)
	if err != nil {
		return nil, err
	}
	r.Params = decoded
	r.OptimizedAt = optimizedAt
	return &r, nil
}
