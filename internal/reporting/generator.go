// Package reporting renders control-loop snapshots as Markdown and CSV.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tradeloop/internal/domain"
	"tradeloop/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	positions storage.PositionStore
	results   storage.ResultStore
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(positions storage.PositionStore, results storage.ResultStore) *Generator {
	return &Generator{
		positions: positions,
		results:   results,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete snapshot report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	rows, summary, err := g.collectPositions(ctx)
	if err != nil {
		return nil, err
	}

	rankings, err := g.collectRankings(ctx, rows)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		Lifecycle:   summary,
		Positions:   rows,
		Rankings:    rankings,
	}, nil
}

// collectPositions loads every position in lifecycle order and tallies
// the per-state counts.
func (g *Generator) collectPositions(ctx context.Context) ([]PositionRow, LifecycleSummary, error) {
	var (
		rows    []PositionRow
		summary LifecycleSummary
	)

	order := []domain.Status{
		domain.StatusScreened, domain.StatusOptimized, domain.StatusDispatched,
		domain.StatusOpen, domain.StatusCancelled, domain.StatusClosed,
	}
	for _, status := range order {
		in, err := g.positions.GetByStatus(ctx, status)
		if err != nil {
			return nil, LifecycleSummary{}, fmt.Errorf("load %s positions: %w", status, err)
		}

		switch status {
		case domain.StatusScreened:
			summary.Screened = len(in)
		case domain.StatusOptimized:
			summary.Optimized = len(in)
		case domain.StatusDispatched:
			summary.Dispatched = len(in)
		case domain.StatusOpen:
			summary.Open = len(in)
		case domain.StatusCancelled:
			summary.Cancelled = len(in)
		case domain.StatusClosed:
			summary.Closed = len(in)
		}

		for _, p := range in {
			rows = append(rows, PositionRow{
				PositionID:  p.PositionID,
				Ticker:      p.Ticker,
				Status:      string(p.Status),
				Strategy:    p.Strategy,
				Direction:   string(p.Direction),
				TargetEntry: p.TargetEntry,
				StopLoss:    p.StopLoss,
				TakeProfit:  p.TakeProfit,
				CreatedAt:   p.CreatedAt,
				UpdatedAt:   p.UpdatedAt,
			})
		}
	}
	return rows, summary, nil
}

// collectRankings loads the ranked optimization results for every
// ticker that has a tracked position.
func (g *Generator) collectRankings(ctx context.Context, positions []PositionRow) ([]RankingRow, error) {
	tickers := make([]string, 0, len(positions))
	seen := make(map[string]struct{}, len(positions))
	for _, p := range positions {
		if _, ok := seen[p.Ticker]; ok {
			continue
		}
		seen[p.Ticker] = struct{}{}
		tickers = append(tickers, p.Ticker)
	}
	sort.Strings(tickers)

	var rows []RankingRow
	for _, ticker := range tickers {
		results, err := g.results.GetByTicker(ctx, ticker)
		if err != nil {
			return nil, fmt.Errorf("load results for %s: %w", ticker, err)
		}

		// GetByTicker returns best-first; rank is the position in that order.
		for i, r := range results {
			params, err := domain.EncodeParams(r.Params)
			if err != nil {
				return nil, fmt.Errorf("encode params for %s/%s: %w", ticker, r.Strategy, err)
			}
			rows = append(rows, RankingRow{
				Ticker:      ticker,
				Strategy:    r.Strategy,
				Rank:        i + 1,
				Params:      string(params),
				SharpeRatio: r.Metrics.SharpeRatio,
				TotalReturn: r.Metrics.TotalReturn,
				TradeCount:  r.Metrics.TradeCount,
				MaxDrawdown: r.Metrics.MaxDrawdown,
				OptimizedAt: r.OptimizedAt,
			})
		}
	}
	return rows, nil
}
