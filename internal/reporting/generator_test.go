package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"tradeloop/internal/domain"
	"tradeloop/internal/storage/memory"
)

func fixedClock() func() time.Time {
	at := time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func fptr(v float64) *float64 { return &v }

func seedStores(t *testing.T) (*memory.PositionStore, *memory.ResultStore) {
	t.Helper()
	ctx := context.Background()

	positions := memory.NewPositionStore()
	results := memory.NewResultStore()

	open := &domain.Position{
		PositionID:  "pos-aaa",
		Ticker:      "AAA",
		Status:      domain.StatusOpen,
		Strategy:    domain.StrategyChannelBreakout,
		Direction:   domain.DirectionLong,
		TargetEntry: 101.25,
		StopLoss:    99.10,
		TakeProfit:  105.40,
		CreatedAt:   1000,
		UpdatedAt:   2000,
	}
	closed := &domain.Position{
		PositionID: "pos-bbb",
		Ticker:     "BBB",
		Status:     domain.StatusClosed,
		Direction:  domain.DirectionNone,
		CreatedAt:  500,
		UpdatedAt:  900,
	}
	for _, p := range []*domain.Position{open, closed} {
		if err := positions.Insert(ctx, p); err != nil {
			t.Fatalf("insert %s: %v", p.PositionID, err)
		}
	}

	optimizedAt := time.Date(2025, 6, 2, 20, 30, 0, 0, time.UTC)
	best := &domain.OptimizationResult{
		Ticker:   "AAA",
		Strategy: domain.StrategyChannelBreakout,
		Params: domain.StrategyParams{
			Strategy:    domain.StrategyChannelBreakout,
			Window:      20,
			ChannelSpan: fptr(10),
			BandPct:     fptr(0.01),
		},
		Metrics:     domain.PerformanceMetrics{SharpeRatio: 2.1, TotalReturn: 0.30, TradeCount: 9},
		OptimizedAt: optimizedAt,
	}
	worse := &domain.OptimizationResult{
		Ticker:   "AAA",
		Strategy: domain.StrategySMACross,
		Params: domain.StrategyParams{
			Strategy: domain.StrategySMACross,
			Window:   20,
			FastSpan: fptr(5),
			SlowSpan: fptr(30),
		},
		Metrics:     domain.PerformanceMetrics{SharpeRatio: 0.8, TotalReturn: 0.05, TradeCount: 4},
		OptimizedAt: optimizedAt,
	}
	for _, r := range []*domain.OptimizationResult{worse, best} {
		if err := results.Upsert(ctx, r); err != nil {
			t.Fatalf("upsert %s/%s: %v", r.Ticker, r.Strategy, err)
		}
	}

	return positions, results
}

func TestGenerateSnapshot(t *testing.T) {
	positions, results := seedStores(t)
	gen := NewGenerator(positions, results).WithClock(fixedClock())

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if report.Lifecycle.Open != 1 || report.Lifecycle.Closed != 1 {
		t.Fatalf("lifecycle counts = %+v, want 1 open 1 closed", report.Lifecycle)
	}
	if got := report.Lifecycle.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount = %d, want 1", got)
	}
	if got := report.Lifecycle.TotalCount(); got != 2 {
		t.Errorf("TotalCount = %d, want 2", got)
	}

	if len(report.Positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(report.Positions))
	}
	// Lifecycle ordering puts the OPEN row before the CLOSED one.
	if report.Positions[0].Status != "OPEN" || report.Positions[1].Status != "CLOSED" {
		t.Errorf("position order = %s, %s", report.Positions[0].Status, report.Positions[1].Status)
	}

	if len(report.Rankings) != 2 {
		t.Fatalf("rankings = %d, want 2", len(report.Rankings))
	}
	first := report.Rankings[0]
	if first.Rank != 1 || first.Strategy != domain.StrategyChannelBreakout {
		t.Errorf("rank 1 = %d %s, want 1 %s", first.Rank, first.Strategy, domain.StrategyChannelBreakout)
	}
	if report.Rankings[1].Rank != 2 {
		t.Errorf("rank 2 = %d, want 2", report.Rankings[1].Rank)
	}
	if !strings.Contains(first.Params, `"channel_span":10`) {
		t.Errorf("encoded params missing channel_span: %s", first.Params)
	}

	if !report.GeneratedAt.Equal(fixedClock()()) {
		t.Errorf("GeneratedAt = %v, want fixed clock", report.GeneratedAt)
	}
}

func TestGenerateEmptyStore(t *testing.T) {
	gen := NewGenerator(memory.NewPositionStore(), memory.NewResultStore()).WithClock(fixedClock())

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if report.Lifecycle.TotalCount() != 0 || len(report.Positions) != 0 || len(report.Rankings) != 0 {
		t.Fatalf("empty store produced non-empty report: %+v", report)
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "No positions tracked.") {
		t.Error("markdown missing empty-positions message")
	}
	if !strings.Contains(md, "No optimization results available.") {
		t.Error("markdown missing empty-rankings message")
	}
}

func TestRenderMarkdown(t *testing.T) {
	positions, results := seedStores(t)
	gen := NewGenerator(positions, results).WithClock(fixedClock())

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Position Report",
		"Generated: 2025-06-02T21:00:00Z",
		"| OPEN | 1 |",
		"| AAA | OPEN | CHANNEL_BREAKOUT | LONG | 101.25 | 99.10 | 105.40 |",
		"| BBB | CLOSED | - | NONE |",
		"| AAA | 1 | CHANNEL_BREAKOUT | 2.1000 | 0.3000 | 9 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	positions, results := seedStores(t)
	gen := NewGenerator(positions, results).WithClock(fixedClock())

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	posCSV := RenderPositionsCSV(report.Positions)
	posLines := strings.Split(strings.TrimRight(posCSV, "\n"), "\n")
	if len(posLines) != 3 {
		t.Fatalf("positions csv lines = %d, want 3", len(posLines))
	}
	if !strings.HasPrefix(posLines[0], "position_id,ticker,status") {
		t.Errorf("positions csv header = %q", posLines[0])
	}
	if !strings.HasPrefix(posLines[1], "pos-aaa,AAA,OPEN,CHANNEL_BREAKOUT,LONG,101.25") {
		t.Errorf("positions csv row = %q", posLines[1])
	}

	rankCSV := RenderRankingsCSV(report.Rankings)
	rankLines := strings.Split(strings.TrimRight(rankCSV, "\n"), "\n")
	if len(rankLines) != 3 {
		t.Fatalf("rankings csv lines = %d, want 3", len(rankLines))
	}
	// Embedded quotes in the params record must be doubled.
	if !strings.Contains(rankLines[1], `""channel_span"":10`) {
		t.Errorf("rankings csv params not quoted: %q", rankLines[1])
	}
}
