// Package main runs one full control-loop iteration against in-memory
// stores and synthetic market data. Useful for trying out catalogue
// changes without Postgres, ClickHouse or Kafka.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"tradeloop/internal/backtest"
	"tradeloop/internal/domain"
	"tradeloop/internal/execution"
	"tradeloop/internal/marketclock"
	"tradeloop/internal/marketdata"
	"tradeloop/internal/optimizer"
	"tradeloop/internal/orchestrator"
	"tradeloop/internal/reporting"
	"tradeloop/internal/screener"
	"tradeloop/internal/signalgen"
	"tradeloop/internal/storage/memory"
	"tradeloop/internal/strategy"
)

func main() {
	universe := flag.String("universe", "AAPL,MSFT,NVDA,AMZN,GOOG,META,TSLA,JPM", "Comma-separated ticker universe")
	cycles := flag.Int("cycles", 4, "Number of iterations to run")
	flag.Parse()

	if err := run(strings.Split(*universe, ","), *cycles); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// defaultCatalogue sweeps a small grid per built-in strategy.
func defaultCatalogue() []domain.ParameterSet {
	return []domain.ParameterSet{
		{
			Strategy: domain.StrategySMACross,
			Swept: map[string]domain.ParamRange{
				"fast_span": {Min: 5, Max: 20, Step: 5},
				"slow_span": {Min: 30, Max: 60, Step: 15},
			},
			Specific: []string{"fast_span", "slow_span"},
		},
		{
			Strategy: domain.StrategyRSIReversal,
			Swept: map[string]domain.ParamRange{
				"window":     {Min: 7, Max: 21, Step: 7},
				"buy_level":  {Min: 20, Max: 35, Step: 5},
				"sell_level": {Min: 65, Max: 80, Step: 5},
			},
			Specific: []string{"buy_level", "sell_level"},
		},
		{
			Strategy: domain.StrategyChannelBreakout,
			Swept: map[string]domain.ParamRange{
				"channel_span": {Min: 10, Max: 40, Step: 10},
				"band_pct":     {Min: 0.005, Max: 0.02, Step: 0.005},
			},
			Specific: []string{"channel_span", "band_pct"},
		},
	}
}

func run(universe []string, cycles int) error {
	ctx := context.Background()

	registry := strategy.NewRegistry()
	catalogue := defaultCatalogue()
	if err := registry.ValidateCatalogue(catalogue); err != nil {
		return fmt.Errorf("validate catalogue: %w", err)
	}

	calendar, err := marketclock.New("America/New_York", "09:30", "16:00", 15*time.Minute)
	if err != nil {
		return fmt.Errorf("market calendar: %w", err)
	}

	positions := memory.NewPositionStore()
	results := memory.NewResultStore()
	source := marketdata.NewSyntheticSource(100, 0.02)
	history := marketdata.NewCachedHistory(source, memory.NewBarStore())
	workers := runtime.GOMAXPROCS(0)

	screen, err := screener.New(screener.Options{
		Positions:         positions,
		History:           history,
		Earnings:          source,
		Calendar:          calendar,
		Universe:          universe,
		Workers:           workers,
		WindowDays:        90,
		LiquidityQuantile: 0.5,
	})
	if err != nil {
		return fmt.Errorf("screener: %w", err)
	}

	optim, err := optimizer.New(optimizer.Options{
		Positions:       positions,
		Results:         results,
		History:         history,
		Engine:          backtest.NewSimEngine(10_000),
		Registry:        registry,
		Catalogue:       catalogue,
		Workers:         workers,
		MaxHistoryYears: 3,
	})
	if err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}

	generator, err := signalgen.New(signalgen.Options{
		Positions:       positions,
		Results:         results,
		History:         history,
		Registry:        registry,
		Notifier:        execution.NoopNotifier{},
		MaxHistoryYears: 3,
	})
	if err != nil {
		return fmt.Errorf("signal generator: %w", err)
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Positions: positions,
		Calendar:  calendar,
		Screener:  screen,
		Optimizer: optim,
		Generator: generator,
	})
	if err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}

	// Evaluate outside market hours so every stage can run.
	now := nextQuietInstant(calendar, time.Now())

	state := orchestrator.LoopState{}
	for i := 0; i < cycles; i++ {
		state, err = orch.RunCycle(ctx, state, now)
		if err != nil {
			return fmt.Errorf("cycle %d: %w", i+1, err)
		}
	}

	report, err := reporting.NewGenerator(positions, results).Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	fmt.Print(reporting.RenderMarkdown(report))
	return nil
}

// nextQuietInstant returns now if generation can run, otherwise the
// same clock time pushed to the coming evening.
func nextQuietInstant(calendar *marketclock.Calendar, now time.Time) time.Time {
	if calendar.Session(now).CanGenerate {
		return now
	}
	evening := time.Date(now.Year(), now.Month(), now.Day(), 20, 0, 0, 0, now.Location())
	return evening
}

