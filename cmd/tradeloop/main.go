// Package main runs the long-lived signal daemon: a cron-gated control
// loop over screening, optimization and signal generation, persisting
// to Postgres and ClickHouse and handing execution off over Kafka.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"tradeloop/internal/backtest"
	"tradeloop/internal/config"
	"tradeloop/internal/execution"
	"tradeloop/internal/marketclock"
	"tradeloop/internal/marketdata"
	"tradeloop/internal/observ"
	"tradeloop/internal/observability"
	"tradeloop/internal/optimizer"
	"tradeloop/internal/orchestrator"
	"tradeloop/internal/scheduler"
	"tradeloop/internal/screener"
	"tradeloop/internal/signalgen"
	"tradeloop/internal/storage/clickhouse"
	"tradeloop/internal/storage/migrations"
	"tradeloop/internal/storage/postgres"
	"tradeloop/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	runOnStart := flag.Bool("run-on-start", false, "Run one iteration immediately")
	flag.Parse()

	if err := run(*configPath, *runOnStart); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, runOnStart bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		observ.Log("daemon.shutdown_signal", map[string]any{"signal": sig.String()})
		cancel()
	}()

	// A malformed catalogue entry is a configuration defect; fail
	// before the first iteration rather than inside one.
	registry := strategy.NewRegistry()
	if err := registry.ValidateCatalogue(cfg.Catalogue); err != nil {
		return fmt.Errorf("validate catalogue: %w", err)
	}

	calendar, err := marketclock.New(cfg.Market.Timezone, cfg.Market.OpenTime, cfg.Market.CloseTime,
		time.Duration(cfg.Market.ClosingSoonMins)*time.Minute)
	if err != nil {
		return fmt.Errorf("market calendar: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}
	positions := postgres.NewPositionStore(pool)
	results := postgres.NewResultStore(pool)

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		return fmt.Errorf("clickhouse migrations: %w", err)
	}
	defer chConn.Close()
	barStore := clickhouse.NewBarStore(chConn)

	httpSource := marketdata.NewHTTPClient(cfg.MarketData.BaseURL, cfg.MarketData.RatePerMinute,
		time.Duration(cfg.MarketData.TimeoutSeconds)*time.Second)
	history := marketdata.NewCachedHistory(httpSource, barStore)

	notifier := execution.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer notifier.Close()

	workers := cfg.Optimization.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	screen, err := screener.New(screener.Options{
		Positions:          positions,
		History:            history,
		Earnings:           httpSource,
		Calendar:           calendar,
		Universe:           cfg.Screening.Universe,
		Workers:            workers,
		WindowDays:         cfg.Screening.WindowDays,
		LiquidityQuantile:  cfg.Screening.LiquidityQuantile,
		EarningsBufferDays: cfg.Screening.EarningsBufferDays,
	})
	if err != nil {
		return fmt.Errorf("screener: %w", err)
	}

	optim, err := optimizer.New(optimizer.Options{
		Positions:       positions,
		Results:         results,
		History:         history,
		Engine:          backtest.NewSimEngine(cfg.Optimization.StartingCash),
		Registry:        registry,
		Catalogue:       cfg.Catalogue,
		Workers:         workers,
		MaxHistoryYears: cfg.Optimization.MaxHistoryYears,
	})
	if err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}

	generator, err := signalgen.New(signalgen.Options{
		Positions:       positions,
		Results:         results,
		History:         history,
		Registry:        registry,
		Notifier:        notifier,
		MaxHistoryYears: cfg.Optimization.MaxHistoryYears,
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

	sched := scheduler.New(ctx, orch)
	if err := sched.Register(cfg.Loop.CronSpec); err != nil {
		return err
	}

	metricsSrv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: observability.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observ.Warn("daemon.metrics_server_failed", map[string]any{"error": err.Error()})
		}
	}()
	defer metricsSrv.Shutdown(context.Background())

	observ.Log("daemon.started", map[string]any{
		"cron":       cfg.Loop.CronSpec,
		"universe":   len(cfg.Screening.Universe),
		"strategies": registry.Names(),
		"workers":    workers,
		"metrics":    cfg.Metrics.ListenAddr,
	})

	if runOnStart {
		sched.RunNow()
	}
	sched.Start()

	select {
	case <-ctx.Done():
	case err := <-sched.Fatal():
		sched.Stop()
		observ.Log("daemon.stopped", nil)
		return fmt.Errorf("configuration defect: %w", err)
	}
	sched.Stop()
	observ.Log("daemon.stopped", nil)
	return nil
}
