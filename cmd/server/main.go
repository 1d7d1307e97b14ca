package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/camuig/paper-desk/internal/broker"
	"github.com/camuig/paper-desk/internal/config"
	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/inference"
	"github.com/camuig/paper-desk/internal/ledger"
	"github.com/camuig/paper-desk/internal/logger"
	"github.com/camuig/paper-desk/internal/marketdata"
	"github.com/camuig/paper-desk/internal/observability"
	"github.com/camuig/paper-desk/internal/scheduler"
	"github.com/camuig/paper-desk/internal/signal"
	"github.com/camuig/paper-desk/internal/storage"
	"github.com/camuig/paper-desk/internal/storage/memory"
	"github.com/camuig/paper-desk/internal/storage/postgres"
	"github.com/camuig/paper-desk/internal/storage/sqlite"
	"github.com/camuig/paper-desk/internal/stream"
	"github.com/camuig/paper-desk/internal/telegram"
	"github.com/camuig/paper-desk/internal/web"
)

var version = "dev"

type stores struct {
	positions storage.PositionStore
	signals   storage.SignalLog
	pinger    storage.Pinger
	close     func() error
}

func openStores(ctx context.Context, cfg config.DatabaseConfig) (*stores, error) {
	switch cfg.Driver {
	case "memory":
		return &stores{
			positions: memory.NewPositionStore(),
			signals:   memory.NewSignalLog(),
			close:     func() error { return nil },
		}, nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		positions := postgres.NewPositionStore(pool)
		return &stores{
			positions: positions,
			signals:   postgres.NewSignalLog(pool),
			pinger:    positions,
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil
	}

	db, err := sqlite.NewDatabase(cfg.Path)
	if err != nil {
		return nil, err
	}
	positions := sqlite.NewPositionStore(db)
	return &stores{
		positions: positions,
		signals:   sqlite.NewSignalLog(db),
		pinger:    positions,
		close:     func() error { return sqlite.Close(db) },
	}, nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "", "path to SQLite database (overrides config)")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	// Init logger
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting paper-desk", "version", version, "database", cfg.Database.Driver)

	// Init storage
	st, err := openStores(context.Background(), cfg.Database)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Error("database close error", "error", err)
		}
	}()

	// Context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	notifier := telegram.NewNotifier(cfg.Telegram, log)
	hub := stream.NewHub(log)

	// Models
	registry := inference.NewRegistry(log.With("component", "inference"))
	defer registry.Close()
	if err := registry.LoadDir(inference.LoadOptions{
		Dir:            cfg.Inference.ModelDir,
		Pattern:        cfg.Inference.ModelPattern,
		Library:        cfg.Inference.ONNXLibrary,
		DefaultVersion: cfg.Signal.ModelVersion,
		ONNX: inference.ONNXOptions{
			InputName:  cfg.Inference.InputName,
			OutputName: cfg.Inference.OutputName,
		},
	}); err != nil {
		log.Error("model registry init failed", "error", err)
	}
	if cfg.Inference.Chat.Enabled {
		registry.SetFallback(inference.NewChatClient(cfg.Inference.Chat, cfg.InferenceTimeout(), log))
		log.Info("chat model fallback enabled", "model", cfg.Inference.Chat.Model)
	}
	log.Info("models loaded", "count", registry.Len())

	// Market data
	prices := &marketdata.Router{
		Equities: marketdata.NewYahoo(cfg.MarketData.YahooBaseURL, cfg.MarketData.Interval, cfg.MarketData.Proxy, cfg.MarketDataTimeout()),
		Crypto:   marketdata.NewBinance(cfg.MarketData.BinanceBaseURL, cfg.MarketData.Interval, cfg.MarketData.Proxy, cfg.MarketDataTimeout()),
		MOEX:     marketdata.NewMOEX(cfg.MarketData.MoexBaseURL, cfg.MarketData.Interval, cfg.MarketData.Proxy, cfg.MarketDataTimeout()),
	}
	if cfg.Tinkoff.Enabled {
		bc, err := broker.NewBrokerClient(ctx, cfg, log)
		if err != nil {
			log.Error("broker client init failed, using MOEX ISS", "error", err)
		} else {
			prices.MOEX = bc
			defer func() {
				if err := bc.Stop(); err != nil {
					log.Error("broker client stop error", "error", err)
				}
			}()
		}
	}

	// Core services
	seed := cfg.Signal.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	engine := signal.NewEngine(registry, log.With("component", "signal"),
		signal.WithThreshold(cfg.Signal.Threshold),
		signal.WithNullModel(signal.NewNullModel(cfg.Signal.ModelVersion, rand.New(rand.NewSource(seed)))),
		signal.WithObserver(metrics),
		signal.WithObserver(hub),
	)
	led := ledger.New(st.positions, log.With("component", "ledger"),
		ledger.WithObserver(metrics),
		ledger.WithObserver(notifier),
		ledger.WithObserver(hub),
	)
	scanner := scheduler.NewScanner(prices, engine, st.signals, cfg.Indicators, log,
		scheduler.WithNotifier(notifier),
		scheduler.WithRecorder(metrics),
		scheduler.WithLookback(cfg.MarketData.Lookback),
		scheduler.WithFetchTimeout(cfg.MarketDataTimeout()),
	)

	// Scheduler
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		watchlist, err := buildWatchlist(cfg.Scheduler.Watchlist, registry.Symbols())
		if err != nil {
			log.Error("invalid watchlist", "error", err)
			os.Exit(1)
		}
		sched = scheduler.NewScheduler(cfg.Scheduler, watchlist, scanner, log)
		if err := sched.Start(ctx); err != nil {
			log.Error("scheduler start failed", "error", err)
			os.Exit(1)
		}
	}

	// Web server
	webServer := web.NewServer(cfg.Server, web.Services{
		Ledger:  led,
		Prices:  prices,
		Scanner: scanner,
		Signals: st.signals,
		Models:  registry,
		Storage: st.pinger,
		Metrics: metrics,
		Stream:  hub,
		Params:  cfg.Indicators,
		Version: version,
	}, log)

	go func() {
		if err := webServer.Start(); err != nil {
			log.Error("web server error", "error", err)
			cancel()
		}
	}()

	notifier.NotifyStatus(fmt.Sprintf("📈 Paper Desk started (%s)", version))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	// Graceful shutdown
	cancel()
	if sched != nil {
		sched.Stop()
	}

	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error("web server shutdown error", "error", err)
	}

	notifier.NotifyStatus("🛑 Paper Desk stopped")
	log.Info("paper-desk stopped")
}

// buildWatchlist falls back to every symbol with a loaded model.
func buildWatchlist(configured, modelSymbols []string) ([]domain.AssetRef, error) {
	if len(configured) > 0 {
		return scheduler.ParseWatchlist(configured)
	}
	return scheduler.ParseWatchlist(modelSymbols)
}
