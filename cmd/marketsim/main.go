package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/efreitasn/marketsim/internal/config"
	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/engine"
	"github.com/efreitasn/marketsim/internal/handler"
	"github.com/efreitasn/marketsim/internal/report"
	"github.com/efreitasn/marketsim/internal/service"
	"github.com/efreitasn/marketsim/internal/sim"
	"github.com/efreitasn/marketsim/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Stores and registries.
	traderStore := store.NewTraderStore()
	orderStore := store.NewOrderStore()
	tradeStore := store.NewTradeStore()
	instruments := domain.NewInstrumentRegistry()

	// Event sinks: structured log + Prometheus.
	promRegistry := prometheus.NewRegistry()
	metrics := report.NewMetrics(promRegistry)
	sink := report.MultiSink{
		report.NewLogSink(logger),
		report.NewMetricsSink(metrics),
	}

	// Engine.
	books := engine.NewBookManager()
	matcher := engine.NewMatcher(books, traderStore, orderStore, tradeStore, instruments, sink)

	// Decision policy: seeded for reproducible sessions when SEED is set.
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	policyCfg := sim.DefaultRandomPolicyConfig()
	policyCfg.ReplenishProbability = cfg.ReplenishProbability
	policyCfg.DepositMin = cfg.DepositMin
	policyCfg.DepositMax = cfg.DepositMax
	policy := sim.NewRandomPolicy(seed, policyCfg)

	// Services.
	traderSvc := service.NewTraderService(traderStore, instruments)
	orderSvc := service.NewOrderService(matcher, books, instruments, policy, sink, cfg.LotSize, cfg.PriceBandPct)

	// Seed the market: instrument catalog and trader population.
	if err := sim.Setup(cfg.Instruments, cfg.TraderCount, policy, instruments, traderSvc); err != nil {
		logger.Error("failed to seed market", slog.String("error", err.Error()))
		os.Exit(1)
	}

	driver := sim.NewDriver(
		sim.DriverConfig{
			TickInterval: cfg.TickInterval,
			TickCount:    cfg.TickCount,
			LotSize:      cfg.LotSize,
		},
		traderStore, traderSvc, instruments, orderSvc, matcher, policy, sink, logger,
	)

	// Router.
	instrumentH := handler.NewInstrumentHandler(instruments, books)
	router := handler.NewRouter(instrumentH, traderSvc, promRegistry, logger)

	// Start the simulation with a cancellable context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		logger.Info("session starting",
			slog.Int("ticks", cfg.TickCount),
			slog.Duration("tick_interval", cfg.TickInterval),
			slog.Uint64("seed", seed),
		)
		if err := driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("session error", slog.String("error", err.Error()))
		}
	}()

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop the driver between ticks, drain HTTP.
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
