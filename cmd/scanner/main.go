package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohamedkhairy/swing-scanner/internal/alert"
	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/indicator"
	"github.com/mohamedkhairy/swing-scanner/internal/orchestrator"
	"github.com/mohamedkhairy/swing-scanner/internal/poller"
	"github.com/mohamedkhairy/swing-scanner/internal/scoring"
	"github.com/mohamedkhairy/swing-scanner/internal/storage"
	"github.com/mohamedkhairy/swing-scanner/internal/stream"
	"github.com/mohamedkhairy/swing-scanner/internal/volume"
	"github.com/mohamedkhairy/swing-scanner/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting swing scanner",
		logger.String("environment", cfg.Environment),
		logger.Bool("wildcard", cfg.MarketData.Wildcard),
		logger.Int("symbols", len(cfg.MarketData.Symbols)),
	)

	// Initialize storage
	db, err := storage.NewTimescaleClient(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database",
			logger.ErrorField(err),
		)
	}
	defer db.Close()

	broadcaster, err := storage.NewRedisBroadcaster(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize Redis broadcaster",
			logger.ErrorField(err),
		)
	}
	defer broadcaster.Close()

	// Initialize pipeline components
	provider := scoring.NewHTTPProvider(cfg.Adapters)
	detector := volume.NewDetector(cfg.Volume, db)
	engine := indicator.NewEngine(cfg.Indicator)

	scorer := scoring.NewScorer(
		cfg.Scoring,
		cfg.Volume,
		cfg.Indicator,
		cfg.Adapters,
		detector,
		engine,
		db,
		provider,
		provider,
	)

	gate := alert.NewGate(cfg.Alert, db, scorer, broadcaster)
	orch := orchestrator.New(cfg.Orchestrator, gate, cfg.MarketData.Wildcard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Market data stream feeds bars into the orchestrator
	client := stream.NewClient(cfg.MarketData, db)
	client.SetBarHandler(orch.HandleBar(ctx))

	go func() {
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Market data stream stopped",
				logger.ErrorField(err),
			)
		}
	}()

	// Session poller broadens coverage during trading sessions
	snapshots := poller.NewHTTPSnapshotProvider(cfg.MarketData)
	sessionPoller := poller.NewPoller(cfg.Poller, snapshots, orch)
	go sessionPoller.Run(ctx)

	// Periodic enrichment updaters only make sense with an explicit
	// ticker universe
	if !cfg.MarketData.Wildcard {
		refresher := scoring.NewFundamentalsRefresher(cfg.Adapters, provider, cfg.MarketData.Symbols)
		go refresher.Run(ctx)

		newsPoller := scoring.NewNewsPoller(cfg.Adapters, provider, cfg.MarketData.Symbols)
		go newsPoller.Run(ctx)
	}

	// Metrics and health endpoints
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.MetricsPort),
		Handler: router,
	}

	go func() {
		logger.Info("Starting metrics server",
			logger.String("addr", metricsServer.Addr),
		)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start metrics server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down swing scanner")

	cancel()

	// Let in-flight scoring finish before closing storage
	orch.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down metrics server",
			logger.ErrorField(err),
		)
	}

	logger.Info("Swing scanner stopped")
}
