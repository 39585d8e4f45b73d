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
	"github.com/mohamedkhairy/swing-scanner/internal/api"
	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/indicator"
	"github.com/mohamedkhairy/swing-scanner/internal/scoring"
	"github.com/mohamedkhairy/swing-scanner/internal/storage"
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

	logger.Info("Starting API service",
		logger.Int("port", cfg.API.Port),
		logger.Int("rate_limit_rps", cfg.API.RateLimitRPS),
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

	// Initialize the scoring pipeline for on-demand checks
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

	// Initialize handlers
	alertHandler := api.NewAlertHandler(db)
	scoreHandler := api.NewScoreHandler(scorer, gate)
	healthHandler := api.NewHealthHandler()

	// Set up router
	router := mux.NewRouter()

	router.HandleFunc("/alerts", alertHandler.ListAlerts).Methods("GET")
	router.HandleFunc("/score/{ticker}", scoreHandler.GetScore).Methods("GET")

	// Mutating endpoints require a bearer token
	router.Handle("/check/{ticker}",
		api.AuthMiddleware(cfg.API.JWTSecret)(http.HandlerFunc(scoreHandler.CheckTicker)),
	).Methods("POST")

	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler())

	// Apply middleware
	middlewares := api.ChainMiddleware(
		api.CORSMiddleware(),
		api.LoggingMiddleware(),
		api.RecoveryMiddleware(),
		api.RateLimitMiddleware(cfg.API.RateLimitRPS),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      middlewares(router),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down API service")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	logger.Info("API service stopped")
}
