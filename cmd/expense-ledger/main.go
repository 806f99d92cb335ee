package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"expense-ledger/internal/api"
	"expense-ledger/internal/api/handlers"
	"expense-ledger/internal/idempotency"
	"expense-ledger/internal/repository"
	"expense-ledger/internal/service"
	"expense-ledger/pkg/config"
	"expense-ledger/pkg/logger"
	"expense-ledger/pkg/postgres"
	"expense-ledger/pkg/rediscache"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting expense-ledger service")

	// Initialize database
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	expenseRepo := repository.NewExpenseRepository(db, appLogger)
	idempotencyRepo := repository.NewIdempotencyRepository(db, appLogger)

	// Optional idempotency cache: the store alone is authoritative,
	// redis only shortens the replay path.
	var cache idempotency.Cache
	if cfg.Redis.Enabled() {
		redisCache, err := rediscache.New(&cfg.Redis, cfg.Idempotency.RetentionHorizon)
		if err != nil {
			appLogger.Warn("Redis unavailable, idempotency cache disabled", zap.Error(err))
		} else {
			defer redisCache.Close()
			cache = redisCache
			appLogger.Info("Idempotency cache enabled", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	// Initialize services
	expenseService := service.NewExpenseService(expenseRepo, appLogger)
	coordinator := idempotency.NewCoordinator(idempotencyRepo, cache, appLogger)

	// Retention sweeper
	sweeper := idempotency.NewSweeper(
		idempotencyRepo,
		cfg.Idempotency.RetentionHorizon,
		cfg.Idempotency.SweepInterval,
		appLogger,
	)
	go sweeper.Run(ctx)

	// Initialize handlers
	expenseHandler := handlers.NewExpenseHandler(expenseService, coordinator, appLogger)
	healthHandler := handlers.NewHealthHandler(db, appLogger)

	// Setup router
	app := api.SetupRouter(expenseHandler, healthHandler, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	cancel()
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
