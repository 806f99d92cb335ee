package main

import (
	"context"
	"log"

	"expense-ledger/pkg/config"
	"expense-ledger/pkg/logger"
	"expense-ledger/pkg/postgres"

	"go.uber.org/zap"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS expenses (
		id uuid PRIMARY KEY,
		amount numeric(12,2) NOT NULL CHECK (amount > 0),
		category text NOT NULL,
		description text NOT NULL,
		date date NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_category ON expenses (category)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses (date DESC, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_created_at ON expenses (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		key uuid PRIMARY KEY,
		response_status integer NOT NULL,
		response_body jsonb NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_idempotency_keys_created_at ON idempotency_keys (created_at)`,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	appLogger.Info("Starting database migration")

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			appLogger.Fatal("Migration statement failed",
				zap.String("statement", stmt),
				zap.Error(err),
			)
		}
	}

	appLogger.Info("Database migration completed")
}
