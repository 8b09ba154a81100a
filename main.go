package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tradewind-io/tradewind-gateway/pkg/adapters/datasource/postgres"
	"github.com/tradewind-io/tradewind-gateway/pkg/config"
	"github.com/tradewind-io/tradewind-gateway/pkg/database"
	"github.com/tradewind-io/tradewind-gateway/pkg/handlers"
	"github.com/tradewind-io/tradewind-gateway/pkg/llm"
	"github.com/tradewind-io/tradewind-gateway/pkg/middleware"
	"github.com/tradewind-io/tradewind-gateway/pkg/repositories"
	"github.com/tradewind-io/tradewind-gateway/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.String("oracle_provider", cfg.Oracle.Provider),
		zap.String("oracle_model", cfg.Oracle.Model))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// golang-migrate wants a database/sql handle; borrow one from the pool.
	migrationDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(migrationDB, "./migrations", logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := migrationDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	generator, err := llm.NewGenerator(&cfg.Oracle, logger)
	if err != nil {
		logger.Fatal("Failed to create SQL generator", zap.Error(err))
	}

	runRepo := repositories.NewQueryRunRepository(db)
	executor := postgres.NewExecutor(db.Pool)
	extractor := postgres.NewSchemaExtractor(db.Pool)

	schemaCtx := services.NewSchemaContextService(
		extractor,
		time.Duration(cfg.Gateway.SchemaCacheTTLSeconds)*time.Second,
		logger)

	gateway := services.NewGatewayService(runRepo, generator, executor, schemaCtx, services.GatewayConfig{
		DefaultMaxRows:   cfg.Gateway.DefaultMaxRows,
		StatementTimeout: time.Duration(cfg.Gateway.StatementTimeoutMs) * time.Millisecond,
	}, logger)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	text2sqlHandler := handlers.NewText2SQLHandler(gateway, logger)
	text2sqlHandler.RegisterRoutes(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting tradewind-gateway",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
