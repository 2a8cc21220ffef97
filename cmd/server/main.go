// Package main provides the API server entry point for the portfolio
// analytics service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cryptofolio/internal/api"
	"github.com/cryptofolio/internal/config"
	"github.com/cryptofolio/internal/logging"
	"github.com/cryptofolio/internal/service"
	"github.com/cryptofolio/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Database connections
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Repositories
	portfolioRepo := storage.NewPortfolioRepository(postgres)
	transactionRepo := storage.NewTransactionRepository(postgres)
	assetRepo := storage.NewAssetRepository(postgres)
	snapshotRepo := storage.NewSnapshotRepository(clickhouse)

	quoteCache := storage.NewQuoteCache(redis, cfg.Cache.TTL, nil)

	// Services
	portfolioService := service.NewPortfolioService(
		portfolioRepo,
		transactionRepo,
		snapshotRepo,
		assetRepo,
		quoteCache,
		nil,
	)
	transactionService := service.NewTransactionService(
		transactionRepo,
		portfolioRepo,
		assetRepo,
		quoteCache,
		nil,
	)
	compareService := service.NewCompareService(snapshotRepo, cfg.Chart.MaxPoints, cfg.Chart.MaxPointsNarrow, nil)
	snapshotService := service.NewSnapshotService(snapshotRepo, snapshotRepo, quoteCache, nil, nil)

	logger.Info("Services initialized")

	serverConfig := &api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}
	server := api.NewServer(serverConfig, portfolioService, transactionService, compareService, snapshotService)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
