// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/pharmacy-pos/internal/config"
	"github.com/your-org/pharmacy-pos/internal/infrastructure/database/postgres"
	"github.com/your-org/pharmacy-pos/internal/infrastructure/database/redis"
	"github.com/your-org/pharmacy-pos/internal/interfaces/http"
	"github.com/your-org/pharmacy-pos/internal/interfaces/http/routes"
	"github.com/your-org/pharmacy-pos/internal/pkg/logger"
	"github.com/your-org/pharmacy-pos/internal/pkg/metrics"
	"github.com/your-org/pharmacy-pos/internal/pkg/postcommit"
)

// seedTenantID owns the demo catalog created in development
const seedTenantID = 1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg)
	appLogger.WithField("version", cfg.App.Version).
		WithField("environment", cfg.App.Environment).
		Infof("Starting %s", cfg.App.Name)

	// Connect to database
	db, err := postgres.NewConnection(cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Health(); err != nil {
		appLogger.WithError(err).Fatal("Database health check failed")
	}

	// Redis only backs rate limiting and adjustment locks, so the ledger starts without it
	redisClient, err := redis.NewConnection(cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Warn("Redis unavailable, running without rate limiting and adjustment locks")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Run database migrations
	migration := postgres.NewMigration(db.GetDB(), appLogger)

	if err := migration.RunAutoMigrations(); err != nil {
		appLogger.WithError(err).Fatal("Database migration failed")
	}

	if err := migration.CreateIndexes(); err != nil {
		appLogger.WithError(err).Warn("Index creation failed")
	}

	// Seed initial data in development
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(context.Background(), cfg, seedTenantID); err != nil {
			appLogger.WithError(err).Warn("Data seeding failed")
		}
	}

	m := metrics.New()
	dispatcher := postcommit.NewDispatcher(appLogger, m, cfg.Ledger.PostCommitTimeout)

	server := http.NewServer(&routes.Dependencies{
		DB:         db.GetDB(),
		Redis:      redisClient,
		Config:     cfg,
		Logger:     appLogger,
		Metrics:    m,
		Dispatcher: dispatcher,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			appLogger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		appLogger.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	// let queued reconciliation cases finish before the pool closes
	dispatcher.Wait()

	appLogger.Info("Server shutdown completed")
}
