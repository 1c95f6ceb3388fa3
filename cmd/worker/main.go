// Package main implements the linguary worker: it consumes the job queue,
// runs the registered processors and keeps the recovery sweeps running.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/linguary/linguary-api/internal/cache"
	"github.com/linguary/linguary-api/internal/config"
	"github.com/linguary/linguary-api/internal/platform/logger"
	"github.com/linguary/linguary-api/internal/platform/postgres"
	"github.com/linguary/linguary-api/internal/queue"
	"github.com/linguary/linguary-api/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("worker error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(logger.Options{
		Level:  cfg.Server.LogLevel,
		Format: cfg.Server.LogFormat,
	})

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", "error", err)
		}
	}()

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			appLogger.Error("failed to close redis client", "error", err)
		}
	}()

	jobs := postgres.NewPostgresJobStore(db)
	settle := postgres.NewPostgresSettlementStore(db)
	errorLogs := postgres.NewPostgresErrorLogStore(db)

	jobQueue := queue.NewRedisQueue(redisClient)
	statusCache := cache.NewRedisCache(redisClient, cfg.Redis.StatusTTL, cfg.Redis.ExtendedTTL)

	registry := worker.NewRegistry()
	if err := registerProcessors(registry, appLogger); err != nil {
		return fmt.Errorf("failed to register processors: %w", err)
	}
	slog.Info("processors registered", "job_types", registry.Types())

	pool := worker.NewPool(jobQueue, jobs, settle, errorLogs, statusCache, registry, worker.Config{
		Count:             cfg.Worker.Count,
		PopTimeout:        cfg.Worker.PopTimeout,
		ProcessingTimeout: cfg.Worker.ProcessingTimeout,
		RetryDelays:       worker.DefaultConfig().RetryDelays,
	}, appLogger)

	sweeper := worker.NewSweeper(jobQueue, jobs, errorLogs, statusCache, worker.SweeperConfig{
		Interval:          cfg.Worker.SweepInterval,
		ProcessingTimeout: cfg.Worker.ProcessingTimeout,
		OrphanGrace:       cfg.Worker.OrphanGrace,
	}, appLogger)

	pool.Start()
	if err := sweeper.Start(); err != nil {
		pool.Stop()
		return fmt.Errorf("failed to start sweeps: %w", err)
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownCh

	appLogger.Info("shutting down worker")
	sweeper.Stop()
	pool.Stop()
	appLogger.Info("worker shutdown completed")
	return nil
}
