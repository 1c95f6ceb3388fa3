package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/linguary/linguary-api/internal/blob"
	"github.com/linguary/linguary-api/internal/cache"
	"github.com/linguary/linguary-api/internal/config"
	"github.com/linguary/linguary-api/internal/platform/postgres"
	"github.com/linguary/linguary-api/internal/queue"
	"github.com/linguary/linguary-api/internal/service"
)

// application bundles the server's wired dependencies.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *goredis.Client

	intake service.IntakeService
	status service.StatusService
}

// newApplication connects to the external dependencies and builds the
// service graph.
func newApplication(cfg *config.Config) (*application, error) {
	logger := slog.Default()

	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, logger); err != nil {
		return nil, err
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	blobs, err := blob.NewFSStore(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	jobs := postgres.NewPostgresJobStore(db)
	results := postgres.NewPostgresResultStore(db)

	jobQueue := queue.NewRedisQueue(redisClient)
	statusCache := cache.NewRedisCache(redisClient, cfg.Redis.StatusTTL, cfg.Redis.ExtendedTTL)
	events := queue.NewRedisPublisher(redisClient, logger)

	intake := service.NewIntakeService(blobs, jobs, jobQueue, events, service.IntakeConfig{
		MaxFileSize:   cfg.Intake.MaxFileSize,
		UploadRetries: cfg.Storage.UploadRetries,
	}, logger)

	status := service.NewStatusService(statusCache, jobs, results, logger)

	return &application{
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
		intake: intake,
		status: status,
	}, nil
}

// cleanup releases the application's external connections.
func (app *application) cleanup() {
	if err := app.redis.Close(); err != nil {
		app.logger.Error("failed to close redis client", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}
}
