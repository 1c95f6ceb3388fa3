// Package main implements the linguary API server: upload intake and status
// polling for the asynchronous job pipeline.
package main

import (
	"fmt"
	"log"
	"log/slog"

	"github.com/linguary/linguary-api/internal/config"
	"github.com/linguary/linguary-api/internal/platform/logger"
)

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := app.startHTTPServer(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// initializeApp loads configuration, sets up logging and wires the
// application's dependencies.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Setup(logger.Options{
		Level:  cfg.Server.LogLevel,
		Format: cfg.Server.LogFormat,
	})

	slog.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"max_file_size", cfg.Intake.MaxFileSize)

	return newApplication(cfg)
}
