package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence and use the LINGUARY_ prefix with underscores for nesting
// (e.g. LINGUARY_SERVER_PORT, LINGUARY_REDIS_ADDR).
// Returns a populated Config or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment can carry
		// everything. Any other read error is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("LINGUARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, and the
	// database URL deliberately has no default. Bind it explicitly so the
	// environment can supply it.
	_ = v.BindEnv("database.url")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults applies the pipeline's fixed design values. Anything here can
// still be overridden by config file or environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.status_ttl", 24*time.Hour)
	v.SetDefault("redis.extended_ttl", 7*24*time.Hour)

	v.SetDefault("storage.root", "./data/blobs")
	v.SetDefault("storage.signed_url_expiry", 7*24*time.Hour)
	v.SetDefault("storage.upload_retries", 3)

	v.SetDefault("intake.max_file_size", int64(50*1024*1024))

	v.SetDefault("worker.count", 4)
	v.SetDefault("worker.pop_timeout", 5*time.Second)
	v.SetDefault("worker.processing_timeout", time.Hour)
	v.SetDefault("worker.sweep_interval", time.Minute)
	v.SetDefault("worker.orphan_grace", 2*time.Minute)
}
