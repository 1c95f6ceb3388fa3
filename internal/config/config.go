package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
	Intake   IntakeConfig   `mapstructure:"intake" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
}

// ServerConfig contains all HTTP server-related settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json console"`
}

// DatabaseConfig contains all database-related settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=1"`
}

// RedisConfig contains the broker/cache connection and TTL settings.
// Redis backs both the priority queue and the status cache so that all
// intake and worker processes share one view of the queue.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr" validate:"required"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db" validate:"gte=0"`
	StatusTTL   time.Duration `mapstructure:"status_ttl" validate:"required"`
	ExtendedTTL time.Duration `mapstructure:"extended_ttl" validate:"required"`
}

// StorageConfig contains blob storage settings.
type StorageConfig struct {
	// Root is the base directory for the filesystem blob store.
	Root string `mapstructure:"root" validate:"required"`

	// SignedURLExpiry bounds how long a stored artifact's URL stays valid.
	SignedURLExpiry time.Duration `mapstructure:"signed_url_expiry" validate:"required"`

	// UploadRetries is the number of attempts made for one intake upload.
	UploadRetries int `mapstructure:"upload_retries" validate:"gte=1"`
}

// IntakeConfig contains upload validation settings.
type IntakeConfig struct {
	// MaxFileSize is the upper bound on uploaded file size in bytes.
	MaxFileSize int64 `mapstructure:"max_file_size" validate:"required,gt=0"`
}

// WorkerConfig contains worker pool and sweep settings.
type WorkerConfig struct {
	// Count is the number of concurrent workers consuming the queue.
	Count int `mapstructure:"count" validate:"required,gte=1"`

	// PopTimeout bounds the blocking pop on an empty queue so a worker
	// never blocks indefinitely.
	PopTimeout time.Duration `mapstructure:"pop_timeout" validate:"required"`

	// ProcessingTimeout is the lease duration: a job in processing longer
	// than this is considered stalled and requeued by the reaper.
	ProcessingTimeout time.Duration `mapstructure:"processing_timeout" validate:"required"`

	// SweepInterval is the cron cadence for the reaper and reconciliation
	// sweeps.
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"required"`

	// OrphanGrace is how long a queued job may be absent from the queue
	// before the reconciliation sweep re-enqueues it.
	OrphanGrace time.Duration `mapstructure:"orphan_grace" validate:"required"`
}
