// Package config defines the application configuration structure and loads
// it from environment variables and an optional config file. Values are
// validated before use; the pipeline never runs with a partial config.
package config
