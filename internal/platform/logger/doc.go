// Package logger provides structured logging for the application: slog
// setup from configuration and context helpers for request-scoped loggers.
package logger
