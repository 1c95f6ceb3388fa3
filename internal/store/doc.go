// Package store provides abstractions for data persistence: the store
// interfaces consumed by the intake service and worker pool, shared error
// values, and transaction helpers. Concrete implementations live in
// internal/platform/postgres.
package store
