// Package postgres implements the store interfaces on PostgreSQL via
// database/sql with the pgx driver. The jobs table is the source of truth
// for job status; all status transitions are conditional updates so the
// single-lease invariant holds across concurrent workers.
package postgres
