// Package queue provides the shared priority queue that delivers QueueJob
// handles from the intake API to the worker pool, and the best-effort
// fire-and-forget lane for non-critical telemetry.
//
// The queue is ordered strictly by priority descending, FIFO within a
// priority band. Delivery is at-most-once per entry: each pop is atomic, so
// an entry is handed to exactly one consumer. The Redis implementation is
// the production broker, shared by every intake and worker process; the
// memory implementation mirrors the same contract for tests and
// single-process development.
package queue
