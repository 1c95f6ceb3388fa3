// Package worker implements the consumer side of the job pipeline: a pool
// of workers that pop the priority queue, claim jobs, run the registered
// processing callback with retry and backoff, and keep the job store,
// result store and status cache in agreement. It also houses the periodic
// sweeps that recover stalled and orphaned jobs so every accepted job
// reaches a terminal state.
package worker
