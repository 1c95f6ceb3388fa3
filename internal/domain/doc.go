// Package domain contains the core types of the job pipeline: the durable
// Job record, the lightweight QueueJob handle placed on the priority queue,
// job results and per-attempt error logs, and the cached status view served
// to polling clients.
package domain
