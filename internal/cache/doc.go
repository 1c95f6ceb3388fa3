// Package cache provides the TTL-bounded status cache that serves the
// polling API. Entries are a derived, disposable view; the job store stays
// authoritative and a miss triggers a read-through rebuild.
package cache
