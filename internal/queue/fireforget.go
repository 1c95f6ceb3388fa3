package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	goredis "github.com/redis/go-redis/v9"
)

// firehoseKey is the capped Redis list backing the fire-and-forget lane.
const firehoseKey = "events:firehose"

// firehoseCap bounds the list so an idle consumer never grows it unbounded.
const firehoseCap = 10000

// Publisher is the fire-and-forget lane for non-critical background updates
// (usage telemetry, progress breadcrumbs). It is deliberately a weaker
// contract than the job queue: best-effort enqueue, no retries, errors
// swallowed. It must never block or fail the caller.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any)
}

// RedisPublisher pushes events onto a capped Redis list.
type RedisPublisher struct {
	client *goredis.Client
	logger *slog.Logger
}

// NewRedisPublisher creates a fire-and-forget publisher.
func NewRedisPublisher(client *goredis.Client, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

// Publish enqueues the event best-effort. Failures are logged at debug and
// dropped.
func (p *RedisPublisher) Publish(ctx context.Context, event string, payload any) {
	body, err := json.Marshal(map[string]any{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		p.logger.Debug("dropping unencodable event", "event", event, "error", err)
		return
	}

	pipe := p.client.Pipeline()
	pipe.LPush(ctx, firehoseKey, string(body))
	pipe.LTrim(ctx, firehoseKey, 0, firehoseCap-1)

	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.Debug("dropping event, broker unavailable", "event", event, "error", err)
	}
}

// MemoryPublisher records events in memory. Test double for the
// fire-and-forget lane.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []string
}

// NewMemoryPublisher creates an in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the event name.
func (p *MemoryPublisher) Publish(ctx context.Context, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// Events returns the recorded event names.
func (p *MemoryPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	copy(out, p.events)
	return out
}
