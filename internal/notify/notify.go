// Package notify publishes pipeline run outcomes to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"weather-etl/internal/config"
	"weather-etl/pkg/logging"
)

// RunEvent is the message published when a run finishes
type RunEvent struct {
	RunID     string    `json:"run_id"`
	Pipeline  string    `json:"pipeline"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Error     string    `json:"error,omitempty"`
}

// Notifier publishes run events
type Notifier interface {
	Publish(ctx context.Context, event RunEvent) error
	Close() error
}

// New returns a Redis stream notifier when cfg has an address, otherwise a no-op.
func New(cfg config.RedisConfig, logger *logging.StructuredLogger) Notifier {
	if !cfg.Enabled() {
		return Nop{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisNotifier(client, cfg.Stream, logger)
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(ctx context.Context, event RunEvent) error { return nil }

func (Nop) Close() error { return nil }

type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisNotifier appends run events to a Redis stream
type RedisNotifier struct {
	client streamClient
	stream string
	logger *logging.StructuredLogger
}

func newRedisNotifier(client streamClient, stream string, logger *logging.StructuredLogger) *RedisNotifier {
	return &RedisNotifier{client: client, stream: stream, logger: logger}
}

// Publish adds one stream entry holding the JSON-encoded event
func (n *RedisNotifier) Publish(ctx context.Context, event RunEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode run event: %w", err)
	}

	id, err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]interface{}{
			"run_id": event.RunID,
			"status": event.Status,
			"data":   string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish run %s to stream %s: %w", event.RunID, n.stream, err)
	}

	n.logger.Debug(ctx, "[NOTIFY_PUBLISHED] Run event published", logging.Fields{
		"stream":   n.stream,
		"entry_id": id,
		"status":   event.Status,
	})
	return nil
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
