package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const forwardTimeout = 500 * time.Millisecond

// RedisPublisher is the part of *redis.Client the forwarder needs.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisForwarder mirrors every domain event as JSON onto a Redis pub/sub
// channel so dashboards can follow ticket and job activity live.
type RedisForwarder struct {
	client  RedisPublisher
	channel string
	logger  *zap.Logger
}

// NewRedisForwarder constructs a forwarder.
func NewRedisForwarder(client RedisPublisher, channel string, logger *zap.Logger) *RedisForwarder {
	return &RedisForwarder{client: client, channel: channel, logger: logger}
}

// Register subscribes the forwarder to all events.
func (f *RedisForwarder) Register(d Dispatcher) {
	if f == nil || f.client == nil || d == nil {
		return
	}
	SubscribeAll(d, f.Forward)
}

// Forward publishes a single event.
func (f *RedisForwarder) Forward(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, forwardTimeout)
	defer cancel()

	if err := f.client.Publish(ctx, f.channel, body).Err(); err != nil {
		f.logger.Warn("redis publish failed",
			zap.String("channel", f.channel),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return fmt.Errorf("publish event %s: %w", event.Type, err)
	}
	return nil
}
