package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, event Event) error
}

// RedisPublisher sends events as JSON over redis pub/sub, one channel per topic.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", topic, err)
	}
	return nil
}

type LogPublisher struct {
	logger *logging.Service
}

func NewLogPublisher(logger *logging.Service) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, topic string, event Event) error {
	if p.logger != nil {
		p.logger.Info("event published",
			zap.String("topic", topic),
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
			zap.String("user_id", event.UserID),
			zap.Any("data", event.Data))
	}
	return nil
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error {
	return nil
}
