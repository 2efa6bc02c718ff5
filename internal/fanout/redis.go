package fanout

import (
	"context"
	"encoding/json"

	"senha-engine/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher bridges the fan-out channel across processes via redis
// pub/sub. Redis delivers per-channel messages in publish order, which
// preserves the per-topic FIFO guarantee.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, event model.TicketEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, topic, payload).Err()
}
