// Package notify is the best-effort broadcast capability. The core only
// depends on Publish(topic, payload); delivery to clients is someone
// else's problem. Failures are logged and never surfaced to callers, so
// a dead broker can never roll back financial state.
package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Publisher pushes one event to a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// RedisPublisher fans events out over redis pub/sub channels
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, topic, data).Err()
}

// Default is the process-wide publisher, set during startup
var Default Publisher

func SetDefault(p Publisher) {
	Default = p
}

// Publish sends through the default publisher, best-effort
func Publish(ctx context.Context, topic string, payload interface{}) {
	if Default == nil {
		return
	}
	if err := Default.Publish(ctx, topic, payload); err != nil {
		log.Printf("[NOTIFY] Failed to publish to %s: %v", topic, err)
	}
}
