package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultChannelPrefix = "reservation"

// RedisSink publishes events to a Redis pub/sub channel per reservation,
// letting other processes observe transitions without polling.
type RedisSink struct {
	client *redis.Client
	prefix string
}

func NewRedisSink(client *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisSink{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel name for a reservation id.
func (s *RedisSink) Channel(reservationID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, reservationID)
}

func (s *RedisSink) Send(ctx context.Context, e Event) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.client.Publish(ctx, s.Channel(e.ReservationID), data).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}
