package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// ChangeFeedChannel carries row-level poll/vote change events.
	ChangeFeedChannel = "polls:changes"
	// PresenceChannel carries presence announcements and departures.
	PresenceChannel = "polls:presence"
)

// InitRedis initializes the Redis client from a redis:// URL and
// verifies the connection with a ping.
func InitRedis(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
